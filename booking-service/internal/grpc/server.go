// Package grpc hosts the gRPC side of the booking service. The server carries
// only health probes and reflection; StatusFromError is the error mapping the
// HTTP transport builds on.
package grpc

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name reported to health checks.
const ServiceName = "booking.v1.BookingService"

type Server struct {
	*grpc.Server
	health *health.Server
}

func NewServer() *Server {
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	// Enable reflection for grpcurl/grpcui
	reflection.Register(srv)

	return &Server{Server: srv, health: hs}
}

// SetServing flips both the overall and the booking service health status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Stop marks the server as not serving before draining in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.GracefulStop()
}
