// Package http exposes the booking service as a JSON REST API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
	"github.com/rnqayush/starter-sub001/booking-service/internal/service"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxRequestBodySize = 1 << 20 // 1MB

// BookingService is the part of service.BookingService the REST API calls.
type BookingService interface {
	GetUnit(ctx context.Context, actor domain.Actor, unitID string) (*domain.BookableUnit, error)
	UpsertUnit(ctx context.Context, actor domain.Actor, unit *domain.BookableUnit) (*domain.BookableUnit, error)
	CheckAvailability(ctx context.Context, unitID string, iv interval.Interval, quantity int) (*service.Availability, error)
	BookUnit(ctx context.Context, actor domain.Actor, req domain.ReservationRequest) (*domain.Reservation, error)
	GetReservation(ctx context.Context, actor domain.Actor, reservationID string) (*domain.Reservation, error)
	Transition(ctx context.Context, actor domain.Actor, reservationID string, target domain.Status) (*domain.Reservation, error)
	Cancel(ctx context.Context, actor domain.Actor, reservationID, reason string) (*service.CancelResult, error)
}

func NewRouter(svc BookingService, tokens TokenParser, logger *zap.Logger, timeout time.Duration) http.Handler {
	units := NewUnitHandler(svc, timeout)
	reservations := NewReservationHandler(svc, timeout)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(MaxBodySize(maxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))

		r.Route("/units/{unit_id}", func(r chi.Router) {
			r.Get("/", units.GetUnit)
			r.Put("/", units.UpsertUnit)
			r.Get("/availability", units.CheckAvailability)
		})
		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", reservations.Book)
			r.Get("/{reservation_id}", reservations.Get)
			r.Post("/{reservation_id}/transitions", reservations.Transition)
			r.Post("/{reservation_id}/cancel", reservations.Cancel)
		})
	})

	return otelhttp.NewHandler(r, "booking-service",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}
