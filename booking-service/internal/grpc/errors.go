package grpc

import (
	"context"
	"errors"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatusFromError maps booking errors to gRPC status codes. Errors that
// already carry a status are returned as they are.
func StatusFromError(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if st, ok := status.FromError(err); ok {
		return st
	}

	var capErr *domain.CapacityExceededError
	switch {
	case errors.As(err, &capErr):
		return status.New(codes.ResourceExhausted, capErr.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return status.New(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.New(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.New(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return status.New(codes.Aborted, err.Error())
	case errors.Is(err, domain.ErrPersistence):
		return status.New(codes.Unavailable, "storage unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, "request cancelled")
	default:
		return status.New(codes.Internal, "internal error")
	}
}
