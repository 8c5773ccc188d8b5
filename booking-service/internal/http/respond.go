package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	bookinggrpc "github.com/rnqayush/starter-sub001/booking-service/internal/grpc"
	"google.golang.org/grpc/codes"
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// handleError converts a booking error to an HTTP status through its gRPC code.
func handleError(w http.ResponseWriter, err error) {
	st := bookinggrpc.StatusFromError(err)

	var httpStatus int
	var code string
	switch st.Code() {
	case codes.InvalidArgument:
		httpStatus = http.StatusBadRequest
		code = "invalid_request"
	case codes.NotFound:
		httpStatus = http.StatusNotFound
		code = "not_found"
	case codes.ResourceExhausted:
		httpStatus = http.StatusConflict
		code = "capacity_exceeded"
	case codes.FailedPrecondition:
		httpStatus = http.StatusConflict
		code = "invalid_state_transition"
	case codes.Aborted:
		httpStatus = http.StatusConflict
		code = "concurrency_conflict"
	case codes.PermissionDenied:
		httpStatus = http.StatusForbidden
		code = "forbidden"
	case codes.Unauthenticated:
		httpStatus = http.StatusUnauthorized
		code = "unauthorized"
	case codes.Unavailable:
		httpStatus = http.StatusServiceUnavailable
		code = "service_unavailable"
	case codes.DeadlineExceeded, codes.Canceled:
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
	default:
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
	}

	resp := ErrorResponse{Error: st.Message(), Code: code}
	var capErr *domain.CapacityExceededError
	if errors.As(err, &capErr) {
		resp.Details = map[string]any{
			"unit_id":   capErr.UnitID,
			"requested": capErr.Requested,
			"remaining": capErr.Remaining,
		}
	}
	var te *domain.TransitionError
	if errors.As(err, &te) {
		resp.Details = map[string]any{"from": te.From, "to": te.To}
	}
	respondJSON(w, httpStatus, resp)
}
