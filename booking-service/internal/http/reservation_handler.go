package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
)

type ReservationHandler struct {
	svc     BookingService
	timeout time.Duration
}

func NewReservationHandler(svc BookingService, timeout time.Duration) *ReservationHandler {
	return &ReservationHandler{svc: svc, timeout: timeout}
}

type TransitionRequestDTO struct {
	Status domain.Status `json:"status"`
}

type CancelRequestDTO struct {
	Reason string `json:"reason"`
}

// POST /api/v1/reservations
func (h *ReservationHandler) Book(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}

	var req domain.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := h.svc.BookUnit(ctx, actor, req)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// GET /api/v1/reservations/{reservation_id}
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}

	res, err := h.svc.GetReservation(ctx, actor, chi.URLParam(r, "reservation_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// POST /api/v1/reservations/{reservation_id}/transitions
func (h *ReservationHandler) Transition(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}

	var req TransitionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "status is required")
		return
	}

	res, err := h.svc.Transition(ctx, actor, chi.URLParam(r, "reservation_id"), req.Status)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// POST /api/v1/reservations/{reservation_id}/cancel
// The body is optional.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}

	var req CancelRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := h.svc.Cancel(ctx, actor, chi.URLParam(r, "reservation_id"), req.Reason)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
