package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
)

type UnitHandler struct {
	svc     BookingService
	timeout time.Duration
}

func NewUnitHandler(svc BookingService, timeout time.Duration) *UnitHandler {
	return &UnitHandler{svc: svc, timeout: timeout}
}

// GET /api/v1/units/{unit_id}
func (h *UnitHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}

	unit, err := h.svc.GetUnit(ctx, actor, chi.URLParam(r, "unit_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, unit)
}

// PUT /api/v1/units/{unit_id}
func (h *UnitHandler) UpsertUnit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}

	var unit domain.BookableUnit
	if err := json.NewDecoder(r.Body).Decode(&unit); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	unit.ID = chi.URLParam(r, "unit_id")

	saved, err := h.svc.UpsertUnit(ctx, actor, &unit)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// GET /api/v1/units/{unit_id}/availability?start=...&end=...&quantity=...
// start and end are RFC 3339 timestamps; quantity defaults to 1.
func (h *UnitHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "start must be an RFC 3339 timestamp")
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "end must be an RFC 3339 timestamp")
		return
	}
	quantity := 1
	if raw := q.Get("quantity"); raw != "" {
		if quantity, err = strconv.Atoi(raw); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "quantity must be an integer")
			return
		}
	}

	avail, err := h.svc.CheckAvailability(ctx, chi.URLParam(r, "unit_id"), interval.Interval{Start: start, End: end}, quantity)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, avail)
}
