package cache

import (
	"context"
	"errors"

	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
)

// AvailabilityCache stores remaining quantities per unit and interval. Entries
// are scoped to a unit generation; bumping the generation drops every entry of
// that unit at once.
type AvailabilityCache interface {
	Generation(ctx context.Context, unitID string) (int64, error)
	Get(ctx context.Context, unitID string, generation int64, iv interval.Interval) (int, error)
	Set(ctx context.Context, unitID string, generation int64, iv interval.Interval, remaining int) error
	Invalidate(ctx context.Context, unitID string) error
}

var ErrCacheMiss = errors.New("cache miss")
