// Package sweeper cancels pending reservations nobody confirmed in time.
package sweeper

import (
	"context"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/clock"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

// Expirer cancels pending reservations created before cutoff and reports how many it cancelled.
type Expirer interface {
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type Sweeper struct {
	expirer   Expirer
	clock     clock.Clock
	ttl       time.Duration
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func New(expirer Expirer, clk clock.Clock, ttl, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		expirer:   expirer,
		clock:     clk,
		ttl:       ttl,
		interval:  interval,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// sweep drains full batches until a short one shows nothing older is left.
func (s *Sweeper) sweep(ctx context.Context) int {
	cutoff := s.clock.Now().Add(-s.ttl)
	total := 0
	for ctx.Err() == nil {
		n, err := s.expirer.ExpirePending(ctx, cutoff, s.batchSize)
		total += n
		if err != nil {
			s.logger.Error("failed to expire pending reservations",
				zap.Time("cutoff", cutoff),
				zap.Int("expired", total),
				zap.Error(err))
			return total
		}
		if n < s.batchSize {
			break
		}
	}
	if total > 0 {
		s.logger.Info("expired pending reservations", zap.Int("count", total), zap.Time("cutoff", cutoff))
	}
	return total
}
