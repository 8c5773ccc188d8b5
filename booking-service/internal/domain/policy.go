package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Threshold grants Percent of the paid amount when the cancellation happens at
// least Hours before the reservation starts.
type Threshold struct {
	Hours   int             `json:"hours"`
	Percent decimal.Decimal `json:"percent"`
}

func (t Threshold) Notice() time.Duration {
	return time.Duration(t.Hours) * time.Hour
}

// CancellationPolicy is an ordered threshold table. No match means no refund.
type CancellationPolicy struct {
	Thresholds []Threshold `json:"thresholds"`
}

// Sorted returns the thresholds ordered from the longest notice to the shortest.
func (p CancellationPolicy) Sorted() []Threshold {
	out := make([]Threshold, len(p.Thresholds))
	copy(out, p.Thresholds)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Hours > out[j].Hours })
	return out
}

// Percentage evaluates the policy for a cancellation made timeToStart before the start.
func (p CancellationPolicy) Percentage(timeToStart time.Duration) decimal.Decimal {
	for _, th := range p.Sorted() {
		if timeToStart >= th.Notice() {
			return th.Percent
		}
	}
	return decimal.Zero
}

// Validate rejects tables where a shorter notice would refund more than a longer one.
func (p CancellationPolicy) Validate() error {
	sorted := p.Sorted()
	for i, th := range sorted {
		if th.Hours < 0 {
			return InvalidRequestf("threshold notice must not be negative")
		}
		if th.Percent.IsNegative() || th.Percent.GreaterThan(hundred) {
			return InvalidRequestf("threshold percent must be within 0..100")
		}
		if i > 0 && th.Percent.GreaterThan(sorted[i-1].Percent) {
			return InvalidRequestf("refund percent must not grow as notice shrinks")
		}
	}
	return nil
}
