package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func pct(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestCancellationPolicy_Percentage(t *testing.T) {
	policy := CancellationPolicy{Thresholds: []Threshold{
		{Hours: 12, Percent: pct(50)},
		{Hours: 24, Percent: pct(100)},
	}}

	tests := []struct {
		before time.Duration
		want   decimal.Decimal
	}{
		{48 * time.Hour, pct(100)},
		{24 * time.Hour, pct(100)},
		{20 * time.Hour, pct(50)},
		{12 * time.Hour, pct(50)},
		{11 * time.Hour, decimal.Zero},
		{-time.Hour, decimal.Zero},
	}
	for _, tt := range tests {
		assert.True(t, tt.want.Equal(policy.Percentage(tt.before)), "before=%s", tt.before)
	}
}

func TestCancellationPolicy_Monotonic(t *testing.T) {
	policy := CancellationPolicy{Thresholds: []Threshold{
		{Hours: 72, Percent: pct(100)},
		{Hours: 24, Percent: pct(75)},
		{Hours: 2, Percent: pct(10)},
	}}

	prev := policy.Percentage(200 * time.Hour)
	for h := 199; h >= -5; h-- {
		cur := policy.Percentage(time.Duration(h) * time.Hour)
		assert.True(t, cur.LessThanOrEqual(prev), "refund grew at %dh", h)
		prev = cur
	}
}

func TestCancellationPolicy_Validate(t *testing.T) {
	assert.NoError(t, CancellationPolicy{}.Validate())

	growing := CancellationPolicy{Thresholds: []Threshold{
		{Hours: 24, Percent: pct(50)},
		{Hours: 12, Percent: pct(100)},
	}}
	assert.ErrorIs(t, growing.Validate(), ErrInvalidRequest)

	tooMuch := CancellationPolicy{Thresholds: []Threshold{{Hours: 1, Percent: pct(120)}}}
	assert.ErrorIs(t, tooMuch.Validate(), ErrInvalidRequest)
}

func TestBookableUnit_Validate(t *testing.T) {
	slot := BookableUnit{ID: "v1", OwnerID: "o1", Kind: KindSingleSlot, Granularity: PerEvent, Capacity: 1}
	assert.NoError(t, slot.Validate())

	slot.Capacity = 3
	assert.ErrorIs(t, slot.Validate(), ErrInvalidRequest)

	room := BookableUnit{ID: "r1", OwnerID: "o1", Kind: KindNightly, Granularity: PerEvent, Capacity: 5}
	assert.ErrorIs(t, room.Validate(), ErrInvalidRequest)

	room.Granularity = PerNight
	room.PromoCodes = map[string]Adjustment{"SUMMER": {Name: "summer", Category: CategoryTax, Mode: ModeFixed}}
	assert.ErrorIs(t, room.Validate(), ErrInvalidRequest)

	room.PromoCodes["SUMMER"] = Adjustment{Name: "summer", Category: CategoryDiscount, Mode: ModePercentage, Value: pct(10)}
	assert.NoError(t, room.Validate())

	_, ok := room.Promo("summer")
	assert.True(t, ok)
}
