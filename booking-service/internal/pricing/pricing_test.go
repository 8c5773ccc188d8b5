package pricing

import (
	"testing"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nights(n int) interval.Interval {
	start := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)
	return interval.Interval{Start: start, End: start.AddDate(0, 0, n).Add(-4 * time.Hour)}
}

func roomUnit(adjustments ...domain.Adjustment) *domain.BookableUnit {
	return &domain.BookableUnit{
		ID:          "deluxe",
		Kind:        domain.KindNightly,
		Granularity: domain.PerNight,
		Capacity:    5,
		UnitPrice:   dec("100"),
		Currency:    "USD",
		Adjustments: adjustments,
	}
}

func TestPrice_NightlyBase(t *testing.T) {
	calc := NewCalculator()

	out, err := calc.Price(roomUnit(), nights(3), 2, nil, "")
	require.NoError(t, err)

	assert.True(t, dec("600").Equal(out.Base), "base=%s", out.Base)
	assert.True(t, dec("600").Equal(out.Total))
	assert.True(t, out.Taxes.IsZero())
}

func TestPrice_PerEventAddOns(t *testing.T) {
	calc := NewCalculator()
	vendor := &domain.BookableUnit{
		ID:          "photographer",
		Kind:        domain.KindSingleSlot,
		Granularity: domain.PerEvent,
		Capacity:    1,
		UnitPrice:   dec("1500"),
	}
	day := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)

	out, err := calc.Price(vendor, interval.Interval{Start: day, End: day}, 1, []domain.AddOn{
		{Name: "album", Price: dec("200.50"), Quantity: 2},
		{Name: "drone", Price: dec("99.99"), Quantity: 1},
	}, "")
	require.NoError(t, err)

	assert.True(t, dec("2000.99").Equal(out.Base), "base=%s", out.Base)
}

func TestPrice_OrderedPipeline(t *testing.T) {
	calc := NewCalculator()
	unit := roomUnit(
		domain.Adjustment{Name: "early bird", Category: domain.CategoryDiscount, Mode: domain.ModePercentage, Value: dec("10")},
		domain.Adjustment{Name: "vat", Category: domain.CategoryTax, Mode: domain.ModePercentage, Value: dec("8")},
		domain.Adjustment{Name: "cleaning", Category: domain.CategoryFee, Mode: domain.ModeFixed, Value: dec("25")},
	)

	out, err := calc.Price(unit, nights(2), 1, nil, "")
	require.NoError(t, err)

	// 200 - 20 = 180; tax 8% of 180 = 14.40; fee 25
	assert.True(t, dec("200").Equal(out.Base))
	assert.True(t, dec("20").Equal(out.Discounts))
	assert.True(t, dec("14.4").Equal(out.Taxes))
	assert.True(t, dec("25").Equal(out.Fees))
	assert.True(t, dec("219.4").Equal(out.Total), "total=%s", out.Total)
	require.Len(t, out.Lines, 3)
	assert.Equal(t, "early bird", out.Lines[0].Name)
}

func TestPrice_PromoCode(t *testing.T) {
	calc := NewCalculator()
	unit := roomUnit(domain.Adjustment{Name: "vat", Category: domain.CategoryTax, Mode: domain.ModePercentage, Value: dec("10")})
	unit.PromoCodes = map[string]domain.Adjustment{
		"WELCOME": {Name: "welcome", Category: domain.CategoryDiscount, Mode: domain.ModeFixed, Value: dec("50")},
	}

	out, err := calc.Price(unit, nights(1), 1, nil, "welcome")
	require.NoError(t, err)
	assert.True(t, dec("55").Equal(out.Total), "total=%s", out.Total)

	_, err = calc.Price(unit, nights(1), 1, nil, "NOPE")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestPrice_TotalNeverNegative(t *testing.T) {
	calc := NewCalculator()
	unit := roomUnit(domain.Adjustment{Name: "voucher", Category: domain.CategoryDiscount, Mode: domain.ModeFixed, Value: dec("5000")})

	out, err := calc.Price(unit, nights(1), 1, nil, "")
	require.NoError(t, err)
	assert.True(t, out.Total.IsZero())
}

func TestPrice_Deterministic(t *testing.T) {
	calc := NewCalculator()
	unit := roomUnit(
		domain.Adjustment{Name: "city tax", Category: domain.CategoryTax, Mode: domain.ModePercentage, Value: dec("3.333")},
	)
	unit.UnitPrice = dec("99.99")

	first, err := calc.Price(unit, nights(7), 3, nil, "")
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := calc.Price(unit, nights(7), 3, nil, "")
		require.NoError(t, err)
		assert.True(t, first.Total.Equal(again.Total))
	}
	assert.True(t, dec("2099.79").Equal(first.Base))
}

func TestPrice_RejectsZeroQuantity(t *testing.T) {
	_, err := NewCalculator().Price(roomUnit(), nights(1), 0, nil, "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
