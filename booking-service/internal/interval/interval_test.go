package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return base.AddDate(0, 0, n)
}

func mustNew(t *testing.T, start, end time.Time) Interval {
	t.Helper()
	iv, err := New(start, end)
	require.NoError(t, err)
	return iv
}

func TestNew_RejectsEndBeforeStart(t *testing.T) {
	_, err := New(day(3), day(1))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	iv, err := New(day(1), day(1))
	require.NoError(t, err)
	assert.True(t, iv.IsZeroLength())
}

func TestOverlaps_Symmetric(t *testing.T) {
	intervals := []Interval{
		mustNew(t, day(1), day(3)),
		mustNew(t, day(3), day(5)),
		mustNew(t, day(2), day(4)),
		mustNew(t, day(0), day(10)),
		mustNew(t, day(3), day(3)),
		mustNew(t, day(6), day(7)),
	}

	for _, a := range intervals {
		for _, b := range intervals {
			for _, u := range []Unit{Night, Hour, Slot} {
				assert.Equal(t, Overlaps(a, b, u), Overlaps(b, a, u), "a=%v b=%v unit=%s", a, b, u)
			}
		}
	}
}

func TestOverlaps_Cases(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"adjacent", mustNew(t, day(1), day(3)), mustNew(t, day(3), day(5)), false},
		{"disjoint", mustNew(t, day(1), day(2)), mustNew(t, day(4), day(5)), false},
		{"partial", mustNew(t, day(1), day(3)), mustNew(t, day(2), day(5)), true},
		{"contained", mustNew(t, day(0), day(10)), mustNew(t, day(2), day(3)), true},
		{"identical slot", mustNew(t, day(4), day(4)), mustNew(t, day(4), day(4)), true},
		{"slot on next day", mustNew(t, day(4), day(4)), mustNew(t, day(5), day(5)), false},
		{"slot inside stay", mustNew(t, day(4), day(4)), mustNew(t, day(3), day(6)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b, Slot))
		})
	}
}

func TestDuration(t *testing.T) {
	checkIn := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	checkOut := time.Date(2025, 6, 4, 11, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, Duration(mustNew(t, checkIn, checkOut), Night))
	assert.Equal(t, 0, Duration(mustNew(t, checkIn, checkIn.Add(5*time.Hour)), Night))
	assert.Equal(t, 3, Duration(mustNew(t, checkIn, checkIn.Add(150*time.Minute)), Hour))
	assert.Equal(t, 1, Duration(mustNew(t, day(2), day(2)), Slot))
	assert.Equal(t, 1, Duration(mustNew(t, day(2), day(9)), Slot))
}

func TestDateArithmetic(t *testing.T) {
	assert.Equal(t, 7, DaysBetween(day(0), AddDays(day(0), 7)))
	assert.Equal(t, base, Date(base.Add(23*time.Hour)))
}

func TestDuration_UsesLocalCalendarDates(t *testing.T) {
	pacific := time.FixedZone("PST", -8*3600)
	eastern := time.FixedZone("EST", -5*3600)

	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"late check-in west of UTC", time.Date(2025, 12, 1, 17, 0, 0, 0, pacific), time.Date(2025, 12, 2, 11, 0, 0, 0, pacific), 1},
		{"three nights east of UTC", time.Date(2025, 12, 5, 20, 0, 0, 0, eastern), time.Date(2025, 12, 8, 11, 0, 0, 0, eastern), 3},
		{"end given in another zone", time.Date(2025, 12, 1, 17, 0, 0, 0, pacific), time.Date(2025, 12, 2, 19, 0, 0, 0, time.UTC), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Duration(mustNew(t, tt.start, tt.end), Night))
		})
	}
}

func TestDaysBetween_AcrossDaylightSaving(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	checkIn := time.Date(2025, 3, 8, 15, 0, 0, 0, ny)
	checkOut := time.Date(2025, 3, 10, 11, 0, 0, 0, ny)

	assert.Equal(t, 2, DaysBetween(checkIn, checkOut))
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, ny), Date(time.Date(2025, 3, 9, 23, 30, 0, 0, ny)))
}
