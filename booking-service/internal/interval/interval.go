package interval

import (
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("interval end is before start")

// Unit is the billing granularity an interval is measured in.
type Unit string

const (
	Night Unit = "night"
	Hour  Unit = "hour"
	Slot  Unit = "slot"
)

// Length returns the span a zero-length interval is widened to.
func (u Unit) Length() time.Duration {
	if u == Hour {
		return time.Hour
	}
	return 24 * time.Hour
}

// Interval is a half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New builds an interval, rejecting End before Start. Start == End is allowed for single slots.
func New(start, end time.Time) (Interval, error) {
	if end.Before(start) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

func (i Interval) IsZeroLength() bool {
	return i.Start.Equal(i.End)
}

// Normalize widens a zero-length interval to [Start, Start+1 unit) so that two
// requests for the same slot always overlap.
func (i Interval) Normalize(u Unit) Interval {
	if !i.IsZeroLength() {
		return i
	}
	return Interval{Start: i.Start, End: i.Start.Add(u.Length())}
}

// Overlaps reports whether a and b share any instant, after normalizing zero-length intervals.
// Adjacent intervals such as [1,3) and [3,5) do not overlap.
func Overlaps(a, b Interval, u Unit) bool {
	a, b = a.Normalize(u), b.Normalize(u)
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Duration counts the billable units in i: calendar nights for Night, started hours
// for Hour and always 1 for Slot.
func Duration(i Interval, u Unit) int {
	switch u {
	case Night:
		return DaysBetween(i.Start, i.End)
	case Hour:
		d := i.End.Sub(i.Start)
		hours := int(d / time.Hour)
		if d%time.Hour != 0 {
			hours++
		}
		return hours
	default:
		return 1
	}
}

// DaysBetween returns the number of calendar-date boundaries between a and b,
// both read as dates in a's location. DST days still count as one.
func DaysBetween(a, b time.Time) int {
	ya, ma, da := a.Date()
	yb, mb, db := b.In(a.Location()).Date()
	from := time.Date(ya, ma, da, 0, 0, 0, 0, time.UTC)
	to := time.Date(yb, mb, db, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Date truncates t to midnight of its own calendar day in t's location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}
