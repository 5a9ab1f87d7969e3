package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineID uniquely identifies a production line.
type LineID string

// Interval is a half-open time window [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether other lies entirely within the interval.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Overlaps reports whether the two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// Calendar is an ordered list of disjoint free intervals on a line.
// Reserving a window shrinks or splits the free interval containing it.
type Calendar struct {
	free []Interval
}

// NewCalendar creates a validated calendar. Intervals must be well-formed,
// strictly ordered, and non-overlapping.
func NewCalendar(intervals []Interval) (*Calendar, error) {
	for i, iv := range intervals {
		if !iv.End.After(iv.Start) {
			return nil, validationErrorf("calendar", "interval %d must end after it starts", i)
		}
		if i > 0 && intervals[i-1].End.After(iv.Start) {
			return nil, validationErrorf("calendar", "interval %d overlaps or precedes interval %d", i, i-1)
		}
	}
	free := make([]Interval, len(intervals))
	copy(free, intervals)
	return &Calendar{free: free}, nil
}

// Free returns a copy of the current free intervals in order.
func (c *Calendar) Free() []Interval {
	out := make([]Interval, len(c.free))
	copy(out, c.free)
	return out
}

// Clone returns an independent copy so a scheduling run can mutate its own
// calendar without touching the caller's.
func (c *Calendar) Clone() *Calendar {
	clone := make([]Interval, len(c.free))
	copy(clone, c.free)
	return &Calendar{free: clone}
}

// Reserve removes the given window from free time. The window must lie within
// a single free interval; feasibility is checked before reservation, so a
// miss here indicates a caller bug.
func (c *Calendar) Reserve(window Interval) error {
	for i, iv := range c.free {
		if !iv.Contains(window) {
			continue
		}
		var replaced []Interval
		if window.Start.After(iv.Start) {
			replaced = append(replaced, Interval{Start: iv.Start, End: window.Start})
		}
		if window.End.Before(iv.End) {
			replaced = append(replaced, Interval{Start: window.End, End: iv.End})
		}
		next := make([]Interval, 0, len(c.free)+1)
		next = append(next, c.free[:i]...)
		next = append(next, replaced...)
		next = append(next, c.free[i+1:]...)
		c.free = next
		return nil
	}
	return validationErrorf("calendar", "window [%s, %s) is not free",
		window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
}

// ProductionLine is a vat/line that holds one batch at a time. Compatibility
// restricts which recipe categories the line may run; an empty set means any.
type ProductionLine struct {
	ID              LineID
	Name            string
	CapacityPerHour Quantity
	Calendar        *Calendar
	Compatible      []string
}

// NewProductionLine creates a validated production line.
func NewProductionLine(id LineID, name string, capacityPerHour Quantity,
	calendar *Calendar, compatible []string) (*ProductionLine, error) {

	if id == "" {
		return nil, validationErrorf("line", "id cannot be empty")
	}
	if capacityPerHour.Unit() != Liters {
		return nil, validationErrorf("line", "capacity must be in liters/hour")
	}
	if capacityPerHour.IsZero() {
		return nil, validationErrorf("line", "capacity must be positive")
	}
	if calendar == nil {
		return nil, validationErrorf("line", "calendar is required")
	}

	return &ProductionLine{
		ID:              id,
		Name:            name,
		CapacityPerHour: capacityPerHour,
		Calendar:        calendar,
		Compatible:      compatible,
	}, nil
}

// CompatibleWith reports whether the line may run the given recipe category.
func (l *ProductionLine) CompatibleWith(category string) bool {
	if len(l.Compatible) == 0 {
		return true
	}
	for _, c := range l.Compatible {
		if c == category {
			return true
		}
	}
	return false
}

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

// MaxBatchVolume is the largest milk volume the line can process across a
// window of the given duration, per its hourly capacity.
func (l *ProductionLine) MaxBatchVolume(d time.Duration) Quantity {
	hours := decimal.NewFromInt(int64(d)).Div(nanosPerHour)
	return l.CapacityPerHour.Mul(hours)
}

// CloneForRun returns a copy of the line with an independent calendar.
func (l *ProductionLine) CloneForRun() *ProductionLine {
	clone := *l
	clone.Calendar = l.Calendar.Clone()
	return &clone
}
