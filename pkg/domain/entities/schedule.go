package entities

import "time"

// ScheduleEntry is one successful placement: a batch request assigned to a
// line and time window, with the additive quantities reserved for it.
// Immutable after creation within a run.
type ScheduleEntry struct {
	RequestID RequestID
	Line      LineID
	Start     time.Time
	End       time.Time
	Reserved  map[AdditiveID]Quantity
}

// Window returns the entry's occupied [Start, End) interval.
func (e ScheduleEntry) Window() Interval {
	return Interval{Start: e.Start, End: e.End}
}

// ReasonCode classifies why a request could not be placed.
type ReasonCode int

const (
	ReasonNone ReasonCode = iota
	ReasonLineIncompatible
	ReasonCapacityExceeded
	ReasonCalendarConflict
	ReasonInsufficientAdditive
	ReasonInvalidRequest
)

func (c ReasonCode) String() string {
	switch c {
	case ReasonNone:
		return "None"
	case ReasonLineIncompatible:
		return "LineIncompatible"
	case ReasonCapacityExceeded:
		return "CapacityExceeded"
	case ReasonCalendarConflict:
		return "CalendarConflict"
	case ReasonInsufficientAdditive:
		return "InsufficientAdditive"
	case ReasonInvalidRequest:
		return "InvalidRequest"
	default:
		return "Unknown"
	}
}

// Infeasibility is the reason a candidate or request failed. When multiple
// candidates fail for different reasons, the most specific one is reported:
// an additive shortage is the actionable root cause, a calendar conflict less
// so, a capacity ceiling least.
type Infeasibility struct {
	Code      ReasonCode
	Additive  AdditiveID // set for InsufficientAdditive
	Shortfall Quantity   // set for InsufficientAdditive
	Detail    string
}

// specificity ranks reasons for reporting; higher wins.
var specificity = map[ReasonCode]int{
	ReasonNone:                 0,
	ReasonLineIncompatible:     1,
	ReasonCapacityExceeded:     2,
	ReasonCalendarConflict:     3,
	ReasonInsufficientAdditive: 4,
	ReasonInvalidRequest:       5,
}

// MoreSpecificThan reports whether this reason should replace other as the
// reported cause for a request.
func (i Infeasibility) MoreSpecificThan(other Infeasibility) bool {
	return specificity[i.Code] > specificity[other.Code]
}

// InfeasibleRequest is a batch request that failed to place, retaining the
// most specific reason encountered during candidate search.
type InfeasibleRequest struct {
	RequestID RequestID
	Reason    Infeasibility
}
