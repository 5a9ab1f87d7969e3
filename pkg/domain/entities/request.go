package entities

import "time"

// RequestID uniquely identifies a batch request within a scheduling run.
type RequestID string

// BatchRequest is a planner's ask: produce this recipe at this milk volume,
// no earlier than EarliestStart, ideally by Due. Consumed exactly once per
// scheduling run.
type BatchRequest struct {
	ID            RequestID
	Recipe        RecipeID
	Volume        Quantity
	EarliestStart time.Time
	Due           time.Time // zero = no due date
	Priority      int       // business priority, higher schedules first
}

// NewBatchRequest creates a validated batch request.
func NewBatchRequest(id RequestID, recipe RecipeID, volume Quantity,
	earliestStart, due time.Time, priority int) (*BatchRequest, error) {

	if id == "" {
		return nil, validationErrorf("request", "id cannot be empty")
	}
	if recipe == "" {
		return nil, validationErrorf("request", "recipe id cannot be empty")
	}
	if volume.Unit() != Liters {
		return nil, validationErrorf("request", "volume must be in liters, got %s", volume.Unit())
	}
	if volume.IsZero() {
		return nil, validationErrorf("request", "volume must be positive")
	}
	if earliestStart.IsZero() {
		return nil, validationErrorf("request", "earliest start is required")
	}
	if !due.IsZero() && due.Before(earliestStart) {
		return nil, validationErrorf("request", "due date %s precedes earliest start %s",
			due.Format(time.RFC3339), earliestStart.Format(time.RFC3339))
	}
	if priority < 0 {
		return nil, validationErrorf("request", "priority cannot be negative, got %d", priority)
	}

	return &BatchRequest{
		ID:            id,
		Recipe:        recipe,
		Volume:        volume,
		EarliestStart: earliestStart,
		Due:           due,
		Priority:      priority,
	}, nil
}

// HasDue reports whether the request carries a due date.
func (r *BatchRequest) HasDue() bool { return !r.Due.IsZero() }
