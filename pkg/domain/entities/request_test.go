package entities

import (
	"testing"
	"time"
)

func TestBatchRequest_Validation(t *testing.T) {
	start := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	due := start.Add(48 * time.Hour)
	volume := MustQuantity("500", "L")

	valid, err := NewBatchRequest("req-001", "strawberry", volume, start, due, 2)
	if err != nil {
		t.Fatalf("Expected valid request creation to succeed: %v", err)
	}
	if !valid.HasDue() {
		t.Error("Expected request to report a due date")
	}

	testCases := []struct {
		name     string
		id       RequestID
		recipe   RecipeID
		volume   Quantity
		start    time.Time
		due      time.Time
		priority int
	}{
		{"empty id", "", "strawberry", volume, start, due, 0},
		{"empty recipe", "req-001", "", volume, start, due, 0},
		{"zero volume", "req-001", "strawberry", MustQuantity("0", "L"), start, due, 0},
		{"mass volume", "req-001", "strawberry", MustQuantity("500", "g"), start, due, 0},
		{"zero earliest start", "req-001", "strawberry", volume, time.Time{}, due, 0},
		{"due before earliest start", "req-001", "strawberry", volume, start, start.Add(-time.Hour), 0},
		{"negative priority", "req-001", "strawberry", volume, start, due, -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewBatchRequest(tc.id, tc.recipe, tc.volume, tc.start, tc.due, tc.priority); err == nil {
				t.Errorf("Expected error for %s, but got none", tc.name)
			}
		})
	}
}

func TestBatchRequest_NoDueDate(t *testing.T) {
	start := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	req, err := NewBatchRequest("req-002", "plain", MustQuantity("200", "L"), start, time.Time{}, 0)
	if err != nil {
		t.Fatalf("Expected request without due date to be valid: %v", err)
	}
	if req.HasDue() {
		t.Error("Expected no due date")
	}
}
