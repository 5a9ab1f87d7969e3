package entities

import (
	"sort"
	"time"
)

// InventorySnapshot is a read-only, consistent view of additive stock taken
// at the start of a scheduling run. The scheduler never mutates real
// inventory; it reserves against this view through the run's ledger.
type InventorySnapshot struct {
	takenAt time.Time
	version int64
	stock   map[AdditiveID]Quantity
}

// NewInventorySnapshot creates a validated snapshot. All stock quantities
// must be masses; the version identifies the inventory state for optimistic
// commit conflict detection.
func NewInventorySnapshot(takenAt time.Time, version int64, stock map[AdditiveID]Quantity) (*InventorySnapshot, error) {
	if takenAt.IsZero() {
		return nil, validationErrorf("snapshot", "taken-at instant is required")
	}
	copied := make(map[AdditiveID]Quantity, len(stock))
	for id, q := range stock {
		if id == "" {
			return nil, validationErrorf("snapshot", "additive id cannot be empty")
		}
		if q.Unit() != Grams {
			return nil, validationErrorf("snapshot", "stock for %s must be a mass", id)
		}
		copied[id] = q
	}
	return &InventorySnapshot{takenAt: takenAt, version: version, stock: copied}, nil
}

// TakenAt returns the instant the snapshot was taken.
func (s *InventorySnapshot) TakenAt() time.Time { return s.takenAt }

// Version returns the inventory state version the snapshot was taken at.
func (s *InventorySnapshot) Version() int64 { return s.version }

// Stock returns the available quantity for an additive; absent additives
// report zero grams.
func (s *InventorySnapshot) Stock(id AdditiveID) Quantity {
	if q, ok := s.stock[id]; ok {
		return q
	}
	return ZeroOf(Grams)
}

// Additives returns all additive ids in the snapshot, sorted for
// deterministic iteration.
func (s *InventorySnapshot) Additives() []AdditiveID {
	ids := make([]AdditiveID, 0, len(s.stock))
	for id := range s.stock {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
