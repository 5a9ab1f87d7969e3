// Package repositories defines the persistence collaborator interfaces the
// scheduler consumes. The scheduler never implements storage itself; the
// surrounding application supplies these at run start.
package repositories

import (
	"context"

	"github.com/creamline/batchplan/pkg/domain/entities"
)

// RecipeRepository loads the recipe catalog.
type RecipeRepository interface {
	LoadRecipes(ctx context.Context) ([]*entities.Recipe, error)
}

// RequestRepository loads batch requests awaiting scheduling.
type RequestRepository interface {
	LoadPendingRequests(ctx context.Context) ([]*entities.BatchRequest, error)
}

// LineRepository loads production lines with their current calendars.
type LineRepository interface {
	LoadProductionLines(ctx context.Context) ([]*entities.ProductionLine, error)
}

// InventoryRepository produces a consistent read of additive stock.
type InventoryRepository interface {
	LoadInventorySnapshot(ctx context.Context) (*entities.InventorySnapshot, error)
}

// ScheduleRepository commits a computed schedule. CommitSchedule must return
// entities.ErrConcurrentCommitConflict when the snapshot the schedule was
// computed against is no longer the current inventory state; callers then
// re-run scheduling against a fresh snapshot.
type ScheduleRepository interface {
	CommitSchedule(ctx context.Context, snapshot *entities.InventorySnapshot, entries []entities.ScheduleEntry) error
}
