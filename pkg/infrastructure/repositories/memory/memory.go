// Package memory provides in-memory implementations of the persistence
// collaborator interfaces, used by tests and the CLI's scenario mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/creamline/batchplan/pkg/domain/entities"
	"github.com/creamline/batchplan/pkg/domain/repositories"
)

// nowFunc stamps snapshots and is replaceable in tests.
var nowFunc = time.Now

// RecipeRepository stores recipes in memory.
type RecipeRepository struct {
	recipes []*entities.Recipe
}

var _ repositories.RecipeRepository = (*RecipeRepository)(nil)

// NewRecipeRepository creates an empty in-memory recipe repository.
func NewRecipeRepository() *RecipeRepository {
	return &RecipeRepository{}
}

// AddRecipe adds a recipe to the repository.
func (r *RecipeRepository) AddRecipe(recipe *entities.Recipe) {
	r.recipes = append(r.recipes, recipe)
}

// LoadRecipes returns all recipes sorted by id.
func (r *RecipeRepository) LoadRecipes(ctx context.Context) ([]*entities.Recipe, error) {
	out := make([]*entities.Recipe, len(r.recipes))
	copy(out, r.recipes)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RequestRepository stores pending batch requests in memory.
type RequestRepository struct {
	requests []*entities.BatchRequest
}

var _ repositories.RequestRepository = (*RequestRepository)(nil)

// NewRequestRepository creates an empty in-memory request repository.
func NewRequestRepository() *RequestRepository {
	return &RequestRepository{}
}

// AddRequest adds a pending batch request.
func (r *RequestRepository) AddRequest(req *entities.BatchRequest) {
	r.requests = append(r.requests, req)
}

// LoadPendingRequests returns all pending requests sorted by id.
func (r *RequestRepository) LoadPendingRequests(ctx context.Context) ([]*entities.BatchRequest, error) {
	out := make([]*entities.BatchRequest, len(r.requests))
	copy(out, r.requests)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LineRepository stores production lines in memory.
type LineRepository struct {
	lines []*entities.ProductionLine
}

var _ repositories.LineRepository = (*LineRepository)(nil)

// NewLineRepository creates an empty in-memory line repository.
func NewLineRepository() *LineRepository {
	return &LineRepository{}
}

// AddLine adds a production line.
func (r *LineRepository) AddLine(line *entities.ProductionLine) {
	r.lines = append(r.lines, line)
}

// LoadProductionLines returns independent copies of all lines sorted by id,
// so callers can hand them to a scheduling run without sharing calendars.
func (r *LineRepository) LoadProductionLines(ctx context.Context) ([]*entities.ProductionLine, error) {
	out := make([]*entities.ProductionLine, len(r.lines))
	for i, l := range r.lines {
		out[i] = l.CloneForRun()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InventoryStore is the in-memory inventory authority. It hands out
// versioned snapshots and detects stale commits, implementing the
// optimistic-concurrency contract: a schedule computed against version N
// commits only while the store is still at version N.
type InventoryStore struct {
	mu        sync.Mutex
	version   int64
	stock     map[entities.AdditiveID]entities.Quantity
	committed []entities.ScheduleEntry
}

var (
	_ repositories.InventoryRepository = (*InventoryStore)(nil)
	_ repositories.ScheduleRepository  = (*InventoryStore)(nil)
)

// NewInventoryStore creates an inventory store with the given opening stock.
func NewInventoryStore(stock map[entities.AdditiveID]entities.Quantity) *InventoryStore {
	copied := make(map[entities.AdditiveID]entities.Quantity, len(stock))
	for id, q := range stock {
		copied[id] = q
	}
	return &InventoryStore{version: 1, stock: copied}
}

// SetStock replaces the stock level for one additive, bumping the version so
// in-flight snapshots become stale.
func (s *InventoryStore) SetStock(id entities.AdditiveID, q entities.Quantity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[id] = q
	s.version++
}

// LoadInventorySnapshot returns a consistent, versioned read of stock.
func (s *InventoryStore) LoadInventorySnapshot(ctx context.Context) (*entities.InventorySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entities.NewInventorySnapshot(nowFunc(), s.version, s.stock)
}

// CommitSchedule deducts reserved stock and records the entries. Returns
// entities.ErrConcurrentCommitConflict when the snapshot is stale.
func (s *InventoryStore) CommitSchedule(ctx context.Context, snapshot *entities.InventorySnapshot, entries []entities.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.Version() != s.version {
		return entities.ErrConcurrentCommitConflict
	}

	for _, entry := range entries {
		for additive, reserved := range entry.Reserved {
			rest, err := s.stock[additive].Sub(reserved)
			if err != nil {
				return err
			}
			s.stock[additive] = rest
		}
	}
	s.committed = append(s.committed, entries...)
	s.version++
	return nil
}

// Committed returns all schedule entries committed so far.
func (s *InventoryStore) Committed() []entities.ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.ScheduleEntry, len(s.committed))
	copy(out, s.committed)
	return out
}
