package planning

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/creamline/batchplan/pkg/domain/entities"
	"github.com/creamline/batchplan/pkg/infrastructure/narrative"
	"github.com/creamline/batchplan/pkg/infrastructure/repositories/memory"
	"github.com/creamline/batchplan/pkg/scheduler"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var day0 = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// echoNarrator returns the briefing's run id so tests can assert the
// narration pipeline end to end without a live model.
type echoNarrator struct{}

func (echoNarrator) Explain(ctx context.Context, b narrative.Briefing) (string, error) {
	return "narration for " + b.RunID, nil
}

type failingNarrator struct{}

func (failingNarrator) Explain(ctx context.Context, b narrative.Briefing) (string, error) {
	return "", fmt.Errorf("%w: model offline", narrative.ErrExplanationUnavailable)
}

// strawberryRepos seeds the two-request scenario: 150 g of puree covers one
// 500 L batch but not two.
func strawberryRepos(t *testing.T) Repos {
	t.Helper()

	recipe, err := entities.NewRecipe("strawberry", "Strawberry Yogurt", "fruit", 6*time.Hour,
		[]entities.AdditiveRequirement{
			{Additive: "strawberry-puree", PerLiter: entities.MustQuantity("0.2", "g")},
		}, decimal.NewFromInt(1))
	require.NoError(t, err)

	calendar, err := entities.NewCalendar([]entities.Interval{
		{Start: day0, End: day0.Add(7 * 24 * time.Hour)},
	})
	require.NoError(t, err)
	line, err := entities.NewProductionLine("line-1", "Line 1",
		entities.MustQuantity("500", "l"), calendar, nil)
	require.NoError(t, err)

	recipes := memory.NewRecipeRepository()
	recipes.AddRecipe(recipe)
	lines := memory.NewLineRepository()
	lines.AddLine(line)

	requests := memory.NewRequestRepository()
	for _, id := range []entities.RequestID{"req-001", "req-002"} {
		req, err := entities.NewBatchRequest(id, "strawberry",
			entities.MustQuantity("500", "l"), day0, time.Time{}, 0)
		require.NoError(t, err)
		requests.AddRequest(req)
	}

	inventory := memory.NewInventoryStore(map[entities.AdditiveID]entities.Quantity{
		"strawberry-puree": entities.MustQuantity("150", "g"),
	})

	return Repos{
		Recipes:   recipes,
		Requests:  requests,
		Lines:     lines,
		Inventory: inventory,
		Schedule:  inventory,
	}
}

func TestService_PlanPlacesAndExplains(t *testing.T) {
	svc := NewService(strawberryRepos(t), scheduler.NewEngine(scheduler.Config{}), echoNarrator{}, nil)

	plan, err := svc.Plan(context.Background())
	require.NoError(t, err)

	require.Len(t, plan.Run.Entries, 1)
	assert.Equal(t, entities.RequestID("req-001"), plan.Run.Entries[0].RequestID)
	require.Len(t, plan.Run.Infeasible, 1)
	assert.Equal(t, entities.ReasonInsufficientAdditive, plan.Run.Infeasible[0].Reason.Code)

	text, err := plan.Explanation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "narration for "+plan.Run.RunID, text)
}

func TestService_NarrationFailureDoesNotAffectPlan(t *testing.T) {
	svc := NewService(strawberryRepos(t), scheduler.NewEngine(scheduler.Config{}), failingNarrator{}, nil)

	plan, err := svc.Plan(context.Background())
	require.NoError(t, err)
	require.Len(t, plan.Run.Entries, 1)

	_, err = plan.Explanation(context.Background())
	assert.ErrorIs(t, err, narrative.ErrExplanationUnavailable)
}

func TestService_NoNarratorConfigured(t *testing.T) {
	svc := NewService(strawberryRepos(t), scheduler.NewEngine(scheduler.Config{}), nil, nil)

	plan, err := svc.Plan(context.Background())
	require.NoError(t, err)

	_, err = plan.Explanation(context.Background())
	assert.ErrorIs(t, err, narrative.ErrExplanationUnavailable)
}

func TestService_CommitDeductsInventory(t *testing.T) {
	repos := strawberryRepos(t)
	svc := NewService(repos, scheduler.NewEngine(scheduler.Config{}), nil, nil)
	ctx := context.Background()

	plan, err := svc.Plan(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Commit(ctx, plan))

	after, err := repos.Inventory.LoadInventorySnapshot(ctx)
	require.NoError(t, err)
	c, err := after.Stock("strawberry-puree").Cmp(entities.MustQuantity("50", "g"))
	require.NoError(t, err)
	assert.Zero(t, c, "stock after commit = %s, want 50 g", after.Stock("strawberry-puree"))
}

// conflictOnce rejects the first commit with a stale-snapshot conflict and
// delegates afterwards.
type conflictOnce struct {
	inner    *memory.InventoryStore
	rejected bool
}

func (c *conflictOnce) CommitSchedule(ctx context.Context, snapshot *entities.InventorySnapshot, entries []entities.ScheduleEntry) error {
	if !c.rejected {
		c.rejected = true
		return entities.ErrConcurrentCommitConflict
	}
	return c.inner.CommitSchedule(ctx, snapshot, entries)
}

func TestService_PlanAndCommitRetriesOnConflict(t *testing.T) {
	repos := strawberryRepos(t)
	store := repos.Inventory.(*memory.InventoryStore)
	repos.Schedule = &conflictOnce{inner: store}
	svc := NewService(repos, scheduler.NewEngine(scheduler.Config{}), nil, nil)

	plan, err := svc.PlanAndCommit(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, plan.Run.Entries, 1)
	assert.Len(t, store.Committed(), 1)
}

func TestService_PlanAndCommitGivesUp(t *testing.T) {
	repos := strawberryRepos(t)
	repos.Schedule = scheduleFunc(func(context.Context, *entities.InventorySnapshot, []entities.ScheduleEntry) error {
		return entities.ErrConcurrentCommitConflict
	})
	svc := NewService(repos, scheduler.NewEngine(scheduler.Config{}), nil, nil)

	_, err := svc.PlanAndCommit(context.Background(), 2)
	assert.ErrorIs(t, err, entities.ErrConcurrentCommitConflict)
}

type scheduleFunc func(context.Context, *entities.InventorySnapshot, []entities.ScheduleEntry) error

func (f scheduleFunc) CommitSchedule(ctx context.Context, s *entities.InventorySnapshot, e []entities.ScheduleEntry) error {
	return f(ctx, s, e)
}

type failingRecipes struct{}

func (failingRecipes) LoadRecipes(context.Context) ([]*entities.Recipe, error) {
	return nil, errors.New("database gone")
}

func TestService_LoadFailureAbortsBeforeRun(t *testing.T) {
	repos := strawberryRepos(t)
	repos.Recipes = failingRecipes{}
	svc := NewService(repos, scheduler.NewEngine(scheduler.Config{}), nil, nil)

	_, err := svc.Plan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load recipes")
}

func TestPlanMany_RunsAllScenarios(t *testing.T) {
	services := map[string]*Service{
		"east":  NewService(strawberryRepos(t), scheduler.NewEngine(scheduler.Config{}), nil, nil),
		"west":  NewService(strawberryRepos(t), scheduler.NewEngine(scheduler.Config{}), nil, nil),
		"north": NewService(strawberryRepos(t), scheduler.NewEngine(scheduler.Config{}), nil, nil),
	}

	results, err := PlanMany(context.Background(), services)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for name, plan := range results {
		assert.Len(t, plan.Run.Entries, 1, "scenario %s", name)
	}
}

func TestPlanMany_FirstFailureWins(t *testing.T) {
	bad := strawberryRepos(t)
	bad.Recipes = failingRecipes{}
	services := map[string]*Service{
		"good": NewService(strawberryRepos(t), scheduler.NewEngine(scheduler.Config{}), nil, nil),
		"bad":  NewService(bad, scheduler.NewEngine(scheduler.Config{}), nil, nil),
	}

	_, err := PlanMany(context.Background(), services)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario bad")
}
