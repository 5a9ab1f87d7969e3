// Package planning orchestrates a scheduling run end to end: load the data
// set, run the engine, optionally narrate the outcome, and commit the
// resulting reservations.
package planning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/creamline/batchplan/pkg/domain/entities"
	"github.com/creamline/batchplan/pkg/domain/repositories"
	"github.com/creamline/batchplan/pkg/infrastructure/narrative"
	"github.com/creamline/batchplan/pkg/scheduler"
)

// Repos bundles the persistence collaborators a planning run needs.
type Repos struct {
	Recipes   repositories.RecipeRepository
	Requests  repositories.RequestRepository
	Lines     repositories.LineRepository
	Inventory repositories.InventoryRepository
	Schedule  repositories.ScheduleRepository
}

// Service runs the scheduling workflow against a set of repositories.
type Service struct {
	repos    Repos
	engine   *scheduler.Engine
	narrator narrative.Generator
	logger   *zap.Logger
}

// NewService creates a planning service. The narrator may be nil, in which
// case plans carry no explanation. A nil logger is replaced with a no-op one.
func NewService(repos Repos, engine *scheduler.Engine, narrator narrative.Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repos: repos, engine: engine, narrator: narrator, logger: logger}
}

// PlanResult is one finished planning run plus the snapshot it was computed
// against, which the commit path needs for conflict detection.
type PlanResult struct {
	Run      *scheduler.Result
	Snapshot *entities.InventorySnapshot

	explainDone chan struct{}
	explainText string
	explainErr  error
}

// Explanation blocks until the narration launched by Plan finishes, or until
// ctx is done. Runs planned without a narrator report
// narrative.ErrExplanationUnavailable immediately.
func (r *PlanResult) Explanation(ctx context.Context) (string, error) {
	if r.explainDone == nil {
		return "", fmt.Errorf("%w: no narrator configured", narrative.ErrExplanationUnavailable)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.explainDone:
		return r.explainText, r.explainErr
	}
}

// Plan loads the full data set, runs the engine once and returns the result.
// A load failure aborts before the run starts. When a narrator is configured,
// narration runs in the background; Plan never waits for it.
func (s *Service) Plan(ctx context.Context) (*PlanResult, error) {
	recipes, err := s.repos.Recipes.LoadRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}
	requests, err := s.repos.Requests.LoadPendingRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load requests: %w", err)
	}
	lines, err := s.repos.Lines.LoadProductionLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load production lines: %w", err)
	}
	snapshot, err := s.repos.Inventory.LoadInventorySnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory snapshot: %w", err)
	}

	s.logger.Info("starting scheduling run",
		zap.Int("requests", len(requests)),
		zap.Int("lines", len(lines)),
		zap.Int64("inventory_version", snapshot.Version()))

	run, err := s.engine.Run(ctx, requests, recipes, lines, snapshot)
	if err != nil {
		return nil, err
	}

	s.logger.Info("scheduling run completed",
		zap.String("run_id", run.RunID),
		zap.Int("placed", len(run.Entries)),
		zap.Int("infeasible", len(run.Infeasible)))

	result := &PlanResult{Run: run, Snapshot: snapshot}
	if s.narrator != nil {
		result.explainDone = make(chan struct{})
		briefing := buildBriefing(run, requests, recipes)
		go func() {
			defer close(result.explainDone)
			text, err := s.narrator.Explain(context.WithoutCancel(ctx), briefing)
			if err != nil {
				s.logger.Warn("schedule narration failed", zap.String("run_id", run.RunID), zap.Error(err))
			}
			result.explainText, result.explainErr = text, err
		}()
	}
	return result, nil
}

// Commit persists a plan's reservations. Returns
// entities.ErrConcurrentCommitConflict when inventory moved since the plan's
// snapshot was taken.
func (s *Service) Commit(ctx context.Context, plan *PlanResult) error {
	return s.repos.Schedule.CommitSchedule(ctx, plan.Snapshot, plan.Run.Entries)
}

// PlanAndCommit plans and commits, re-planning on snapshot conflicts up to
// maxAttempts times. The committed plan is returned.
func (s *Service) PlanAndCommit(ctx context.Context, maxAttempts int) (*PlanResult, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		plan, err := s.Plan(ctx)
		if err != nil {
			return nil, err
		}
		err = s.Commit(ctx, plan)
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, entities.ErrConcurrentCommitConflict) {
			return nil, err
		}
		s.logger.Warn("commit conflict, re-planning",
			zap.String("run_id", plan.Run.RunID),
			zap.Int("attempt", attempt))
		lastErr = err
	}
	return nil, fmt.Errorf("gave up after %d attempts: %w", maxAttempts, lastErr)
}

// PlanMany plans several independent data sets concurrently. The first
// failure cancels the remaining runs.
func PlanMany(ctx context.Context, services map[string]*Service) (map[string]*PlanResult, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make(map[string]*PlanResult, len(services))
	for name, svc := range services {
		g.Go(func() error {
			plan, err := svc.Plan(ctx)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", name, err)
			}
			mu.Lock()
			results[name] = plan
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// buildBriefing flattens a run into the narrator's input. Requests and
// recipes resolve ids to display names.
func buildBriefing(run *scheduler.Result, requests []*entities.BatchRequest, recipes []*entities.Recipe) narrative.Briefing {
	recipeByID := make(map[entities.RecipeID]*entities.Recipe, len(recipes))
	for _, r := range recipes {
		recipeByID[r.ID] = r
	}
	recipeByRequest := make(map[entities.RequestID]*entities.Recipe, len(requests))
	for _, req := range requests {
		if r, ok := recipeByID[req.Recipe]; ok {
			recipeByRequest[req.ID] = r
		}
	}

	b := narrative.Briefing{RunID: run.RunID}
	for _, entry := range run.Entries {
		name := string(entry.RequestID)
		if r, ok := recipeByRequest[entry.RequestID]; ok {
			name = r.Name
		}
		placement := narrative.PlacementSummary{
			RequestID:  string(entry.RequestID),
			RecipeName: name,
			Line:       string(entry.Line),
			Start:      entry.Start,
			End:        entry.End,
		}
		additives := make([]entities.AdditiveID, 0, len(entry.Reserved))
		for id := range entry.Reserved {
			additives = append(additives, id)
		}
		sort.Slice(additives, func(i, j int) bool { return additives[i] < additives[j] })
		for _, id := range additives {
			placement.Additives = append(placement.Additives, narrative.AdditiveUse{
				Name:   string(id),
				Amount: entry.Reserved[id].String(),
			})
		}
		b.Placements = append(b.Placements, placement)
	}
	for _, inf := range run.Infeasible {
		b.Infeasible = append(b.Infeasible, narrative.ShortfallSummary{
			RequestID: string(inf.RequestID),
			Reason:    inf.Reason.Code.String(),
			Detail:    inf.Reason.Detail,
		})
	}
	return b
}
