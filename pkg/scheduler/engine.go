package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/creamline/batchplan/pkg/domain/entities"
)

// RunState tracks a scheduling run's lifecycle.
type RunState int

const (
	RunInitialized RunState = iota
	RunRunning
	RunCompleted
)

func (s RunState) String() string {
	switch s {
	case RunInitialized:
		return "Initialized"
	case RunRunning:
		return "Running"
	case RunCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// RequestState tracks a single request within a run.
type RequestState int

const (
	RequestPending RequestState = iota
	RequestPlacing
	RequestPlaced
	RequestInfeasible
)

func (s RequestState) String() string {
	switch s {
	case RequestPending:
		return "Pending"
	case RequestPlacing:
		return "Placing"
	case RequestPlaced:
		return "Placed"
	case RequestInfeasible:
		return "Infeasible"
	default:
		return "Unknown"
	}
}

// dueHorizon caps the due-date proximity contribution to priority weight.
const dueHorizon = 30 * 24 * time.Hour

// priorityScale keeps business priority strictly dominant over proximity.
const priorityScale = int64(1_000_000)

// Config holds engine configuration.
type Config struct {
	// ReferenceTime anchors due-date proximity in priority weights. Zero
	// means "earliest EarliestStart among the run's requests", which keeps
	// runs reproducible from their inputs alone.
	ReferenceTime time.Time
}

// Engine assigns batch requests to production lines and time windows. A run
// is single-threaded and deterministic: identical inputs produce identical
// output lists on every execution.
type Engine struct {
	config Config
}

// NewEngine creates a scheduling engine.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Result is the complete output of one scheduling run.
type Result struct {
	RunID      string
	State      RunState
	Entries    []entities.ScheduleEntry
	Infeasible []entities.InfeasibleRequest
	Ledger     map[entities.AdditiveID]entities.Quantity

	// States records the terminal state of every request processed by the
	// run, for auditing alongside Entries and Infeasible.
	States map[entities.RequestID]RequestState
}

// candidate is a (line, window) pair under consideration for one request.
type candidate struct {
	line   *entities.ProductionLine
	window entities.Interval
}

// Run schedules the given requests against the lines and inventory snapshot.
// Requests are processed in priority order; a request that cannot be placed
// is reported infeasible and never aborts the run. Line calendars are cloned,
// so the caller's lines are not mutated.
//
// Cancellation is all-or-nothing: if ctx is cancelled before the run
// completes, all partial work is discarded and only the context error is
// returned.
func (e *Engine) Run(ctx context.Context, requests []*entities.BatchRequest,
	recipes []*entities.Recipe, lines []*entities.ProductionLine,
	snapshot *entities.InventorySnapshot) (*Result, error) {

	if snapshot == nil {
		return nil, fmt.Errorf("inventory snapshot is required")
	}

	result := &Result{
		RunID:      uuid.NewString(),
		State:      RunInitialized,
		Entries:    make([]entities.ScheduleEntry, 0, len(requests)),
		Infeasible: make([]entities.InfeasibleRequest, 0),
	}

	recipeIndex := make(map[entities.RecipeID]*entities.Recipe, len(recipes))
	for _, r := range recipes {
		recipeIndex[r.ID] = r
	}

	// Run-private copies: placements shrink calendars as they commit.
	runLines := make([]*entities.ProductionLine, len(lines))
	for i, l := range lines {
		runLines[i] = l.CloneForRun()
	}
	sort.Slice(runLines, func(i, j int) bool { return runLines[i].ID < runLines[j].ID })

	ordered := e.orderRequests(requests)
	ledger := NewLedger()
	states := make(map[entities.RequestID]RequestState, len(ordered))
	for _, req := range ordered {
		states[req.ID] = RequestPending
	}

	result.State = RunRunning

	for _, req := range ordered {
		if err := ctx.Err(); err != nil {
			// Discard partial work; everything above is run-local.
			return nil, err
		}

		states[req.ID] = RequestPlacing

		recipe, ok := recipeIndex[req.Recipe]
		if !ok {
			states[req.ID] = RequestInfeasible
			result.Infeasible = append(result.Infeasible, entities.InfeasibleRequest{
				RequestID: req.ID,
				Reason: entities.Infeasibility{
					Code:   entities.ReasonInvalidRequest,
					Detail: fmt.Sprintf("unknown recipe %s", req.Recipe),
				},
			})
			continue
		}

		entry, reason := e.place(req, recipe, runLines, ledger, snapshot)
		if entry == nil {
			states[req.ID] = RequestInfeasible
			result.Infeasible = append(result.Infeasible, entities.InfeasibleRequest{
				RequestID: req.ID,
				Reason:    reason,
			})
			continue
		}

		states[req.ID] = RequestPlaced
		result.Entries = append(result.Entries, *entry)
	}

	result.State = RunCompleted
	result.Ledger = ledger.Snapshot()
	result.States = states
	return result, nil
}

// place tries every candidate (line, window) for one request in deterministic
// order and commits the first feasible one. On failure it returns the most
// specific reason seen across candidates.
func (e *Engine) place(req *entities.BatchRequest, recipe *entities.Recipe,
	lines []*entities.ProductionLine, ledger *Ledger,
	snapshot *entities.InventorySnapshot) (*entities.ScheduleEntry, entities.Infeasibility) {

	best := entities.Infeasibility{
		Code:   entities.ReasonLineIncompatible,
		Detail: fmt.Sprintf("no production line runs %s recipes", recipe.Category),
	}

	candidates, compatibleSeen := enumerateCandidates(req, recipe, lines)
	if compatibleSeen && len(candidates) == 0 {
		// Compatible lines exist but no free window fits; the calendar is
		// the blocker, not line compatibility.
		best = entities.Infeasibility{
			Code: entities.ReasonCalendarConflict,
			Detail: fmt.Sprintf("no free window fits the %s fermentation at or after %s",
				recipe.Fermentation, req.EarliestStart.Format(time.RFC3339)),
		}
	}
	for _, cand := range candidates {
		draft := NewDraft(req, recipe, cand.line, cand.window)
		res := Check(draft, ledger, snapshot)
		if !res.Feasible {
			if res.Reason.MoreSpecificThan(best) {
				best = res.Reason
			}
			// An additive shortage is slot-independent; no later candidate
			// in this run can succeed for the same request.
			if res.Reason.Code == entities.ReasonInsufficientAdditive {
				break
			}
			continue
		}

		needs, err := recipe.ConsumptionFor(req.Volume)
		if err != nil {
			return nil, entities.Infeasibility{Code: entities.ReasonInvalidRequest, Detail: err.Error()}
		}
		for _, additive := range sortedAdditives(needs) {
			ledger.Reserve(additive, needs[additive])
		}
		if err := cand.line.Calendar.Reserve(cand.window); err != nil {
			// Check guaranteed the window free; undo and surface the bug.
			for _, additive := range sortedAdditives(needs) {
				ledger.Release(additive, needs[additive])
			}
			return nil, entities.Infeasibility{Code: entities.ReasonCalendarConflict, Detail: err.Error()}
		}

		return &entities.ScheduleEntry{
			RequestID: req.ID,
			Line:      cand.line.ID,
			Start:     cand.window.Start,
			End:       cand.window.End,
			Reserved:  needs,
		}, entities.Infeasibility{}
	}

	return nil, best
}

// enumerateCandidates lists (line, window) pairs for a request, ordered by
// earliest feasible start ascending, then line id ascending. Windows start at
// the later of the free interval start and the request's earliest start. The
// second return reports whether any compatible line was seen at all, so an
// empty candidate list can be attributed to calendars rather than
// compatibility.
func enumerateCandidates(req *entities.BatchRequest, recipe *entities.Recipe,
	lines []*entities.ProductionLine) ([]candidate, bool) {

	var out []candidate
	compatibleSeen := false
	for _, line := range lines {
		if !line.CompatibleWith(recipe.Category) {
			continue
		}
		compatibleSeen = true
		for _, free := range line.Calendar.Free() {
			start := free.Start
			if start.Before(req.EarliestStart) {
				start = req.EarliestStart
			}
			end := start.Add(recipe.Fermentation)
			if end.After(free.End) {
				continue
			}
			out = append(out, candidate{
				line:   line,
				window: entities.Interval{Start: start, End: end},
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].window.Start.Equal(out[j].window.Start) {
			return out[i].window.Start.Before(out[j].window.Start)
		}
		return out[i].line.ID < out[j].line.ID
	})
	return out, compatibleSeen
}

// orderRequests produces the deterministic processing order: priority weight
// descending, earliest due date ascending (no due date last), request id
// ascending. The total order makes runs reproducible and auditable.
func (e *Engine) orderRequests(requests []*entities.BatchRequest) []*entities.BatchRequest {
	ordered := make([]*entities.BatchRequest, len(requests))
	copy(ordered, requests)

	ref := e.config.ReferenceTime
	if ref.IsZero() {
		for _, req := range ordered {
			if ref.IsZero() || req.EarliestStart.Before(ref) {
				ref = req.EarliestStart
			}
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		wi, wj := priorityWeight(ordered[i], ref), priorityWeight(ordered[j], ref)
		if wi != wj {
			return wi > wj
		}
		di, dj := ordered[i].Due, ordered[j].Due
		switch {
		case !di.IsZero() && !dj.IsZero() && !di.Equal(dj):
			return di.Before(dj)
		case di.IsZero() != dj.IsZero():
			return !di.IsZero()
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// priorityWeight combines business priority with due-date proximity. Business
// priority dominates; within a priority tier, requests due sooner weigh more.
func priorityWeight(req *entities.BatchRequest, ref time.Time) int64 {
	weight := int64(req.Priority) * priorityScale
	if !req.HasDue() {
		return weight
	}
	until := req.Due.Sub(ref)
	if until < 0 {
		until = 0
	}
	if until > dueHorizon {
		return weight
	}
	return weight + int64((dueHorizon-until)/time.Minute)
}
