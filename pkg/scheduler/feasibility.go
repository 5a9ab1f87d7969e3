package scheduler

import (
	"fmt"
	"sort"

	"github.com/creamline/batchplan/pkg/domain/entities"
)

// Draft is a candidate placement under consideration: this request, made
// with this recipe, on this line, starting at this instant.
type Draft struct {
	Request *entities.BatchRequest
	Recipe  *entities.Recipe
	Line    *entities.ProductionLine
	Start   entities.Interval // full occupied window [start, start+fermentation)
}

// NewDraft builds the occupied window from the recipe's fermentation time.
func NewDraft(req *entities.BatchRequest, recipe *entities.Recipe, line *entities.ProductionLine, start entities.Interval) Draft {
	return Draft{Request: req, Recipe: recipe, Line: line, Start: start}
}

// CheckResult is the outcome of a feasibility check.
type CheckResult struct {
	Feasible bool
	Reason   entities.Infeasibility
}

func feasible() CheckResult { return CheckResult{Feasible: true} }

func infeasible(reason entities.Infeasibility) CheckResult {
	return CheckResult{Feasible: false, Reason: reason}
}

// Check verifies a candidate placement against line compatibility, capacity,
// the line's free calendar, and additive availability (snapshot stock minus
// ledger reservations). Pure: no side effects, safe to call speculatively
// many times during candidate search.
func Check(d Draft, ledger *Ledger, snapshot *entities.InventorySnapshot) CheckResult {
	if !d.Line.CompatibleWith(d.Recipe.Category) {
		return infeasible(entities.Infeasibility{
			Code:   entities.ReasonLineIncompatible,
			Detail: fmt.Sprintf("line %s does not run %s recipes", d.Line.ID, d.Recipe.Category),
		})
	}

	max := d.Line.MaxBatchVolume(d.Recipe.Fermentation)
	if cmp, err := d.Request.Volume.Cmp(max); err != nil || cmp > 0 {
		return infeasible(entities.Infeasibility{
			Code: entities.ReasonCapacityExceeded,
			Detail: fmt.Sprintf("volume %s exceeds line %s window capacity %s",
				d.Request.Volume, d.Line.ID, max),
		})
	}

	if d.Start.Start.Before(d.Request.EarliestStart) {
		return infeasible(entities.Infeasibility{
			Code:   entities.ReasonCalendarConflict,
			Detail: fmt.Sprintf("window starts before request earliest start %s", d.Request.EarliestStart),
		})
	}

	inFree := false
	for _, free := range d.Line.Calendar.Free() {
		if free.Contains(d.Start) {
			inFree = true
			break
		}
	}
	if !inFree {
		return infeasible(entities.Infeasibility{
			Code: entities.ReasonCalendarConflict,
			Detail: fmt.Sprintf("no free interval on line %s holds [%s, %s)",
				d.Line.ID, d.Start.Start, d.Start.End),
		})
	}

	needs, err := d.Recipe.ConsumptionFor(d.Request.Volume)
	if err != nil {
		return infeasible(entities.Infeasibility{
			Code:   entities.ReasonInvalidRequest,
			Detail: err.Error(),
		})
	}
	for _, additive := range sortedAdditives(needs) {
		need := needs[additive]
		available, err := snapshot.Stock(additive).Sub(ledger.Reserved(additive))
		if err != nil {
			return infeasible(entities.Infeasibility{
				Code:   entities.ReasonInvalidRequest,
				Detail: err.Error(),
			})
		}
		if cmp, _ := need.Cmp(available); cmp > 0 {
			shortfall, _ := need.Sub(available)
			return infeasible(entities.Infeasibility{
				Code:      entities.ReasonInsufficientAdditive,
				Additive:  additive,
				Shortfall: shortfall,
				Detail: fmt.Sprintf("additive %s short by %s for request %s",
					additive, shortfall, d.Request.ID),
			})
		}
	}

	return feasible()
}

func sortedAdditives(needs map[entities.AdditiveID]entities.Quantity) []entities.AdditiveID {
	ids := make([]entities.AdditiveID, 0, len(needs))
	for id := range needs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
