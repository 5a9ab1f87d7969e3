// Package analytics derives planner-facing metrics from inventory and
// committed schedules: stockout risk per additive, period-over-period
// production growth and quality pass rates.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamline/batchplan/pkg/domain/entities"
)

// Risk buckets days-of-stock remaining into planner alert levels.
type Risk string

const (
	RiskHigh   Risk = "high"
	RiskMedium Risk = "medium"
	RiskLow    Risk = "low"
)

// noUsageDays stands in for "stock never runs out" when an additive sees no
// planned consumption.
var noUsageDays = decimal.NewFromInt(999)

var (
	highThreshold   = decimal.NewFromInt(5)
	mediumThreshold = decimal.NewFromInt(10)
	hundred         = decimal.NewFromInt(100)
	nanosPerDay     = decimal.NewFromInt(int64(24 * time.Hour))
)

// StockoutRisk is the projected runway for one additive given the planned
// consumption rate.
type StockoutRisk struct {
	Additive      entities.AdditiveID
	Stock         entities.Quantity
	DailyUsage    entities.Quantity
	DaysRemaining decimal.Decimal
	Risk          Risk
}

// StockoutRisks projects, for every additive in the snapshot, how many days
// of stock remain at the consumption rate implied by the scheduled entries.
// The rate spreads each additive's total reservations across the schedule's
// span, floored at one day. Results are ordered most urgent first.
func StockoutRisks(snapshot *entities.InventorySnapshot, entries []entities.ScheduleEntry) []StockoutRisk {
	usage := make(map[entities.AdditiveID]decimal.Decimal)
	var spanStart, spanEnd time.Time
	for _, entry := range entries {
		if spanStart.IsZero() || entry.Start.Before(spanStart) {
			spanStart = entry.Start
		}
		if entry.End.After(spanEnd) {
			spanEnd = entry.End
		}
		for additive, q := range entry.Reserved {
			usage[additive] = usage[additive].Add(q.Value())
		}
	}

	days := decimal.NewFromInt(1)
	if span := spanEnd.Sub(spanStart); span > 24*time.Hour {
		days = decimal.NewFromInt(int64(span)).Div(nanosPerDay)
	}

	risks := make([]StockoutRisk, 0, len(snapshot.Additives()))
	for _, additive := range snapshot.Additives() {
		stock := snapshot.Stock(additive)
		daily := usage[additive].Div(days)

		remaining := noUsageDays
		if daily.Sign() > 0 {
			remaining = stock.Value().Div(daily)
		}

		risk := RiskLow
		switch {
		case remaining.LessThan(highThreshold):
			risk = RiskHigh
		case remaining.LessThan(mediumThreshold):
			risk = RiskMedium
		}

		// daily is non-negative and carries the stock's own unit.
		dailyUsage, _ := entities.NewQuantity(daily, stock.Unit().String())

		risks = append(risks, StockoutRisk{
			Additive:      additive,
			Stock:         stock,
			DailyUsage:    dailyUsage,
			DaysRemaining: remaining,
			Risk:          risk,
		})
	}

	sort.Slice(risks, func(i, j int) bool {
		if !risks[i].DaysRemaining.Equal(risks[j].DaysRemaining) {
			return risks[i].DaysRemaining.LessThan(risks[j].DaysRemaining)
		}
		return risks[i].Additive < risks[j].Additive
	})
	return risks
}

// ProductionGrowth returns the percent change in production volume between
// two periods. A zero previous period reports zero growth rather than a
// division blowup.
func ProductionGrowth(current, previous entities.Quantity) (decimal.Decimal, error) {
	if _, err := current.Cmp(previous); err != nil {
		return decimal.Zero, err
	}
	if previous.IsZero() {
		return decimal.Zero, nil
	}
	diff := current.Value().Sub(previous.Value())
	return diff.Div(previous.Value()).Mul(hundred), nil
}

// QualityResult is one batch's quality control outcome.
type QualityResult struct {
	BatchID string
	Passed  bool
}

// QualityPassRate returns the percentage of batches that passed quality
// control. No batches means a zero rate.
func QualityPassRate(results []QualityResult) decimal.Decimal {
	if len(results) == 0 {
		return decimal.Zero
	}
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	return decimal.NewFromInt(int64(passed)).
		Div(decimal.NewFromInt(int64(len(results)))).
		Mul(hundred)
}
