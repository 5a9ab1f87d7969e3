package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamline/batchplan/pkg/domain/entities"
	"github.com/creamline/batchplan/pkg/scheduler"
)

func main() {
	ctx := context.Background()

	day0 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	recipes, lines, requests, snapshot := setupCreamery(day0)

	fmt.Println("🥛 Scheduling the week's yogurt production...")
	fmt.Printf("Requests: %d, Lines: %d\n\n", len(requests), len(lines))

	engine := scheduler.NewEngine(scheduler.Config{})
	result, err := engine.Run(ctx, requests, recipes, lines, snapshot)
	if err != nil {
		fmt.Printf("❌ Scheduling failed: %v\n", err)
		return
	}

	fmt.Println("📊 Run Results:")
	fmt.Printf("  Placed: %d\n", len(result.Entries))
	fmt.Printf("  Infeasible: %d\n\n", len(result.Infeasible))

	for _, entry := range result.Entries {
		fmt.Printf("  ✅ %s on %s  %s → %s\n",
			entry.RequestID, entry.Line,
			entry.Start.Format("Mon 15:04"), entry.End.Format("Mon 15:04"))
	}
	for _, inf := range result.Infeasible {
		fmt.Printf("  ⚠️  %s: %s", inf.RequestID, inf.Reason.Code)
		if inf.Reason.Additive != "" {
			fmt.Printf(" (short %s of %s)", inf.Reason.Shortfall, inf.Reason.Additive)
		}
		fmt.Println()
	}
}

// setupCreamery builds a small two-line plant: one strawberry recipe, one
// plain, and just enough strawberry puree for a single fruit batch.
func setupCreamery(day0 time.Time) ([]*entities.Recipe, []*entities.ProductionLine,
	[]*entities.BatchRequest, *entities.InventorySnapshot) {

	strawberry, err := entities.NewRecipe("strawberry", "Strawberry Yogurt", "fruit", 6*time.Hour,
		[]entities.AdditiveRequirement{
			{Additive: "strawberry-puree", PerLiter: entities.MustQuantity("0.2", "g")},
			{Additive: "culture", PerLiter: entities.MustQuantity("0.05", "g")},
		}, decimal.NewFromInt(1))
	if err != nil {
		panic(err)
	}
	plain, err := entities.NewRecipe("plain", "Plain Yogurt", "plain", 4*time.Hour,
		[]entities.AdditiveRequirement{
			{Additive: "culture", PerLiter: entities.MustQuantity("0.05", "g")},
		}, decimal.NewFromInt(1))
	if err != nil {
		panic(err)
	}

	week := []entities.Interval{{Start: day0, End: day0.Add(7 * 24 * time.Hour)}}

	var lines []*entities.ProductionLine
	for _, spec := range []struct {
		id         entities.LineID
		name       string
		compatible []string
	}{
		{"line-1", "Fruit Line", []string{"fruit"}},
		{"line-2", "General Line", nil},
	} {
		calendar, err := entities.NewCalendar(week)
		if err != nil {
			panic(err)
		}
		line, err := entities.NewProductionLine(spec.id, spec.name,
			entities.MustQuantity("500", "l"), calendar, spec.compatible)
		if err != nil {
			panic(err)
		}
		lines = append(lines, line)
	}

	var requests []*entities.BatchRequest
	for _, spec := range []struct {
		id       entities.RequestID
		recipe   entities.RecipeID
		due      time.Time
		priority int
	}{
		{"req-001", "strawberry", day0.Add(3 * 24 * time.Hour), 1},
		{"req-002", "strawberry", time.Time{}, 0},
		{"req-003", "plain", day0.Add(2 * 24 * time.Hour), 2},
	} {
		req, err := entities.NewBatchRequest(spec.id, spec.recipe,
			entities.MustQuantity("500", "l"), day0, spec.due, spec.priority)
		if err != nil {
			panic(err)
		}
		requests = append(requests, req)
	}

	snapshot, err := entities.NewInventorySnapshot(day0, 1, map[entities.AdditiveID]entities.Quantity{
		"strawberry-puree": entities.MustQuantity("150", "g"),
		"culture":          entities.MustQuantity("500", "g"),
	})
	if err != nil {
		panic(err)
	}

	return []*entities.Recipe{strawberry, plain}, lines, requests, snapshot
}
