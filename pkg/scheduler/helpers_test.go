package scheduler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamline/batchplan/pkg/domain/entities"
)

var day0 = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func testRecipe(t *testing.T, id, category string, ferment time.Duration,
	additives map[entities.AdditiveID]string) *entities.Recipe {
	t.Helper()

	var reqs []entities.AdditiveRequirement
	for additive, perLiter := range additives {
		reqs = append(reqs, entities.AdditiveRequirement{
			Additive: additive,
			PerLiter: entities.MustQuantity(perLiter, "g"),
		})
	}
	r, err := entities.NewRecipe(entities.RecipeID(id), id, category, ferment, reqs,
		decimal.RequireFromString("0.95"))
	if err != nil {
		t.Fatalf("testRecipe %s: %v", id, err)
	}
	return r
}

func testLine(t *testing.T, id string, capacityPerHour string, free []entities.Interval,
	compatible []string) *entities.ProductionLine {
	t.Helper()

	cal, err := entities.NewCalendar(free)
	if err != nil {
		t.Fatalf("testLine %s calendar: %v", id, err)
	}
	l, err := entities.NewProductionLine(entities.LineID(id), id,
		entities.MustQuantity(capacityPerHour, "L"), cal, compatible)
	if err != nil {
		t.Fatalf("testLine %s: %v", id, err)
	}
	return l
}

func testRequest(t *testing.T, id, recipe, liters string, earliest, due time.Time, priority int) *entities.BatchRequest {
	t.Helper()
	r, err := entities.NewBatchRequest(entities.RequestID(id), entities.RecipeID(recipe),
		entities.MustQuantity(liters, "L"), earliest, due, priority)
	if err != nil {
		t.Fatalf("testRequest %s: %v", id, err)
	}
	return r
}

func testSnapshot(t *testing.T, stock map[entities.AdditiveID]string) *entities.InventorySnapshot {
	t.Helper()
	quantities := make(map[entities.AdditiveID]entities.Quantity, len(stock))
	for id, grams := range stock {
		quantities[id] = entities.MustQuantity(grams, "g")
	}
	s, err := entities.NewInventorySnapshot(day0, 1, quantities)
	if err != nil {
		t.Fatalf("testSnapshot: %v", err)
	}
	return s
}

// openWeek is a single wide free interval covering day0 through day0+7d.
func openWeek() []entities.Interval {
	return []entities.Interval{{Start: day0, End: day0.Add(7 * 24 * time.Hour)}}
}
