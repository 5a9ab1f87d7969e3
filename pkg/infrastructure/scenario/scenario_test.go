package scenario

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/creamline/batchplan/pkg/domain/entities"
)

const strawberryScenario = `
recipes:
  - id: strawberry
    name: Strawberry Yogurt
    category: fruit
    fermentation: 6h
    yield_per_liter: "1"
    additives:
      - id: strawberry-puree
        per_liter: "0.2"
        unit: g

lines:
  - id: line-1
    name: Line 1
    capacity_per_hour: "500"
    compatible: [fruit, plain]
    calendar:
      - start: 2026-03-02T00:00:00Z
        end: 2026-03-09T00:00:00Z

inventory:
  - additive: strawberry-puree
    quantity: "150"
    unit: g

requests:
  - id: req-001
    recipe: strawberry
    volume_liters: "500"
    earliest_start: 2026-03-02T00:00:00Z
  - id: req-002
    recipe: strawberry
    volume_liters: "500"
    earliest_start: 2026-03-02T00:00:00Z
    due: 2026-03-05T00:00:00Z
    priority: 2
`

func TestParse_SeedsRepositories(t *testing.T) {
	sc, err := Parse([]byte(strawberryScenario))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := context.Background()

	recipes, err := sc.Recipes.LoadRecipes(ctx)
	if err != nil {
		t.Fatalf("LoadRecipes: %v", err)
	}
	if len(recipes) != 1 || recipes[0].ID != "strawberry" {
		t.Fatalf("recipes = %+v, want strawberry", recipes)
	}
	if recipes[0].Fermentation != 6*time.Hour {
		t.Errorf("fermentation = %v, want 6h", recipes[0].Fermentation)
	}
	perLiter := recipes[0].Additives[0].PerLiter
	if c, err := perLiter.Cmp(entities.MustQuantity("0.2", "g")); err != nil || c != 0 {
		t.Errorf("per-liter quantity = %s, want 0.2 g", perLiter)
	}

	lines, err := sc.Lines.LoadProductionLines(ctx)
	if err != nil {
		t.Fatalf("LoadProductionLines: %v", err)
	}
	if len(lines) != 1 || !lines[0].CompatibleWith("fruit") {
		t.Fatalf("lines = %+v, want fruit-compatible line-1", lines)
	}

	requests, err := sc.Requests.LoadPendingRequests(ctx)
	if err != nil {
		t.Fatalf("LoadPendingRequests: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(requests))
	}
	if requests[0].HasDue() {
		t.Errorf("req-001 has due date, want none")
	}
	if !requests[1].HasDue() || requests[1].Priority != 2 {
		t.Errorf("req-002 = %+v, want due set and priority 2", requests[1])
	}

	snapshot, err := sc.Inventory.LoadInventorySnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadInventorySnapshot: %v", err)
	}
	stock := snapshot.Stock("strawberry-puree")
	if c, err := stock.Cmp(entities.MustQuantity("150", "g")); err != nil || c != 0 {
		t.Errorf("stock = %s, want 150 g", stock)
	}
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "no recipes",
			mutate:  func(s string) string { return strings.Replace(s, "recipes:", "recipes: []\nignored:", 1) },
			wantErr: "at least one recipe",
		},
		{
			name:    "bad fermentation",
			mutate:  func(s string) string { return strings.Replace(s, "fermentation: 6h", "fermentation: soon", 1) },
			wantErr: "fermentation",
		},
		{
			name:    "bad quantity unit",
			mutate:  func(s string) string { return strings.Replace(s, "unit: g", "unit: cups", 1) },
			wantErr: "unknown unit",
		},
		{
			name:    "negative volume",
			mutate:  func(s string) string { return strings.Replace(s, `volume_liters: "500"`, `volume_liters: "-500"`, 1) },
			wantErr: "non-negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.mutate(strawberryScenario)))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
