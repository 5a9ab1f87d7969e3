// Package scenario loads a complete planning data set from a YAML file and
// seeds in-memory repositories with it.
package scenario

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/creamline/batchplan/pkg/domain/entities"
	"github.com/creamline/batchplan/pkg/infrastructure/repositories/memory"
)

// File is the on-disk shape of a planning scenario.
type File struct {
	Recipes   []recipeYAML    `yaml:"recipes"`
	Lines     []lineYAML      `yaml:"lines"`
	Inventory []inventoryYAML `yaml:"inventory"`
	Requests  []requestYAML   `yaml:"requests"`
}

type recipeYAML struct {
	ID            string         `yaml:"id"`
	Name          string         `yaml:"name"`
	Category      string         `yaml:"category"`
	Fermentation  string         `yaml:"fermentation"`
	YieldPerLiter string         `yaml:"yield_per_liter"`
	Additives     []additiveYAML `yaml:"additives"`
}

type additiveYAML struct {
	ID       string `yaml:"id"`
	PerLiter string `yaml:"per_liter"`
	Unit     string `yaml:"unit"`
}

type lineYAML struct {
	ID              string         `yaml:"id"`
	Name            string         `yaml:"name"`
	CapacityPerHour string         `yaml:"capacity_per_hour"`
	Compatible      []string       `yaml:"compatible"`
	Calendar        []intervalYAML `yaml:"calendar"`
}

type intervalYAML struct {
	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`
}

type inventoryYAML struct {
	Additive string `yaml:"additive"`
	Quantity string `yaml:"quantity"`
	Unit     string `yaml:"unit"`
}

type requestYAML struct {
	ID            string    `yaml:"id"`
	Recipe        string    `yaml:"recipe"`
	VolumeLiters  string    `yaml:"volume_liters"`
	EarliestStart time.Time `yaml:"earliest_start"`
	Due           time.Time `yaml:"due"`
	Priority      int       `yaml:"priority"`
}

// Scenario holds repositories seeded from one scenario file.
type Scenario struct {
	Recipes   *memory.RecipeRepository
	Requests  *memory.RequestRepository
	Lines     *memory.LineRepository
	Inventory *memory.InventoryStore
}

// Load reads and validates a scenario file, returning seeded repositories.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates raw scenario YAML and returns seeded repositories.
func Parse(data []byte) (*Scenario, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if len(file.Recipes) == 0 {
		return nil, fmt.Errorf("scenario must declare at least one recipe")
	}
	if len(file.Lines) == 0 {
		return nil, fmt.Errorf("scenario must declare at least one production line")
	}

	recipes := memory.NewRecipeRepository()
	for i, r := range file.Recipes {
		recipe, err := parseRecipe(r)
		if err != nil {
			return nil, fmt.Errorf("scenario recipe %d (%s): %w", i+1, r.ID, err)
		}
		recipes.AddRecipe(recipe)
	}

	lines := memory.NewLineRepository()
	for i, l := range file.Lines {
		line, err := parseLine(l)
		if err != nil {
			return nil, fmt.Errorf("scenario line %d (%s): %w", i+1, l.ID, err)
		}
		lines.AddLine(line)
	}

	stock := make(map[entities.AdditiveID]entities.Quantity, len(file.Inventory))
	for i, item := range file.Inventory {
		q, err := entities.ParseQuantity(item.Quantity, item.Unit)
		if err != nil {
			return nil, fmt.Errorf("scenario inventory %d (%s): %w", i+1, item.Additive, err)
		}
		stock[entities.AdditiveID(item.Additive)] = q
	}

	requests := memory.NewRequestRepository()
	for i, r := range file.Requests {
		req, err := parseRequest(r)
		if err != nil {
			return nil, fmt.Errorf("scenario request %d (%s): %w", i+1, r.ID, err)
		}
		requests.AddRequest(req)
	}

	return &Scenario{
		Recipes:   recipes,
		Requests:  requests,
		Lines:     lines,
		Inventory: memory.NewInventoryStore(stock),
	}, nil
}

func parseRecipe(r recipeYAML) (*entities.Recipe, error) {
	fermentation, err := time.ParseDuration(r.Fermentation)
	if err != nil {
		return nil, fmt.Errorf("invalid fermentation duration %q: %w", r.Fermentation, err)
	}
	yield, err := decimal.NewFromString(r.YieldPerLiter)
	if err != nil {
		return nil, fmt.Errorf("invalid yield_per_liter %q: %w", r.YieldPerLiter, err)
	}
	additives := make([]entities.AdditiveRequirement, 0, len(r.Additives))
	for _, a := range r.Additives {
		perLiter, err := entities.ParseQuantity(a.PerLiter, a.Unit)
		if err != nil {
			return nil, fmt.Errorf("additive %s: %w", a.ID, err)
		}
		additives = append(additives, entities.AdditiveRequirement{
			Additive: entities.AdditiveID(a.ID),
			PerLiter: perLiter,
		})
	}
	return entities.NewRecipe(entities.RecipeID(r.ID), r.Name, r.Category, fermentation, additives, yield)
}

func parseLine(l lineYAML) (*entities.ProductionLine, error) {
	capacity, err := entities.ParseQuantity(l.CapacityPerHour, "l")
	if err != nil {
		return nil, fmt.Errorf("invalid capacity_per_hour %q: %w", l.CapacityPerHour, err)
	}
	intervals := make([]entities.Interval, 0, len(l.Calendar))
	for _, iv := range l.Calendar {
		intervals = append(intervals, entities.Interval{Start: iv.Start.UTC(), End: iv.End.UTC()})
	}
	calendar, err := entities.NewCalendar(intervals)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	return entities.NewProductionLine(entities.LineID(l.ID), l.Name, capacity, calendar, l.Compatible)
}

func parseRequest(r requestYAML) (*entities.BatchRequest, error) {
	volume, err := entities.ParseQuantity(r.VolumeLiters, "l")
	if err != nil {
		return nil, fmt.Errorf("invalid volume_liters %q: %w", r.VolumeLiters, err)
	}
	return entities.NewBatchRequest(entities.RequestID(r.ID), entities.RecipeID(r.Recipe),
		volume, r.EarliestStart.UTC(), dueOrZero(r.Due), r.Priority)
}

func dueOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}
