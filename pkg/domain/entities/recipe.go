package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecipeID uniquely identifies a recipe.
type RecipeID string

// AdditiveID uniquely identifies an additive (fruit puree, culture, flavor).
type AdditiveID string

// AdditiveRequirement is the mass of one additive consumed per liter of milk
// scheduled for a recipe.
type AdditiveRequirement struct {
	Additive AdditiveID
	PerLiter Quantity
}

// Recipe describes how a yogurt variant is produced. Immutable once
// referenced by a scheduled batch; deletion protection lives in the
// persistence layer, not here.
type Recipe struct {
	ID            RecipeID
	Name          string
	Category      string
	Fermentation  time.Duration
	Additives     []AdditiveRequirement
	YieldPerLiter decimal.Decimal
}

// NewRecipe creates a validated recipe.
func NewRecipe(id RecipeID, name, category string, fermentation time.Duration,
	additives []AdditiveRequirement, yieldPerLiter decimal.Decimal) (*Recipe, error) {

	if id == "" {
		return nil, validationErrorf("recipe", "id cannot be empty")
	}
	if name == "" {
		return nil, validationErrorf("recipe", "name cannot be empty")
	}
	if fermentation <= 0 {
		return nil, validationErrorf("recipe", "fermentation duration must be positive, got %v", fermentation)
	}
	if yieldPerLiter.Sign() <= 0 {
		return nil, validationErrorf("recipe", "yield per liter must be positive, got %s", yieldPerLiter)
	}
	seen := make(map[AdditiveID]bool, len(additives))
	for _, req := range additives {
		if req.Additive == "" {
			return nil, validationErrorf("recipe", "additive id cannot be empty")
		}
		if seen[req.Additive] {
			return nil, validationErrorf("recipe", "duplicate additive %s", req.Additive)
		}
		seen[req.Additive] = true
		if req.PerLiter.Unit() != Grams {
			return nil, validationErrorf("recipe", "additive %s quantity must be a mass", req.Additive)
		}
		if req.PerLiter.IsZero() {
			return nil, validationErrorf("recipe", "additive %s quantity must be positive", req.Additive)
		}
	}

	return &Recipe{
		ID:            id,
		Name:          name,
		Category:      category,
		Fermentation:  fermentation,
		Additives:     additives,
		YieldPerLiter: yieldPerLiter,
	}, nil
}

// ConsumptionFor returns the total additive mass consumed by a batch of the
// given milk volume, keyed by additive id.
func (r *Recipe) ConsumptionFor(volume Quantity) (map[AdditiveID]Quantity, error) {
	if volume.Unit() != Liters {
		return nil, &UnitMismatchError{Left: Liters, Right: volume.Unit()}
	}
	needs := make(map[AdditiveID]Quantity, len(r.Additives))
	for _, req := range r.Additives {
		needs[req.Additive] = req.PerLiter.Mul(volume.Value())
	}
	return needs, nil
}

// OutputFor returns the yogurt volume produced from the given milk volume.
func (r *Recipe) OutputFor(volume Quantity) (Quantity, error) {
	if volume.Unit() != Liters {
		return Quantity{}, &UnitMismatchError{Left: Liters, Right: volume.Unit()}
	}
	return volume.Mul(r.YieldPerLiter), nil
}
