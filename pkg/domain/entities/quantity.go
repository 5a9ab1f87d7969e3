package entities

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a canonical measurement unit. Volumes normalize to liters and
// masses to grams at construction, so two quantities of the same Unit are
// always directly comparable.
type Unit int

const (
	Liters Unit = iota
	Grams
)

func (u Unit) String() string {
	switch u {
	case Liters:
		return "L"
	case Grams:
		return "g"
	default:
		return "Unknown"
	}
}

var thousand = decimal.NewFromInt(1000)

// Quantity is a non-negative amount with an explicit unit. All arithmetic is
// exact decimal arithmetic; binary floats never enter reservation totals.
type Quantity struct {
	value decimal.Decimal
	unit  Unit
}

// NewQuantity creates a validated quantity, normalizing the given unit to its
// canonical form. Accepted units: l, ml, g, kg (case-insensitive, plus a few
// spelled-out aliases).
func NewQuantity(value decimal.Decimal, unit string) (Quantity, error) {
	if value.IsNegative() {
		return Quantity{}, validationErrorf("quantity", "must be non-negative, got %s", value)
	}

	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "l", "liter", "liters", "litre", "litres":
		return Quantity{value: value, unit: Liters}, nil
	case "ml", "milliliter", "milliliters":
		return Quantity{value: value.Div(thousand), unit: Liters}, nil
	case "g", "gram", "grams":
		return Quantity{value: value, unit: Grams}, nil
	case "kg", "kilogram", "kilograms":
		return Quantity{value: value.Mul(thousand), unit: Grams}, nil
	default:
		return Quantity{}, validationErrorf("quantity", "unknown unit %q", unit)
	}
}

// ParseQuantity parses a decimal string plus unit, e.g. ("150", "g").
func ParseQuantity(value, unit string) (Quantity, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Quantity{}, validationErrorf("quantity", "invalid decimal %q", value)
	}
	return NewQuantity(d, unit)
}

// MustQuantity is a construction helper for fixtures and seed data.
func MustQuantity(value, unit string) Quantity {
	q, err := ParseQuantity(value, unit)
	if err != nil {
		panic(err)
	}
	return q
}

// ZeroOf returns a zero quantity in the given canonical unit.
func ZeroOf(unit Unit) Quantity {
	return Quantity{value: decimal.Zero, unit: unit}
}

// Value returns the canonical decimal value (liters or grams).
func (q Quantity) Value() decimal.Decimal { return q.value }

// Unit returns the canonical unit.
func (q Quantity) Unit() Unit { return q.unit }

// IsZero reports whether the quantity is exactly zero.
func (q Quantity) IsZero() bool { return q.value.IsZero() }

// Add returns q + other, or a UnitMismatchError for incompatible units.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	if q.unit != other.unit {
		return Quantity{}, &UnitMismatchError{Left: q.unit, Right: other.unit}
	}
	return Quantity{value: q.value.Add(other.value), unit: q.unit}, nil
}

// Sub returns q - other. The result may be negative; callers that need a
// shortfall take the negation themselves.
func (q Quantity) Sub(other Quantity) (Quantity, error) {
	if q.unit != other.unit {
		return Quantity{}, &UnitMismatchError{Left: q.unit, Right: other.unit}
	}
	return Quantity{value: q.value.Sub(other.value), unit: q.unit}, nil
}

// Mul scales the quantity by a dimensionless factor.
func (q Quantity) Mul(factor decimal.Decimal) Quantity {
	return Quantity{value: q.value.Mul(factor), unit: q.unit}
}

// Cmp compares two quantities of the same unit: -1 if q < other, 0 if equal,
// +1 if q > other.
func (q Quantity) Cmp(other Quantity) (int, error) {
	if q.unit != other.unit {
		return 0, &UnitMismatchError{Left: q.unit, Right: other.unit}
	}
	return q.value.Cmp(other.value), nil
}

func (q Quantity) String() string {
	return q.value.String() + " " + q.unit.String()
}
