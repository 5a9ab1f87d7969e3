package entities

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuantity_UnitNormalization(t *testing.T) {
	testCases := []struct {
		name      string
		value     string
		unit      string
		wantValue string
		wantUnit  Unit
	}{
		{"liters stay liters", "500", "L", "500", Liters},
		{"milliliters to liters", "2500", "ml", "2.5", Liters},
		{"grams stay grams", "150", "g", "150", Grams},
		{"kilograms to grams", "1.5", "kg", "1500", Grams},
		{"spelled out", "3", "liters", "3", Liters},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := ParseQuantity(tc.value, tc.unit)
			if err != nil {
				t.Fatalf("ParseQuantity failed: %v", err)
			}
			if q.Unit() != tc.wantUnit {
				t.Errorf("Expected unit %s, got %s", tc.wantUnit, q.Unit())
			}
			want, _ := decimal.NewFromString(tc.wantValue)
			if !q.Value().Equal(want) {
				t.Errorf("Expected value %s, got %s", want, q.Value())
			}
		})
	}
}

func TestQuantity_RejectsBadInput(t *testing.T) {
	if _, err := ParseQuantity("-1", "L"); err == nil {
		t.Error("Expected error for negative quantity")
	}
	if _, err := ParseQuantity("100", "furlongs"); err == nil {
		t.Error("Expected error for unknown unit")
	}
	if _, err := ParseQuantity("abc", "g"); err == nil {
		t.Error("Expected error for non-decimal value")
	}

	_, err := ParseQuantity("-5", "g")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError, got %T", err)
	}
}

func TestQuantity_MismatchedUnitArithmetic(t *testing.T) {
	volume := MustQuantity("500", "L")
	mass := MustQuantity("100", "g")

	if _, err := volume.Add(mass); err == nil {
		t.Fatal("Expected unit mismatch error on Add")
	}
	_, err := volume.Sub(mass)
	var mismatch *UnitMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected UnitMismatchError, got %T", err)
	}
	if mismatch.Left != Liters || mismatch.Right != Grams {
		t.Errorf("Expected L vs g, got %s vs %s", mismatch.Left, mismatch.Right)
	}
	if _, err := volume.Cmp(mass); err == nil {
		t.Error("Expected unit mismatch error on Cmp")
	}
}

func TestQuantity_ExactArithmetic(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3, not a float approximation.
	a := MustQuantity("0.1", "g")
	b := MustQuantity("0.2", "g")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !sum.Value().Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("Expected exactly 0.3, got %s", sum.Value())
	}

	scaled := MustQuantity("0.2", "g").Mul(decimal.NewFromInt(500))
	if !scaled.Value().Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected 100, got %s", scaled.Value())
	}
}
