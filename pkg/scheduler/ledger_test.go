package scheduler

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/creamline/batchplan/pkg/domain/entities"
)

func TestLedger_ReserveAccumulates(t *testing.T) {
	ledger := NewLedger()

	ledger.Reserve("strawberry-puree", entities.MustQuantity("100", "g"))
	ledger.Reserve("strawberry-puree", entities.MustQuantity("0.5", "kg"))

	got := ledger.Reserved("strawberry-puree")
	if !got.Value().Equal(decimal.NewFromInt(600)) {
		t.Errorf("Expected 600 g reserved, got %s", got)
	}
}

func TestLedger_ReleaseRollsBack(t *testing.T) {
	ledger := NewLedger()
	ledger.Reserve("culture", entities.MustQuantity("30", "g"))
	ledger.Reserve("culture", entities.MustQuantity("20", "g"))

	ledger.Release("culture", entities.MustQuantity("30", "g"))
	if got := ledger.Reserved("culture"); !got.Value().Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected 20 g after release, got %s", got)
	}

	ledger.Release("culture", entities.MustQuantity("20", "g"))
	if got := ledger.Reserved("culture"); !got.IsZero() {
		t.Errorf("Expected zero after full release, got %s", got)
	}
	if len(ledger.Snapshot()) != 0 {
		t.Error("Expected empty snapshot after full release")
	}
}

func TestLedger_UnknownAdditiveIsZero(t *testing.T) {
	ledger := NewLedger()
	if got := ledger.Reserved("never-reserved"); !got.IsZero() {
		t.Errorf("Expected zero for unknown additive, got %s", got)
	}
}

func TestLedger_SnapshotIsCopy(t *testing.T) {
	ledger := NewLedger()
	ledger.Reserve("vanilla", entities.MustQuantity("10", "g"))

	snap := ledger.Snapshot()
	snap["vanilla"] = entities.MustQuantity("999", "g")

	if got := ledger.Reserved("vanilla"); !got.Value().Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected ledger unaffected by snapshot mutation, got %s", got)
	}
}
