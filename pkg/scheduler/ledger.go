package scheduler

import (
	"github.com/shopspring/decimal"

	"github.com/creamline/batchplan/pkg/domain/entities"
)

// Ledger tracks tentative additive consumption for one scheduling run. It is
// scoped to the run and discarded (or committed by the caller) at run end; it
// is not a system of record. Quantities are canonical grams.
//
// The ledger trusts its caller: Reserve does not re-validate against stock,
// because feasibility has already been checked before any reservation.
type Ledger struct {
	reserved map[entities.AdditiveID]decimal.Decimal
}

// NewLedger creates an empty reservation ledger.
func NewLedger() *Ledger {
	return &Ledger{reserved: make(map[entities.AdditiveID]decimal.Decimal)}
}

// Reserve records tentative consumption of an additive.
func (l *Ledger) Reserve(id entities.AdditiveID, qty entities.Quantity) {
	l.reserved[id] = l.reserved[id].Add(qty.Value())
}

// Release rolls back a prior reservation, e.g. when a caller aborts a
// partially committed run.
func (l *Ledger) Release(id entities.AdditiveID, qty entities.Quantity) {
	rest := l.reserved[id].Sub(qty.Value())
	if rest.Sign() <= 0 {
		delete(l.reserved, id)
		return
	}
	l.reserved[id] = rest
}

// Reserved returns the quantity currently reserved for an additive.
func (l *Ledger) Reserved(id entities.AdditiveID) entities.Quantity {
	q, err := entities.NewQuantity(l.reserved[id], "g")
	if err != nil {
		// reserved totals are sums of non-negative quantities
		return entities.ZeroOf(entities.Grams)
	}
	return q
}

// Snapshot returns a copy of all current reservations for diagnostics.
func (l *Ledger) Snapshot() map[entities.AdditiveID]entities.Quantity {
	out := make(map[entities.AdditiveID]entities.Quantity, len(l.reserved))
	for id := range l.reserved {
		out[id] = l.Reserved(id)
	}
	return out
}
