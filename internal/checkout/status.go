package checkout

import "fmt"

// AttemptStatus tracks one checkout attempt through its pipeline. Any
// validation or stock failure short-circuits to rejected before mutation.
type AttemptStatus string

const (
	AttemptStart         AttemptStatus = "start"
	AttemptValidated     AttemptStatus = "validated"
	AttemptStockReserved AttemptStatus = "stock_reserved"
	AttemptOrderCreated  AttemptStatus = "order_created"
	AttemptCartCleared   AttemptStatus = "cart_cleared"
	AttemptConfirmed     AttemptStatus = "confirmed"
	AttemptRejected      AttemptStatus = "rejected"
)

var validNext = map[AttemptStatus]map[AttemptStatus]bool{
	AttemptStart:         {AttemptValidated: true, AttemptRejected: true},
	AttemptValidated:     {AttemptStockReserved: true, AttemptRejected: true},
	AttemptStockReserved: {AttemptOrderCreated: true},
	AttemptOrderCreated:  {AttemptCartCleared: true},
	AttemptCartCleared:   {AttemptConfirmed: true},
	AttemptConfirmed:     {},
	AttemptRejected:      {},
}

func CanTransition(from, to AttemptStatus) bool {
	return validNext[from][to]
}

type attempt struct {
	status AttemptStatus
}

func newAttempt() *attempt { return &attempt{status: AttemptStart} }

func (a *attempt) advance(to AttemptStatus) error {
	if !CanTransition(a.status, to) {
		return fmt.Errorf("illegal checkout transition %s -> %s", a.status, to)
	}
	a.status = to
	return nil
}

func (a *attempt) reject() { a.status = AttemptRejected }
