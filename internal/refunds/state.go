package refunds

import (
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
)

// Requested is entered only through order cancellation, so it has no entry here.
var transitions = map[enums.RefundStatus][]enums.RefundStatus{
	enums.RefundStatusRequested:  {enums.RefundStatusProcessing, enums.RefundStatusRejected},
	enums.RefundStatusProcessing: {enums.RefundStatusCompleted},
}

// CanTransition reports whether a refund may move between the two states.
func CanTransition(from, to enums.RefundStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

type TransitionDetails struct {
	From enums.RefundStatus `json:"from"`
	To   enums.RefundStatus `json:"to"`
}

func checkTransition(from, to enums.RefundStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidRefundTransition, "refund cannot move from "+string(from)+" to "+string(to)).
		WithDetails(TransitionDetails{From: from, To: to})
}

// CreditToReturn is the part of a completed refund paid back onto the buyer's
// credit line: credit is restored before cash, never beyond the current debt.
func CreditToReturn(creditAppliedCents, refundCents, debtCents int) int {
	amount := creditAppliedCents
	if refundCents < amount {
		amount = refundCents
	}
	if debtCents < amount {
		amount = debtCents
	}
	if amount < 0 {
		return 0
	}
	return amount
}
