package orders

import (
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
)

var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusDraft:   {enums.OrderStatusPlaced},
	enums.OrderStatusPlaced:  {enums.OrderStatusPaid, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:    {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped: {enums.OrderStatusDelivered},
}

// CanTransition reports whether an order may move from one status to another.
// Delivered and cancelled orders never move again.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// TransitionDetails is attached to InvalidTransition errors.
type TransitionDetails struct {
	From enums.OrderStatus `json:"from"`
	To   enums.OrderStatus `json:"to"`
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order cannot move from "+string(from)+" to "+string(to)).
		WithDetails(TransitionDetails{From: from, To: to})
}

func checkTransition(from, to enums.OrderStatus) error {
	if !CanTransition(from, to) {
		return invalidTransition(from, to)
	}
	return nil
}
