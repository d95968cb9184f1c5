package notifications

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/tradeledger/pkg/auth"
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/angelmondragon/tradeledger/pkg/outbox"
	"github.com/angelmondragon/tradeledger/pkg/outbox/payloads"
)

type bestEffortEmitter interface {
	EmitBestEffort(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent)
}

// Notifier queues user-facing notifications for terminal state changes. A
// failed write is logged and dropped; it never fails the caller's transaction.
type Notifier interface {
	PaymentResolved(ctx context.Context, tx *gorm.DB, payment models.Payment, actor auth.Actor)
	RefundChanged(ctx context.Context, tx *gorm.DB, order models.Order, actor auth.Actor)
}

type notifier struct {
	outbox bestEffortEmitter
}

// NewNotifier wires a notifier over the outbox. A nil emitter yields a no-op notifier.
func NewNotifier(emitter bestEffortEmitter) Notifier {
	return &notifier{outbox: emitter}
}

func (n *notifier) PaymentResolved(ctx context.Context, tx *gorm.DB, payment models.Payment, actor auth.Actor) {
	if n.outbox == nil {
		return
	}
	event := payloads.PaymentEvent{
		PaymentID:   payment.ID,
		OrderID:     payment.OrderID,
		SellerID:    payment.SellerID,
		Method:      payment.Method,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		Status:      payment.Status,
		ResolvedBy:  payment.VerifiedBy,
	}
	if payment.Notes != nil {
		event.Notes = *payment.Notes
	}
	n.outbox.EmitBestEffort(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentResolved,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         actor.Ref(),
		Data:          event,
	})
}

func (n *notifier) RefundChanged(ctx context.Context, tx *gorm.DB, order models.Order, actor auth.Actor) {
	if n.outbox == nil {
		return
	}
	refund := order.Metadata.Refund
	eventType, ok := refundEventTypes[refund.State()]
	if !ok {
		return
	}
	n.outbox.EmitBestEffort(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor.Ref(),
		Data: payloads.RefundEvent{
			OrderID:             order.ID,
			BuyerID:             order.BuyerID,
			SellerID:            order.SellerID,
			Status:              refund.State(),
			AmountCents:         refund.AmountCents,
			CreditReturnedCents: refund.CreditReturnedCents,
			AdminNotes:          refund.AdminNotes,
		},
	})
}

var refundEventTypes = map[enums.RefundStatus]enums.OutboxEventType{
	enums.RefundStatusRequested:  enums.EventRefundRequested,
	enums.RefundStatusProcessing: enums.EventRefundApproved,
	enums.RefundStatusCompleted:  enums.EventRefundCompleted,
	enums.RefundStatusRejected:   enums.EventRefundRejected,
}

// Nop discards every notification.
func Nop() Notifier {
	return &notifier{}
}
