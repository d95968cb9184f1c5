package payloads

import (
	"time"

	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/google/uuid"
)

// OrderStatusEvent is emitted for every committed order transition.
type OrderStatusEvent struct {
	OrderID            uuid.UUID         `json:"order_id"`
	BuyerID            uuid.UUID         `json:"buyer_id"`
	SellerID           uuid.UUID         `json:"seller_id"`
	PreviousStatus     enums.OrderStatus `json:"previous_status"`
	Status             enums.OrderStatus `json:"status"`
	TotalCents         int               `json:"total_cents"`
	CreditAppliedCents int               `json:"credit_applied_cents"`
	Reason             string            `json:"reason,omitempty"`
	OccurredAt         time.Time         `json:"occurred_at"`
}

// PaymentEvent describes a payment claim when submitted and when resolved.
type PaymentEvent struct {
	PaymentID   uuid.UUID           `json:"payment_id"`
	OrderID     *uuid.UUID          `json:"order_id,omitempty"`
	SellerID    *uuid.UUID          `json:"seller_id,omitempty"`
	Method      enums.PaymentMethod `json:"method"`
	AmountCents int                 `json:"amount_cents"`
	Currency    enums.Currency      `json:"currency"`
	Status      enums.PaymentStatus `json:"status"`
	ResolvedBy  *uuid.UUID          `json:"resolved_by,omitempty"`
	Notes       string              `json:"notes,omitempty"`
}

// CreditMovementEvent mirrors one appended ledger entry.
type CreditMovementEvent struct {
	MovementID         uuid.UUID                `json:"movement_id"`
	SellerID           uuid.UUID                `json:"seller_id"`
	Type               enums.CreditMovementType `json:"type"`
	AmountCents        int                      `json:"amount_cents"`
	BalanceBeforeCents int                      `json:"balance_before_cents"`
	BalanceAfterCents  int                      `json:"balance_after_cents"`
	ReferenceID        *uuid.UUID               `json:"reference_id,omitempty"`
}

// RefundEvent tracks refund sub-workflow changes on a cancelled order.
type RefundEvent struct {
	OrderID             uuid.UUID          `json:"order_id"`
	BuyerID             uuid.UUID          `json:"buyer_id"`
	SellerID            uuid.UUID          `json:"seller_id"`
	Status              enums.RefundStatus `json:"status"`
	AmountCents         int                `json:"amount_cents"`
	CreditReturnedCents int                `json:"credit_returned_cents,omitempty"`
	AdminNotes          string             `json:"admin_notes,omitempty"`
}
