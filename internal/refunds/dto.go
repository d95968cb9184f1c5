package refunds

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/tradeledger/pkg/auth"
)

// ApproveInput moves a requested refund to processing with the approved amount.
type ApproveInput struct {
	OrderID     uuid.UUID
	Actor       auth.Actor
	AmountCents int
	Notes       string
}

type CompleteInput struct {
	OrderID uuid.UUID
	Actor   auth.Actor
}

// RejectInput closes a requested refund. Notes are required.
type RejectInput struct {
	OrderID uuid.UUID
	Actor   auth.Actor
	Notes   string
}

// AmountBounds is attached to InvalidRefundAmount errors.
type AmountBounds struct {
	AmountCents int `json:"amount_cents"`
	MaxCents    int `json:"max_cents"`
}
