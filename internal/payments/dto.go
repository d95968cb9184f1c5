package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeledger/pkg/auth"
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/angelmondragon/tradeledger/pkg/pagination"
)

// SubmitInput records a payment claim against exactly one of an order or a
// seller credit account. Outcome applies to instant payments only and
// defaults to verified.
type SubmitInput struct {
	Actor       auth.Actor
	OrderID     *uuid.UUID
	SellerID    *uuid.UUID
	Method      enums.PaymentMethod
	AmountCents int
	Reference   string
	Outcome     *enums.PaymentStatus
}

// ResolveInput settles a pending payment. The actor is recorded as verifier.
type ResolveInput struct {
	PaymentID uuid.UUID
	Actor     auth.Actor
	Outcome   enums.PaymentStatus
	Notes     string
}

type ListFilters struct {
	Status   *enums.PaymentStatus
	Method   *enums.PaymentMethod
	OrderID  *uuid.UUID
	SellerID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

// PaymentList is one page of payments, newest first.
type PaymentList = pagination.Page[models.Payment]

// Stats aggregates a set of payments. It is always derived, never stored.
type Stats struct {
	Total               int `json:"total"`
	Pending             int `json:"pending"`
	Verified            int `json:"verified"`
	Rejected            int `json:"rejected"`
	PendingVolumeCents  int `json:"pending_volume_cents"`
	VerifiedVolumeCents int `json:"verified_volume_cents"`
}

// AmountMismatch is attached when an order payment does not cover the cash due.
type AmountMismatch struct {
	ExpectedCents int `json:"expected_cents"`
	ActualCents   int `json:"actual_cents"`
}

// ResolutionConflict is attached when a payment was already resolved differently.
type ResolutionConflict struct {
	Status enums.PaymentStatus `json:"status"`
}
