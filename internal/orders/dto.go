package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeledger/pkg/auth"
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/angelmondragon/tradeledger/pkg/pagination"
)

// DraftItem is one cart line frozen into a draft order.
type DraftItem struct {
	SKU            string
	Name           string
	UnitPriceCents int
	Quantity       int
}

// CreateDraftInput builds a draft from one seller group of a cart. BuyerID
// defaults to the actor's account; only admins may draft for someone else.
type CreateDraftInput struct {
	Actor    auth.Actor
	BuyerID  uuid.UUID
	SellerID uuid.UUID
	Currency enums.Currency
	Items    []DraftItem
}

// PlaceInput moves a draft to placed. CreditCents is reserved on the order and
// debited from the buyer's credit line once the order is paid.
type PlaceInput struct {
	OrderID       uuid.UUID
	Actor         auth.Actor
	PaymentMethod enums.PaymentMethod
	CreditCents   int
}

type MarkPaidInput struct {
	OrderID uuid.UUID
	Actor   auth.Actor
}

type CancelInput struct {
	OrderID       uuid.UUID
	Actor         auth.Actor
	Reason        string
	RequestRefund bool
}

type TrackingInput struct {
	OrderID           uuid.UUID
	Actor             auth.Actor
	Carrier           string
	TrackingNumber    string
	EstimatedDelivery *time.Time
}

type DeliverInput struct {
	OrderID uuid.UUID
	Actor   auth.Actor
	Notes   string
}

// ListFilters narrows List. From and To are inclusive bounds on created_at.
type ListFilters struct {
	Status   *enums.OrderStatus
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	From     *time.Time
	To       *time.Time
	// Participant restricts results to orders where the account is buyer or seller.
	Participant *uuid.UUID
}

// OrderList is one page of orders, newest first.
type OrderList = pagination.Page[models.Order]

// CreditRejection explains why the requested credit portion was refused.
type CreditRejection struct {
	RequestedCents int `json:"requested_cents"`
	MaxCents       int `json:"max_cents"`
}
