package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeledger/internal/ledger"
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/angelmondragon/tradeledger/pkg/pagination"
)

type paymentView struct {
	ID          uuid.UUID           `json:"id"`
	OrderID     *uuid.UUID          `json:"order_id,omitempty"`
	SellerID    *uuid.UUID          `json:"seller_id,omitempty"`
	Method      enums.PaymentMethod `json:"method"`
	AmountCents int                 `json:"amount_cents"`
	Currency    enums.Currency      `json:"currency"`
	Reference   string              `json:"reference,omitempty"`
	Status      enums.PaymentStatus `json:"status"`
	Notes       *string             `json:"notes,omitempty"`
	VerifiedAt  *time.Time          `json:"verified_at,omitempty"`
	VerifiedBy  *uuid.UUID          `json:"verified_by,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type paymentPage struct {
	Items      []paymentView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func newPaymentView(p *models.Payment) paymentView {
	return paymentView{
		ID:          p.ID,
		OrderID:     p.OrderID,
		SellerID:    p.SellerID,
		Method:      p.Method,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Reference:   p.Reference,
		Status:      p.Status,
		Notes:       p.Notes,
		VerifiedAt:  p.VerifiedAt,
		VerifiedBy:  p.VerifiedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func newPaymentPage(page *pagination.Page[models.Payment]) paymentPage {
	out := paymentPage{Items: make([]paymentView, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, newPaymentView(&page.Items[i]))
	}
	return out
}

type movementView struct {
	ID                 uuid.UUID                `json:"id"`
	SellerID           uuid.UUID                `json:"seller_id"`
	Type               enums.CreditMovementType `json:"type"`
	AmountCents        int                      `json:"amount_cents"`
	BalanceBeforeCents int                      `json:"balance_before_cents"`
	BalanceAfterCents  int                      `json:"balance_after_cents"`
	ReferenceID        *uuid.UUID               `json:"reference_id,omitempty"`
	Description        string                   `json:"description,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
}

// movementPage carries the summary of the returned page alongside its rows.
type movementPage struct {
	Items      []movementView         `json:"items"`
	NextCursor string                 `json:"next_cursor,omitempty"`
	Summary    ledger.MovementSummary `json:"summary"`
}

func newMovementView(m *models.CreditMovement) movementView {
	return movementView{
		ID:                 m.ID,
		SellerID:           m.SellerID,
		Type:               m.Type,
		AmountCents:        m.AmountCents,
		BalanceBeforeCents: m.BalanceBeforeCents,
		BalanceAfterCents:  m.BalanceAfterCents,
		ReferenceID:        m.ReferenceID,
		Description:        m.Description,
		CreatedAt:          m.CreatedAt,
	}
}

func newMovementPage(page *ledger.MovementList) movementPage {
	out := movementPage{
		Items:      make([]movementView, 0, len(page.Items)),
		NextCursor: page.NextCursor,
		Summary:    ledger.Summarize(page.Items),
	}
	for i := range page.Items {
		out.Items = append(out.Items, newMovementView(&page.Items[i]))
	}
	return out
}
