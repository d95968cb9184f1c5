package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/angelmondragon/tradeledger/pkg/pagination"
)

type orderView struct {
	ID                 uuid.UUID           `json:"id"`
	BuyerID            uuid.UUID           `json:"buyer_id"`
	SellerID           uuid.UUID           `json:"seller_id"`
	Currency           enums.Currency      `json:"currency"`
	Status             enums.OrderStatus   `json:"status"`
	TotalCents         int                 `json:"total_cents"`
	TotalQuantity      int                 `json:"total_quantity"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	CreditAppliedCents int                 `json:"credit_applied_cents"`
	CashDueCents       int                 `json:"cash_due_cents"`
	Version            int                 `json:"version"`
	Items              []itemView          `json:"items"`
	Shipping           *shippingView       `json:"shipping,omitempty"`
	Delivery           *deliveryView       `json:"delivery,omitempty"`
	Cancellation       *cancellationView   `json:"cancellation,omitempty"`
	Refund             *refundView         `json:"refund,omitempty"`
	PlacedAt           *time.Time          `json:"placed_at,omitempty"`
	PaidAt             *time.Time          `json:"paid_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type itemView struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	SubtotalCents  int    `json:"subtotal_cents"`
}

type shippingView struct {
	Carrier           string     `json:"carrier"`
	TrackingNumber    string     `json:"tracking_number"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
}

type deliveryView struct {
	DeliveredAt time.Time `json:"delivered_at"`
	Notes       string    `json:"notes,omitempty"`
}

type cancellationView struct {
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type refundView struct {
	Status              enums.RefundStatus `json:"status"`
	AmountCents         int                `json:"amount_cents"`
	CreditReturnedCents int                `json:"credit_returned_cents"`
	AdminNotes          string             `json:"admin_notes,omitempty"`
	RequestedAt         *time.Time         `json:"requested_at,omitempty"`
	ApprovedAt          *time.Time         `json:"approved_at,omitempty"`
	CompletedAt         *time.Time         `json:"completed_at,omitempty"`
	RejectedAt          *time.Time         `json:"rejected_at,omitempty"`
}

type orderPage struct {
	Items      []orderView `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func newOrderView(order *models.Order) orderView {
	view := orderView{
		ID:                 order.ID,
		BuyerID:            order.BuyerID,
		SellerID:           order.SellerID,
		Currency:           order.Currency,
		Status:             order.Status,
		TotalCents:         order.TotalCents,
		TotalQuantity:      order.TotalQuantity,
		PaymentMethod:      order.PaymentMethod,
		CreditAppliedCents: order.CreditAppliedCents,
		CashDueCents:       order.CashDueCents(),
		Version:            order.Version,
		Items:              make([]itemView, 0, len(order.Items)),
		PlacedAt:           order.PlacedAt,
		PaidAt:             order.PaidAt,
		CancelledAt:        order.CancelledAt,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, itemView{
			SKU:            item.SKU,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			SubtotalCents:  item.SubtotalCents,
		})
	}

	meta := order.Metadata
	if s := meta.Shipping; s != nil {
		view.Shipping = &shippingView{
			Carrier:           s.Carrier,
			TrackingNumber:    s.TrackingNumber,
			EstimatedDelivery: s.EstimatedDelivery,
			ShippedAt:         s.ShippedAt,
		}
	}
	if d := meta.Delivery; d != nil {
		view.Delivery = &deliveryView{DeliveredAt: d.DeliveredAt, Notes: d.Notes}
	}
	if c := meta.Cancellation; c != nil {
		view.Cancellation = &cancellationView{Reason: c.Reason, CancelledAt: c.CancelledAt}
	}
	if r := meta.Refund; r.State() != enums.RefundStatusNone {
		view.Refund = &refundView{
			Status:              r.Status,
			AmountCents:         r.AmountCents,
			CreditReturnedCents: r.CreditReturnedCents,
			AdminNotes:          r.AdminNotes,
			RequestedAt:         r.RequestedAt,
			ApprovedAt:          r.ApprovedAt,
			CompletedAt:         r.CompletedAt,
			RejectedAt:          r.RejectedAt,
		}
	}
	return view
}

func newOrderPage(page *pagination.Page[models.Order]) orderPage {
	out := orderPage{Items: make([]orderView, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, newOrderView(&page.Items[i]))
	}
	return out
}
