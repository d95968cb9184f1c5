package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/angelmondragon/tradeledger/pkg/types"
)

// Order is a buyer's purchase from a single seller. Items and totals are frozen
// when the draft is created.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID            uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID           uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	Currency           enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status             enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'draft'"`
	TotalCents         int                 `gorm:"column:total_cents;not null"`
	TotalQuantity      int                 `gorm:"column:total_quantity;not null"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'instant'"`
	CreditAppliedCents int                 `gorm:"column:credit_applied_cents;not null;default:0"`
	Metadata           types.OrderMetadata `gorm:"column:metadata;type:jsonb;not null;default:'{}'"`
	Version            int                 `gorm:"column:version;not null;default:1"`
	PlacedAt           *time.Time          `gorm:"column:placed_at"`
	PaidAt             *time.Time          `gorm:"column:paid_at"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at"`
	Items              []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// CashDueCents is the part of the total not covered by credit.
func (o Order) CashDueCents() int {
	return o.TotalCents - o.CreditAppliedCents
}

// CreditOnly reports whether credit covers the whole order.
func (o Order) CreditOnly() bool {
	return o.TotalCents > 0 && o.CreditAppliedCents >= o.TotalCents
}

// OrderItem is the immutable snapshot of one cart line.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Position       int       `gorm:"column:position;not null"`
	SKU            string    `gorm:"column:sku;not null"`
	Name           string    `gorm:"column:name;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	SubtotalCents  int       `gorm:"column:subtotal_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
