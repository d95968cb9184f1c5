package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeledger/pkg/enums"
)

// Payment is a claim that money moved, targeting either an order or a seller
// credit account.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	SellerID    *uuid.UUID          `gorm:"column:seller_id;type:uuid"`
	Method      enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	AmountCents int                 `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	Reference   string              `gorm:"column:reference;not null;default:''"`
	Status      enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Notes       *string             `gorm:"column:notes"`
	VerifiedAt  *time.Time          `gorm:"column:verified_at"`
	VerifiedBy  *uuid.UUID          `gorm:"column:verified_by;type:uuid"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
