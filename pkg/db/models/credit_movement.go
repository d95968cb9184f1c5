package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeledger/pkg/enums"
)

// CreditMovement is an insert-only ledger entry. BalanceAfterCents minus
// BalanceBeforeCents always equals AmountCents.
type CreditMovement struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID           uuid.UUID                `gorm:"column:seller_id;type:uuid;not null"`
	Type               enums.CreditMovementType `gorm:"column:type;type:credit_movement_type;not null"`
	AmountCents        int                      `gorm:"column:amount_cents;not null"`
	BalanceBeforeCents int                      `gorm:"column:balance_before_cents;not null"`
	BalanceAfterCents  int                      `gorm:"column:balance_after_cents;not null"`
	ReferenceID        *uuid.UUID               `gorm:"column:reference_id;type:uuid"`
	Description        string                   `gorm:"column:description;not null;default:''"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
}
