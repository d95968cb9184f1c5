package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SellerCredit is a seller's revolving credit line. BalanceDebtCents always
// equals the sum of the account's credit movements.
type SellerCredit struct {
	SellerID          uuid.UUID       `gorm:"column:seller_id;type:uuid;primaryKey"`
	CreditLimitCents  int             `gorm:"column:credit_limit_cents;not null;default:0"`
	BalanceDebtCents  int             `gorm:"column:balance_debt_cents;not null;default:0"`
	MaxCartPercentage decimal.Decimal `gorm:"column:max_cart_percentage;type:numeric(5,2);not null"`
	Active            bool            `gorm:"column:active;not null;default:false"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (SellerCredit) TableName() string {
	return "seller_credits"
}
