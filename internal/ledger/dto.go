package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/angelmondragon/tradeledger/pkg/pagination"
)

// ApplyMovementInput describes one signed change to a seller's debt.
type ApplyMovementInput struct {
	SellerID    uuid.UUID
	Type        enums.CreditMovementType
	AmountCents int
	ReferenceID *uuid.UUID
	Description string
}

// UpsertAccountInput opens or retunes a credit line. Nil fields keep their
// current value, or take the configured default on creation.
type UpsertAccountInput struct {
	SellerID          uuid.UUID
	CreditLimitCents  int
	MaxCartPercentage *decimal.Decimal
	Active            *bool
}

// MovementFilters narrows ListMovements. From and To are inclusive bounds on created_at.
type MovementFilters struct {
	Type *enums.CreditMovementType
	From *time.Time
	To   *time.Time
}

// MovementList is one page of movements, newest first.
type MovementList = pagination.Page[models.CreditMovement]

// AccountSummary is the read model returned to callers of the credit endpoints.
type AccountSummary struct {
	SellerID          uuid.UUID       `json:"seller_id"`
	CreditLimitCents  int             `json:"credit_limit_cents"`
	BalanceDebtCents  int             `json:"balance_debt_cents"`
	AvailableCents    int             `json:"available_cents"`
	MaxCartPercentage decimal.Decimal `json:"max_cart_percentage"`
	Active            bool            `json:"active"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// SummarizeAccount builds the read model for an account.
func SummarizeAccount(account models.SellerCredit) AccountSummary {
	return AccountSummary{
		SellerID:          account.SellerID,
		CreditLimitCents:  account.CreditLimitCents,
		BalanceDebtCents:  account.BalanceDebtCents,
		AvailableCents:    AvailableCredit(account),
		MaxCartPercentage: account.MaxCartPercentage,
		Active:            account.Active,
		UpdatedAt:         account.UpdatedAt,
	}
}

// ChainBreak is a movement whose balance_before does not continue the previous balance_after.
type ChainBreak struct {
	MovementID     uuid.UUID `json:"movement_id"`
	ExpectedBefore int       `json:"expected_before_cents"`
	ActualBefore   int       `json:"actual_before_cents"`
}

// ReconciliationReport compares an account balance against its movement history.
type ReconciliationReport struct {
	SellerID         uuid.UUID    `json:"seller_id"`
	BalanceDebtCents int          `json:"balance_debt_cents"`
	MovementSumCents int          `json:"movement_sum_cents"`
	MovementCount    int          `json:"movement_count"`
	ChainBreaks      []ChainBreak `json:"chain_breaks"`
	InvalidMovements []uuid.UUID  `json:"invalid_movements"`
	Balanced         bool         `json:"balanced"`
}

// TypeTotal aggregates movements of one type.
type TypeTotal struct {
	Count       int `json:"count"`
	AmountCents int `json:"amount_cents"`
}

// MovementSummary aggregates a set of movements. Debited is the sum of positive
// amounts, credited the sum of negative amounts as a positive number.
type MovementSummary struct {
	Count         int                                    `json:"count"`
	NetCents      int                                    `json:"net_cents"`
	DebitedCents  int                                    `json:"debited_cents"`
	CreditedCents int                                    `json:"credited_cents"`
	ByType        map[enums.CreditMovementType]TypeTotal `json:"by_type"`
}
