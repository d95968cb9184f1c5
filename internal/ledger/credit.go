package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// AvailableCredit is the unused part of the credit line, floored at zero.
func AvailableCredit(account models.SellerCredit) int {
	available := account.CreditLimitCents - account.BalanceDebtCents
	if available < 0 {
		return 0
	}
	return available
}

// MaxCreditForCart returns how much of a cart subtotal the account may cover with
// credit: min(available credit, floor(subtotal * pct / 100)). Credit never covers
// the whole subtotal, so for a positive subtotal the result is at most subtotal-1.
func MaxCreditForCart(account models.SellerCredit, subtotalCents int) int {
	if !account.Active || subtotalCents <= 0 {
		return 0
	}
	pct := account.MaxCartPercentage
	if pct.IsNegative() {
		return 0
	}
	capByPct := decimal.NewFromInt(int64(subtotalCents)).Mul(pct).Div(hundred).Floor().IntPart()

	limit := int(capByPct)
	if available := AvailableCredit(account); available < limit {
		limit = available
	}
	if limit >= subtotalCents {
		limit = subtotalCents - 1
	}
	return limit
}

// ValidPercentage reports whether pct is in [0, 100).
func ValidPercentage(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThan(hundred)
}

// validateMovement enforces the sign rule of each movement type.
func validateMovement(input ApplyMovementInput) error {
	if input.SellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid movement type").
			WithDetails(map[string]any{"type": input.Type})
	}
	var ok bool
	switch input.Type {
	case enums.CreditMovementTypePurchase:
		ok = input.AmountCents > 0
	case enums.CreditMovementTypePayment, enums.CreditMovementTypeReferralBonus:
		ok = input.AmountCents < 0
	case enums.CreditMovementTypeAdjustment:
		ok = input.AmountCents != 0
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount sign does not match movement type").
			WithDetails(map[string]any{"type": input.Type, "amount_cents": input.AmountCents})
	}
	return nil
}

// ReconcileMovements checks an account against its movements in creation order.
// The chain starts at zero: the first movement's balance_before must be 0.
func ReconcileMovements(account models.SellerCredit, movements []models.CreditMovement) ReconciliationReport {
	report := ReconciliationReport{
		SellerID:         account.SellerID,
		BalanceDebtCents: account.BalanceDebtCents,
		MovementCount:    len(movements),
		ChainBreaks:      []ChainBreak{},
		InvalidMovements: []uuid.UUID{},
	}
	expected := 0
	for _, m := range movements {
		report.MovementSumCents += m.AmountCents
		if m.BalanceAfterCents-m.BalanceBeforeCents != m.AmountCents {
			report.InvalidMovements = append(report.InvalidMovements, m.ID)
		}
		if m.BalanceBeforeCents != expected {
			report.ChainBreaks = append(report.ChainBreaks, ChainBreak{
				MovementID:     m.ID,
				ExpectedBefore: expected,
				ActualBefore:   m.BalanceBeforeCents,
			})
		}
		expected = m.BalanceAfterCents
	}
	if len(movements) > 0 && expected != account.BalanceDebtCents {
		report.ChainBreaks = append(report.ChainBreaks, ChainBreak{
			ExpectedBefore: expected,
			ActualBefore:   account.BalanceDebtCents,
		})
	}
	report.Balanced = report.MovementSumCents == account.BalanceDebtCents &&
		len(report.ChainBreaks) == 0 &&
		len(report.InvalidMovements) == 0
	return report
}

// Summarize aggregates movements per type. It is recomputed on every call.
func Summarize(movements []models.CreditMovement) MovementSummary {
	summary := MovementSummary{ByType: map[enums.CreditMovementType]TypeTotal{}}
	for _, m := range movements {
		summary.Count++
		summary.NetCents += m.AmountCents
		if m.AmountCents > 0 {
			summary.DebitedCents += m.AmountCents
		} else {
			summary.CreditedCents -= m.AmountCents
		}
		total := summary.ByType[m.Type]
		total.Count++
		total.AmountCents += m.AmountCents
		summary.ByType[m.Type] = total
	}
	return summary
}
