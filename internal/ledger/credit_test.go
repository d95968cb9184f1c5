package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
)

func account(limit, debt int, pct string) models.SellerCredit {
	return models.SellerCredit{
		SellerID:          uuid.New(),
		CreditLimitCents:  limit,
		BalanceDebtCents:  debt,
		MaxCartPercentage: decimal.RequireFromString(pct),
		Active:            true,
	}
}

func TestMaxCreditForCartCapsByCartPercentage(t *testing.T) {
	assert.Equal(t, 20, MaxCreditForCart(account(100, 20, "50"), 40))
}

func TestMaxCreditForCartCapsByAvailable(t *testing.T) {
	assert.Equal(t, 10, MaxCreditForCart(account(100, 90, "50"), 1000))
	assert.Equal(t, 0, MaxCreditForCart(account(100, 150, "50"), 1000))
}

func TestMaxCreditForCartFloorsPercentage(t *testing.T) {
	assert.Equal(t, 33, MaxCreditForCart(account(1000, 0, "33.33"), 101))
	assert.Equal(t, 0, MaxCreditForCart(account(1000, 0, "99.99"), 1))
}

func TestMaxCreditForCartEdgeCases(t *testing.T) {
	inactive := account(100, 0, "50")
	inactive.Active = false
	assert.Equal(t, 0, MaxCreditForCart(inactive, 40))
	assert.Equal(t, 0, MaxCreditForCart(account(100, 0, "50"), 0))
	assert.Equal(t, 0, MaxCreditForCart(account(100, 0, "0"), 40))

	// a corrupt 100% row still never covers the whole cart
	assert.Equal(t, 39, MaxCreditForCart(account(100, 0, "100"), 40))
}

func TestMaxCreditForCartProperties(t *testing.T) {
	for _, pct := range []string{"0", "1", "25.5", "50", "99", "99.99"} {
		for subtotal := 1; subtotal <= 500; subtotal += 37 {
			prev := -1
			for debt := 500; debt >= 0; debt -= 50 {
				got := MaxCreditForCart(account(500, debt, pct), subtotal)
				require.Less(t, got, subtotal, "pct=%s subtotal=%d debt=%d", pct, subtotal, debt)
				require.GreaterOrEqual(t, got, prev, "not monotone in available credit: pct=%s subtotal=%d", pct, subtotal)
				prev = got
			}
		}
	}
}

func TestValidateMovementSignRules(t *testing.T) {
	seller := uuid.New()
	cases := []struct {
		name   string
		typ    enums.CreditMovementType
		amount int
		ok     bool
	}{
		{"purchase positive", enums.CreditMovementTypePurchase, 10, true},
		{"purchase negative", enums.CreditMovementTypePurchase, -10, false},
		{"payment negative", enums.CreditMovementTypePayment, -10, true},
		{"payment positive", enums.CreditMovementTypePayment, 10, false},
		{"referral negative", enums.CreditMovementTypeReferralBonus, -5, true},
		{"referral positive", enums.CreditMovementTypeReferralBonus, 5, false},
		{"adjustment either sign", enums.CreditMovementTypeAdjustment, -5, true},
		{"adjustment positive", enums.CreditMovementTypeAdjustment, 5, true},
		{"adjustment zero", enums.CreditMovementTypeAdjustment, 0, false},
		{"unknown type", enums.CreditMovementType("gift"), 5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateMovement(ApplyMovementInput{SellerID: seller, Type: tc.typ, AmountCents: tc.amount})
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestReconcileMovements(t *testing.T) {
	acct := account(1000, 30, "50")
	history := []models.CreditMovement{
		{ID: uuid.New(), Type: enums.CreditMovementTypePurchase, AmountCents: 50, BalanceBeforeCents: 0, BalanceAfterCents: 50},
		{ID: uuid.New(), Type: enums.CreditMovementTypePayment, AmountCents: -20, BalanceBeforeCents: 50, BalanceAfterCents: 30},
	}
	report := ReconcileMovements(acct, history)
	assert.True(t, report.Balanced)
	assert.Equal(t, 30, report.MovementSumCents)
	assert.Empty(t, report.ChainBreaks)

	broken := append([]models.CreditMovement{}, history...)
	broken[1].BalanceBeforeCents = 40
	broken[1].BalanceAfterCents = 20
	report = ReconcileMovements(acct, broken)
	assert.False(t, report.Balanced)
	require.NotEmpty(t, report.ChainBreaks)
	assert.Equal(t, broken[1].ID, report.ChainBreaks[0].MovementID)
	assert.Equal(t, 50, report.ChainBreaks[0].ExpectedBefore)
}

func TestReconcileMovementsFlagsInvalidRow(t *testing.T) {
	acct := account(1000, 50, "50")
	bad := models.CreditMovement{ID: uuid.New(), AmountCents: 50, BalanceBeforeCents: 0, BalanceAfterCents: 45}
	report := ReconcileMovements(acct, []models.CreditMovement{bad})
	assert.False(t, report.Balanced)
	assert.Equal(t, []uuid.UUID{bad.ID}, report.InvalidMovements)
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]models.CreditMovement{
		{Type: enums.CreditMovementTypePurchase, AmountCents: 50},
		{Type: enums.CreditMovementTypePurchase, AmountCents: 25},
		{Type: enums.CreditMovementTypePayment, AmountCents: -30},
		{Type: enums.CreditMovementTypeAdjustment, AmountCents: -5},
	})
	assert.Equal(t, 4, summary.Count)
	assert.Equal(t, 40, summary.NetCents)
	assert.Equal(t, 75, summary.DebitedCents)
	assert.Equal(t, 35, summary.CreditedCents)
	assert.Equal(t, TypeTotal{Count: 2, AmountCents: 75}, summary.ByType[enums.CreditMovementTypePurchase])

	empty := Summarize(nil)
	assert.Zero(t, empty.Count)
	assert.NotNil(t, empty.ByType)
}
