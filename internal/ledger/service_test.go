package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeledger/pkg/config"
	"github.com/angelmondragon/tradeledger/pkg/db"
	"github.com/angelmondragon/tradeledger/pkg/db/dbtest"
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
	"github.com/angelmondragon/tradeledger/pkg/logger"
	"github.com/angelmondragon/tradeledger/pkg/outbox"
	"github.com/angelmondragon/tradeledger/pkg/pagination"
)

type ledgerFixture struct {
	client *db.Client
	repo   Repository
	svc    Service
}

func newLedgerFixture(t *testing.T) ledgerFixture {
	t.Helper()
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		Repository: repo,
		DB:         client,
		Outbox:     outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop()),
		Config:     config.CreditConfig{DefaultMaxCartPercentage: "50"},
	})
	require.NoError(t, err)
	return ledgerFixture{client: client, repo: repo, svc: svc}
}

func (f ledgerFixture) openAccount(t *testing.T, limit int) uuid.UUID {
	t.Helper()
	sellerID := uuid.New()
	_, err := f.svc.UpsertAccount(context.Background(), UpsertAccountInput{SellerID: sellerID, CreditLimitCents: limit})
	require.NoError(t, err)
	return sellerID
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestUpsertAccountAppliesDefaults(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	sellerID := f.openAccount(t, 100)

	acct, err := f.svc.GetAccount(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, 100, acct.CreditLimitCents)
	assert.True(t, acct.MaxCartPercentage.Equal(decimal.NewFromInt(50)))
	assert.True(t, acct.Active)

	pct := decimal.RequireFromString("25")
	inactive := false
	updated, err := f.svc.UpsertAccount(ctx, UpsertAccountInput{SellerID: sellerID, CreditLimitCents: 200, MaxCartPercentage: &pct, Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, 200, updated.CreditLimitCents)
	assert.True(t, updated.MaxCartPercentage.Equal(pct))
	assert.False(t, updated.Active)
}

func TestUpsertAccountRejectsInvalidTerms(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	bad := decimal.NewFromInt(100)
	_, err := f.svc.UpsertAccount(ctx, UpsertAccountInput{SellerID: uuid.New(), CreditLimitCents: 10, MaxCartPercentage: &bad})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	sellerID := f.openAccount(t, 100)
	_, err = f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePurchase, AmountCents: 60})
	require.NoError(t, err)

	_, err = f.svc.UpsertAccount(ctx, UpsertAccountInput{SellerID: sellerID, CreditLimitCents: 50})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestApplyMovementExtendsChain(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	sellerID := f.openAccount(t, 100)

	_, err := f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePurchase, AmountCents: 20})
	require.NoError(t, err)

	movement, err := f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePurchase, AmountCents: 20, Description: "order"})
	require.NoError(t, err)
	assert.Equal(t, 20, movement.BalanceBeforeCents)
	assert.Equal(t, 40, movement.BalanceAfterCents)

	acct, err := f.svc.GetAccount(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, 40, acct.BalanceDebtCents)

	events, err := outbox.NewRepository(f.client.DB()).ListByAggregate(nil, sellerID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	for _, event := range events {
		assert.Equal(t, enums.EventCreditMovementApplied, event.EventType)
	}
}

func TestApplyMovementRejections(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	sellerID := f.openAccount(t, 100)

	_, err := f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePurchase, AmountCents: 101})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientCredit))

	_, err = f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePayment, AmountCents: -1})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, pkgerrors.ReasonExceedsDebt, pkgerrors.As(err).Reason())

	_, err = f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: uuid.New(), Type: enums.CreditMovementTypePurchase, AmountCents: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	acct, err := f.svc.GetAccount(ctx, sellerID)
	require.NoError(t, err)
	assert.Zero(t, acct.BalanceDebtCents, "rejected movements must leave the balance untouched")

	page, err := f.svc.ListMovements(ctx, sellerID, MovementFilters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestApplyMovementInactiveAccount(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	sellerID := f.openAccount(t, 100)
	_, err := f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePurchase, AmountCents: 30})
	require.NoError(t, err)

	inactive := false
	_, err = f.svc.UpsertAccount(ctx, UpsertAccountInput{SellerID: sellerID, CreditLimitCents: 100, Active: &inactive})
	require.NoError(t, err)

	_, err = f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePurchase, AmountCents: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonAccountInactive, pkgerrors.As(err).Reason())

	movement, err := f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePayment, AmountCents: -30})
	require.NoError(t, err)
	assert.Zero(t, movement.BalanceAfterCents)
}

type lostSwapRepo struct {
	Repository
}

func (r lostSwapRepo) WithTx(tx *gorm.DB) Repository {
	return lostSwapRepo{Repository: r.Repository.WithTx(tx)}
}

func (r lostSwapRepo) CompareAndSwapDebt(ctx context.Context, sellerID uuid.UUID, before, after int) (bool, error) {
	return false, nil
}

func TestApplyMovementLostSwapIsConflict(t *testing.T) {
	f := newLedgerFixture(t)
	sellerID := f.openAccount(t, 100)

	svc, err := NewService(ServiceParams{
		Repository: lostSwapRepo{Repository: f.repo},
		DB:         f.client,
		Outbox:     outbox.NewService(outbox.NewRepository(f.client.DB()), logger.Nop()),
	})
	require.NoError(t, err)

	_, err = svc.ApplyMovement(context.Background(), ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePurchase, AmountCents: 10})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.True(t, pkgerrors.As(err).Retryable())
}

func TestConcurrentMovementsKeepLedgerBalanced(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	sellerID := f.openAccount(t, 10_000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePurchase, AmountCents: 25})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	report, err := f.svc.Reconcile(ctx, sellerID)
	require.NoError(t, err)
	assert.True(t, report.Balanced, "report: %+v", report)
	assert.Equal(t, 200, report.BalanceDebtCents)
	assert.Equal(t, 8, report.MovementCount)
}

func TestListMovementsOrderingFiltersAndPaging(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	sellerID := f.openAccount(t, 1_000)

	amounts := []int{10, 20, 30, -15}
	for _, amount := range amounts {
		typ := enums.CreditMovementTypePurchase
		if amount < 0 {
			typ = enums.CreditMovementTypePayment
		}
		_, err := f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: typ, AmountCents: amount})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	first, err := f.svc.ListMovements(ctx, sellerID, MovementFilters{}, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.Equal(t, -15, first.Items[0].AmountCents)
	assert.Equal(t, 30, first.Items[1].AmountCents)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.ListMovements(ctx, sellerID, MovementFilters{}, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, 10, second.Items[0].AmountCents)
	assert.Empty(t, second.NextCursor)

	payment := enums.CreditMovementTypePayment
	filtered, err := f.svc.ListMovements(ctx, sellerID, MovementFilters{Type: &payment}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, payment, filtered.Items[0].Type)

	future := time.Now().Add(time.Hour)
	none, err := f.svc.ListMovements(ctx, sellerID, MovementFilters{From: &future}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, none.Items)

	past := time.Now().Add(-time.Hour)
	_, err = f.svc.ListMovements(ctx, sellerID, MovementFilters{From: &future, To: &past}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.ListMovements(ctx, sellerID, MovementFilters{}, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestQuoteCredit(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	sellerID := f.openAccount(t, 100)
	_, err := f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePurchase, AmountCents: 20})
	require.NoError(t, err)

	quote, err := f.svc.QuoteCredit(ctx, sellerID, 40)
	require.NoError(t, err)
	assert.Equal(t, 20, quote)

	quote, err = f.svc.QuoteCredit(ctx, uuid.New(), 40)
	require.NoError(t, err)
	assert.Zero(t, quote)
}

// interleavingRepo runs onShare right after the account is read for reconciliation.
type interleavingRepo struct {
	Repository
	onShare func()
}

func (r interleavingRepo) WithTx(tx *gorm.DB) Repository {
	return interleavingRepo{Repository: r.Repository.WithTx(tx), onShare: r.onShare}
}

func (r interleavingRepo) ShareAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerCredit, error) {
	account, err := r.Repository.ShareAccount(ctx, sellerID)
	if err == nil && r.onShare != nil {
		r.onShare()
	}
	return account, err
}

func TestReconcileIsNotFooledByConcurrentMovement(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	sellerID := f.openAccount(t, 100)
	_, err := f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePurchase, AmountCents: 10})
	require.NoError(t, err)

	done := make(chan error, 1)
	auditor, err := NewService(ServiceParams{
		Repository: interleavingRepo{Repository: f.repo, onShare: func() {
			go func() {
				_, err := f.svc.ApplyMovement(ctx, ApplyMovementInput{SellerID: sellerID, Type: enums.CreditMovementTypePurchase, AmountCents: 5})
				done <- err
			}()
			select {
			case <-done:
				t.Error("movement committed while the account was being reconciled")
			case <-time.After(50 * time.Millisecond):
			}
		}},
		DB:     f.client,
		Outbox: outbox.NewService(outbox.NewRepository(f.client.DB()), logger.Nop()),
	})
	require.NoError(t, err)

	report, err := auditor.Reconcile(ctx, sellerID)
	require.NoError(t, err)
	assert.True(t, report.Balanced, "report: %+v", report)
	assert.Equal(t, 10, report.BalanceDebtCents)
	assert.Equal(t, 10, report.MovementSumCents)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("movement never committed")
	}

	report, err = f.svc.Reconcile(ctx, sellerID)
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.Equal(t, 15, report.BalanceDebtCents)
	assert.Equal(t, 2, report.MovementCount)
}
