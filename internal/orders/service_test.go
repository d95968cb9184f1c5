package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeledger/internal/ledger"
	"github.com/angelmondragon/tradeledger/internal/notifications"
	"github.com/angelmondragon/tradeledger/pkg/auth"
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

type orderFixture struct {
	client   *db.Client
	repo     Repository
	svc      Service
	ledger   ledger.Service
	events   *outbox.Repository
	guard    *stubGuard
	buyerID  uuid.UUID
	sellerID uuid.UUID
	buyer    auth.Actor
	seller   auth.Actor
	admin    auth.Actor
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	return newOrderFixtureWithRepo(t, nil)
}

func newOrderFixtureWithRepo(t *testing.T, wrap func(Repository) Repository) *orderFixture {
	t.Helper()
	client := dbtest.NewSQLite(t)
	events := outbox.NewRepository(client.DB())
	emitter := outbox.NewService(events, logger.Nop())

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		Repository: ledger.NewRepository(client.DB()),
		DB:         client,
		Outbox:     emitter,
		Config:     config.CreditConfig{DefaultMaxCartPercentage: "50"},
	})
	require.NoError(t, err)

	repo := NewRepository(client.DB())
	if wrap != nil {
		repo = wrap(repo)
	}
	guard := &stubGuard{pending: map[uuid.UUID]bool{}}
	svc, err := NewService(ServiceParams{
		Repository: repo,
		DB:         client,
		Outbox:     emitter,
		Ledger:     ledgerSvc,
		Payments:   guard,
		Notifier:   notifications.NewNotifier(emitter),
	})
	require.NoError(t, err)

	buyerID, sellerID := uuid.New(), uuid.New()
	return &orderFixture{
		client:   client,
		repo:     repo,
		svc:      svc,
		ledger:   ledgerSvc,
		events:   events,
		guard:    guard,
		buyerID:  buyerID,
		sellerID: sellerID,
		buyer:    auth.Actor{UserID: uuid.New(), AccountID: &buyerID, Role: enums.RoleBuyer},
		seller:   auth.Actor{UserID: uuid.New(), AccountID: &sellerID, Role: enums.RoleSeller},
		admin:    auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin},
	}
}

type stubGuard struct {
	pending map[uuid.UUID]bool
	err     error
}

func (g *stubGuard) HasPendingForOrder(_ context.Context, _ *gorm.DB, orderID uuid.UUID) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return g.pending[orderID], nil
}

func (f *orderFixture) draft(t *testing.T, items ...DraftItem) *models.Order {
	t.Helper()
	if len(items) == 0 {
		items = []DraftItem{{SKU: "SKU-1", Name: "Widget", UnitPriceCents: 10, Quantity: 4}}
	}
	order, err := f.svc.CreateDraft(context.Background(), CreateDraftInput{
		Actor:    f.buyer,
		SellerID: f.sellerID,
		Items:    items,
	})
	require.NoError(t, err)
	return order
}

func (f *orderFixture) placed(t *testing.T, creditCents int) *models.Order {
	t.Helper()
	order := f.draft(t)
	placed, err := f.svc.Place(context.Background(), PlaceInput{
		OrderID:       order.ID,
		Actor:         f.buyer,
		PaymentMethod: enums.PaymentMethodManualTransfer,
		CreditCents:   creditCents,
	})
	require.NoError(t, err)
	return placed
}

func (f *orderFixture) paid(t *testing.T, creditCents int) *models.Order {
	t.Helper()
	order := f.placed(t, creditCents)
	paid, err := f.svc.MarkPaid(context.Background(), MarkPaidInput{OrderID: order.ID, Actor: f.admin})
	require.NoError(t, err)
	return paid
}

// openCredit gives the buyer a credit line with limit 100 and debt 20 at 50%.
func (f *orderFixture) openCredit(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.ledger.UpsertAccount(ctx, ledger.UpsertAccountInput{SellerID: f.buyerID, CreditLimitCents: 100})
	require.NoError(t, err)
	_, err = f.ledger.ApplyMovement(ctx, ledger.ApplyMovementInput{
		SellerID:    f.buyerID,
		Type:        enums.CreditMovementTypePurchase,
		AmountCents: 20,
	})
	require.NoError(t, err)
}

func (f *orderFixture) eventTypes(t *testing.T, orderID uuid.UUID) []enums.OutboxEventType {
	t.Helper()
	rows, err := f.events.ListByAggregate(nil, orderID)
	require.NoError(t, err)
	types := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		types = append(types, row.EventType)
	}
	return types
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), "unexpected error %v", err)
	return typed
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestCreateDraftFreezesTotals(t *testing.T) {
	f := newOrderFixture(t)
	order := f.draft(t,
		DraftItem{SKU: "B-2", Name: "Bolt", UnitPriceCents: 25, Quantity: 3},
		DraftItem{SKU: "A-1", Name: "", UnitPriceCents: 100, Quantity: 1},
	)

	assert.Equal(t, enums.OrderStatusDraft, order.Status)
	assert.Equal(t, 175, order.TotalCents)
	assert.Equal(t, 4, order.TotalQuantity)
	assert.Equal(t, 1, order.Version)
	assert.Equal(t, enums.CurrencyUSD, order.Currency)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "B-2", order.Items[0].SKU)
	assert.Equal(t, 75, order.Items[0].SubtotalCents)
	assert.Equal(t, "A-1", order.Items[1].Name, "name defaults to the sku")
	assert.Equal(t, f.buyerID, order.BuyerID)
}

func TestCreateDraftValidation(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	other := uuid.New()

	tests := []struct {
		name  string
		input CreateDraftInput
		code  pkgerrors.Code
	}{
		{name: "no items", input: CreateDraftInput{Actor: f.buyer, SellerID: f.sellerID}, code: pkgerrors.CodeValidation},
		{name: "zero quantity", input: CreateDraftInput{Actor: f.buyer, SellerID: f.sellerID, Items: []DraftItem{{SKU: "X", UnitPriceCents: 1}}}, code: pkgerrors.CodeValidation},
		{name: "negative price", input: CreateDraftInput{Actor: f.buyer, SellerID: f.sellerID, Items: []DraftItem{{SKU: "X", UnitPriceCents: -1, Quantity: 1}}}, code: pkgerrors.CodeValidation},
		{name: "blank sku", input: CreateDraftInput{Actor: f.buyer, SellerID: f.sellerID, Items: []DraftItem{{SKU: " ", Quantity: 1}}}, code: pkgerrors.CodeValidation},
		{name: "missing seller", input: CreateDraftInput{Actor: f.buyer, Items: []DraftItem{{SKU: "X", Quantity: 1}}}, code: pkgerrors.CodeValidation},
		{name: "self purchase", input: CreateDraftInput{Actor: f.buyer, SellerID: f.buyerID, Items: []DraftItem{{SKU: "X", Quantity: 1}}}, code: pkgerrors.CodeValidation},
		{name: "bad currency", input: CreateDraftInput{Actor: f.buyer, SellerID: f.sellerID, Currency: "XXX", Items: []DraftItem{{SKU: "X", Quantity: 1}}}, code: pkgerrors.CodeValidation},
		{name: "foreign buyer", input: CreateDraftInput{Actor: f.buyer, BuyerID: other, SellerID: f.sellerID, Items: []DraftItem{{SKU: "X", Quantity: 1}}}, code: pkgerrors.CodeForbidden},
		{name: "anonymous", input: CreateDraftInput{SellerID: f.sellerID, Items: []DraftItem{{SKU: "X", Quantity: 1}}}, code: pkgerrors.CodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateDraft(ctx, tt.input)
			requireCode(t, err, tt.code)
		})
	}
}

func TestPlaceReservesCreditWithinCartCap(t *testing.T) {
	f := newOrderFixture(t)
	f.openCredit(t)
	ctx := context.Background()
	order := f.draft(t)

	_, err := f.svc.Place(ctx, PlaceInput{OrderID: order.ID, Actor: f.buyer, PaymentMethod: enums.PaymentMethodInstant, CreditCents: 21})
	typed := requireCode(t, err, pkgerrors.CodeInsufficientCredit)
	assert.Equal(t, CreditRejection{RequestedCents: 21, MaxCents: 20}, typed.Details())

	placed, err := f.svc.Place(ctx, PlaceInput{OrderID: order.ID, Actor: f.buyer, PaymentMethod: enums.PaymentMethodInstant, CreditCents: 20})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPlaced, placed.Status)
	assert.Equal(t, 20, placed.CreditAppliedCents)
	assert.Equal(t, 20, placed.CashDueCents())
	assert.NotNil(t, placed.PlacedAt)
	assert.Equal(t, 2, placed.Version)
	assert.Equal(t, 40, placed.TotalCents, "totals stay frozen")

	account, err := f.ledger.GetAccount(ctx, f.buyerID)
	require.NoError(t, err)
	assert.Equal(t, 20, account.BalanceDebtCents, "placing only reserves credit")
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderPlaced}, f.eventTypes(t, order.ID))
}

func TestPlaceCountsCreditHeldByOtherPlacedOrders(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	_, err := f.ledger.UpsertAccount(ctx, ledger.UpsertAccountInput{SellerID: f.buyerID, CreditLimitCents: 30})
	require.NoError(t, err)

	first := f.placed(t, 19)
	second := f.draft(t)

	_, err = f.svc.Place(ctx, PlaceInput{OrderID: second.ID, Actor: f.buyer, PaymentMethod: enums.PaymentMethodManualTransfer, CreditCents: 19})
	typed := requireCode(t, err, pkgerrors.CodeInsufficientCredit)
	assert.Equal(t, CreditRejection{RequestedCents: 19, MaxCents: 11}, typed.Details())

	placed, err := f.svc.Place(ctx, PlaceInput{OrderID: second.ID, Actor: f.buyer, PaymentMethod: enums.PaymentMethodManualTransfer, CreditCents: 11})
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(ctx, MarkPaidInput{OrderID: first.ID, Actor: f.admin})
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(ctx, MarkPaidInput{OrderID: placed.ID, Actor: f.admin})
	require.NoError(t, err, "every reservation fits the line once debited")

	account, err := f.ledger.GetAccount(ctx, f.buyerID)
	require.NoError(t, err)
	assert.Equal(t, 30, account.BalanceDebtCents)
}

func TestCancelReleasesReservedCredit(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	_, err := f.ledger.UpsertAccount(ctx, ledger.UpsertAccountInput{SellerID: f.buyerID, CreditLimitCents: 30})
	require.NoError(t, err)

	held := f.placed(t, 19)
	_, err = f.svc.Cancel(ctx, CancelInput{OrderID: held.ID, Actor: f.buyer, Reason: "wrong size"})
	require.NoError(t, err)

	again := f.placed(t, 19)
	assert.Equal(t, 19, again.CreditAppliedCents)
}

func TestPlaceCreditRequiresActiveAccount(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.draft(t)

	_, err := f.svc.Place(ctx, PlaceInput{OrderID: order.ID, Actor: f.buyer, PaymentMethod: enums.PaymentMethodInstant, CreditCents: 5})
	requireCode(t, err, pkgerrors.CodeInsufficientCredit)

	inactive := false
	_, err = f.ledger.UpsertAccount(ctx, ledger.UpsertAccountInput{SellerID: f.buyerID, CreditLimitCents: 100, Active: &inactive})
	require.NoError(t, err)
	_, err = f.svc.Place(ctx, PlaceInput{OrderID: order.ID, Actor: f.buyer, PaymentMethod: enums.PaymentMethodInstant, CreditCents: 5})
	typed := requireCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, pkgerrors.ReasonAccountInactive, typed.Reason())

	stored, err := f.svc.Get(ctx, order.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDraft, stored.Status)
}

func TestPlaceRejectsInvalidInput(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.draft(t)

	_, err := f.svc.Place(ctx, PlaceInput{OrderID: order.ID, Actor: f.buyer, PaymentMethod: "cash"})
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = f.svc.Place(ctx, PlaceInput{OrderID: order.ID, Actor: f.buyer, PaymentMethod: enums.PaymentMethodInstant, CreditCents: -1})
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = f.svc.Place(ctx, PlaceInput{OrderID: order.ID, Actor: f.seller, PaymentMethod: enums.PaymentMethodInstant})
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = f.svc.Place(ctx, PlaceInput{OrderID: uuid.New(), Actor: f.buyer, PaymentMethod: enums.PaymentMethodInstant})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestMarkPaidDebitsReservedCredit(t *testing.T) {
	f := newOrderFixture(t)
	f.openCredit(t)
	ctx := context.Background()
	order := f.placed(t, 20)

	_, err := f.svc.MarkPaid(ctx, MarkPaidInput{OrderID: order.ID, Actor: f.buyer})
	requireCode(t, err, pkgerrors.CodeForbidden)

	paid, err := f.svc.MarkPaid(ctx, MarkPaidInput{OrderID: order.ID, Actor: f.admin})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	account, err := f.ledger.GetAccount(ctx, f.buyerID)
	require.NoError(t, err)
	assert.Equal(t, 40, account.BalanceDebtCents)

	page, err := f.ledger.ListMovements(ctx, f.buyerID, ledger.MovementFilters{}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	var purchase *models.CreditMovement
	for i := range page.Items {
		if page.Items[i].ReferenceID != nil && *page.Items[i].ReferenceID == order.ID {
			purchase = &page.Items[i]
		}
	}
	require.NotNil(t, purchase)
	assert.Equal(t, 20, purchase.AmountCents)
	assert.Equal(t, 20, purchase.BalanceBeforeCents)
	assert.Equal(t, 40, purchase.BalanceAfterCents)

	_, err = f.svc.MarkPaid(ctx, MarkPaidInput{OrderID: order.ID, Actor: f.admin})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestCancelTwiceIsInvalidTransition(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.placed(t, 0)

	cancelled, err := f.svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: f.buyer, Reason: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.Metadata.Cancellation)
	assert.Equal(t, "changed my mind", cancelled.Metadata.Cancellation.Reason)
	assert.NotNil(t, cancelled.CancelledAt)

	_, err = f.svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: f.buyer, Reason: "again"})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	stored, err := f.svc.Get(ctx, order.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, cancelled.Version, stored.Version)
	assert.Equal(t, "changed my mind", stored.Metadata.Cancellation.Reason)
}

func TestCancelRefusedWhilePaymentPending(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.placed(t, 0)
	f.guard.pending[order.ID] = true

	_, err := f.svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: f.buyer, Reason: "changed my mind"})
	typed := requireCode(t, err, pkgerrors.CodeInvalidTransition)
	assert.Equal(t, pkgerrors.ReasonPaymentPending, typed.Reason())
	assert.Equal(t, TransitionDetails{From: enums.OrderStatusPlaced, To: enums.OrderStatusCancelled}, typed.Details())

	stored, err := f.svc.Get(ctx, order.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPlaced, stored.Status)
	assert.Equal(t, order.Version, stored.Version)
	assert.NotContains(t, f.eventTypes(t, order.ID), enums.EventOrderCancelled)

	f.guard.err = errors.New("connection reset")
	_, err = f.svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: f.buyer, Reason: "changed my mind"})
	requireCode(t, err, pkgerrors.CodeDependency)

	f.guard.err = nil
	delete(f.guard.pending, order.ID)
	cancelled, err := f.svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: f.buyer, Reason: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
}

func TestCancelPaidOrderRequestsRefund(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.paid(t, 0)

	cancelled, err := f.svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: f.buyer, Reason: "damaged", RequestRefund: true})
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusRequested, cancelled.Metadata.Refund.State())
	assert.Equal(t, order.TotalCents, cancelled.Metadata.Refund.AmountCents)
	assert.NotNil(t, cancelled.Metadata.Refund.RequestedAt)

	events := f.eventTypes(t, order.ID)
	assert.Contains(t, events, enums.EventOrderCancelled)
	assert.Contains(t, events, enums.EventRefundRequested)
}

func TestCancelWithoutRefundWindow(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	placed := f.placed(t, 0)
	cancelled, err := f.svc.Cancel(ctx, CancelInput{OrderID: placed.ID, Actor: f.buyer, Reason: "late", RequestRefund: true})
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusNone, cancelled.Metadata.Refund.State(), "placed orders were never paid")
	assert.NotContains(t, f.eventTypes(t, placed.ID), enums.EventRefundRequested)

	_, err = f.svc.Cancel(ctx, CancelInput{OrderID: f.paid(t, 0).ID, Actor: f.buyer, Reason: "   "})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Cancel(ctx, CancelInput{OrderID: f.draft(t).ID, Actor: f.buyer, Reason: "abandon"})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestTrackingAndDelivery(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateTracking(ctx, TrackingInput{OrderID: f.placed(t, 0).ID, Actor: f.seller, Carrier: "UPS", TrackingNumber: "1Z"})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	order := f.paid(t, 0)
	_, err = f.svc.UpdateTracking(ctx, TrackingInput{OrderID: order.ID, Actor: f.seller, Carrier: "UPS"})
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = f.svc.UpdateTracking(ctx, TrackingInput{OrderID: order.ID, Actor: f.buyer, Carrier: "UPS", TrackingNumber: "1Z"})
	requireCode(t, err, pkgerrors.CodeForbidden)

	eta := time.Now().Add(72 * time.Hour)
	shipped, err := f.svc.UpdateTracking(ctx, TrackingInput{OrderID: order.ID, Actor: f.seller, Carrier: "UPS", TrackingNumber: "1Z", EstimatedDelivery: &eta})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, shipped.Status)
	require.NotNil(t, shipped.Metadata.Shipping)
	require.NotNil(t, shipped.Metadata.Shipping.ShippedAt)
	firstShippedAt := *shipped.Metadata.Shipping.ShippedAt

	retracked, err := f.svc.UpdateTracking(ctx, TrackingInput{OrderID: order.ID, Actor: f.seller, Carrier: "FedEx", TrackingNumber: "99"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, retracked.Status)
	assert.Equal(t, shipped.Version+1, retracked.Version)
	assert.Equal(t, "FedEx", retracked.Metadata.Shipping.Carrier)
	assert.True(t, firstShippedAt.Equal(*retracked.Metadata.Shipping.ShippedAt))

	delivered, err := f.svc.MarkDelivered(ctx, DeliverInput{OrderID: order.ID, Actor: f.seller, Notes: "left at door"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.Metadata.Delivery)
	assert.Equal(t, "left at door", delivered.Metadata.Delivery.Notes)

	_, err = f.svc.Place(ctx, PlaceInput{OrderID: order.ID, Actor: f.buyer, PaymentMethod: enums.PaymentMethodInstant})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	_, err = f.svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: f.buyer, Reason: "too late"})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	assert.ElementsMatch(t,
		[]enums.OutboxEventType{enums.EventOrderPlaced, enums.EventOrderPaid, enums.EventOrderShipped, enums.EventOrderDelivered},
		f.eventTypes(t, order.ID),
	)
}

type racingRepo struct {
	Repository
	db     *gorm.DB
	raceTo enums.OrderStatus
}

func (r racingRepo) WithTx(tx *gorm.DB) Repository {
	return racingRepo{Repository: r.Repository.WithTx(tx), db: tx, raceTo: r.raceTo}
}

// UpdateVersioned simulates another writer committing first.
func (r racingRepo) UpdateVersioned(ctx context.Context, orderID uuid.UUID, version int, updates map[string]any) (bool, error) {
	if r.raceTo != "" {
		if err := r.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ?", orderID).
			Updates(map[string]any{"status": r.raceTo, "version": version + 1}).Error; err != nil {
			return false, err
		}
	}
	return false, nil
}

func TestLostVersionRaceClassification(t *testing.T) {
	base := newOrderFixture(t)
	order := base.paid(t, 0)

	svc, err := NewService(ServiceParams{
		Repository: racingRepo{Repository: base.repo, db: base.client.DB(), raceTo: enums.OrderStatusCancelled},
		DB:         base.client,
		Outbox:     outbox.NewService(base.events, logger.Nop()),
		Ledger:     base.ledger,
		Payments:   base.guard,
	})
	require.NoError(t, err)
	_, err = svc.UpdateTracking(context.Background(), TrackingInput{OrderID: order.ID, Actor: base.seller, Carrier: "UPS", TrackingNumber: "1Z"})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	svc, err = NewService(ServiceParams{
		Repository: racingRepo{Repository: base.repo, db: base.client.DB()},
		DB:         base.client,
		Outbox:     outbox.NewService(base.events, logger.Nop()),
		Ledger:     base.ledger,
		Payments:   base.guard,
	})
	require.NoError(t, err)
	_, err = svc.UpdateTracking(context.Background(), TrackingInput{OrderID: order.ID, Actor: base.seller, Carrier: "UPS", TrackingNumber: "1Z"})
	typed := requireCode(t, err, pkgerrors.CodeConflict)
	assert.True(t, typed.Retryable())

	stored, err := base.svc.Get(context.Background(), order.ID, base.admin)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status, "a lost race leaves the order untouched")
}

func TestGetAndListScopeToParticipants(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	first := f.draft(t)
	second := f.draft(t)

	strangerID := uuid.New()
	stranger := auth.Actor{UserID: uuid.New(), AccountID: &strangerID, Role: enums.RoleBuyer}
	_, err := f.svc.Get(ctx, first.ID, stranger)
	requireCode(t, err, pkgerrors.CodeForbidden)

	fromSeller, err := f.svc.Get(ctx, first.ID, f.seller)
	require.NoError(t, err)
	assert.Equal(t, first.ID, fromSeller.ID)

	page, err := f.svc.List(ctx, stranger, ListFilters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = f.svc.List(ctx, f.buyer, ListFilters{}, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.List(ctx, f.buyer, ListFilters{}, pagination.Params{Limit: 1, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, []uuid.UUID{page.Items[0].ID, next.Items[0].ID})

	placedStatus := enums.OrderStatusPlaced
	page, err = f.svc.List(ctx, f.admin, ListFilters{Status: &placedStatus}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = f.svc.List(ctx, f.buyer, ListFilters{}, pagination.Params{Cursor: "%%%"})
	requireCode(t, err, pkgerrors.CodeValidation)
}
