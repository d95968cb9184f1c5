package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeledger/internal/ledger"
	"github.com/angelmondragon/tradeledger/internal/notifications"
	"github.com/angelmondragon/tradeledger/pkg/auth"
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
	"github.com/angelmondragon/tradeledger/pkg/logger"
	"github.com/angelmondragon/tradeledger/pkg/outbox"
	"github.com/angelmondragon/tradeledger/pkg/outbox/payloads"
	"github.com/angelmondragon/tradeledger/pkg/pagination"
	"github.com/angelmondragon/tradeledger/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreditLedger is the part of the credit ledger the order lifecycle needs.
type CreditLedger interface {
	AccountTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*models.SellerCredit, error)
	ApplyMovementTx(ctx context.Context, tx *gorm.DB, input ledger.ApplyMovementInput) (*models.CreditMovement, error)
}

// PaymentGuard reports claims against an order that still await review.
type PaymentGuard interface {
	HasPendingForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)
}

// Service drives orders through their lifecycle.
type Service interface {
	CreateDraft(ctx context.Context, input CreateDraftInput) (*models.Order, error)
	Place(ctx context.Context, input PlaceInput) (*models.Order, error)
	MarkPaid(ctx context.Context, input MarkPaidInput) (*models.Order, error)
	MarkPaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor auth.Actor) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	UpdateTracking(ctx context.Context, input TrackingInput) (*models.Order, error)
	MarkDelivered(ctx context.Context, input DeliverInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*models.Order, error)
	List(ctx context.Context, actor auth.Actor, filters ListFilters, params pagination.Params) (*OrderList, error)
}

type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Outbox     outboxPublisher
	Ledger     CreditLedger
	Payments   PaymentGuard
	Notifier   notifications.Notifier
	Logger     *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	ledger   CreditLedger
	payments PaymentGuard
	notifier notifications.Notifier
	logg     *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("credit ledger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment guard required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.Nop()
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repository,
		tx:       params.DB,
		outbox:   params.Outbox,
		ledger:   params.Ledger,
		payments: params.Payments,
		notifier: notifier,
		logg:     logg,
	}, nil
}

func (s *service) CreateDraft(ctx context.Context, input CreateDraftInput) (*models.Order, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	buyerID := input.BuyerID
	if buyerID == uuid.Nil {
		if input.Actor.AccountID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account context missing")
		}
		buyerID = *input.Actor.AccountID
	}
	if !input.Actor.IsAdmin() && !input.Actor.Owns(buyerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot draft orders for another account")
	}
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if input.SellerID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller must differ")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}

	items, total, quantity, err := freezeItems(input.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		SellerID:      input.SellerID,
		Currency:      currency,
		Status:        enums.OrderStatusDraft,
		TotalCents:    total,
		TotalQuantity: quantity,
		PaymentMethod: enums.PaymentMethodInstant,
		Metadata:      types.OrderMetadata{},
		Version:       1,
		Items:         items,
	}

	var result *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		created, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, result.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"buyer_id":    result.BuyerID.String(),
		"seller_id":   result.SellerID.String(),
		"total_cents": result.TotalCents,
	})
	s.logg.Info(logCtx, "order.draft_created")
	return result, nil
}

// freezeItems validates cart lines and computes the per-line and order totals.
func freezeItems(lines []DraftItem) ([]models.OrderItem, int, int, error) {
	if len(lines) == 0 {
		return nil, 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	items := make([]models.OrderItem, 0, len(lines))
	total, quantity := 0, 0
	for i, line := range lines {
		sku := strings.TrimSpace(line.SKU)
		if sku == "" {
			return nil, 0, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: sku is required", i+1))
		}
		if line.UnitPriceCents < 0 {
			return nil, 0, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unit price must be non-negative", i+1))
		}
		if line.Quantity <= 0 {
			return nil, 0, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
		name := strings.TrimSpace(line.Name)
		if name == "" {
			name = sku
		}
		subtotal := line.UnitPriceCents * line.Quantity
		items = append(items, models.OrderItem{
			ID:             uuid.New(),
			Position:       i + 1,
			SKU:            sku,
			Name:           name,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			SubtotalCents:  subtotal,
		})
		total += subtotal
		quantity += line.Quantity
	}
	return items, total, quantity, nil
}

func (s *service) Place(ctx context.Context, input PlaceInput) (*models.Order, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.CreditCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit must be non-negative")
	}
	return s.inTx(ctx, func(tx *gorm.DB, repo Repository) (*models.Order, enums.OrderStatus, error) {
		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return nil, "", err
		}
		if !canBuy(input.Actor, *order) {
			return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to account")
		}
		if err := checkTransition(order.Status, enums.OrderStatusPlaced); err != nil {
			return nil, "", err
		}
		if order.TotalQuantity <= 0 {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
		}
		if input.CreditCents > 0 {
			if err := s.checkCredit(ctx, tx, repo, *order, input.CreditCents); err != nil {
				return nil, "", err
			}
		}

		prev := order.Status
		updated, err := s.commit(ctx, tx, repo, order, transition{
			to:    enums.OrderStatusPlaced,
			legal: func(st enums.OrderStatus) bool { return CanTransition(st, enums.OrderStatusPlaced) },
			updates: map[string]any{
				"placed_at":            time.Now().UTC(),
				"payment_method":       input.PaymentMethod,
				"credit_applied_cents": input.CreditCents,
			},
			event: enums.EventOrderPlaced,
		}, input.Actor)
		return updated, prev, err
	})
}

// checkCredit validates a requested credit portion against the buyer's credit
// line net of credit other placed orders already hold. The account row lock
// serializes placements for the same buyer.
func (s *service) checkCredit(ctx context.Context, tx *gorm.DB, repo Repository, order models.Order, creditCents int) error {
	account, err := s.ledger.AccountTx(ctx, tx, order.BuyerID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return pkgerrors.New(pkgerrors.CodeInsufficientCredit, "buyer has no credit line").
				WithDetails(CreditRejection{RequestedCents: creditCents})
		}
		return err
	}
	if !account.Active {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit account is inactive").
			WithReason(pkgerrors.ReasonAccountInactive)
	}
	reserved, err := repo.ReservedCredit(ctx, order.BuyerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum reserved credit")
	}
	free := *account
	free.BalanceDebtCents += reserved
	maxCredit := ledger.MaxCreditForCart(free, order.TotalCents)
	if creditCents > maxCredit {
		return pkgerrors.New(pkgerrors.CodeInsufficientCredit, "requested credit exceeds the allowed portion").
			WithDetails(CreditRejection{RequestedCents: creditCents, MaxCents: maxCredit})
	}
	return nil
}

func (s *service) MarkPaid(ctx context.Context, input MarkPaidInput) (*models.Order, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.inTx(ctx, func(tx *gorm.DB, repo Repository) (*models.Order, enums.OrderStatus, error) {
		return s.markPaid(ctx, tx, repo, input.OrderID, input.Actor)
	})
}

// MarkPaidTx moves a placed order to paid inside the caller's transaction and
// debits any reserved credit from the buyer's credit line.
func (s *service) MarkPaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor auth.Actor) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	order, prev, err := s.markPaid(ctx, tx, s.repo.WithTx(tx), orderID, actor)
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, order, prev)
	return order, nil
}

func (s *service) markPaid(ctx context.Context, tx *gorm.DB, repo Repository, orderID uuid.UUID, actor auth.Actor) (*models.Order, enums.OrderStatus, error) {
	order, err := lockOrder(ctx, repo, orderID)
	if err != nil {
		return nil, "", err
	}
	if err := checkTransition(order.Status, enums.OrderStatusPaid); err != nil {
		return nil, "", err
	}
	if order.CreditAppliedCents > 0 {
		ref := order.ID
		if _, err := s.ledger.ApplyMovementTx(ctx, tx, ledger.ApplyMovementInput{
			SellerID:    order.BuyerID,
			Type:        enums.CreditMovementTypePurchase,
			AmountCents: order.CreditAppliedCents,
			ReferenceID: &ref,
			Description: "credit applied to order " + order.ID.String(),
		}); err != nil {
			return nil, "", err
		}
	}

	prev := order.Status
	updated, err := s.commit(ctx, tx, repo, order, transition{
		to:      enums.OrderStatusPaid,
		legal:   func(st enums.OrderStatus) bool { return CanTransition(st, enums.OrderStatusPaid) },
		updates: map[string]any{"paid_at": time.Now().UTC()},
		event:   enums.EventOrderPaid,
	}, actor)
	return updated, prev, err
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is required")
	}
	return s.inTx(ctx, func(tx *gorm.DB, repo Repository) (*models.Order, enums.OrderStatus, error) {
		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return nil, "", err
		}
		if !canBuy(input.Actor, *order) {
			return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to account")
		}
		if err := checkTransition(order.Status, enums.OrderStatusCancelled); err != nil {
			return nil, "", err
		}
		if order.Status == enums.OrderStatusPlaced {
			pending, err := s.payments.HasPendingForOrder(ctx, tx, order.ID)
			if err != nil {
				return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending payments")
			}
			if pending {
				return nil, "", pkgerrors.New(pkgerrors.CodeInvalidTransition, "order has a payment awaiting review").
					WithReason(pkgerrors.ReasonPaymentPending).
					WithDetails(TransitionDetails{From: order.Status, To: enums.OrderStatusCancelled})
			}
		}

		now := time.Now().UTC()
		prev := order.Status
		metadata := order.Metadata
		metadata.Cancellation = &types.CancellationInfo{Reason: reason, CancelledAt: now}
		if input.RequestRefund && prev == enums.OrderStatusPaid && !order.CreditOnly() {
			requestedAt := now
			metadata.Refund = types.RefundInfo{
				Status:      enums.RefundStatusRequested,
				AmountCents: order.TotalCents,
				RequestedAt: &requestedAt,
			}
		}

		updated, err := s.commit(ctx, tx, repo, order, transition{
			to:    enums.OrderStatusCancelled,
			legal: func(st enums.OrderStatus) bool { return CanTransition(st, enums.OrderStatusCancelled) },
			updates: map[string]any{
				"cancelled_at": now,
				"metadata":     metadata,
			},
			event:  enums.EventOrderCancelled,
			reason: reason,
		}, input.Actor)
		if err != nil {
			return nil, "", err
		}
		s.notifier.RefundChanged(ctx, tx, *updated, input.Actor)
		return updated, prev, nil
	})
}

// UpdateTracking records shipment details. A paid order moves to shipped; a
// shipped order only has its tracking replaced.
func (s *service) UpdateTracking(ctx context.Context, input TrackingInput) (*models.Order, error) {
	carrier := strings.TrimSpace(input.Carrier)
	number := strings.TrimSpace(input.TrackingNumber)
	if carrier == "" || number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier and tracking number are required")
	}
	return s.inTx(ctx, func(tx *gorm.DB, repo Repository) (*models.Order, enums.OrderStatus, error) {
		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return nil, "", err
		}
		if !canFulfil(input.Actor, *order) {
			return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to account")
		}
		if !trackable(order.Status) {
			return nil, "", invalidTransition(order.Status, enums.OrderStatusShipped)
		}

		prev := order.Status
		shipping := &types.ShippingInfo{
			Carrier:           carrier,
			TrackingNumber:    number,
			EstimatedDelivery: utcPtr(input.EstimatedDelivery),
		}
		var event enums.OutboxEventType
		if prev == enums.OrderStatusPaid {
			now := time.Now().UTC()
			shipping.ShippedAt = &now
			event = enums.EventOrderShipped
		} else if order.Metadata.Shipping != nil {
			shipping.ShippedAt = order.Metadata.Shipping.ShippedAt
		}
		metadata := order.Metadata
		metadata.Shipping = shipping

		updated, err := s.commit(ctx, tx, repo, order, transition{
			to:      enums.OrderStatusShipped,
			legal:   trackable,
			updates: map[string]any{"metadata": metadata},
			event:   event,
		}, input.Actor)
		return updated, prev, err
	})
}

func trackable(status enums.OrderStatus) bool {
	return status == enums.OrderStatusPaid || status == enums.OrderStatusShipped
}

func (s *service) MarkDelivered(ctx context.Context, input DeliverInput) (*models.Order, error) {
	return s.inTx(ctx, func(tx *gorm.DB, repo Repository) (*models.Order, enums.OrderStatus, error) {
		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return nil, "", err
		}
		if !canFulfil(input.Actor, *order) {
			return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to account")
		}
		if err := checkTransition(order.Status, enums.OrderStatusDelivered); err != nil {
			return nil, "", err
		}

		prev := order.Status
		metadata := order.Metadata
		metadata.Delivery = &types.DeliveryInfo{DeliveredAt: time.Now().UTC(), Notes: strings.TrimSpace(input.Notes)}

		updated, err := s.commit(ctx, tx, repo, order, transition{
			to:      enums.OrderStatusDelivered,
			legal:   func(st enums.OrderStatus) bool { return CanTransition(st, enums.OrderStatusDelivered) },
			updates: map[string]any{"metadata": metadata},
			event:   enums.EventOrderDelivered,
		}, input.Actor)
		return updated, prev, err
	})
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, orderError(err)
	}
	if !canBuy(actor, *order) && !canFulfil(actor, *order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to account")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filters ListFilters, params pagination.Params) (*OrderList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if !actor.IsAdmin() {
		if actor.AccountID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account context missing")
		}
		account := *actor.AccountID
		filters.Participant = &account
	}
	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.BuildPage(rows, params.Limit, orderCursor)
	return &page, nil
}

type transition struct {
	to      enums.OrderStatus
	legal   func(enums.OrderStatus) bool
	updates map[string]any
	event   enums.OutboxEventType
	reason  string
}

// commit writes the transition under the version check, emits its event and
// returns the reloaded order.
func (s *service) commit(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, t transition, actor auth.Actor) (*models.Order, error) {
	t.updates["status"] = t.to
	t.updates["version"] = order.Version + 1
	ok, err := repo.UpdateVersioned(ctx, order.ID, order.Version, t.updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	if !ok {
		return nil, lostRace(ctx, repo, order.ID, t)
	}

	updated, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	if t.event == "" {
		return updated, nil
	}
	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     t.event,
		AggregateType: enums.AggregateOrder,
		AggregateID:   updated.ID,
		Actor:         actor.Ref(),
		Data: payloads.OrderStatusEvent{
			OrderID:            updated.ID,
			BuyerID:            updated.BuyerID,
			SellerID:           updated.SellerID,
			PreviousStatus:     order.Status,
			Status:             updated.Status,
			TotalCents:         updated.TotalCents,
			CreditAppliedCents: updated.CreditAppliedCents,
			Reason:             t.reason,
			OccurredAt:         updated.UpdatedAt.UTC(),
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// lostRace classifies a failed version check against the order's fresh state.
func lostRace(ctx context.Context, repo Repository, orderID uuid.UUID, t transition) error {
	fresh, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	if !t.legal(fresh.Status) {
		return invalidTransition(fresh.Status, t.to)
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
}

func (s *service) inTx(ctx context.Context, fn func(tx *gorm.DB, repo Repository) (*models.Order, enums.OrderStatus, error)) (*models.Order, error) {
	var (
		result *models.Order
		prev   enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, from, err := fn(tx, s.repo.WithTx(tx))
		if err != nil {
			return err
		}
		result, prev = order, from
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, result, prev)
	return result, nil
}

func (s *service) logTransition(ctx context.Context, order *models.Order, prev enums.OrderStatus) {
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"from":    prev,
		"to":      order.Status,
		"version": order.Version,
	})
	s.logg.Info(logCtx, "order.transition")
}

func lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := repo.LockByID(ctx, orderID)
	if err != nil {
		return nil, orderError(err)
	}
	return order, nil
}

func orderError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func canBuy(actor auth.Actor, order models.Order) bool {
	return actor.IsAdmin() || actor.Owns(order.BuyerID)
}

func canFulfil(actor auth.Actor, order models.Order) bool {
	return actor.IsAdmin() || actor.Owns(order.SellerID)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
