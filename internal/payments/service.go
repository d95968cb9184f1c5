package payments

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
	"github.com/angelmondragon/tradeledger/internal/orders"
	"github.com/angelmondragon/tradeledger/pkg/auth"
	"github.com/angelmondragon/tradeledger/pkg/db"
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
	"github.com/angelmondragon/tradeledger/pkg/logger"
	"github.com/angelmondragon/tradeledger/pkg/outbox"
	"github.com/angelmondragon/tradeledger/pkg/outbox/payloads"
	"github.com/angelmondragon/tradeledger/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OrderPayer advances an order to paid inside the caller's transaction.
type OrderPayer interface {
	MarkPaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor auth.Actor) (*models.Order, error)
}

// CreditLedger is the part of the credit ledger payment verification needs.
type CreditLedger interface {
	AccountTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*models.SellerCredit, error)
	ApplyMovementTx(ctx context.Context, tx *gorm.DB, input ledger.ApplyMovementInput) (*models.CreditMovement, error)
}

// Service reconciles payment claims against orders and credit accounts.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Payment, error)
	Resolve(ctx context.Context, input ResolveInput) (*models.Payment, error)
	Stats(ctx context.Context, filters ListFilters) (*Stats, error)
	Get(ctx context.Context, paymentID uuid.UUID, actor auth.Actor) (*models.Payment, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*PaymentList, error)
}

type ServiceParams struct {
	Repository Repository
	Orders     orders.Repository
	Payer      OrderPayer
	Ledger     CreditLedger
	DB         txRunner
	Outbox     outboxPublisher
	Notifier   notifications.Notifier
	Logger     *logger.Logger
}

type service struct {
	repo     Repository
	orders   orders.Repository
	payer    OrderPayer
	ledger   CreditLedger
	tx       txRunner
	outbox   outboxPublisher
	notifier notifications.Notifier
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("payments repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Payer == nil:
		return nil, fmt.Errorf("order payer required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("credit ledger required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
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
		orders:   params.Orders,
		payer:    params.Payer,
		ledger:   params.Ledger,
		tx:       params.DB,
		outbox:   params.Outbox,
		notifier: notifier,
		logg:     logg,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Payment, error) {
	status, err := validateSubmit(input)
	if err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(input.Reference)

	var result *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment := &models.Payment{
			ID:          uuid.New(),
			OrderID:     input.OrderID,
			SellerID:    input.SellerID,
			Method:      input.Method,
			AmountCents: input.AmountCents,
			Currency:    enums.CurrencyUSD,
			Reference:   reference,
			Status:      status,
		}

		if input.OrderID != nil {
			order, err := s.checkOrderTarget(ctx, tx, repo, *input.OrderID, input)
			if err != nil {
				return err
			}
			payment.Currency = order.Currency
		} else if err := s.checkSellerTarget(ctx, tx, repo, *input.SellerID, input); err != nil {
			return err
		}

		if status.IsResolved() {
			now := time.Now().UTC()
			verifier := input.Actor.UserID
			payment.VerifiedAt = &now
			payment.VerifiedBy = &verifier
		}
		if err := repo.Create(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, "") {
				return openPaymentError()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSubmitted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         input.Actor.Ref(),
			Data:          paymentEvent(*payment),
		}); err != nil {
			return err
		}

		if status == enums.PaymentStatusVerified {
			if err := s.commitVerified(ctx, tx, *payment, input.Actor); err != nil {
				return err
			}
		}
		if status.IsResolved() {
			s.notifier.PaymentResolved(ctx, tx, *payment, input.Actor)
		}
		result = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logPayment(ctx, "payment.submitted", *result)
	return result, nil
}

// validateSubmit checks the request shape and returns the initial status.
func validateSubmit(input SubmitInput) (enums.PaymentStatus, error) {
	if (input.OrderID == nil) == (input.SellerID == nil) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment must target exactly one of an order or a seller account")
	}
	if input.OrderID != nil && *input.OrderID == uuid.Nil || input.SellerID != nil && *input.SellerID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment target id is required")
	}
	if !input.Method.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.AmountCents <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Method.IsManual() {
		if strings.TrimSpace(input.Reference) == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "reference is required for manual payments").
				WithReason(pkgerrors.ReasonMissingReference)
		}
		if input.Outcome != nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "manual payments are resolved by an administrator")
		}
		return enums.PaymentStatusPending, nil
	}
	if input.Outcome == nil {
		return enums.PaymentStatusVerified, nil
	}
	if !input.Outcome.IsResolved() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "instant payment outcome must be verified or rejected")
	}
	return *input.Outcome, nil
}

func (s *service) checkOrderTarget(ctx context.Context, tx *gorm.DB, repo Repository, orderID uuid.UUID, input SubmitInput) (*models.Order, error) {
	order, err := s.orders.WithTx(tx).LockByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !input.Actor.IsAdmin() && !input.Actor.Owns(order.BuyerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to account")
	}
	if order.Status != enums.OrderStatusPlaced {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "payments are accepted only for placed orders").
			WithDetails(orders.TransitionDetails{From: order.Status, To: enums.OrderStatusPaid})
	}
	if due := order.CashDueCents(); input.AmountCents != due {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must equal the cash due on the order").
			WithReason(pkgerrors.ReasonAmountMismatch).
			WithDetails(AmountMismatch{ExpectedCents: due, ActualCents: input.AmountCents})
	}
	open, err := repo.HasOpenForOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open payments")
	}
	if open {
		return nil, openPaymentError()
	}
	return order, nil
}

// checkSellerTarget keeps the sum of a seller's pending claims within its debt.
// The account row lock serializes concurrent submissions for the same seller.
func (s *service) checkSellerTarget(ctx context.Context, tx *gorm.DB, repo Repository, sellerID uuid.UUID, input SubmitInput) error {
	if !input.Actor.IsAdmin() && !input.Actor.Owns(sellerID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "credit account does not belong to account")
	}
	account, err := s.ledger.AccountTx(ctx, tx, sellerID)
	if err != nil {
		return err
	}
	pending, err := repo.PendingForSeller(ctx, sellerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum pending payments")
	}
	payable := account.BalanceDebtCents - pending
	if payable < 0 {
		payable = 0
	}
	if input.AmountCents > payable {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment exceeds outstanding debt").
			WithReason(pkgerrors.ReasonExceedsDebt).
			WithDetails(AmountMismatch{ExpectedCents: payable, ActualCents: input.AmountCents})
	}
	return nil
}

// commitVerified applies the state a verified payment unlocks: the order
// becomes paid, or the seller's debt is reduced by the amount.
func (s *service) commitVerified(ctx context.Context, tx *gorm.DB, payment models.Payment, actor auth.Actor) error {
	if payment.OrderID != nil {
		_, err := s.payer.MarkPaidTx(ctx, tx, *payment.OrderID, actor)
		return err
	}
	ref := payment.ID
	_, err := s.ledger.ApplyMovementTx(ctx, tx, ledger.ApplyMovementInput{
		SellerID:    *payment.SellerID,
		Type:        enums.CreditMovementTypePayment,
		AmountCents: -payment.AmountCents,
		ReferenceID: &ref,
		Description: "payment " + payment.ID.String(),
	})
	return err
}

// Resolve settles a pending payment exactly once. Repeating the same outcome
// returns the current state; a different outcome fails with AlreadyResolved.
func (s *service) Resolve(ctx context.Context, input ResolveInput) (*models.Payment, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if !input.Outcome.IsResolved() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be verified or rejected")
	}
	var notes *string
	if trimmed := strings.TrimSpace(input.Notes); trimmed != "" {
		notes = &trimmed
	}

	var (
		result  *models.Payment
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.LockByID(ctx, input.PaymentID)
		if err != nil {
			return paymentError(err)
		}
		if payment.Status.IsResolved() {
			result = payment
			return sameOutcome(*payment, input.Outcome)
		}

		ok, err := repo.ResolvePending(ctx, payment.ID, input.Outcome, input.Actor.UserID, notes)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve payment")
		}
		fresh, err := repo.FindByID(ctx, payment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
		}
		result = fresh
		if !ok {
			return sameOutcome(*fresh, input.Outcome)
		}

		if input.Outcome == enums.PaymentStatusVerified {
			if err := s.commitVerified(ctx, tx, *fresh, input.Actor); err != nil {
				return err
			}
		}
		s.notifier.PaymentResolved(ctx, tx, *fresh, input.Actor)
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logPayment(ctx, "payment.resolved", *result)
	}
	return result, nil
}

func sameOutcome(payment models.Payment, outcome enums.PaymentStatus) error {
	if payment.Status == outcome {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeAlreadyResolved, "payment already resolved").
		WithDetails(ResolutionConflict{Status: payment.Status})
}

// Stats aggregates the payments matching filters on every call.
func (s *service) Stats(ctx context.Context, filters ListFilters) (*Stats, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	rows, err := s.repo.Matching(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments")
	}
	stats := Summarize(rows)
	return &stats, nil
}

func (s *service) Get(ctx context.Context, paymentID uuid.UUID, actor auth.Actor) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, paymentError(err)
	}
	if actor.IsAdmin() {
		return payment, nil
	}
	if payment.SellerID != nil && actor.Owns(*payment.SellerID) {
		return payment, nil
	}
	if payment.OrderID != nil {
		order, err := s.orders.FindByID(ctx, *payment.OrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if actor.Owns(order.BuyerID) || actor.Owns(order.SellerID) {
			return payment, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to account")
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*PaymentList, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	page := pagination.BuildPage(rows, params.Limit, paymentCursor)
	return &page, nil
}

func validateFilters(filters ListFilters) error {
	if filters.Status != nil && !filters.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if filters.Method != nil && !filters.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	return nil
}

func (s *service) logPayment(ctx context.Context, msg string, payment models.Payment) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_id":   payment.ID.String(),
		"method":       payment.Method,
		"status":       payment.Status,
		"amount_cents": payment.AmountCents,
	})
	if payment.OrderID != nil {
		logCtx = s.logg.WithOrderID(logCtx, payment.OrderID.String())
	}
	if payment.SellerID != nil {
		logCtx = s.logg.WithSellerID(logCtx, payment.SellerID.String())
	}
	s.logg.Info(logCtx, msg)
}

func paymentEvent(payment models.Payment) payloads.PaymentEvent {
	return payloads.PaymentEvent{
		PaymentID:   payment.ID,
		OrderID:     payment.OrderID,
		SellerID:    payment.SellerID,
		Method:      payment.Method,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		Status:      payment.Status,
		ResolvedBy:  payment.VerifiedBy,
	}
}

func openPaymentError() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "order already has an open payment").
		WithReason(pkgerrors.ReasonPaymentOpen)
}

func paymentError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
}
