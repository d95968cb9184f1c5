package refunds

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
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
	"github.com/angelmondragon/tradeledger/pkg/logger"
	"github.com/angelmondragon/tradeledger/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreditLedger returns refunded credit to the buyer's credit line.
type CreditLedger interface {
	AccountTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*models.SellerCredit, error)
	ApplyMovementTx(ctx context.Context, tx *gorm.DB, input ledger.ApplyMovementInput) (*models.CreditMovement, error)
}

// Service runs the refund sub-workflow of cancelled orders.
type Service interface {
	Approve(ctx context.Context, input ApproveInput) (*models.Order, error)
	Complete(ctx context.Context, input CompleteInput) (*models.Order, error)
	Reject(ctx context.Context, input RejectInput) (*models.Order, error)
}

type ServiceParams struct {
	Orders   orders.Repository
	Ledger   CreditLedger
	DB       txRunner
	Notifier notifications.Notifier
	Logger   *logger.Logger
}

type service struct {
	orders   orders.Repository
	ledger   CreditLedger
	tx       txRunner
	notifier notifications.Notifier
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("credit ledger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
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
		orders:   params.Orders,
		ledger:   params.Ledger,
		tx:       params.DB,
		notifier: notifier,
		logg:     logg,
	}, nil
}

func (s *service) Approve(ctx context.Context, input ApproveInput) (*models.Order, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.advance(ctx, input.OrderID, input.Actor, enums.RefundStatusProcessing, func(_ *gorm.DB, order models.Order, refund *types.RefundInfo) error {
		if input.AmountCents <= 0 || input.AmountCents > order.TotalCents {
			return pkgerrors.New(pkgerrors.CodeInvalidRefundAmount, "refund amount must be positive and at most the order total").
				WithDetails(AmountBounds{AmountCents: input.AmountCents, MaxCents: order.TotalCents})
		}
		now := time.Now().UTC()
		refund.AmountCents = input.AmountCents
		refund.ApprovedAt = &now
		if notes := strings.TrimSpace(input.Notes); notes != "" {
			refund.AdminNotes = notes
		}
		return nil
	})
}

// Complete closes a processing refund. When the order used credit, the
// refunded credit portion is returned to the buyer as a negative adjustment.
func (s *service) Complete(ctx context.Context, input CompleteInput) (*models.Order, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.advance(ctx, input.OrderID, input.Actor, enums.RefundStatusCompleted, func(tx *gorm.DB, order models.Order, refund *types.RefundInfo) error {
		now := time.Now().UTC()
		refund.CompletedAt = &now
		if order.CreditAppliedCents <= 0 {
			return nil
		}
		account, err := s.ledger.AccountTx(ctx, tx, order.BuyerID)
		if err != nil {
			return err
		}
		credit := CreditToReturn(order.CreditAppliedCents, refund.AmountCents, account.BalanceDebtCents)
		if credit == 0 {
			return nil
		}
		ref := order.ID
		if _, err := s.ledger.ApplyMovementTx(ctx, tx, ledger.ApplyMovementInput{
			SellerID:    order.BuyerID,
			Type:        enums.CreditMovementTypeAdjustment,
			AmountCents: -credit,
			ReferenceID: &ref,
			Description: "refund of order " + order.ID.String(),
		}); err != nil {
			return err
		}
		refund.CreditReturnedCents = credit
		return nil
	})
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*models.Order, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	notes := strings.TrimSpace(input.Notes)
	if notes == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection notes are required")
	}
	return s.advance(ctx, input.OrderID, input.Actor, enums.RefundStatusRejected, func(_ *gorm.DB, _ models.Order, refund *types.RefundInfo) error {
		now := time.Now().UTC()
		refund.RejectedAt = &now
		refund.AdminNotes = notes
		return nil
	})
}

// advance locks the order, checks the refund transition, lets mutate fill in
// the new refund fields and writes the metadata under the order version check.
func (s *service) advance(ctx context.Context, orderID uuid.UUID, actor auth.Actor, to enums.RefundStatus, mutate func(tx *gorm.DB, order models.Order, refund *types.RefundInfo) error) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var (
		result *models.Order
		from   enums.RefundStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		from = order.Metadata.Refund.State()
		if err := checkTransition(from, to); err != nil {
			return err
		}

		metadata := order.Metadata
		refund := metadata.Refund
		if err := mutate(tx, *order, &refund); err != nil {
			return err
		}
		refund.Status = to
		metadata.Refund = refund

		ok, err := repo.UpdateVersioned(ctx, order.ID, order.Version, map[string]any{
			"metadata": metadata,
			"version":  order.Version + 1,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if !ok {
			fresh, err := repo.FindByID(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			if err := checkTransition(fresh.Metadata.Refund.State(), to); err != nil {
				return err
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}

		updated, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		s.notifier.RefundChanged(ctx, tx, *updated, actor)
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, result.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"from":                  from,
		"to":                    to,
		"amount_cents":          result.Metadata.Refund.AmountCents,
		"credit_returned_cents": result.Metadata.Refund.CreditReturnedCents,
	})
	s.logg.Info(logCtx, "refund.transition")
	return result, nil
}
