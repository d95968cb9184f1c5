package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeledger/pkg/config"
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
	"github.com/angelmondragon/tradeledger/pkg/logger"
	"github.com/angelmondragon/tradeledger/pkg/metrics"
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

// Service exposes the seller credit ledger.
type Service interface {
	GetAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerCredit, error)
	AccountTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*models.SellerCredit, error)
	UpsertAccount(ctx context.Context, input UpsertAccountInput) (*models.SellerCredit, error)
	QuoteCredit(ctx context.Context, sellerID uuid.UUID, subtotalCents int) (int, error)
	ApplyMovement(ctx context.Context, input ApplyMovementInput) (*models.CreditMovement, error)
	ApplyMovementTx(ctx context.Context, tx *gorm.DB, input ApplyMovementInput) (*models.CreditMovement, error)
	ListMovements(ctx context.Context, sellerID uuid.UUID, filters MovementFilters, params pagination.Params) (*MovementList, error)
	Reconcile(ctx context.Context, sellerID uuid.UUID) (*ReconciliationReport, error)
}

// ServiceParams wires the ledger service.
type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Outbox     outboxPublisher
	Logger     *logger.Logger
	Metrics    *metrics.LedgerMetrics
	Config     config.CreditConfig
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	logg       *logger.Logger
	metrics    *metrics.LedgerMetrics
	defaultPct decimal.Decimal
}

// NewService builds the ledger service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:       params.Repository,
		tx:         params.DB,
		outbox:     params.Outbox,
		logg:       logg,
		metrics:    params.Metrics,
		defaultPct: params.Config.DefaultPercentage(),
	}, nil
}

func (s *service) GetAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerCredit, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	account, err := s.repo.FindAccount(ctx, sellerID)
	if err != nil {
		return nil, accountError(err)
	}
	return account, nil
}

// AccountTx locks and returns the account inside the caller's transaction.
func (s *service) AccountTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*models.SellerCredit, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	account, err := s.repo.WithTx(tx).LockAccount(ctx, sellerID)
	if err != nil {
		return nil, accountError(err)
	}
	return account, nil
}

func (s *service) UpsertAccount(ctx context.Context, input UpsertAccountInput) (*models.SellerCredit, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if input.CreditLimitCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit limit must be non-negative")
	}
	if input.MaxCartPercentage != nil && !ValidPercentage(*input.MaxCartPercentage) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max cart percentage must be in [0, 100)")
	}

	var result *models.SellerCredit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.LockAccount(ctx, input.SellerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit account")
		}

		if account == nil {
			account = &models.SellerCredit{
				SellerID:          input.SellerID,
				CreditLimitCents:  input.CreditLimitCents,
				MaxCartPercentage: s.defaultPct,
				Active:            true,
			}
			if input.MaxCartPercentage != nil {
				account.MaxCartPercentage = *input.MaxCartPercentage
			}
			if input.Active != nil {
				account.Active = *input.Active
			}
			if err := repo.CreateAccount(ctx, account); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create credit account")
			}
			result = account
			return nil
		}

		if input.CreditLimitCents < account.BalanceDebtCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "credit limit cannot drop below outstanding debt").
				WithDetails(map[string]any{
					"credit_limit_cents": input.CreditLimitCents,
					"balance_debt_cents": account.BalanceDebtCents,
				})
		}
		account.CreditLimitCents = input.CreditLimitCents
		if input.MaxCartPercentage != nil {
			account.MaxCartPercentage = *input.MaxCartPercentage
		}
		if input.Active != nil {
			account.Active = *input.Active
		}
		if err := repo.UpdateTerms(ctx, account.SellerID, account.CreditLimitCents, account.MaxCartPercentage, account.Active); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update credit account")
		}
		updated, err := repo.FindAccount(ctx, account.SellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload credit account")
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithSellerID(ctx, result.SellerID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"credit_limit_cents":  result.CreditLimitCents,
		"max_cart_percentage": result.MaxCartPercentage.String(),
		"active":              result.Active,
	})
	s.logg.Info(logCtx, "ledger.account_upserted")
	return result, nil
}

// QuoteCredit returns MaxCreditForCart for the seller's account, or zero when the seller has none.
func (s *service) QuoteCredit(ctx context.Context, sellerID uuid.UUID, subtotalCents int) (int, error) {
	if sellerID == uuid.Nil {
		return 0, nil
	}
	account, err := s.repo.FindAccount(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit account")
	}
	return MaxCreditForCart(*account, subtotalCents), nil
}

func (s *service) ApplyMovement(ctx context.Context, input ApplyMovementInput) (*models.CreditMovement, error) {
	var movement *models.CreditMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.ApplyMovementTx(ctx, tx, input)
		if err != nil {
			return err
		}
		movement = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// ApplyMovementTx locks the account row, validates the movement against the
// current balance, swaps the balance and appends the movement, all inside tx.
func (s *service) ApplyMovementTx(ctx context.Context, tx *gorm.DB, input ApplyMovementInput) (*models.CreditMovement, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	movement, err := s.applyMovement(ctx, s.repo.WithTx(tx), tx, input)
	if err != nil {
		s.metrics.IncRejected(string(pkgerrors.As(err).Code()))
		return nil, err
	}
	s.metrics.IncMovement(string(movement.Type))
	return movement, nil
}

func (s *service) applyMovement(ctx context.Context, repo Repository, tx *gorm.DB, input ApplyMovementInput) (*models.CreditMovement, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}

	account, err := repo.LockAccount(ctx, input.SellerID)
	if err != nil {
		return nil, accountError(err)
	}

	before := account.BalanceDebtCents
	after := before + input.AmountCents
	debtIncreasing := input.AmountCents > 0

	if debtIncreasing && !account.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit account is inactive").
			WithReason(pkgerrors.ReasonAccountInactive)
	}
	if debtIncreasing && after > account.CreditLimitCents {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientCredit, "movement exceeds credit limit").
			WithDetails(map[string]any{
				"credit_limit_cents": account.CreditLimitCents,
				"balance_debt_cents": before,
				"amount_cents":       input.AmountCents,
			})
	}
	if after < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement would leave a negative balance").
			WithReason(pkgerrors.ReasonExceedsDebt).
			WithDetails(map[string]any{
				"balance_debt_cents": before,
				"amount_cents":       input.AmountCents,
			})
	}

	swapped, err := repo.CompareAndSwapDebt(ctx, input.SellerID, before, after)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
	}
	if !swapped {
		s.metrics.IncConflict()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "balance changed concurrently")
	}

	movement := &models.CreditMovement{
		SellerID:           input.SellerID,
		Type:               input.Type,
		AmountCents:        input.AmountCents,
		BalanceBeforeCents: before,
		BalanceAfterCents:  after,
		ReferenceID:        input.ReferenceID,
		Description:        input.Description,
	}
	if err := repo.InsertMovement(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert movement")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventCreditMovementApplied,
		AggregateType: enums.AggregateSellerCredit,
		AggregateID:   input.SellerID,
		Data: payloads.CreditMovementEvent{
			MovementID:         movement.ID,
			SellerID:           movement.SellerID,
			Type:               movement.Type,
			AmountCents:        movement.AmountCents,
			BalanceBeforeCents: movement.BalanceBeforeCents,
			BalanceAfterCents:  movement.BalanceAfterCents,
			ReferenceID:        movement.ReferenceID,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit movement event")
	}

	logCtx := s.logg.WithSellerID(ctx, input.SellerID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"movement_id":    movement.ID.String(),
		"type":           movement.Type,
		"amount_cents":   movement.AmountCents,
		"balance_before": before,
		"balance_after":  after,
	})
	s.logg.Info(logCtx, "ledger.movement_applied")
	return movement, nil
}

func (s *service) ListMovements(ctx context.Context, sellerID uuid.UUID, filters MovementFilters, params pagination.Params) (*MovementList, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if filters.Type != nil && !filters.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid movement type")
	}
	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListMovements(ctx, sellerID, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}
	page := pagination.BuildPage(rows, params.Limit, movementCursor)
	return &page, nil
}

// Reconcile compares the stored debt with the movement chain. Both are read in
// one transaction under a shared account lock, so a movement committing in
// between cannot surface as drift.
func (s *service) Reconcile(ctx context.Context, sellerID uuid.UUID) (*ReconciliationReport, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	var report ReconciliationReport
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.ShareAccount(ctx, sellerID)
		if err != nil {
			return accountError(err)
		}
		history, err := repo.MovementHistory(ctx, sellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load movement history")
		}
		report = ReconcileMovements(*account, history)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !report.Balanced {
		logCtx := s.logg.WithSellerID(ctx, sellerID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"balance_debt_cents": report.BalanceDebtCents,
			"movement_sum_cents": report.MovementSumCents,
			"chain_breaks":       len(report.ChainBreaks),
			"checked_at":         time.Now().UTC(),
		})
		s.logg.Warn(logCtx, "ledger.reconciliation_drift")
	}
	return &report, nil
}

func accountError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "credit account not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit account")
}
