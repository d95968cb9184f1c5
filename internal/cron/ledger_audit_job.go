package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tradeledger/internal/ledger"
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/logger"
)

const defaultAuditBatch = 200

// ErrLedgerDrift marks an account whose balance no longer matches its movements.
var ErrLedgerDrift = errors.New("ledger drift")

type accountLister interface {
	ListAccounts(ctx context.Context, after uuid.UUID, limit int) ([]models.SellerCredit, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, sellerID uuid.UUID) (*ledger.ReconciliationReport, error)
}

type driftGauge interface {
	SetOutOfBalance(count int)
}

type LedgerAuditJobParams struct {
	Logger    *logger.Logger
	Accounts  accountLister
	Ledger    reconciler
	Metrics   driftGauge
	BatchSize int
}

// NewLedgerAuditJob checks every credit account against its movement history.
// It only reads; drift is reported, never repaired.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account lister required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultAuditBatch
	}
	return &ledgerAuditJob{
		logg:     params.Logger,
		accounts: params.Accounts,
		ledger:   params.Ledger,
		metrics:  params.Metrics,
		batch:    batch,
	}, nil
}

type ledgerAuditJob struct {
	logg     *logger.Logger
	accounts accountLister
	ledger   reconciler
	metrics  driftGauge
	batch    int
}

func (j *ledgerAuditJob) Name() string { return "ledger-reconciliation" }

func (j *ledgerAuditJob) Run(ctx context.Context) error {
	var (
		combined error
		checked  int
		drifting int
		after    uuid.UUID
	)
	for {
		page, err := j.accounts.ListAccounts(ctx, after, j.batch)
		if err != nil {
			return multierr.Append(combined, fmt.Errorf("list accounts after %s: %w", after, err))
		}
		for _, account := range page {
			checked++
			report, err := j.ledger.Reconcile(ctx, account.SellerID)
			if err != nil {
				combined = multierr.Append(combined, fmt.Errorf("reconcile %s: %w", account.SellerID, err))
				continue
			}
			if !report.Balanced {
				drifting++
				combined = multierr.Append(combined, fmt.Errorf("%w: seller %s balance %d movements %d chain breaks %d invalid %d",
					ErrLedgerDrift, account.SellerID, report.BalanceDebtCents, report.MovementSumCents,
					len(report.ChainBreaks), len(report.InvalidMovements)))
			}
		}
		if len(page) < j.batch {
			break
		}
		after = page[len(page)-1].SellerID
	}

	if j.metrics != nil {
		j.metrics.SetOutOfBalance(drifting)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"accounts_checked": checked,
		"accounts_drifted": drifting,
	})
	j.logg.Info(logCtx, "ledger.audit_complete")
	return combined
}
