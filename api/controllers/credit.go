package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeledger/api/middleware"
	"github.com/angelmondragon/tradeledger/api/responses"
	"github.com/angelmondragon/tradeledger/api/validators"
	"github.com/angelmondragon/tradeledger/internal/ledger"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
	"github.com/angelmondragon/tradeledger/pkg/logger"
)

type upsertCreditRequest struct {
	CreditLimitCents  int              `json:"credit_limit_cents" validate:"gte=0"`
	MaxCartPercentage *decimal.Decimal `json:"max_cart_percentage"`
	Active            *bool            `json:"active"`
}

// applyMovementRequest carries a signed amount: positive adjustments add debt,
// referral bonuses are negative.
type applyMovementRequest struct {
	Type        string     `json:"type" validate:"required,oneof=adjustment referral_bonus"`
	AmountCents int        `json:"amount_cents" validate:"required"`
	ReferenceID *uuid.UUID `json:"reference_id"`
	Description string     `json:"description" validate:"required,max=500"`
}

// MyCredit returns the caller's own credit line.
func MyCredit(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		accountID, err := callerAccount(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.GetAccount(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger.SummarizeAccount(*account))
	}
}

// MyMovements pages the caller's ledger history.
func MyMovements(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		accountID, err := callerAccount(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeMovements(w, r, svc, logg, accountID)
	}
}

// AdminUpsertCredit opens a seller's credit line or changes its terms.
func AdminUpsertCredit(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		sellerID, err := validators.ParseUUIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload upsertCreditRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.UpsertAccount(r.Context(), ledger.UpsertAccountInput{
			SellerID:          sellerID,
			CreditLimitCents:  payload.CreditLimitCents,
			MaxCartPercentage: payload.MaxCartPercentage,
			Active:            payload.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger.SummarizeAccount(*account))
	}
}

func AdminGetCredit(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		sellerID, err := validators.ParseUUIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.GetAccount(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger.SummarizeAccount(*account))
	}
}

// AdminApplyMovement records a manual adjustment or referral bonus.
func AdminApplyMovement(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		sellerID, err := validators.ParseUUIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload applyMovementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movementType, err := enums.ParseCreditMovementType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement type"))
			return
		}

		movement, err := svc.ApplyMovement(r.Context(), ledger.ApplyMovementInput{
			SellerID:    sellerID,
			Type:        movementType,
			AmountCents: payload.AmountCents,
			ReferenceID: payload.ReferenceID,
			Description: validators.SanitizeString(payload.Description, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newMovementView(movement))
	}
}

func AdminListMovements(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		sellerID, err := validators.ParseUUIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeMovements(w, r, svc, logg, sellerID)
	}
}

// AdminReconcile recomputes the balance from movement history and reports drift.
func AdminReconcile(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		sellerID, err := validators.ParseUUIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Reconcile(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func writeMovements(w http.ResponseWriter, r *http.Request, svc ledger.Service, logg *logger.Logger, sellerID uuid.UUID) {
	params, err := validators.ParsePage(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	var filters ledger.MovementFilters
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		movementType, err := enums.ParseCreditMovementType(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement type").WithDetails(map[string]any{"field": "type"}))
			return
		}
		filters.Type = &movementType
	}
	filters.From, filters.To, err = validators.ParseQueryRange(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	page, err := svc.ListMovements(r.Context(), sellerID, filters, params)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, newMovementPage(page))
}

// callerAccount is the credit account of the caller: credit lines are keyed by
// the account that buys with them.
func callerAccount(r *http.Request) (uuid.UUID, error) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		return uuid.Nil, err
	}
	if actor.AccountID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "account context missing")
	}
	return *actor.AccountID, nil
}
