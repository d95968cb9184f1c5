package cart

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
	"github.com/angelmondragon/tradeledger/pkg/logger"
)

// CatalogLookup reports which of the given SKUs the catalog knows about.
type CatalogLookup interface {
	ExistingSKUs(ctx context.Context, skus []string) (map[string]bool, error)
}

// CreditQuoter returns how much of a subtotal the account may pay with credit.
type CreditQuoter interface {
	QuoteCredit(ctx context.Context, sellerID uuid.UUID, subtotalCents int) (int, error)
}

// Service builds cart summaries for the checkout screen.
type Service interface {
	Summarize(ctx context.Context, accountID *uuid.UUID, lines []Line) (*Summary, error)
}

type ServiceParams struct {
	Catalog CatalogLookup
	Credit  CreditQuoter
	Logger  *logger.Logger
}

type service struct {
	catalog CatalogLookup
	credit  CreditQuoter
	logg    *logger.Logger
}

// UnknownSKUs lists the SKUs the catalog rejected.
type UnknownSKUs struct {
	SKUs []string `json:"skus"`
}

// NewService wires the cart summary. A nil catalog skips SKU checks.
func NewService(params ServiceParams) (Service, error) {
	if params.Credit == nil {
		return nil, fmt.Errorf("credit quoter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{catalog: params.Catalog, credit: params.Credit, logg: logg}, nil
}

func (s *service) Summarize(ctx context.Context, accountID *uuid.UUID, lines []Line) (*Summary, error) {
	normalized := make([]Line, 0, len(lines))
	for i, line := range lines {
		line.SKU = strings.TrimSpace(line.SKU)
		switch {
		case line.SellerID == uuid.Nil:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: seller_id is required", i))
		case line.SKU == "":
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: sku is required", i))
		case line.UnitPriceCents < 0:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: unit price cannot be negative", i))
		case line.Quantity <= 0:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be positive", i))
		}
		normalized = append(normalized, line)
	}

	if err := s.checkCatalog(ctx, normalized); err != nil {
		return nil, err
	}

	summary := Summarize(normalized)
	if accountID == nil {
		return &summary, nil
	}
	for i := range summary.Groups {
		quote, err := s.credit.QuoteCredit(ctx, *accountID, summary.Groups[i].SubtotalCents)
		if err != nil {
			return nil, err
		}
		summary.Groups[i].MaxCreditCents = quote
	}
	return &summary, nil
}

func (s *service) checkCatalog(ctx context.Context, lines []Line) error {
	if s.catalog == nil || len(lines) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	skus := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.SKU]; ok {
			continue
		}
		seen[line.SKU] = struct{}{}
		skus = append(skus, line.SKU)
	}

	known, err := s.catalog.ExistingSKUs(ctx, skus)
	if err != nil {
		s.logg.Error(ctx, "cart.catalog_lookup_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog lookup")
	}
	var missing []string
	for _, sku := range skus {
		if !known[sku] {
			missing = append(missing, sku)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return pkgerrors.New(pkgerrors.CodeValidation, "unknown skus in cart").WithDetails(UnknownSKUs{SKUs: missing})
}
