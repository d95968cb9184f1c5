package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeledger/internal/orders"
)

type orderGuard struct {
	repo Repository
}

// NewOrderGuard exposes pending order claims to the order lifecycle, which
// must not cancel an order whose transfer is still under review.
func NewOrderGuard(repo Repository) orders.PaymentGuard {
	return orderGuard{repo: repo}
}

func (g orderGuard) HasPendingForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	return g.repo.WithTx(tx).HasPendingForOrder(ctx, orderID)
}
