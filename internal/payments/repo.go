package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/angelmondragon/tradeledger/pkg/pagination"
)

// Repository persists payment claims.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	LockByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	HasOpenForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	HasPendingForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	PendingForSeller(ctx context.Context, sellerID uuid.UUID) (int, error)
	ResolvePending(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus, by uuid.UUID, notes *string) (bool, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Payment, error)
	Matching(ctx context.Context, filters ListFilters) ([]models.Payment, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", paymentID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) LockByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", paymentID).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// HasOpenForOrder reports whether a pending or verified payment already targets the order.
func (r *repository) HasOpenForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status <> ?", orderID, enums.PaymentStatusRejected).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasPendingForOrder reports whether a claim against the order still awaits review.
func (r *repository) HasPendingForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// PendingForSeller sums the pending claims against a seller's credit debt.
func (r *repository) PendingForSeller(ctx context.Context, sellerID uuid.UUID) (int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("seller_id = ? AND status = ?", sellerID, enums.PaymentStatusPending).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

// ResolvePending settles the payment only while it is still pending.
func (r *repository) ResolvePending(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus, by uuid.UUID, notes *string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":      status,
			"verified_at": time.Now().UTC(),
			"verified_by": by,
			"notes":       notes,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Payment, error) {
	query := applyFilters(r.db.WithContext(ctx).Model(&models.Payment{}), filters)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		at := cursor.CreatedAt.UTC()
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", at, at, cursor.ID)
	}

	var rows []models.Payment
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Matching returns every payment matching filters, unpaginated, for aggregation.
func (r *repository) Matching(ctx context.Context, filters ListFilters) ([]models.Payment, error) {
	var rows []models.Payment
	if err := applyFilters(r.db.WithContext(ctx).Model(&models.Payment{}), filters).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func applyFilters(query *gorm.DB, filters ListFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Method != nil {
		query = query.Where("method = ?", *filters.Method)
	}
	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	if filters.SellerID != nil {
		query = query.Where("seller_id = ?", *filters.SellerID)
	}
	if filters.From != nil {
		query = query.Where("created_at >= ?", filters.From.UTC())
	}
	if filters.To != nil {
		query = query.Where("created_at <= ?", filters.To.UTC())
	}
	return query
}

func paymentCursor(p models.Payment) pagination.Cursor {
	return pagination.Cursor{CreatedAt: p.CreatedAt.UTC(), ID: p.ID}
}
