package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/pagination"
)

// Repository manages persistence for credit accounts and their movements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerCredit, error)
	LockAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerCredit, error)
	ShareAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerCredit, error)
	CreateAccount(ctx context.Context, account *models.SellerCredit) error
	UpdateTerms(ctx context.Context, sellerID uuid.UUID, limitCents int, pct decimal.Decimal, active bool) error
	CompareAndSwapDebt(ctx context.Context, sellerID uuid.UUID, before, after int) (bool, error)
	InsertMovement(ctx context.Context, movement *models.CreditMovement) error
	ListMovements(ctx context.Context, sellerID uuid.UUID, filters MovementFilters, params pagination.Params) ([]models.CreditMovement, error)
	MovementHistory(ctx context.Context, sellerID uuid.UUID) ([]models.CreditMovement, error)
	ListAccounts(ctx context.Context, after uuid.UUID, limit int) ([]models.SellerCredit, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerCredit, error) {
	var account models.SellerCredit
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// LockAccount reads the account with SELECT ... FOR UPDATE. Only meaningful inside a transaction.
func (r *repository) LockAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerCredit, error) {
	var account models.SellerCredit
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("seller_id = ?", sellerID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// ShareAccount reads the account with SELECT ... FOR SHARE so movements wait
// until the caller's transaction ends.
func (r *repository) ShareAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerCredit, error) {
	var account models.SellerCredit
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("seller_id = ?", sellerID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreateAccount(ctx context.Context, account *models.SellerCredit) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) UpdateTerms(ctx context.Context, sellerID uuid.UUID, limitCents int, pct decimal.Decimal, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerCredit{}).
		Where("seller_id = ?", sellerID).
		Updates(map[string]any{
			"credit_limit_cents":  limitCents,
			"max_cart_percentage": pct,
			"active":              active,
		}).Error
}

// CompareAndSwapDebt writes after only while the stored debt still equals before.
func (r *repository) CompareAndSwapDebt(ctx context.Context, sellerID uuid.UUID, before, after int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SellerCredit{}).
		Where("seller_id = ? AND balance_debt_cents = ?", sellerID, before).
		Updates(map[string]any{
			"balance_debt_cents": after,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) InsertMovement(ctx context.Context, movement *models.CreditMovement) error {
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, sellerID uuid.UUID, filters MovementFilters, params pagination.Params) ([]models.CreditMovement, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CreditMovement{}).
		Where("seller_id = ?", sellerID)

	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.From != nil {
		query = query.Where("created_at >= ?", filters.From.UTC())
	}
	if filters.To != nil {
		query = query.Where("created_at <= ?", filters.To.UTC())
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		at := cursor.CreatedAt.UTC()
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", at, at, cursor.ID)
	}

	var rows []models.CreditMovement
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MovementHistory returns every movement of the account in creation order.
func (r *repository) MovementHistory(ctx context.Context, sellerID uuid.UUID) ([]models.CreditMovement, error) {
	var rows []models.CreditMovement
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAccounts pages through accounts ordered by seller id, starting after the given id.
func (r *repository) ListAccounts(ctx context.Context, after uuid.UUID, limit int) ([]models.SellerCredit, error) {
	query := r.db.WithContext(ctx).Model(&models.SellerCredit{})
	if after != uuid.Nil {
		query = query.Where("seller_id > ?", after)
	}
	var rows []models.SellerCredit
	if err := query.Order("seller_id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// movementCursor derives the next-page cursor for a movement.
func movementCursor(m models.CreditMovement) pagination.Cursor {
	return pagination.Cursor{CreatedAt: m.CreatedAt.UTC(), ID: m.ID}
}
