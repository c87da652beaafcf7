package currency

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/pagination"
)

// Repository persists pairwise currency rates.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new rate row.
func (r *Repository) Create(ctx context.Context, rate *models.CurrencyRate) (*models.CurrencyRate, error) {
	if err := r.db.WithContext(ctx).Create(rate).Error; err != nil {
		return nil, err
	}
	return rate, nil
}

// Update saves an existing rate row.
func (r *Repository) Update(ctx context.Context, rate *models.CurrencyRate) (*models.CurrencyRate, error) {
	if err := r.db.WithContext(ctx).Save(rate).Error; err != nil {
		return nil, err
	}
	return rate, nil
}

// Delete removes a rate by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CurrencyRate{}).Error
}

// FindByID loads a rate row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CurrencyRate, error) {
	var rate models.CurrencyRate
	if err := r.db.WithContext(ctx).First(&rate, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

// FindRate loads the conversion factor for one direction of a pair.
func (r *Repository) FindRate(ctx context.Context, from, to string) (*models.CurrencyRate, error) {
	var rate models.CurrencyRate
	err := r.db.WithContext(ctx).
		First(&rate, "from_currency = ? AND to_currency = ?", from, to).
		Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// List returns rates newest-first with cursor pagination.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.CurrencyRate, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.CurrencyRate
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
