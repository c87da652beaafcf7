package tax

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/pagination"
)

// Repository persists tax rules.
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

// Create inserts a new tax rule row.
func (r *Repository) Create(ctx context.Context, rule *models.TaxRule) (*models.TaxRule, error) {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// Update saves an existing tax rule row.
func (r *Repository) Update(ctx context.Context, rule *models.TaxRule) (*models.TaxRule, error) {
	if err := r.db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// Delete removes a tax rule by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TaxRule{}).Error
}

// FindByID loads a tax rule.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TaxRule, error) {
	var rule models.TaxRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// List returns tax rules newest-first with cursor pagination.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.TaxRule, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.TaxRule
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CandidatesForRegion fetches every active rule that could govern the given
// region in one query: the exact (country, state) pair, the country-wide rule,
// and the global default. Rows come back in insertion order so a duplicate at
// one specificity level resolves store-order-dependent.
func (r *Repository) CandidatesForRegion(ctx context.Context, country, state *string) ([]models.TaxRule, error) {
	qb := r.db.WithContext(ctx).Where("is_active = ?", true)

	switch {
	case country != nil && state != nil:
		qb = qb.Where(
			"(country = ? AND state = ?) OR (country = ? AND state IS NULL) OR (country IS NULL AND state IS NULL)",
			*country, *state, *country,
		)
	case country != nil:
		qb = qb.Where(
			"(country = ? AND state IS NULL) OR (country IS NULL AND state IS NULL)",
			*country,
		)
	default:
		qb = qb.Where("country IS NULL AND state IS NULL")
	}

	var rows []models.TaxRule
	if err := qb.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
