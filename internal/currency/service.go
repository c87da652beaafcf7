package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/db/models"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/pagination"
	"github.com/shoplane/storefront-backend/pkg/types"
)

// Converter applies a stored pairwise rate to an amount. Rates are not
// symmetric or transitive; a missing direction is a NotFound.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, *types.AppliedCurrencyRate, error)
}

// Service exposes currency rate administration plus conversion.
type Service interface {
	Converter
	CreateRate(ctx context.Context, input CreateRateInput) (*models.CurrencyRate, error)
	UpdateRate(ctx context.Context, id uuid.UUID, input UpdateRateInput) (*models.CurrencyRate, error)
	DeleteRate(ctx context.Context, id uuid.UUID) error
	GetRate(ctx context.Context, id uuid.UUID) (*models.CurrencyRate, error)
	ListRates(ctx context.Context, params pagination.Params) ([]models.CurrencyRate, error)
}

// CreateRateInput holds the validated payload to create a rate.
type CreateRateInput struct {
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
}

// UpdateRateInput holds the mutable value of a rate row. The pair itself is
// immutable; delete and recreate to repoint a direction.
type UpdateRateInput struct {
	Rate *decimal.Decimal
}

type repository interface {
	Create(ctx context.Context, rate *models.CurrencyRate) (*models.CurrencyRate, error)
	Update(ctx context.Context, rate *models.CurrencyRate) (*models.CurrencyRate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CurrencyRate, error)
	FindRate(ctx context.Context, from, to string) (*models.CurrencyRate, error)
	List(ctx context.Context, params pagination.Params) ([]models.CurrencyRate, error)
}

type service struct {
	repo repository
}

// NewService constructs the currency service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("currency repository required")
	}
	return &service{repo: repo}, nil
}

// Convert multiplies the amount by the stored rate and rounds to 2 decimals.
func (s *service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, *types.AppliedCurrencyRate, error) {
	from = normalizeCode(from)
	to = normalizeCode(to)
	if from == "" || to == "" {
		return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeValidation, "currency codes are required")
	}
	if from == to {
		return amount, nil, nil
	}

	rate, err := s.repo.FindRate(ctx, from, to)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("no conversion rate from %s to %s", from, to))
		}
		return decimal.Zero, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load currency rate")
	}

	converted := amount.Mul(rate.Rate).Round(2)
	applied := &types.AppliedCurrencyRate{
		From: from,
		To:   to,
		Rate: rate.Rate,
	}
	return converted, applied, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) CreateRate(ctx context.Context, input CreateRateInput) (*models.CurrencyRate, error) {
	from := normalizeCode(input.FromCurrency)
	to := normalizeCode(input.ToCurrency)
	if from == "" || to == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from and to currencies are required")
	}
	if from == to {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from and to currencies must differ")
	}
	if !input.Rate.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be positive")
	}

	rate := &models.CurrencyRate{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         input.Rate,
	}
	created, err := s.repo.Create(ctx, rate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			fmt.Sprintf("insert currency rate (%s -> %s)", from, to))
	}
	return created, nil
}

func (s *service) UpdateRate(ctx context.Context, id uuid.UUID, input UpdateRateInput) (*models.CurrencyRate, error) {
	rate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "currency rate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load currency rate")
	}

	if input.Rate != nil {
		if !input.Rate.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be positive")
		}
		rate.Rate = *input.Rate
	}

	updated, err := s.repo.Update(ctx, rate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update currency rate")
	}
	return updated, nil
}

func (s *service) DeleteRate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete currency rate")
	}
	return nil
}

func (s *service) GetRate(ctx context.Context, id uuid.UUID) (*models.CurrencyRate, error) {
	rate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "currency rate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load currency rate")
	}
	return rate, nil
}

func (s *service) ListRates(ctx context.Context, params pagination.Params) ([]models.CurrencyRate, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list currency rates")
	}
	return rows, nil
}
