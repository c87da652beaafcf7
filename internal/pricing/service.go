package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/internal/currency"
	"github.com/shoplane/storefront-backend/internal/tax"
	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/enums"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/metrics"
	"github.com/shoplane/storefront-backend/pkg/types"
)

// Resolver computes the authoritative price of one item.
type Resolver interface {
	Resolve(ctx context.Context, input ResolveInput) (*types.PriceBreakdown, error)
}

// ResolveInput carries the resolution request. Qty defaults to 1 upstream;
// the service rejects anything below that.
type ResolveInput struct {
	ProductID  uuid.UUID
	VariantID  *uuid.UUID
	Qty        int
	Currency   string
	Country    *string
	State      *string
	IncludeTax bool
}

type catalogReader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error)
}

type ruleRepository interface {
	FindPricingRecord(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*models.PricingRecord, error)
	MatchTierBand(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) (*models.TierPriceBand, error)
	ActiveSpecialWindow(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, now time.Time) (*models.SpecialPriceWindow, error)
	LiveFlashItem(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, now time.Time) (*models.FlashSaleItem, error)
}

type service struct {
	repo     ruleRepository
	catalog  catalogReader
	tax      tax.Resolver
	currency currency.Converter
	metrics  *metrics.EngineMetrics
	now      func() time.Time
}

// NewResolver constructs the price resolver.
func NewResolver(repo ruleRepository, catalog catalogReader, taxResolver tax.Resolver, converter currency.Converter, m *metrics.EngineMetrics) (Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if taxResolver == nil {
		return nil, fmt.Errorf("tax resolver required")
	}
	if converter == nil {
		return nil, fmt.Errorf("currency converter required")
	}
	return &service{
		repo:     repo,
		catalog:  catalog,
		tax:      taxResolver,
		currency: converter,
		metrics:  m,
		now:      time.Now,
	}, nil
}

// Resolve walks the override mechanisms in their fixed precedence order:
// pricing record, flash sale (exclusive with special), special window, tier
// band (always attempted, overrides both promos), tax, then currency
// conversion. Every produced amount is rounded to 2 decimals where it is
// produced.
func (s *service) Resolve(ctx context.Context, input ResolveInput) (*types.PriceBreakdown, error) {
	started := s.now()
	breakdown, err := s.resolve(ctx, input)

	outcome := "success"
	if err != nil {
		outcome = "error"
		if typed := pkgerrors.As(err); typed != nil {
			outcome = string(typed.Code())
		}
	}
	s.metrics.ObserveResolve(outcome, time.Since(started))
	return breakdown, err
}

func (s *service) resolve(ctx context.Context, input ResolveInput) (*types.PriceBreakdown, error) {
	if input.Qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be at least 1")
	}

	now := s.now()

	if _, err := s.catalog.FindProduct(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if input.VariantID != nil {
		if _, err := s.catalog.FindVariant(ctx, input.ProductID, *input.VariantID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load variant")
		}
	}

	record, err := s.repo.FindPricingRecord(ctx, input.ProductID, input.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pricing record for product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load pricing record")
	}

	breakdown := &types.PriceBreakdown{
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		Currency:  record.Currency,
		Qty:       input.Qty,
		BasePrice: record.BasePrice,
	}
	price := record.FinalPrice

	flashItem, err := s.repo.LiveFlashItem(ctx, input.ProductID, input.VariantID, now)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load flash sale")
	}
	if flashItem != nil {
		price = flashItem.FlashPrice.Round(2)
		breakdown.Applied.FlashSale = &types.AppliedFlashSale{
			SaleID:     flashItem.SaleID,
			FlashPrice: price,
		}
	} else {
		// special pricing only when no flash sale took the slot
		window, err := s.repo.ActiveSpecialWindow(ctx, input.ProductID, input.VariantID, now)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load special window")
		}
		if window != nil {
			price = window.SpecialPrice.Round(2)
			breakdown.Applied.Special = &types.AppliedSpecial{
				SpecialID:    window.ID,
				SpecialPrice: price,
			}
		}
	}

	band, err := s.repo.MatchTierBand(ctx, input.ProductID, input.VariantID, input.Qty)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: match tier band")
	}
	if band != nil {
		// tier price overrides whatever flash/special produced
		price = band.Price.Round(2)
		breakdown.Applied.Tier = &types.AppliedTier{
			TierID: band.ID,
			Price:  price,
			Range:  [2]int{band.MinQty, band.MaxQty},
		}
	}

	if input.IncludeTax {
		rule, err := s.tax.Resolve(ctx, input.Country, input.State)
		if err != nil {
			return nil, err
		}
		if rule != nil {
			amount := taxAmount(price, rule)
			price = price.Add(amount).Round(2)
			breakdown.Applied.Tax = &types.AppliedTax{
				RuleID: rule.ID,
				Type:   rule.Type,
				Value:  rule.Value,
				Amount: amount,
			}
		}
	}

	if input.Currency != "" && input.Currency != breakdown.Currency {
		converted, applied, err := s.currency.Convert(ctx, price, breakdown.Currency, input.Currency)
		if err != nil {
			return nil, err
		}
		if applied != nil {
			price = converted
			breakdown.Currency = applied.To
			breakdown.Applied.CurrencyRate = applied
		}
	}

	breakdown.FinalPrice = price
	return breakdown, nil
}

func taxAmount(price decimal.Decimal, rule *models.TaxRule) decimal.Decimal {
	switch rule.Type {
	case enums.TaxRuleTypeFixed:
		return rule.Value.Round(2)
	case enums.TaxRuleTypePercentage:
		return price.Mul(rule.Value).Div(decimal.NewFromInt(100)).Round(2)
	default:
		return decimal.Zero
	}
}
