package tax

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/enums"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/pagination"
)

// Resolver is the lookup the price resolver depends on. A nil rule with a nil
// error means no rule governs the region; tax is then skipped upstream.
type Resolver interface {
	Resolve(ctx context.Context, country, state *string) (*models.TaxRule, error)
}

// Service exposes tax rule administration plus region resolution.
type Service interface {
	Resolver
	CreateRule(ctx context.Context, input CreateRuleInput) (*models.TaxRule, error)
	UpdateRule(ctx context.Context, id uuid.UUID, input UpdateRuleInput) (*models.TaxRule, error)
	DeleteRule(ctx context.Context, id uuid.UUID) error
	GetRule(ctx context.Context, id uuid.UUID) (*models.TaxRule, error)
	ListRules(ctx context.Context, params pagination.Params) ([]models.TaxRule, error)
}

// CreateRuleInput holds the validated payload to create a tax rule.
type CreateRuleInput struct {
	Name     string
	Type     enums.TaxRuleType
	Value    decimal.Decimal
	Country  *string
	State    *string
	IsActive bool
}

// UpdateRuleInput holds optional mutation values for a tax rule.
type UpdateRuleInput struct {
	Name     *string
	Type     *enums.TaxRuleType
	Value    *decimal.Decimal
	Country  *string
	State    *string
	IsActive *bool
}

type repository interface {
	Create(ctx context.Context, rule *models.TaxRule) (*models.TaxRule, error)
	Update(ctx context.Context, rule *models.TaxRule) (*models.TaxRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TaxRule, error)
	List(ctx context.Context, params pagination.Params) ([]models.TaxRule, error)
	CandidatesForRegion(ctx context.Context, country, state *string) ([]models.TaxRule, error)
}

type service struct {
	repo repository
}

// NewService constructs the tax service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tax repository required")
	}
	return &service{repo: repo}, nil
}

// Resolve returns the most specific active rule for the region, or nil when
// none applies. A rule scoped to a state never matches a query without that
// state; candidates are scored in memory and the first highest score wins.
func (s *service) Resolve(ctx context.Context, country, state *string) (*models.TaxRule, error) {
	candidates, err := s.repo.CandidatesForRegion(ctx, normalizeRegion(country), normalizeRegion(state))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load tax rule candidates")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := -1
	var chosen *models.TaxRule
	for i := range candidates {
		score := candidates[i].SpecificityScore()
		if score > best {
			best = score
			chosen = &candidates[i]
		}
	}
	return chosen, nil
}

func normalizeRegion(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

func (s *service) CreateRule(ctx context.Context, input CreateRuleInput) (*models.TaxRule, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tax rule type %q", input.Type))
	}
	if input.Value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value cannot be negative")
	}
	if input.State != nil && *input.State != "" && (input.Country == nil || *input.Country == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state requires a country")
	}

	rule := &models.TaxRule{
		Name:     input.Name,
		Type:     input.Type,
		Value:    input.Value.Round(2),
		Country:  normalizeRegion(input.Country),
		State:    normalizeRegion(input.State),
		IsActive: input.IsActive,
	}

	created, err := s.repo.Create(ctx, rule)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert tax rule")
	}
	return created, nil
}

func (s *service) UpdateRule(ctx context.Context, id uuid.UUID, input UpdateRuleInput) (*models.TaxRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tax rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load tax rule")
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		rule.Name = *input.Name
	}
	if input.Type != nil {
		if !input.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tax rule type %q", *input.Type))
		}
		rule.Type = *input.Type
	}
	if input.Value != nil {
		if input.Value.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "value cannot be negative")
		}
		rule.Value = input.Value.Round(2)
	}
	if input.Country != nil {
		rule.Country = normalizeRegion(input.Country)
	}
	if input.State != nil {
		rule.State = normalizeRegion(input.State)
	}
	if rule.State != nil && rule.Country == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state requires a country")
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, rule)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update tax rule")
	}
	return updated, nil
}

func (s *service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete tax rule")
	}
	return nil
}

func (s *service) GetRule(ctx context.Context, id uuid.UUID) (*models.TaxRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tax rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load tax rule")
	}
	return rule, nil
}

func (s *service) ListRules(ctx context.Context, params pagination.Params) ([]models.TaxRule, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list tax rules")
	}
	return rows, nil
}
