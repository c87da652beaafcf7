package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/db"
	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/enums"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/pagination"
)

// Service exposes coupon administration. Redemption itself belongs to the
// cart engine, which calls the repository's conditional increment directly.
type Service interface {
	CreateCoupon(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
	UpdateCoupon(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error)
	DeleteCoupon(ctx context.Context, id uuid.UUID) error
	GetCoupon(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	ListCoupons(ctx context.Context, params pagination.Params) ([]models.Coupon, error)
}

// CreateCouponInput holds the validated payload to create a coupon.
type CreateCouponInput struct {
	Code              string
	Type              enums.CouponType
	Value             decimal.Decimal
	MinOrderAmount    *decimal.Decimal
	MaxDiscount       *decimal.Decimal
	UsageLimit        int
	AllowedCategories []string
	StartAt           time.Time
	EndAt             time.Time
	Status            enums.CouponStatus
}

// UpdateCouponInput holds optional mutation values for a coupon. The code and
// the used counter are immutable through this path.
type UpdateCouponInput struct {
	Type              *enums.CouponType
	Value             *decimal.Decimal
	MinOrderAmount    *decimal.Decimal
	MaxDiscount       *decimal.Decimal
	UsageLimit        *int
	AllowedCategories *[]string
	StartAt           *time.Time
	EndAt             *time.Time
	Status            *enums.CouponStatus
}

type service struct {
	repo *Repository
}

// NewService constructs the coupon service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateCoupon(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid coupon type %q", input.Type))
	}
	if input.Value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value cannot be negative")
	}
	if !input.EndAt.After(input.StartAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	if input.UsageLimit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit cannot be negative")
	}
	if input.MinOrderAmount != nil && input.MinOrderAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min order amount cannot be negative")
	}
	if input.MaxDiscount != nil && input.MaxDiscount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max discount cannot be negative")
	}
	status := input.Status
	if status == "" {
		status = enums.CouponStatusActive
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid coupon status %q", status))
	}

	coupon := &models.Coupon{
		Code:              code,
		Type:              input.Type,
		Value:             input.Value.Round(2),
		MinOrderAmount:    roundPtr(input.MinOrderAmount),
		MaxDiscount:       roundPtr(input.MaxDiscount),
		UsageLimit:        input.UsageLimit,
		AllowedCategories: pq.StringArray(input.AllowedCategories),
		StartAt:           input.StartAt,
		EndAt:             input.EndAt,
		Status:            status,
	}

	created, err := s.repo.Create(ctx, coupon)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("coupon code %s already exists", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert coupon")
	}
	return created, nil
}

func roundPtr(v *decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	rounded := v.Round(2)
	return &rounded
}

func (s *service) UpdateCoupon(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load coupon")
	}

	if input.Type != nil {
		if !input.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid coupon type %q", *input.Type))
		}
		coupon.Type = *input.Type
	}
	if input.Value != nil {
		if input.Value.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "value cannot be negative")
		}
		coupon.Value = input.Value.Round(2)
	}
	if input.MinOrderAmount != nil {
		if input.MinOrderAmount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "min order amount cannot be negative")
		}
		coupon.MinOrderAmount = roundPtr(input.MinOrderAmount)
	}
	if input.MaxDiscount != nil {
		if input.MaxDiscount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max discount cannot be negative")
		}
		coupon.MaxDiscount = roundPtr(input.MaxDiscount)
	}
	if input.UsageLimit != nil {
		if *input.UsageLimit < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit cannot be negative")
		}
		coupon.UsageLimit = *input.UsageLimit
	}
	if input.AllowedCategories != nil {
		coupon.AllowedCategories = pq.StringArray(*input.AllowedCategories)
	}
	if input.StartAt != nil {
		coupon.StartAt = *input.StartAt
	}
	if input.EndAt != nil {
		coupon.EndAt = *input.EndAt
	}
	if !coupon.EndAt.After(coupon.StartAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid coupon status %q", *input.Status))
		}
		coupon.Status = *input.Status
	}

	updated, err := s.repo.Update(ctx, coupon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update coupon")
	}
	return updated, nil
}

func (s *service) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete coupon")
	}
	return nil
}

func (s *service) GetCoupon(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load coupon")
	}
	return coupon, nil
}

func (s *service) ListCoupons(ctx context.Context, params pagination.Params) ([]models.Coupon, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list coupons")
	}
	return rows, nil
}
