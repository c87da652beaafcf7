package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/db"
	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/enums"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/pagination"
)

// Admin exposes administration of the four rule tables the resolver reads.
type Admin interface {
	CreatePricingRecord(ctx context.Context, input PricingRecordInput) (*models.PricingRecord, error)
	UpdatePricingRecord(ctx context.Context, id uuid.UUID, input PricingRecordUpdate) (*models.PricingRecord, error)
	DeletePricingRecord(ctx context.Context, id uuid.UUID) error
	GetPricingRecord(ctx context.Context, id uuid.UUID) (*models.PricingRecord, error)
	ListPricingRecords(ctx context.Context, params pagination.Params) ([]models.PricingRecord, error)

	CreateTierBand(ctx context.Context, input TierBandInput) (*models.TierPriceBand, error)
	UpdateTierBand(ctx context.Context, id uuid.UUID, input TierBandUpdate) (*models.TierPriceBand, error)
	DeleteTierBand(ctx context.Context, id uuid.UUID) error
	ListTierBands(ctx context.Context, productID uuid.UUID) ([]models.TierPriceBand, error)

	CreateSpecialWindow(ctx context.Context, input SpecialWindowInput) (*models.SpecialPriceWindow, error)
	UpdateSpecialWindow(ctx context.Context, id uuid.UUID, input SpecialWindowUpdate) (*models.SpecialPriceWindow, error)
	DeleteSpecialWindow(ctx context.Context, id uuid.UUID) error
	ListSpecialWindows(ctx context.Context, params pagination.Params) ([]models.SpecialPriceWindow, error)

	CreateFlashSale(ctx context.Context, input FlashSaleInput) (*models.FlashSaleOffer, error)
	UpdateFlashSale(ctx context.Context, id uuid.UUID, input FlashSaleUpdate) (*models.FlashSaleOffer, error)
	DeleteFlashSale(ctx context.Context, id uuid.UUID) error
	GetFlashSale(ctx context.Context, id uuid.UUID) (*models.FlashSaleOffer, error)
	ListFlashSales(ctx context.Context, params pagination.Params) ([]models.FlashSaleOffer, error)
}

// PricingRecordInput holds the validated payload to create a pricing record.
// FinalPrice is always derived server-side.
type PricingRecordInput struct {
	ProductID     uuid.UUID
	VariantID     *uuid.UUID
	BasePrice     decimal.Decimal
	DiscountType  enums.DiscountType
	DiscountValue decimal.Decimal
	Currency      string
	IsActive      bool
}

// PricingRecordUpdate holds optional mutation values for a pricing record.
type PricingRecordUpdate struct {
	BasePrice     *decimal.Decimal
	DiscountType  *enums.DiscountType
	DiscountValue *decimal.Decimal
	Currency      *string
	IsActive      *bool
}

// TierBandInput holds the validated payload to create a tier band.
type TierBandInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	MinQty    int
	MaxQty    int
	Price     decimal.Decimal
}

// TierBandUpdate holds optional mutation values for a tier band.
type TierBandUpdate struct {
	MinQty *int
	MaxQty *int
	Price  *decimal.Decimal
}

// SpecialWindowInput holds the validated payload to create a special window.
type SpecialWindowInput struct {
	ProductID    uuid.UUID
	VariantID    *uuid.UUID
	SpecialPrice decimal.Decimal
	StartAt      time.Time
	EndAt        time.Time
	IsActive     bool
}

// SpecialWindowUpdate holds optional mutation values for a special window.
type SpecialWindowUpdate struct {
	SpecialPrice *decimal.Decimal
	StartAt      *time.Time
	EndAt        *time.Time
	IsActive     *bool
}

// FlashSaleInput holds the validated payload to create a flash sale offer.
type FlashSaleInput struct {
	Title   string
	StartAt time.Time
	EndAt   time.Time
	Status  enums.FlashSaleStatus
	Items   []FlashSaleItemInput
}

// FlashSaleItemInput is one product entry of a flash sale payload.
type FlashSaleItemInput struct {
	ProductID  uuid.UUID
	VariantID  *uuid.UUID
	FlashPrice decimal.Decimal
	StockLimit int
}

// FlashSaleUpdate holds optional mutation values for a flash sale offer.
// A non-nil Items slice replaces the entry list wholesale.
type FlashSaleUpdate struct {
	Title   *string
	StartAt *time.Time
	EndAt   *time.Time
	Status  *enums.FlashSaleStatus
	Items   *[]FlashSaleItemInput
}

type adminService struct {
	repo     *Repository
	dbClient *db.Client
}

// NewAdmin constructs the rule administration service.
func NewAdmin(repo *Repository, dbClient *db.Client) (Admin, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &adminService{repo: repo, dbClient: dbClient}, nil
}

// deriveFinalPrice applies the standing discount to the base price. Flat
// discounts clamp at zero; percent discounts clamp the rate at 100.
func deriveFinalPrice(base decimal.Decimal, discountType enums.DiscountType, discountValue decimal.Decimal) decimal.Decimal {
	switch discountType {
	case enums.DiscountTypeFlat:
		final := base.Sub(discountValue).Round(2)
		if final.IsNegative() {
			return decimal.Zero.Round(2)
		}
		return final
	case enums.DiscountTypePercent:
		rate := discountValue
		if rate.GreaterThan(decimal.NewFromInt(100)) {
			rate = decimal.NewFromInt(100)
		}
		multiplier := decimal.NewFromInt(1).Sub(rate.Div(decimal.NewFromInt(100)))
		return base.Mul(multiplier).Round(2)
	default:
		return base.Round(2)
	}
}

func (s *adminService) CreatePricingRecord(ctx context.Context, input PricingRecordInput) (*models.PricingRecord, error) {
	if input.BasePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid discount type %q", input.DiscountType))
	}
	if input.DiscountValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value cannot be negative")
	}
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	record := &models.PricingRecord{
		ProductID:     input.ProductID,
		VariantID:     input.VariantID,
		BasePrice:     input.BasePrice.Round(2),
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue.Round(2),
		FinalPrice:    deriveFinalPrice(input.BasePrice, input.DiscountType, input.DiscountValue),
		Currency:      currency,
		IsActive:      input.IsActive,
	}

	created, err := s.repo.CreatePricingRecord(ctx, record)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "pricing record already exists for product/variant")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert pricing record")
	}
	return created, nil
}

func (s *adminService) UpdatePricingRecord(ctx context.Context, id uuid.UUID, input PricingRecordUpdate) (*models.PricingRecord, error) {
	record, err := s.repo.FindPricingRecordByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load pricing record")
	}

	if input.BasePrice != nil {
		if input.BasePrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
		}
		record.BasePrice = input.BasePrice.Round(2)
	}
	if input.DiscountType != nil {
		if !input.DiscountType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid discount type %q", *input.DiscountType))
		}
		record.DiscountType = *input.DiscountType
	}
	if input.DiscountValue != nil {
		if input.DiscountValue.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value cannot be negative")
		}
		record.DiscountValue = input.DiscountValue.Round(2)
	}
	if input.Currency != nil && *input.Currency != "" {
		record.Currency = *input.Currency
	}
	if input.IsActive != nil {
		record.IsActive = *input.IsActive
	}

	record.FinalPrice = deriveFinalPrice(record.BasePrice, record.DiscountType, record.DiscountValue)

	updated, err := s.repo.UpdatePricingRecord(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update pricing record")
	}
	return updated, nil
}

func (s *adminService) DeletePricingRecord(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeletePricingRecord(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete pricing record")
	}
	return nil
}

func (s *adminService) GetPricingRecord(ctx context.Context, id uuid.UUID) (*models.PricingRecord, error) {
	record, err := s.repo.FindPricingRecordByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load pricing record")
	}
	return record, nil
}

func (s *adminService) ListPricingRecords(ctx context.Context, params pagination.Params) ([]models.PricingRecord, error) {
	rows, err := s.repo.ListPricingRecords(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list pricing records")
	}
	return rows, nil
}

func (s *adminService) CreateTierBand(ctx context.Context, input TierBandInput) (*models.TierPriceBand, error) {
	if input.MinQty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min qty must be at least 1")
	}
	if input.MaxQty < input.MinQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max qty cannot be below min qty")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	band := &models.TierPriceBand{
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		MinQty:    input.MinQty,
		MaxQty:    input.MaxQty,
		Price:     input.Price.Round(2),
	}
	created, err := s.repo.CreateTierBand(ctx, band)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "tier band already exists for this range")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			fmt.Sprintf("insert tier band (product_id=%s min_qty=%d)", input.ProductID, input.MinQty))
	}
	return created, nil
}

func (s *adminService) UpdateTierBand(ctx context.Context, id uuid.UUID, input TierBandUpdate) (*models.TierPriceBand, error) {
	band, err := s.repo.FindTierBandByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tier band not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load tier band")
	}

	if input.MinQty != nil {
		band.MinQty = *input.MinQty
	}
	if input.MaxQty != nil {
		band.MaxQty = *input.MaxQty
	}
	if band.MinQty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min qty must be at least 1")
	}
	if band.MaxQty < band.MinQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max qty cannot be below min qty")
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		band.Price = input.Price.Round(2)
	}

	updated, err := s.repo.UpdateTierBand(ctx, band)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update tier band")
	}
	return updated, nil
}

func (s *adminService) DeleteTierBand(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteTierBand(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete tier band")
	}
	return nil
}

func (s *adminService) ListTierBands(ctx context.Context, productID uuid.UUID) ([]models.TierPriceBand, error) {
	rows, err := s.repo.ListTierBands(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list tier bands")
	}
	return rows, nil
}

func (s *adminService) CreateSpecialWindow(ctx context.Context, input SpecialWindowInput) (*models.SpecialPriceWindow, error) {
	if input.SpecialPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "special price cannot be negative")
	}
	if !input.EndAt.After(input.StartAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}

	window := &models.SpecialPriceWindow{
		ProductID:    input.ProductID,
		VariantID:    input.VariantID,
		SpecialPrice: input.SpecialPrice.Round(2),
		StartAt:      input.StartAt,
		EndAt:        input.EndAt,
		IsActive:     input.IsActive,
	}
	created, err := s.repo.CreateSpecialWindow(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert special window")
	}
	return created, nil
}

func (s *adminService) UpdateSpecialWindow(ctx context.Context, id uuid.UUID, input SpecialWindowUpdate) (*models.SpecialPriceWindow, error) {
	window, err := s.repo.FindSpecialWindowByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "special window not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load special window")
	}

	if input.SpecialPrice != nil {
		if input.SpecialPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "special price cannot be negative")
		}
		window.SpecialPrice = input.SpecialPrice.Round(2)
	}
	if input.StartAt != nil {
		window.StartAt = *input.StartAt
	}
	if input.EndAt != nil {
		window.EndAt = *input.EndAt
	}
	if !window.EndAt.After(window.StartAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	if input.IsActive != nil {
		window.IsActive = *input.IsActive
	}

	updated, err := s.repo.UpdateSpecialWindow(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update special window")
	}
	return updated, nil
}

func (s *adminService) DeleteSpecialWindow(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteSpecialWindow(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete special window")
	}
	return nil
}

func (s *adminService) ListSpecialWindows(ctx context.Context, params pagination.Params) ([]models.SpecialPriceWindow, error) {
	rows, err := s.repo.ListSpecialWindows(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list special windows")
	}
	return rows, nil
}

func (s *adminService) CreateFlashSale(ctx context.Context, input FlashSaleInput) (*models.FlashSaleOffer, error) {
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !input.EndAt.After(input.StartAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	status := input.Status
	if status == "" {
		status = enums.FlashSaleStatusScheduled
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "flash sale needs at least one item")
	}
	items, err := buildFlashItems(input.Items)
	if err != nil {
		return nil, err
	}

	offer := &models.FlashSaleOffer{
		Title:   input.Title,
		StartAt: input.StartAt,
		EndAt:   input.EndAt,
		Status:  status,
		Items:   items,
	}

	var created *models.FlashSaleOffer
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		created, txErr = s.repo.WithTx(tx).CreateFlashSale(ctx, offer)
		return txErr
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert flash sale")
	}
	return created, nil
}

func buildFlashItems(inputs []FlashSaleItemInput) ([]models.FlashSaleItem, error) {
	items := make([]models.FlashSaleItem, 0, len(inputs))
	for _, in := range inputs {
		if in.FlashPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "flash price cannot be negative")
		}
		if in.StockLimit < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock limit cannot be negative")
		}
		items = append(items, models.FlashSaleItem{
			ProductID:  in.ProductID,
			VariantID:  in.VariantID,
			FlashPrice: in.FlashPrice.Round(2),
			StockLimit: in.StockLimit,
		})
	}
	return items, nil
}

func (s *adminService) UpdateFlashSale(ctx context.Context, id uuid.UUID, input FlashSaleUpdate) (*models.FlashSaleOffer, error) {
	offer, err := s.repo.FindFlashSaleByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "flash sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load flash sale")
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		offer.Title = *input.Title
	}
	if input.StartAt != nil {
		offer.StartAt = *input.StartAt
	}
	if input.EndAt != nil {
		offer.EndAt = *input.EndAt
	}
	if !offer.EndAt.After(offer.StartAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *input.Status))
		}
		offer.Status = *input.Status
	}

	var items []models.FlashSaleItem
	if input.Items != nil {
		if len(*input.Items) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "flash sale needs at least one item")
		}
		items, err = buildFlashItems(*input.Items)
		if err != nil {
			return nil, err
		}
		for i := range items {
			items[i].SaleID = offer.ID
		}
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, txErr := txRepo.UpdateFlashSale(ctx, offer); txErr != nil {
			return txErr
		}
		if items != nil {
			return txRepo.ReplaceFlashSaleItems(ctx, offer.ID, items)
		}
		return nil
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update flash sale")
	}

	return s.repo.FindFlashSaleByID(ctx, id)
}

func (s *adminService) DeleteFlashSale(ctx context.Context, id uuid.UUID) error {
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteFlashSale(ctx, id)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete flash sale")
	}
	return nil
}

func (s *adminService) GetFlashSale(ctx context.Context, id uuid.UUID) (*models.FlashSaleOffer, error) {
	offer, err := s.repo.FindFlashSaleByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "flash sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load flash sale")
	}
	return offer, nil
}

func (s *adminService) ListFlashSales(ctx context.Context, params pagination.Params) ([]models.FlashSaleOffer, error) {
	rows, err := s.repo.ListFlashSales(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list flash sales")
	}
	return rows, nil
}
