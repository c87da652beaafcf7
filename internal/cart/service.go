package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/internal/coupons"
	"github.com/shoplane/storefront-backend/internal/pricing"
	"github.com/shoplane/storefront-backend/pkg/db"
	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/enums"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/logger"
	"github.com/shoplane/storefront-backend/pkg/metrics"
	"github.com/shoplane/storefront-backend/pkg/types"
)

// Service is the cart discount engine. Coupon applies return an ApplyOutcome
// so expected business refusals are values, not errors; every other failure
// travels the error return.
type Service interface {
	GetCart(ctx context.Context, sessionID string) (*models.CartRecord, error)
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (*models.CartRecord, error)
	UpdateItemQuantity(ctx context.Context, sessionID string, itemID uuid.UUID, qty int) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, sessionID string, itemID uuid.UUID) (*models.CartRecord, error)
	ClearCart(ctx context.Context, sessionID string) (*models.CartRecord, error)
	ApplyCoupon(ctx context.Context, sessionID, code string) (*ApplyOutcome, error)
	RemoveCoupon(ctx context.Context, sessionID string) (*models.CartRecord, error)
}

// AddItemInput describes one line to add or merge into a cart.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// couponReader is the slice of the coupon repository the engine needs. The
// conditional Redeem is the only write path into used_count.
type couponReader interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Redeem(ctx context.Context, id uuid.UUID) (bool, error)
}

type catalogReader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	coupons  couponReader
	resolver pricing.Resolver
	catalog  catalogReader
	locker   Locker
	metrics  *metrics.EngineMetrics
	logg     *logger.Logger
	currency string
	now      func() time.Time
}

// NewService constructs the cart discount engine.
func NewService(
	repo *Repository,
	dbClient *db.Client,
	coupons couponReader,
	resolver pricing.Resolver,
	catalog catalogReader,
	locker Locker,
	m *metrics.EngineMetrics,
	logg *logger.Logger,
	defaultCurrency string,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart: repository is required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("cart: db client is required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("cart: coupon store is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("cart: price resolver is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("cart: catalog reader is required")
	}
	if locker == nil {
		return nil, fmt.Errorf("cart: locker is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("cart: logger is required")
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		coupons:  coupons,
		resolver: resolver,
		catalog:  catalog,
		locker:   locker,
		metrics:  m,
		logg:     logg,
		currency: strings.ToUpper(defaultCurrency),
		now:      time.Now,
	}, nil
}

func (s *service) GetCart(ctx context.Context, sessionID string) (*models.CartRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart: session id is required")
	}
	cart, err := s.repo.FindBySession(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart: no cart for session")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: loading cart")
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*models.CartRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart: session id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart: quantity must be at least 1")
	}

	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.FindProduct(ctx, input.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart: product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: loading product")
	}

	existing, err := s.repo.FindItemByPair(ctx, cart.ID, input.ProductID, input.VariantID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: loading cart item")
	}

	qty := input.Quantity
	if existing != nil {
		qty += existing.Quantity
	}

	breakdown, err := s.resolver.Resolve(ctx, pricing.ResolveInput{
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		Qty:       qty,
		Currency:  cart.Currency,
	})
	if err != nil {
		return nil, err
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if existing != nil {
			existing.Quantity = qty
			existing.FinalPrice = breakdown.FinalPrice
			existing.Category = product.Category
			existing.LineSubtotal = lineSubtotal(breakdown.FinalPrice, qty)
			if _, err := repo.SaveItem(ctx, existing); err != nil {
				return err
			}
		} else {
			item := &models.CartItem{
				ID:           uuid.New(),
				CartID:       cart.ID,
				ProductID:    input.ProductID,
				VariantID:    input.VariantID,
				Quantity:     qty,
				FinalPrice:   breakdown.FinalPrice,
				Category:     product.Category,
				LineSubtotal: lineSubtotal(breakdown.FinalPrice, qty),
			}
			if _, err := repo.AddItem(ctx, item); err != nil {
				return err
			}
		}
		return s.recompute(ctx, repo, cart)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: adding cart item")
	}
	return s.reload(ctx, sessionID)
}

func (s *service) UpdateItemQuantity(ctx context.Context, sessionID string, itemID uuid.UUID, qty int) (*models.CartRecord, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart: quantity must be at least 1")
	}

	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart: item not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: loading cart item")
	}

	// Quantity changes can move the line across tier bands, so the price is
	// resolved again rather than scaled.
	breakdown, err := s.resolver.Resolve(ctx, pricing.ResolveInput{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Qty:       qty,
		Currency:  cart.Currency,
	})
	if err != nil {
		return nil, err
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item.Quantity = qty
		item.FinalPrice = breakdown.FinalPrice
		item.LineSubtotal = lineSubtotal(breakdown.FinalPrice, qty)
		if _, err := repo.SaveItem(ctx, item); err != nil {
			return err
		}
		return s.recompute(ctx, repo, cart)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: updating cart item")
	}
	return s.reload(ctx, sessionID)
}

func (s *service) RemoveItem(ctx context.Context, sessionID string, itemID uuid.UUID) (*models.CartRecord, error) {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindItem(ctx, cart.ID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart: item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: loading cart item")
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
			return err
		}
		return s.recompute(ctx, repo, cart)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: removing cart item")
	}
	return s.reload(ctx, sessionID)
}

func (s *service) ClearCart(ctx context.Context, sessionID string) (*models.CartRecord, error) {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteItems(ctx, cart.ID); err != nil {
			return err
		}
		detachCoupon(cart)
		cart.Subtotal = decimal.Zero
		cart.Discount = decimal.Zero
		cart.CartTotal = decimal.Zero
		_, err := repo.Save(ctx, cart)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clearing cart")
	}
	return s.reload(ctx, sessionID)
}

// errRedeemLimit aborts the apply transaction when the conditional usage
// increment finds the coupon exhausted.
var errRedeemLimit = errors.New("coupon usage limit reached")

func (s *service) ApplyCoupon(ctx context.Context, sessionID, code string) (*ApplyOutcome, error) {
	outcome, err := s.applyCoupon(ctx, sessionID, code)
	switch {
	case err != nil:
		s.metrics.IncCouponApply("error")
	case outcome.Rejection != nil:
		s.metrics.IncCouponApply(strings.ToLower(string(outcome.Rejection.Type)))
	default:
		s.metrics.IncCouponApply("applied")
	}
	return outcome, err
}

func (s *service) applyCoupon(ctx context.Context, sessionID, code string) (*ApplyOutcome, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return reject(RejectionInvalidCouponCode, "coupon code is required", nil), nil
	}

	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := s.repo.FindBySession(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return reject(RejectionCartNotFound, "no cart for this session", nil), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: loading cart")
	}

	if len(cart.Items) == 0 {
		return reject(RejectionEmptyCart, "cart has no items", nil), nil
	}

	if cart.HasCoupon() && *cart.CouponCode == code {
		return reject(RejectionCouponAlreadyApplied, "coupon is already applied to this cart", nil), nil
	}

	coupon, err := s.coupons.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return reject(RejectionCouponNotFound, "coupon does not exist or is not active", nil), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: loading coupon")
	}
	if !coupon.IsRedeemable(s.now()) {
		return reject(RejectionCouponNotFound, "coupon does not exist or is not active", nil), nil
	}

	// Fast path only; the transaction below re-checks via the conditional
	// increment.
	if coupon.LimitReached() {
		return reject(RejectionUsageLimitReached, "coupon usage limit has been reached", nil), nil
	}

	subtotal := itemsSubtotal(cart.Items)
	if !subtotal.IsPositive() {
		return reject(RejectionNoValidItems, "cart has no purchasable items", nil), nil
	}

	if coupon.MinOrderAmount != nil && subtotal.LessThan(*coupon.MinOrderAmount) {
		return reject(RejectionMinOrderValueNotMet, "cart subtotal is below the coupon minimum", map[string]any{
			"required_amount": coupon.MinOrderAmount.StringFixed(2),
			"current_amount":  subtotal.StringFixed(2),
		}), nil
	}

	if len(coupon.AllowedCategories) > 0 && !categoriesIntersect(cart.Items, coupon.AllowedCategories) {
		return reject(RejectionCategoryRestriction, "coupon does not apply to any item in the cart", map[string]any{
			"allowed_categories": []string(coupon.AllowedCategories),
		}), nil
	}

	discount := computeDiscount(coupon, subtotal)
	appliedAt := s.now()

	details := types.DiscountDetails{
		CouponCode:  coupon.Code,
		Type:        coupon.Type,
		Value:       coupon.Value,
		Amount:      discount,
		MaxDiscount: coupon.MaxDiscount,
		AppliedAt:   appliedAt,
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		granted, err := s.redeemInTx(ctx, tx, coupon.ID)
		if err != nil {
			return err
		}
		if !granted {
			return errRedeemLimit
		}
		repo := s.repo.WithTx(tx)
		cart.CouponCode = &coupon.Code
		cart.CouponAppliedAt = &appliedAt
		cart.DiscountDetails = &details
		cart.Subtotal = subtotal
		cart.Discount = discount
		cart.CartTotal = subtotal.Sub(discount).Round(2)
		_, err = repo.Save(ctx, cart)
		return err
	})
	if errors.Is(err, errRedeemLimit) {
		return reject(RejectionUsageLimitReached, "coupon usage limit has been reached", nil), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: applying coupon")
	}

	fresh, err := s.reload(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &ApplyOutcome{Applied: &Applied{
		Cart:     fresh,
		Discount: details,
		Summary:  summarize(fresh),
	}}, nil
}

func (s *service) RemoveCoupon(ctx context.Context, sessionID string) (*models.CartRecord, error) {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !cart.HasCoupon() {
		return cart, nil
	}

	// The redemption counter is one-way: removal never gives the use back.
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		detachCoupon(cart)
		cart.CartTotal = cart.Subtotal
		_, err := repo.Save(ctx, cart)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: removing coupon")
	}
	return s.reload(ctx, sessionID)
}

// recompute rebuilds the cart totals from its items inside the caller's
// transaction. If a coupon is attached it re-runs the reduced discount math
// against the new subtotal; any failure on that path detaches the coupon
// silently rather than failing the mutation.
func (s *service) recompute(ctx context.Context, repo *Repository, cart *models.CartRecord) error {
	items, err := repo.ListItems(ctx, cart.ID)
	if err != nil {
		return err
	}

	subtotal := itemsSubtotal(items)
	cart.Subtotal = subtotal
	cart.Discount = decimal.Zero

	if cart.HasCoupon() {
		if discount, ok := s.recomputeDiscount(ctx, cart, subtotal); ok {
			cart.Discount = discount
		} else {
			logCtx := s.logg.WithSessionID(ctx, cart.SessionID)
			logCtx = s.logg.WithField(logCtx, "coupon_code", *cart.CouponCode)
			s.logg.Warn(logCtx, "detaching coupon after failed recompute")
			detachCoupon(cart)
		}
	}

	cart.CartTotal = subtotal.Sub(cart.Discount).Round(2)
	if cart.CartTotal.IsNegative() {
		cart.CartTotal = decimal.Zero
	}
	_, err = repo.Save(ctx, cart)
	return err
}

// recomputeDiscount runs the reduced apply path for an already-attached
// coupon: subtotal and bounds only, no usage, expiry, or category re-checks.
func (s *service) recomputeDiscount(ctx context.Context, cart *models.CartRecord, subtotal decimal.Decimal) (decimal.Decimal, bool) {
	if !subtotal.IsPositive() {
		return decimal.Zero, false
	}
	coupon, err := s.coupons.FindByCode(ctx, *cart.CouponCode)
	if err != nil {
		return decimal.Zero, false
	}

	discount := computeDiscount(coupon, subtotal)
	if cart.DiscountDetails != nil {
		cart.DiscountDetails.Amount = discount
	}
	return discount, true
}

func (s *service) loadOrCreate(ctx context.Context, sessionID string) (*models.CartRecord, error) {
	cart, err := s.repo.FindBySession(ctx, sessionID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: loading cart")
	}

	created, err := s.repo.Create(ctx, &models.CartRecord{
		ID:        uuid.New(),
		SessionID: sessionID,
		Status:    enums.CartStatusActive,
		Currency:  s.currency,
		Subtotal:  decimal.Zero,
		Discount:  decimal.Zero,
		CartTotal: decimal.Zero,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: creating cart")
	}
	return created, nil
}

func (s *service) reload(ctx context.Context, sessionID string) (*models.CartRecord, error) {
	cart, err := s.repo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reloading cart")
	}
	return cart, nil
}

// redeemInTx performs the conditional usage increment against the caller's
// transaction when the coupon store supports rebinding, falling back to the
// ambient connection otherwise (test doubles).
func (s *service) redeemInTx(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) (bool, error) {
	type txRebinder interface {
		WithTx(tx *gorm.DB) *coupons.Repository
	}
	if rb, ok := s.coupons.(txRebinder); ok {
		return rb.WithTx(tx).Redeem(ctx, couponID)
	}
	return s.coupons.Redeem(ctx, couponID)
}

// computeDiscount applies the coupon math and clamps the result to
// [0, subtotal]. Percent coupons honor MaxDiscount; flat coupons never
// exceed the subtotal.
func computeDiscount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.Type {
	case enums.CouponTypePercent:
		discount = subtotal.Mul(coupon.Value).Div(decimal.NewFromInt(100)).Round(2)
		if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = coupon.MaxDiscount.Round(2)
		}
	case enums.CouponTypeFlat:
		discount = coupon.Value.Round(2)
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount
}

func itemsSubtotal(items []models.CartItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(lineSubtotal(item.FinalPrice, item.Quantity))
	}
	return subtotal.Round(2)
}

func lineSubtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

func categoriesIntersect(items []models.CartItem, allowed []string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, category := range allowed {
		set[strings.ToLower(strings.TrimSpace(category))] = struct{}{}
	}
	for _, item := range items {
		if _, ok := set[strings.ToLower(item.Category)]; ok {
			return true
		}
	}
	return false
}

func detachCoupon(cart *models.CartRecord) {
	cart.CouponCode = nil
	cart.CouponAppliedAt = nil
	cart.DiscountDetails = nil
	cart.Discount = decimal.Zero
}

func summarize(cart *models.CartRecord) types.CartSummary {
	summary := types.CartSummary{
		Subtotal: cart.Subtotal,
		Discount: cart.Discount,
		Total:    cart.CartTotal,
	}
	if cart.Subtotal.IsPositive() {
		summary.SavingsPercent = cart.Discount.
			Div(cart.Subtotal).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return summary
}
