package cart

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/internal/pricing"
	"github.com/shoplane/storefront-backend/pkg/db"
	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/enums"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/logger"
	"github.com/shoplane/storefront-backend/pkg/types"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS cart_records (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'active',
  currency TEXT NOT NULL DEFAULT 'USD',
  subtotal NUMERIC NOT NULL DEFAULT 0,
  discount NUMERIC NOT NULL DEFAULT 0,
  cart_total NUMERIC NOT NULL DEFAULT 0,
  coupon_code TEXT,
  coupon_applied_at DATETIME,
  discount_details TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL,
  final_price NUMERIC NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  line_subtotal NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)

	t.Cleanup(func() {
		conn.Exec("DELETE FROM cart_items")
		conn.Exec("DELETE FROM cart_records")
	})
	return conn
}

// stubResolver returns a fixed unit price per product id.
type stubResolver struct {
	prices map[uuid.UUID]decimal.Decimal
}

func (s *stubResolver) Resolve(_ context.Context, input pricing.ResolveInput) (*types.PriceBreakdown, error) {
	price, ok := s.prices[input.ProductID]
	if !ok {
		price = decimal.NewFromInt(100)
	}
	return &types.PriceBreakdown{
		ProductID:  input.ProductID,
		VariantID:  input.VariantID,
		Currency:   input.Currency,
		Qty:        input.Qty,
		BasePrice:  price,
		FinalPrice: price,
	}, nil
}

type stubCartCatalog struct {
	categories map[uuid.UUID]string
}

func (s *stubCartCatalog) FindProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	category, ok := s.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Product{ID: id, SKU: "sku-" + id.String(), Title: "product", Category: category, IsActive: true}, nil
}

// stubCouponStore is an in-memory coupon store whose Redeem mirrors the
// conditional-increment semantics of the real repository.
type stubCouponStore struct {
	mu      sync.Mutex
	coupons map[string]*models.Coupon
}

func newStubCouponStore(coupons ...*models.Coupon) *stubCouponStore {
	store := &stubCouponStore{coupons: map[string]*models.Coupon{}}
	for _, c := range coupons {
		store.coupons[c.Code] = c
	}
	return store
}

func (s *stubCouponStore) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coupon, ok := s.coupons[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *coupon
	return &copied, nil
}

func (s *stubCouponStore) Redeem(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, coupon := range s.coupons {
		if coupon.ID != id {
			continue
		}
		if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
			return false, nil
		}
		coupon.UsedCount++
		return true, nil
	}
	return false, nil
}

func (s *stubCouponStore) usedCount(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coupons[code].UsedCount
}

type cartHarness struct {
	service  Service
	coupons  *stubCouponStore
	catalog  *stubCartCatalog
	resolver *stubResolver
}

func newCartHarness(t *testing.T, coupons ...*models.Coupon) *cartHarness {
	t.Helper()

	conn := setupCartTestDB(t)
	store := newStubCouponStore(coupons...)
	catalog := &stubCartCatalog{categories: map[uuid.UUID]string{}}
	resolver := &stubResolver{prices: map[uuid.UUID]decimal.Decimal{}}
	logg := logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})

	svc, err := NewService(
		NewRepository(conn),
		db.NewFromConn(conn),
		store,
		resolver,
		catalog,
		NewMemoryLocker(),
		nil,
		logg,
		"USD",
	)
	require.NoError(t, err)

	return &cartHarness{service: svc, coupons: store, catalog: catalog, resolver: resolver}
}

func (h *cartHarness) addProduct(t *testing.T, category string, price int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	h.catalog.categories[id] = category
	h.resolver.prices[id] = decimal.NewFromInt(price)
	return id
}

func percentCoupon(code string, value int64, max *decimal.Decimal) *models.Coupon {
	now := time.Now().UTC()
	return &models.Coupon{
		ID:          uuid.New(),
		Code:        code,
		Type:        enums.CouponTypePercent,
		Value:       decimal.NewFromInt(value),
		MaxDiscount: max,
		StartAt:     now.Add(-time.Hour),
		EndAt:       now.Add(time.Hour),
		Status:      enums.CouponStatusActive,
	}
}

func flatCoupon(code string, value int64) *models.Coupon {
	coupon := percentCoupon(code, value, nil)
	coupon.Type = enums.CouponTypeFlat
	return coupon
}

func TestAddItemCreatesCartAndSnapshotsLine(t *testing.T) {
	h := newCartHarness(t)
	ctx := context.Background()
	productID := h.addProduct(t, "electronics", 250)

	cart, err := h.service.AddItem(ctx, "session-add", AddItemInput{ProductID: productID, Quantity: 2})
	require.NoError(t, err)

	require.Equal(t, "USD", cart.Currency)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 2, cart.Items[0].Quantity)
	require.Equal(t, "electronics", cart.Items[0].Category)
	require.True(t, cart.Items[0].LineSubtotal.Equal(decimal.NewFromInt(500)))
	require.True(t, cart.Subtotal.Equal(decimal.NewFromInt(500)))
	require.True(t, cart.CartTotal.Equal(decimal.NewFromInt(500)))
}

func TestAddItemMergesSameProductVariantPair(t *testing.T) {
	h := newCartHarness(t)
	ctx := context.Background()
	productID := h.addProduct(t, "books", 40)

	_, err := h.service.AddItem(ctx, "session-merge", AddItemInput{ProductID: productID, Quantity: 1})
	require.NoError(t, err)
	cart, err := h.service.AddItem(ctx, "session-merge", AddItemInput{ProductID: productID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	require.Equal(t, 4, cart.Items[0].Quantity)
	require.True(t, cart.Subtotal.Equal(decimal.NewFromInt(160)))
}

func TestAddItemUnknownProduct(t *testing.T) {
	h := newCartHarness(t)

	_, err := h.service.AddItem(context.Background(), "session-missing", AddItemInput{ProductID: uuid.New(), Quantity: 1})
	require.Error(t, err)
}

func TestApplyCouponPercentCappedAtMaxDiscount(t *testing.T) {
	max := decimal.NewFromInt(250)
	h := newCartHarness(t, percentCoupon("SAVE15", 15, &max))
	ctx := context.Background()
	productID := h.addProduct(t, "electronics", 1000)

	_, err := h.service.AddItem(ctx, "session-pct", AddItemInput{ProductID: productID, Quantity: 2})
	require.NoError(t, err)

	outcome, err := h.service.ApplyCoupon(ctx, "session-pct", "SAVE15")
	require.NoError(t, err)
	require.Nil(t, outcome.Rejection)
	require.NotNil(t, outcome.Applied)

	// 15% of 2000 is 300, capped at 250.
	require.True(t, outcome.Applied.Cart.Discount.Equal(decimal.NewFromInt(250)))
	require.True(t, outcome.Applied.Cart.CartTotal.Equal(decimal.NewFromInt(1750)))
	require.Equal(t, "SAVE15", *outcome.Applied.Cart.CouponCode)
	require.NotNil(t, outcome.Applied.Cart.DiscountDetails)
	require.True(t, outcome.Applied.Summary.SavingsPercent.Equal(decimal.NewFromFloat(12.5)))
	require.Equal(t, 1, h.coupons.usedCount("SAVE15"))
}

func TestApplyCouponFlatClampedToSubtotal(t *testing.T) {
	h := newCartHarness(t, flatCoupon("FLAT500", 500))
	ctx := context.Background()
	productID := h.addProduct(t, "books", 100)

	_, err := h.service.AddItem(ctx, "session-flat", AddItemInput{ProductID: productID, Quantity: 1})
	require.NoError(t, err)

	outcome, err := h.service.ApplyCoupon(ctx, "session-flat", "FLAT500")
	require.NoError(t, err)
	require.NotNil(t, outcome.Applied)
	require.True(t, outcome.Applied.Cart.Discount.Equal(decimal.NewFromInt(100)))
	require.True(t, outcome.Applied.Cart.CartTotal.IsZero())
}

func TestApplyCouponRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("empty code", func(t *testing.T) {
		h := newCartHarness(t)
		outcome, err := h.service.ApplyCoupon(ctx, "session-r1", "  ")
		require.NoError(t, err)
		require.NotNil(t, outcome.Rejection)
		require.Equal(t, RejectionInvalidCouponCode, outcome.Rejection.Type)
	})

	t.Run("cart not found", func(t *testing.T) {
		h := newCartHarness(t, flatCoupon("FLAT10", 10))
		outcome, err := h.service.ApplyCoupon(ctx, "session-r2", "FLAT10")
		require.NoError(t, err)
		require.NotNil(t, outcome.Rejection)
		require.Equal(t, RejectionCartNotFound, outcome.Rejection.Type)
	})

	t.Run("coupon not found", func(t *testing.T) {
		h := newCartHarness(t)
		productID := h.addProduct(t, "books", 50)
		_, err := h.service.AddItem(ctx, "session-r3", AddItemInput{ProductID: productID, Quantity: 1})
		require.NoError(t, err)

		outcome, err := h.service.ApplyCoupon(ctx, "session-r3", "NOPE")
		require.NoError(t, err)
		require.NotNil(t, outcome.Rejection)
		require.Equal(t, RejectionCouponNotFound, outcome.Rejection.Type)
	})

	t.Run("expired coupon", func(t *testing.T) {
		expired := flatCoupon("OLD", 10)
		expired.EndAt = time.Now().UTC().Add(-time.Hour)
		h := newCartHarness(t, expired)
		productID := h.addProduct(t, "books", 50)
		_, err := h.service.AddItem(ctx, "session-r4", AddItemInput{ProductID: productID, Quantity: 1})
		require.NoError(t, err)

		outcome, err := h.service.ApplyCoupon(ctx, "session-r4", "OLD")
		require.NoError(t, err)
		require.NotNil(t, outcome.Rejection)
		require.Equal(t, RejectionCouponNotFound, outcome.Rejection.Type)
	})

	t.Run("already applied", func(t *testing.T) {
		h := newCartHarness(t, flatCoupon("FLAT10", 10))
		productID := h.addProduct(t, "books", 50)
		_, err := h.service.AddItem(ctx, "session-r5", AddItemInput{ProductID: productID, Quantity: 1})
		require.NoError(t, err)

		first, err := h.service.ApplyCoupon(ctx, "session-r5", "FLAT10")
		require.NoError(t, err)
		require.NotNil(t, first.Applied)

		second, err := h.service.ApplyCoupon(ctx, "session-r5", "FLAT10")
		require.NoError(t, err)
		require.NotNil(t, second.Rejection)
		require.Equal(t, RejectionCouponAlreadyApplied, second.Rejection.Type)
		require.Equal(t, 1, h.coupons.usedCount("FLAT10"))
	})

	t.Run("usage limit fast path", func(t *testing.T) {
		spent := flatCoupon("SPENT", 10)
		spent.UsageLimit = 3
		spent.UsedCount = 3
		h := newCartHarness(t, spent)
		productID := h.addProduct(t, "books", 50)
		_, err := h.service.AddItem(ctx, "session-r6", AddItemInput{ProductID: productID, Quantity: 1})
		require.NoError(t, err)

		outcome, err := h.service.ApplyCoupon(ctx, "session-r6", "SPENT")
		require.NoError(t, err)
		require.NotNil(t, outcome.Rejection)
		require.Equal(t, RejectionUsageLimitReached, outcome.Rejection.Type)
	})

	t.Run("min order value reports amounts", func(t *testing.T) {
		min := decimal.NewFromInt(500)
		coupon := percentCoupon("BIG", 10, nil)
		coupon.MinOrderAmount = &min
		h := newCartHarness(t, coupon)
		productID := h.addProduct(t, "books", 50)
		_, err := h.service.AddItem(ctx, "session-r7", AddItemInput{ProductID: productID, Quantity: 2})
		require.NoError(t, err)

		outcome, err := h.service.ApplyCoupon(ctx, "session-r7", "BIG")
		require.NoError(t, err)
		require.NotNil(t, outcome.Rejection)
		require.Equal(t, RejectionMinOrderValueNotMet, outcome.Rejection.Type)
		require.Equal(t, "500.00", outcome.Rejection.Context["required_amount"])
		require.Equal(t, "100.00", outcome.Rejection.Context["current_amount"])
	})

	t.Run("category restriction", func(t *testing.T) {
		coupon := percentCoupon("TECH10", 10, nil)
		coupon.AllowedCategories = []string{"electronics"}
		h := newCartHarness(t, coupon)
		productID := h.addProduct(t, "books", 50)
		_, err := h.service.AddItem(ctx, "session-r8", AddItemInput{ProductID: productID, Quantity: 1})
		require.NoError(t, err)

		outcome, err := h.service.ApplyCoupon(ctx, "session-r8", "TECH10")
		require.NoError(t, err)
		require.NotNil(t, outcome.Rejection)
		require.Equal(t, RejectionCategoryRestriction, outcome.Rejection.Type)
	})
}

func TestApplyCouponCategoryMatchOnAnyItem(t *testing.T) {
	coupon := percentCoupon("TECH10", 10, nil)
	coupon.AllowedCategories = []string{"electronics"}
	h := newCartHarness(t, coupon)
	ctx := context.Background()

	books := h.addProduct(t, "books", 50)
	phone := h.addProduct(t, "electronics", 300)
	_, err := h.service.AddItem(ctx, "session-mixed", AddItemInput{ProductID: books, Quantity: 1})
	require.NoError(t, err)
	_, err = h.service.AddItem(ctx, "session-mixed", AddItemInput{ProductID: phone, Quantity: 1})
	require.NoError(t, err)

	outcome, err := h.service.ApplyCoupon(ctx, "session-mixed", "TECH10")
	require.NoError(t, err)
	require.NotNil(t, outcome.Applied)
	// 10% of the full 350 subtotal; the restriction gates eligibility only.
	require.True(t, outcome.Applied.Cart.Discount.Equal(decimal.NewFromInt(35)))
}

func TestRecomputeAdjustsDiscountOnQuantityChange(t *testing.T) {
	h := newCartHarness(t, percentCoupon("SAVE10", 10, nil))
	ctx := context.Background()
	productID := h.addProduct(t, "books", 100)

	cart, err := h.service.AddItem(ctx, "session-recompute", AddItemInput{ProductID: productID, Quantity: 2})
	require.NoError(t, err)

	outcome, err := h.service.ApplyCoupon(ctx, "session-recompute", "SAVE10")
	require.NoError(t, err)
	require.True(t, outcome.Applied.Cart.Discount.Equal(decimal.NewFromInt(20)))

	cart, err = h.service.UpdateItemQuantity(ctx, "session-recompute", outcome.Applied.Cart.Items[0].ID, 5)
	require.NoError(t, err)

	require.Equal(t, "SAVE10", *cart.CouponCode)
	require.True(t, cart.Subtotal.Equal(decimal.NewFromInt(500)))
	require.True(t, cart.Discount.Equal(decimal.NewFromInt(50)))
	require.True(t, cart.CartTotal.Equal(decimal.NewFromInt(450)))
}

func TestRecomputeDetachesCouponWhenCartEmpties(t *testing.T) {
	h := newCartHarness(t, percentCoupon("SAVE10", 10, nil))
	ctx := context.Background()
	productID := h.addProduct(t, "books", 100)

	added, err := h.service.AddItem(ctx, "session-detach", AddItemInput{ProductID: productID, Quantity: 1})
	require.NoError(t, err)

	_, err = h.service.ApplyCoupon(ctx, "session-detach", "SAVE10")
	require.NoError(t, err)

	cart, err := h.service.RemoveItem(ctx, "session-detach", added.Items[0].ID)
	require.NoError(t, err)

	require.Nil(t, cart.CouponCode)
	require.Nil(t, cart.DiscountDetails)
	require.True(t, cart.Subtotal.IsZero())
	require.True(t, cart.Discount.IsZero())
	require.True(t, cart.CartTotal.IsZero())
}

func TestRemoveCouponKeepsUsedCount(t *testing.T) {
	h := newCartHarness(t, percentCoupon("SAVE10", 10, nil))
	ctx := context.Background()
	productID := h.addProduct(t, "books", 100)

	_, err := h.service.AddItem(ctx, "session-remove", AddItemInput{ProductID: productID, Quantity: 3})
	require.NoError(t, err)
	_, err = h.service.ApplyCoupon(ctx, "session-remove", "SAVE10")
	require.NoError(t, err)
	require.Equal(t, 1, h.coupons.usedCount("SAVE10"))

	cart, err := h.service.RemoveCoupon(ctx, "session-remove")
	require.NoError(t, err)

	require.Nil(t, cart.CouponCode)
	require.Nil(t, cart.CouponAppliedAt)
	require.True(t, cart.Discount.IsZero())
	require.True(t, cart.CartTotal.Equal(cart.Subtotal))
	require.Equal(t, 1, h.coupons.usedCount("SAVE10"))
}

func TestClearCartResetsEverything(t *testing.T) {
	h := newCartHarness(t, percentCoupon("SAVE10", 10, nil))
	ctx := context.Background()
	productID := h.addProduct(t, "books", 100)

	_, err := h.service.AddItem(ctx, "session-clear", AddItemInput{ProductID: productID, Quantity: 2})
	require.NoError(t, err)
	_, err = h.service.ApplyCoupon(ctx, "session-clear", "SAVE10")
	require.NoError(t, err)

	cart, err := h.service.ClearCart(ctx, "session-clear")
	require.NoError(t, err)

	require.Empty(t, cart.Items)
	require.Nil(t, cart.CouponCode)
	require.True(t, cart.Subtotal.IsZero())
	require.True(t, cart.CartTotal.IsZero())
}

func TestUpdateQuantityValidation(t *testing.T) {
	h := newCartHarness(t)

	_, err := h.service.UpdateItemQuantity(context.Background(), "session-q", uuid.New(), 0)
	require.Error(t, err)
}

// failingCouponStore errors on every lookup, standing in for a coupon store
// that is unreachable.
type failingCouponStore struct{}

func (failingCouponStore) FindByCode(context.Context, string) (*models.Coupon, error) {
	return nil, errors.New("connection refused")
}

func (failingCouponStore) Redeem(context.Context, uuid.UUID) (bool, error) {
	return false, errors.New("connection refused")
}

func TestApplyCouponStoreFailureIsDependencyError(t *testing.T) {
	conn := setupCartTestDB(t)
	catalog := &stubCartCatalog{categories: map[uuid.UUID]string{}}
	resolver := &stubResolver{prices: map[uuid.UUID]decimal.Decimal{}}
	logg := logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})

	svc, err := NewService(
		NewRepository(conn),
		db.NewFromConn(conn),
		failingCouponStore{},
		resolver,
		catalog,
		NewMemoryLocker(),
		nil,
		logg,
		"USD",
	)
	require.NoError(t, err)

	ctx := context.Background()
	productID := uuid.New()
	catalog.categories[productID] = "books"
	resolver.prices[productID] = decimal.NewFromInt(40)

	_, err = svc.AddItem(ctx, "session-dep", AddItemInput{ProductID: productID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(ctx, "session-dep", "SAVE10")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}
