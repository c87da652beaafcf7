package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoplane/storefront-backend/api/controllers"
	"github.com/shoplane/storefront-backend/api/middleware"
	cartsvc "github.com/shoplane/storefront-backend/internal/cart"
	"github.com/shoplane/storefront-backend/internal/coupons"
	"github.com/shoplane/storefront-backend/internal/currency"
	"github.com/shoplane/storefront-backend/internal/pricing"
	"github.com/shoplane/storefront-backend/internal/tax"
	"github.com/shoplane/storefront-backend/pkg/config"
	"github.com/shoplane/storefront-backend/pkg/db"
	"github.com/shoplane/storefront-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers. Optional entries
// (Redis, Prometheus) may be nil.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DBPinger db.Pinger
	Redis    controllers.RedisPinger
	Registry *prometheus.Registry

	PriceResolver pricing.Resolver
	PricingAdmin  pricing.Admin
	TaxService    tax.Service
	RateService   currency.Service
	CouponService coupons.Service
	CartService   cartsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DBPinger, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/price/resolve", controllers.ResolvePrice(deps.PriceResolver, deps.Logger))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.Session(deps.Logger))

			r.Get("/", controllers.GetCart(deps.CartService, deps.Logger))
			r.Delete("/", controllers.ClearCart(deps.CartService, deps.Logger))
			r.Post("/items", controllers.AddCartItem(deps.CartService, deps.Logger))
			r.Patch("/items/{itemID}", controllers.UpdateCartItem(deps.CartService, deps.Logger))
			r.Delete("/items/{itemID}", controllers.RemoveCartItem(deps.CartService, deps.Logger))
			r.Post("/coupon", controllers.ApplyCoupon(deps.CartService, deps.Logger))
			r.Delete("/coupon", controllers.RemoveCoupon(deps.CartService, deps.Logger))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/pricing", func(r chi.Router) {
			r.Post("/", controllers.CreatePricingRecord(deps.PricingAdmin, deps.Logger))
			r.Get("/", controllers.ListPricingRecords(deps.PricingAdmin, deps.Logger))
			r.Get("/{recordID}", controllers.GetPricingRecord(deps.PricingAdmin, deps.Logger))
			r.Patch("/{recordID}", controllers.UpdatePricingRecord(deps.PricingAdmin, deps.Logger))
			r.Delete("/{recordID}", controllers.DeletePricingRecord(deps.PricingAdmin, deps.Logger))
		})

		r.Route("/tiers", func(r chi.Router) {
			r.Post("/", controllers.CreateTierBand(deps.PricingAdmin, deps.Logger))
			r.Get("/", controllers.ListTierBands(deps.PricingAdmin, deps.Logger))
			r.Patch("/{bandID}", controllers.UpdateTierBand(deps.PricingAdmin, deps.Logger))
			r.Delete("/{bandID}", controllers.DeleteTierBand(deps.PricingAdmin, deps.Logger))
		})

		r.Route("/specials", func(r chi.Router) {
			r.Post("/", controllers.CreateSpecialWindow(deps.PricingAdmin, deps.Logger))
			r.Get("/", controllers.ListSpecialWindows(deps.PricingAdmin, deps.Logger))
			r.Patch("/{windowID}", controllers.UpdateSpecialWindow(deps.PricingAdmin, deps.Logger))
			r.Delete("/{windowID}", controllers.DeleteSpecialWindow(deps.PricingAdmin, deps.Logger))
		})

		r.Route("/flash-sales", func(r chi.Router) {
			r.Post("/", controllers.CreateFlashSale(deps.PricingAdmin, deps.Logger))
			r.Get("/", controllers.ListFlashSales(deps.PricingAdmin, deps.Logger))
			r.Get("/{saleID}", controllers.GetFlashSale(deps.PricingAdmin, deps.Logger))
			r.Patch("/{saleID}", controllers.UpdateFlashSale(deps.PricingAdmin, deps.Logger))
			r.Delete("/{saleID}", controllers.DeleteFlashSale(deps.PricingAdmin, deps.Logger))
		})

		r.Route("/tax-rules", func(r chi.Router) {
			r.Post("/", controllers.CreateTaxRule(deps.TaxService, deps.Logger))
			r.Get("/", controllers.ListTaxRules(deps.TaxService, deps.Logger))
			r.Get("/{ruleID}", controllers.GetTaxRule(deps.TaxService, deps.Logger))
			r.Patch("/{ruleID}", controllers.UpdateTaxRule(deps.TaxService, deps.Logger))
			r.Delete("/{ruleID}", controllers.DeleteTaxRule(deps.TaxService, deps.Logger))
		})

		r.Route("/currency-rates", func(r chi.Router) {
			r.Post("/", controllers.CreateCurrencyRate(deps.RateService, deps.Logger))
			r.Get("/", controllers.ListCurrencyRates(deps.RateService, deps.Logger))
			r.Get("/{rateID}", controllers.GetCurrencyRate(deps.RateService, deps.Logger))
			r.Patch("/{rateID}", controllers.UpdateCurrencyRate(deps.RateService, deps.Logger))
			r.Delete("/{rateID}", controllers.DeleteCurrencyRate(deps.RateService, deps.Logger))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Post("/", controllers.CreateCoupon(deps.CouponService, deps.Logger))
			r.Get("/", controllers.ListCoupons(deps.CouponService, deps.Logger))
			r.Get("/{couponID}", controllers.GetCoupon(deps.CouponService, deps.Logger))
			r.Patch("/{couponID}", controllers.UpdateCoupon(deps.CouponService, deps.Logger))
			r.Delete("/{couponID}", controllers.DeleteCoupon(deps.CouponService, deps.Logger))
		})
	})

	return r
}
