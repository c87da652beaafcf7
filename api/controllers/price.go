package controllers

import (
	"net/http"
	"strings"

	"github.com/shoplane/storefront-backend/api/responses"
	"github.com/shoplane/storefront-backend/api/validators"
	"github.com/shoplane/storefront-backend/internal/pricing"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/logger"
)

// ResolvePrice answers the storefront price quote:
// GET /api/v1/price/resolve?product_id&variant_id&qty&currency&country&state&include_tax
func ResolvePrice(resolver pricing.Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price resolver unavailable"))
			return
		}

		productID, err := validators.ParseQueryUUID(r, "product_id", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variantID, err := validators.ParseQueryUUID(r, "variant_id", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qty, err := validators.ParseQueryInt(r, "qty", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// tax is part of a quote unless the caller opts out
		includeTax, err := validators.ParseQueryBool(r, "include_tax", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// no currency param means no conversion: the breakdown comes back
		// in the pricing record's own currency
		currency := ""
		if c := validators.QueryString(r, "currency"); c != nil {
			currency = strings.ToUpper(*c)
		}

		breakdown, err := resolver.Resolve(r.Context(), pricing.ResolveInput{
			ProductID:  *productID,
			VariantID:  variantID,
			Qty:        qty,
			Currency:   currency,
			Country:    validators.QueryString(r, "country"),
			State:      validators.QueryString(r, "state"),
			IncludeTax: includeTax,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, breakdown)
	}
}
