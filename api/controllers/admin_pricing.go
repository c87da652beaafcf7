package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoplane/storefront-backend/api/responses"
	"github.com/shoplane/storefront-backend/api/validators"
	"github.com/shoplane/storefront-backend/internal/pricing"
	"github.com/shoplane/storefront-backend/pkg/enums"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/logger"
	"github.com/shoplane/storefront-backend/pkg/pagination"
)

func listParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	params := pagination.Params{Limit: limit}
	if cursor := validators.QueryString(r, "cursor"); cursor != nil {
		params.Cursor = *cursor
	}
	return params, nil
}

func pathID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param)
	}
	return id, nil
}

type pricingRecordRequest struct {
	ProductID     uuid.UUID       `json:"product_id" validate:"required"`
	VariantID     *uuid.UUID      `json:"variant_id"`
	BasePrice     decimal.Decimal `json:"base_price" validate:"required"`
	DiscountType  string          `json:"discount_type" validate:"required"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	Currency      string          `json:"currency" validate:"required,len=3"`
	IsActive      *bool           `json:"is_active"`
}

type pricingRecordPatch struct {
	BasePrice     *decimal.Decimal `json:"base_price"`
	DiscountType  *string          `json:"discount_type"`
	DiscountValue *decimal.Decimal `json:"discount_value"`
	Currency      *string          `json:"currency" validate:"omitempty,len=3"`
	IsActive      *bool            `json:"is_active"`
}

func CreatePricingRecord(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload pricingRecordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discountType, err := enums.ParseDiscountType(payload.DiscountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
			return
		}

		isActive := true
		if payload.IsActive != nil {
			isActive = *payload.IsActive
		}

		record, err := admin.CreatePricingRecord(r.Context(), pricing.PricingRecordInput{
			ProductID:     payload.ProductID,
			VariantID:     payload.VariantID,
			BasePrice:     payload.BasePrice,
			DiscountType:  discountType,
			DiscountValue: payload.DiscountValue,
			Currency:      payload.Currency,
			IsActive:      isActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func UpdatePricingRecord(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "recordID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload pricingRecordPatch
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		update := pricing.PricingRecordUpdate{
			BasePrice:     payload.BasePrice,
			DiscountValue: payload.DiscountValue,
			Currency:      payload.Currency,
			IsActive:      payload.IsActive,
		}
		if payload.DiscountType != nil {
			discountType, err := enums.ParseDiscountType(*payload.DiscountType)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
				return
			}
			update.DiscountType = &discountType
		}

		record, err := admin.UpdatePricingRecord(r.Context(), id, update)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func GetPricingRecord(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "recordID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := admin.GetPricingRecord(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func DeletePricingRecord(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "recordID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := admin.DeletePricingRecord(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func ListPricingRecords(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := admin.ListPricingRecords(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

type tierBandRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	VariantID *uuid.UUID      `json:"variant_id"`
	MinQty    int             `json:"min_qty" validate:"required,min=1"`
	MaxQty    int             `json:"max_qty" validate:"required,min=1"`
	Price     decimal.Decimal `json:"price" validate:"required"`
}

type tierBandPatch struct {
	MinQty *int             `json:"min_qty" validate:"omitempty,min=1"`
	MaxQty *int             `json:"max_qty" validate:"omitempty,min=1"`
	Price  *decimal.Decimal `json:"price"`
}

func CreateTierBand(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload tierBandRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		band, err := admin.CreateTierBand(r.Context(), pricing.TierBandInput{
			ProductID: payload.ProductID,
			VariantID: payload.VariantID,
			MinQty:    payload.MinQty,
			MaxQty:    payload.MaxQty,
			Price:     payload.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, band)
	}
}

func UpdateTierBand(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "bandID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload tierBandPatch
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		band, err := admin.UpdateTierBand(r.Context(), id, pricing.TierBandUpdate{
			MinQty: payload.MinQty,
			MaxQty: payload.MaxQty,
			Price:  payload.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, band)
	}
}

func DeleteTierBand(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "bandID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := admin.DeleteTierBand(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func ListTierBands(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseQueryUUID(r, "product_id", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bands, err := admin.ListTierBands(r.Context(), *productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bands)
	}
}

type specialWindowRequest struct {
	ProductID    uuid.UUID       `json:"product_id" validate:"required"`
	VariantID    *uuid.UUID      `json:"variant_id"`
	SpecialPrice decimal.Decimal `json:"special_price" validate:"required"`
	StartAt      time.Time       `json:"start_at" validate:"required"`
	EndAt        time.Time       `json:"end_at" validate:"required"`
	IsActive     *bool           `json:"is_active"`
}

type specialWindowPatch struct {
	SpecialPrice *decimal.Decimal `json:"special_price"`
	StartAt      *time.Time       `json:"start_at"`
	EndAt        *time.Time       `json:"end_at"`
	IsActive     *bool            `json:"is_active"`
}

func CreateSpecialWindow(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload specialWindowRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		isActive := true
		if payload.IsActive != nil {
			isActive = *payload.IsActive
		}

		window, err := admin.CreateSpecialWindow(r.Context(), pricing.SpecialWindowInput{
			ProductID:    payload.ProductID,
			VariantID:    payload.VariantID,
			SpecialPrice: payload.SpecialPrice,
			StartAt:      payload.StartAt,
			EndAt:        payload.EndAt,
			IsActive:     isActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, window)
	}
}

func UpdateSpecialWindow(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "windowID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload specialWindowPatch
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		window, err := admin.UpdateSpecialWindow(r.Context(), id, pricing.SpecialWindowUpdate{
			SpecialPrice: payload.SpecialPrice,
			StartAt:      payload.StartAt,
			EndAt:        payload.EndAt,
			IsActive:     payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, window)
	}
}

func DeleteSpecialWindow(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "windowID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := admin.DeleteSpecialWindow(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func ListSpecialWindows(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		windows, err := admin.ListSpecialWindows(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, windows)
	}
}

type flashSaleItemRequest struct {
	ProductID  uuid.UUID       `json:"product_id" validate:"required"`
	VariantID  *uuid.UUID      `json:"variant_id"`
	FlashPrice decimal.Decimal `json:"flash_price" validate:"required"`
	StockLimit int             `json:"stock_limit" validate:"min=0"`
}

type flashSaleRequest struct {
	Title   string                 `json:"title" validate:"required"`
	StartAt time.Time              `json:"start_at" validate:"required"`
	EndAt   time.Time              `json:"end_at" validate:"required"`
	Status  string                 `json:"status" validate:"required"`
	Items   []flashSaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

type flashSalePatch struct {
	Title   *string                 `json:"title"`
	StartAt *time.Time              `json:"start_at"`
	EndAt   *time.Time              `json:"end_at"`
	Status  *string                 `json:"status"`
	Items   *[]flashSaleItemRequest `json:"items" validate:"omitempty,min=1,dive"`
}

func flashItems(payloads []flashSaleItemRequest) []pricing.FlashSaleItemInput {
	items := make([]pricing.FlashSaleItemInput, len(payloads))
	for i, p := range payloads {
		items[i] = pricing.FlashSaleItemInput{
			ProductID:  p.ProductID,
			VariantID:  p.VariantID,
			FlashPrice: p.FlashPrice,
			StockLimit: p.StockLimit,
		}
	}
	return items
}

func CreateFlashSale(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload flashSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseFlashSaleStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid flash sale status"))
			return
		}

		sale, err := admin.CreateFlashSale(r.Context(), pricing.FlashSaleInput{
			Title:   payload.Title,
			StartAt: payload.StartAt,
			EndAt:   payload.EndAt,
			Status:  status,
			Items:   flashItems(payload.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

func UpdateFlashSale(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload flashSalePatch
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		update := pricing.FlashSaleUpdate{
			Title:   payload.Title,
			StartAt: payload.StartAt,
			EndAt:   payload.EndAt,
		}
		if payload.Status != nil {
			status, err := enums.ParseFlashSaleStatus(*payload.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid flash sale status"))
				return
			}
			update.Status = &status
		}
		if payload.Items != nil {
			items := flashItems(*payload.Items)
			update.Items = &items
		}

		sale, err := admin.UpdateFlashSale(r.Context(), id, update)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

func GetFlashSale(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := admin.GetFlashSale(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

func DeleteFlashSale(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := admin.DeleteFlashSale(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func ListFlashSales(admin pricing.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sales, err := admin.ListFlashSales(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sales)
	}
}
