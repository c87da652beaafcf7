package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shoplane/storefront-backend/api/responses"
	"github.com/shoplane/storefront-backend/api/validators"
	"github.com/shoplane/storefront-backend/internal/coupons"
	"github.com/shoplane/storefront-backend/pkg/enums"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/logger"
)

type couponRequest struct {
	Code              string           `json:"code" validate:"required"`
	Type              string           `json:"type" validate:"required"`
	Value             decimal.Decimal  `json:"value" validate:"required"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount"`
	MaxDiscount       *decimal.Decimal `json:"max_discount"`
	UsageLimit        int              `json:"usage_limit" validate:"min=0"`
	AllowedCategories []string         `json:"allowed_categories"`
	StartAt           time.Time        `json:"start_at" validate:"required"`
	EndAt             time.Time        `json:"end_at" validate:"required"`
	Status            string           `json:"status"`
}

type couponPatch struct {
	Type              *string          `json:"type"`
	Value             *decimal.Decimal `json:"value"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount"`
	MaxDiscount       *decimal.Decimal `json:"max_discount"`
	UsageLimit        *int             `json:"usage_limit" validate:"omitempty,min=0"`
	AllowedCategories *[]string        `json:"allowed_categories"`
	StartAt           *time.Time       `json:"start_at"`
	EndAt             *time.Time       `json:"end_at"`
	Status            *string          `json:"status"`
}

func CreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload couponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		couponType, err := enums.ParseCouponType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon type"))
			return
		}

		status := enums.CouponStatusActive
		if payload.Status != "" {
			status, err = enums.ParseCouponStatus(payload.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon status"))
				return
			}
		}

		coupon, err := svc.CreateCoupon(r.Context(), coupons.CreateCouponInput{
			Code:              payload.Code,
			Type:              couponType,
			Value:             payload.Value,
			MinOrderAmount:    payload.MinOrderAmount,
			MaxDiscount:       payload.MaxDiscount,
			UsageLimit:        payload.UsageLimit,
			AllowedCategories: payload.AllowedCategories,
			StartAt:           payload.StartAt,
			EndAt:             payload.EndAt,
			Status:            status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

func UpdateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload couponPatch
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		update := coupons.UpdateCouponInput{
			Value:             payload.Value,
			MinOrderAmount:    payload.MinOrderAmount,
			MaxDiscount:       payload.MaxDiscount,
			UsageLimit:        payload.UsageLimit,
			AllowedCategories: payload.AllowedCategories,
			StartAt:           payload.StartAt,
			EndAt:             payload.EndAt,
		}
		if payload.Type != nil {
			couponType, err := enums.ParseCouponType(*payload.Type)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon type"))
				return
			}
			update.Type = &couponType
		}
		if payload.Status != nil {
			status, err := enums.ParseCouponStatus(*payload.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon status"))
				return
			}
			update.Status = &status
		}

		coupon, err := svc.UpdateCoupon(r.Context(), id, update)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

func GetCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.GetCoupon(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

func DeleteCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteCoupon(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func ListCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListCoupons(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
