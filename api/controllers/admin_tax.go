package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/shoplane/storefront-backend/api/responses"
	"github.com/shoplane/storefront-backend/api/validators"
	"github.com/shoplane/storefront-backend/internal/tax"
	"github.com/shoplane/storefront-backend/pkg/enums"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/logger"
)

type taxRuleRequest struct {
	Name     string          `json:"name" validate:"required"`
	Type     string          `json:"type" validate:"required"`
	Value    decimal.Decimal `json:"value" validate:"required"`
	Country  *string         `json:"country"`
	State    *string         `json:"state"`
	IsActive *bool           `json:"is_active"`
}

type taxRulePatch struct {
	Name     *string          `json:"name"`
	Type     *string          `json:"type"`
	Value    *decimal.Decimal `json:"value"`
	Country  *string          `json:"country"`
	State    *string          `json:"state"`
	IsActive *bool            `json:"is_active"`
}

func CreateTaxRule(svc tax.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload taxRuleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ruleType, err := enums.ParseTaxRuleType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tax rule type"))
			return
		}

		isActive := true
		if payload.IsActive != nil {
			isActive = *payload.IsActive
		}

		rule, err := svc.CreateRule(r.Context(), tax.CreateRuleInput{
			Name:     payload.Name,
			Type:     ruleType,
			Value:    payload.Value,
			Country:  payload.Country,
			State:    payload.State,
			IsActive: isActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rule)
	}
}

func UpdateTaxRule(svc tax.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "ruleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload taxRulePatch
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		update := tax.UpdateRuleInput{
			Name:     payload.Name,
			Value:    payload.Value,
			Country:  payload.Country,
			State:    payload.State,
			IsActive: payload.IsActive,
		}
		if payload.Type != nil {
			ruleType, err := enums.ParseTaxRuleType(*payload.Type)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tax rule type"))
				return
			}
			update.Type = &ruleType
		}

		rule, err := svc.UpdateRule(r.Context(), id, update)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

func GetTaxRule(svc tax.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "ruleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.GetRule(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

func DeleteTaxRule(svc tax.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "ruleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteRule(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func ListTaxRules(svc tax.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rules, err := svc.ListRules(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rules)
	}
}
