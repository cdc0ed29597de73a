package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Muhammad3111/elektromart-backend/api/responses"
	"github.com/Muhammad3111/elektromart-backend/api/validators"
	"github.com/Muhammad3111/elektromart-backend/internal/products"
	pkgerrors "github.com/Muhammad3111/elektromart-backend/pkg/errors"
	"github.com/Muhammad3111/elektromart-backend/pkg/logger"
	"github.com/Muhammad3111/elektromart-backend/pkg/money"
	"github.com/Muhammad3111/elektromart-backend/pkg/pagination"
)

// ListProducts serves the public catalog with cursor pagination.
func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		result, err := svc.ListProducts(r.Context(), products.ListProductsInput{
			Filters: products.ListProductsFilters{
				Category: query.Get("category"),
				Brand:    query.Get("brand"),
				Query:    query.Get("q"),
			},
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: query.Get("cursor"),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// GetProduct serves a single catalog entry.
func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	Name         string  `json:"name" validate:"required"`
	Description  *string `json:"description,omitempty"`
	Category     string  `json:"category" validate:"required"`
	Brand        string  `json:"brand" validate:"required"`
	Price        string  `json:"price" validate:"required"`
	AvailableQty int     `json:"available_qty" validate:"min=0"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// CreateProduct adds a catalog entry (admin only).
func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parsePrice(payload.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		isActive := true
		if payload.IsActive != nil {
			isActive = *payload.IsActive
		}

		product, err := svc.CreateProduct(r.Context(), products.CreateProductInput{
			Name:         payload.Name,
			Description:  payload.Description,
			Category:     payload.Category,
			Brand:        payload.Brand,
			Price:        price,
			AvailableQty: payload.AvailableQty,
			IsActive:     isActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	Category     *string `json:"category,omitempty"`
	Brand        *string `json:"brand,omitempty"`
	Price        *string `json:"price,omitempty"`
	AvailableQty *int    `json:"available_qty,omitempty" validate:"omitempty,min=0"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// UpdateProduct mutates a catalog entry (admin only).
func UpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := products.UpdateProductInput{
			Name:         payload.Name,
			Description:  payload.Description,
			Category:     payload.Category,
			Brand:        payload.Brand,
			AvailableQty: payload.AvailableQty,
			IsActive:     payload.IsActive,
		}
		if payload.Price != nil {
			price, err := parsePrice(*payload.Price)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Price = &price
		}

		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// DeactivateProduct hides a catalog entry without deleting its history.
func DeactivateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeactivateProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

// parsePrice accepts the grouped display format but refuses garbage; an
// admin typo must not silently become a zero-price product.
func parsePrice(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price is required")
	}
	price, err := money.ParseStrict(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price must be numeric")
	}
	return price, nil
}
