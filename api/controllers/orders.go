package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Muhammad3111/elektromart-backend/api/middleware"
	"github.com/Muhammad3111/elektromart-backend/api/responses"
	"github.com/Muhammad3111/elektromart-backend/api/validators"
	"github.com/Muhammad3111/elektromart-backend/internal/checkout"
	"github.com/Muhammad3111/elektromart-backend/internal/orders"
	pkgauth "github.com/Muhammad3111/elektromart-backend/pkg/auth"
	"github.com/Muhammad3111/elektromart-backend/pkg/enums"
	pkgerrors "github.com/Muhammad3111/elektromart-backend/pkg/errors"
	"github.com/Muhammad3111/elektromart-backend/pkg/logger"
	"github.com/Muhammad3111/elektromart-backend/pkg/pagination"
)

type orderLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type submitOrderRequest struct {
	FirstName     string             `json:"first_name"`
	LastName      string             `json:"last_name"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone"`
	Address       string             `json:"address"`
	City          string             `json:"city"`
	Region        string             `json:"region"`
	Notes         *string            `json:"notes,omitempty"`
	PaymentMethod string             `json:"payment_method"`
	Items         []orderLineRequest `json:"items,omitempty"`
}

// SubmitOrder accepts a checkout submission from either a logged-in shopper
// (lines come from the session cart) or a guest carrying explicit items.
func SubmitOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := optionalUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]checkout.OrderLineInput, 0, len(payload.Items))
		for _, line := range payload.Items {
			productID, err := parseBodyUUID(line.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			lines = append(lines, checkout.OrderLineInput{ProductID: productID, Quantity: line.Quantity})
		}

		order, err := svc.SubmitOrder(r.Context(), checkout.SubmitOrderInput{
			UserID: userID,
			Contact: checkout.Contact{
				FirstName: payload.FirstName,
				LastName:  payload.LastName,
				Email:     payload.Email,
				Phone:     payload.Phone,
				Address:   payload.Address,
				City:      payload.City,
				Region:    payload.Region,
			},
			Notes:         payload.Notes,
			PaymentMethod: payload.PaymentMethod,
			Items:         lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// MyOrders lists the authenticated user's order history, newest first.
func MyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListMyOrders(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ListOrders is the admin order list with an optional status filter.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		input := orders.ListOrdersInput{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: query.Get("cursor"),
			},
		}

		if raw := query.Get("status"); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status"))
				return
			}
			input.Status = &status
		}

		if raw := query.Get("user_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid user_id"))
				return
			}
			input.UserID = &id
		}

		result, err := svc.ListOrders(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// GetOrder returns one order. Admins see any order; customers only their own.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var order *orders.OrderDTO
		if middleware.RoleFromContext(r.Context()) == pkgauth.RoleAdmin {
			order, err = svc.GetOrder(r.Context(), id)
		} else {
			order, err = svc.GetOrderForUser(r.Context(), userID, id)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatus moves an order along its lifecycle (admin only). Invalid
// transitions are rejected with a conflict.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}
