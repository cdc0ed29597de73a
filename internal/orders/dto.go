package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/Muhammad3111/elektromart-backend/pkg/db/models"
	"github.com/Muhammad3111/elektromart-backend/pkg/enums"
	"github.com/Muhammad3111/elektromart-backend/pkg/money"
	"github.com/Muhammad3111/elektromart-backend/pkg/pagination"
)

// OrderLineItemDTO is the transport shape for a single order line.
type OrderLineItemDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice string    `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	Subtotal  string    `json:"subtotal"`
}

// OrderDTO is the transport shape for an order with its lines.
type OrderDTO struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	FirstName     string              `json:"first_name"`
	LastName      string              `json:"last_name"`
	Email         string              `json:"email"`
	Phone         string              `json:"phone"`
	Address       string              `json:"address"`
	City          string              `json:"city"`
	Region        string              `json:"region"`
	Notes         *string             `json:"notes,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
	TotalAmount   string              `json:"total_amount"`
	Items         []OrderLineItemDTO  `json:"items"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ListOrdersInput captures pagination plus the optional status filter.
type ListOrdersInput struct {
	UserID     *uuid.UUID
	Status     *enums.OrderStatus
	Pagination pagination.Params
}

// OrderListResult is a single page of orders plus the next cursor.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor *string    `json:"next_cursor,omitempty"`
}

// FromModel converts a persisted order to its transport shape.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}

	items := make([]OrderLineItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderLineItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: money.Format(item.UnitPrice),
			Quantity:  item.Quantity,
			Subtotal:  money.Format(item.Subtotal),
		})
	}

	return &OrderDTO{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		FirstName:     o.FirstName,
		LastName:      o.LastName,
		Email:         o.Email,
		Phone:         o.Phone,
		Address:       o.Address,
		City:          o.City,
		Region:        o.Region,
		Notes:         o.Notes,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		TotalAmount:   money.Format(o.TotalAmount),
		Items:         items,
		CancelledAt:   o.CancelledAt,
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
