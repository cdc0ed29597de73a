package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Muhammad3111/elektromart-backend/pkg/db/models"
	"github.com/Muhammad3111/elektromart-backend/pkg/money"
	"github.com/Muhammad3111/elektromart-backend/pkg/pagination"
)

// ProductDTO is the transport shape for catalog entries. Price is rendered in
// the grouped display format the storefront expects ("45,000").
type ProductDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	Category     string    `json:"category"`
	Brand        string    `json:"brand"`
	Price        string    `json:"price"`
	AvailableQty int       `json:"available_qty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name         string
	Description  *string
	Category     string
	Brand        string
	Price        decimal.Decimal
	AvailableQty int
	IsActive     bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name         *string
	Description  *string
	Category     *string
	Brand        *string
	Price        *decimal.Decimal
	AvailableQty *int
	IsActive     *bool
}

// ListProductsFilters describe the supported filter knobs for the browse endpoint.
type ListProductsFilters struct {
	Category string
	Brand    string
	Query    string
}

// ListProductsInput captures the inputs needed to paginate/filter the catalog.
type ListProductsInput struct {
	Filters         ListProductsFilters
	Pagination      pagination.Params
	IncludeInactive bool
}

// ProductListResult is a single catalog page plus the cursor for the next one.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor *string      `json:"next_cursor,omitempty"`
}

// FromModel converts a persisted product to its transport shape.
func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		Brand:        p.Brand,
		Price:        money.Format(p.Price),
		AvailableQty: p.AvailableQty,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
