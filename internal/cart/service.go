package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Muhammad3111/elektromart-backend/pkg/db/models"
	pkgerrors "github.com/Muhammad3111/elektromart-backend/pkg/errors"
	"github.com/Muhammad3111/elektromart-backend/pkg/money"
)

// CartDTO is the transport shape returned by every cart mutation and read.
type CartDTO struct {
	Items     []Item `json:"items"`
	ItemCount int    `json:"item_count"`
	Total     string `json:"total"`
}

// Service exposes the session cart operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	store    Store
	products productReader
}

// NewService constructs a cart service over the provided store and catalog reader.
func NewService(store Store, products productReader) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader is required")
	}
	return &service{store: store, products: products}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	items, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return toDTO(items), nil
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	items, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	items = addLine(items, Item{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     money.Format(product.Price),
		Quantity:  qty,
	})

	if err := s.store.Save(ctx, userID, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart")
	}
	return toDTO(items), nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error) {
	// Quantities below one are rejected outright; the line keeps its old value.
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	items, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	next, found := setQuantity(items, productID, qty)
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}

	if err := s.store.Save(ctx, userID, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart")
	}
	return toDTO(next), nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	items, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	next := removeLine(items, productID)
	if err := s.store.Save(ctx, userID, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart")
	}
	return toDTO(next), nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func toDTO(items []Item) *CartDTO {
	if items == nil {
		items = []Item{}
	}
	summary := Summarize(items)
	return &CartDTO{
		Items:     items,
		ItemCount: summary.ItemCount,
		Total:     money.Format(summary.Total),
	}
}
