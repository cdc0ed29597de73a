package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Muhammad3111/elektromart-backend/pkg/db/models"
	"github.com/Muhammad3111/elektromart-backend/pkg/enums"
	pkgerrors "github.com/Muhammad3111/elektromart-backend/pkg/errors"
	"github.com/Muhammad3111/elektromart-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL,
  address TEXT NOT NULL,
  city TEXT NOT NULL,
  region TEXT NOT NULL,
  notes TEXT,
  payment_method TEXT NOT NULL DEFAULT 'cash',
  status TEXT NOT NULL DEFAULT 'pending',
  total_amount NUMERIC NOT NULL,
  cancelled_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	lineItems := `
CREATE TABLE order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  subtotal NUMERIC NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(lineItems).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, userID *uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:   "EM-20250901-" + uuid.NewString()[:8],
		UserID:        userID,
		FirstName:     "Aziz",
		LastName:      "Karimov",
		Email:         "aziz@example.com",
		Phone:         "998901234567",
		Address:       "Amir Temur 12",
		City:          "Tashkent",
		Region:        "Tashkent",
		PaymentMethod: enums.PaymentMethodCash,
		Status:        status,
		TotalAmount:   decimal.NewFromInt(90000),
		Items: []models.OrderLineItem{{
			ProductID: uuid.New(),
			Name:      "Drill",
			UnitPrice: decimal.NewFromInt(45000),
			Quantity:  2,
			Subtotal:  decimal.NewFromInt(90000),
		}},
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func buildOrderService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestUpdateStatusAllowedTransition(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := buildOrderService(t, db)
	order := seedOrder(t, db, nil, enums.OrderStatusPending)

	dto, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, dto.Status)
	assert.Nil(t, dto.CancelledAt)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := buildOrderService(t, db)
	order := seedOrder(t, db, nil, enums.OrderStatusDelivered)

	_, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusCancelled)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestUpdateStatusStampsLifecycleTimes(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := buildOrderService(t, db)

	cancelled := seedOrder(t, db, nil, enums.OrderStatusPending)
	dto, err := svc.UpdateStatus(context.Background(), cancelled.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	require.NotNil(t, dto.CancelledAt)
	assert.WithinDuration(t, time.Now().UTC(), *dto.CancelledAt, time.Minute)

	shipped := seedOrder(t, db, nil, enums.OrderStatusShipped)
	dto, err = svc.UpdateStatus(context.Background(), shipped.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)
	require.NotNil(t, dto.DeliveredAt)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := buildOrderService(t, db)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), enums.OrderStatus("shiped"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestGetOrderForUserOwnership(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := buildOrderService(t, db)
	owner := uuid.New()
	order := seedOrder(t, db, &owner, enums.OrderStatusPending)

	dto, err := svc.GetOrderForUser(context.Background(), owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, dto.OrderNumber)
	assert.Equal(t, "90,000", dto.TotalAmount)

	// Another user's lookup is indistinguishable from a missing order.
	_, err = svc.GetOrderForUser(context.Background(), uuid.New(), order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListOrdersFiltersAndPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := buildOrderService(t, db)
	owner := uuid.New()

	for i := 0; i < 3; i++ {
		order := seedOrder(t, db, &owner, enums.OrderStatusPending)
		// Spread creation times so cursor ordering is deterministic.
		createdAt := time.Now().UTC().Add(time.Duration(-i) * time.Minute)
		require.NoError(t, db.Model(order).UpdateColumn("created_at", createdAt).Error)
	}
	seedOrder(t, db, nil, enums.OrderStatusConfirmed)

	result, err := svc.ListMyOrders(context.Background(), owner, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, result.Orders, 2)
	require.NotNil(t, result.NextCursor)

	rest, err := svc.ListMyOrders(context.Background(), owner, pagination.Params{Limit: 2, Cursor: *result.NextCursor})
	require.NoError(t, err)
	assert.Len(t, rest.Orders, 1)
	assert.Nil(t, rest.NextCursor)

	status := enums.OrderStatusConfirmed
	filtered, err := svc.ListOrders(context.Background(), ListOrdersInput{Status: &status})
	require.NoError(t, err)
	assert.Len(t, filtered.Orders, 1)
	assert.Equal(t, enums.OrderStatusConfirmed, filtered.Orders[0].Status)
}
