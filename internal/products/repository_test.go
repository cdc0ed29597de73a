package products

import (
	"context"
	"errors"
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
	"github.com/Muhammad3111/elektromart-backend/pkg/pagination"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:products_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL DEFAULT '',
  brand TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  available_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB, name, category string, qty int, active bool, createdAt time.Time) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:           uuid.New(),
		Name:         name,
		Category:     category,
		Brand:        "Makita",
		Price:        decimal.NewFromInt(45000),
		AvailableQty: qty,
		IsActive:     active,
	}
	require.NoError(t, db.Create(product).Error)
	require.NoError(t, db.Model(product).UpdateColumn("created_at", createdAt).Error)
	return product
}

func TestDecrementStockGuardsAgainstOverselling(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	product := seedCatalog(t, db, "Drill", "tools", 3, true, time.Now().UTC())

	require.NoError(t, repo.DecrementStock(context.Background(), product.ID, 2))

	reloaded, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.AvailableQty)

	// Requesting more than remains must fail without touching the row.
	err = repo.DecrementStock(context.Background(), product.ID, 2)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "got %v", err)

	reloaded, err = repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.AvailableQty)
}

func TestDecrementStockUnknownProduct(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	err := repo.DecrementStock(context.Background(), uuid.New(), 1)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "got %v", err)
}

func TestListHidesInactiveAndFilters(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	seedCatalog(t, db, "Drill", "tools", 5, true, now)
	seedCatalog(t, db, "Old Drill", "tools", 5, false, now.Add(-time.Minute))
	seedCatalog(t, db, "Kettle", "kitchen", 5, true, now.Add(-2*time.Minute))

	rows, err := repo.List(context.Background(), ListProductsInput{
		Filters:    ListProductsFilters{Category: "tools"},
		Pagination: pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Drill", rows[0].Name)

	rows, err = repo.List(context.Background(), ListProductsInput{
		Filters:         ListProductsFilters{Category: "tools"},
		Pagination:      pagination.Params{Limit: 10},
		IncludeInactive: true,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestListNameSearchCaseInsensitive(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	seedCatalog(t, db, "Bosch Hammer", "tools", 5, true, now)
	seedCatalog(t, db, "Kettle", "kitchen", 5, true, now.Add(-time.Minute))

	rows, err := repo.List(context.Background(), ListProductsInput{
		Filters:    ListProductsFilters{Query: "hammer"},
		Pagination: pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bosch Hammer", rows[0].Name)
}

func TestListCursorPagination(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		seedCatalog(t, db, fmt.Sprintf("Product %d", i), "tools", 5, true, now.Add(time.Duration(-i)*time.Minute))
	}

	firstPage, err := repo.List(context.Background(), ListProductsInput{
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	// Limit+1 rows signal that another page exists.
	require.Len(t, firstPage, 3)
	assert.Equal(t, "Product 0", firstPage[0].Name)

	cursor := pagination.EncodeCursor(pagination.Cursor{
		CreatedAt: firstPage[1].CreatedAt,
		ID:        firstPage[1].ID,
	})
	secondPage, err := repo.List(context.Background(), ListProductsInput{
		Pagination: pagination.Params{Limit: 2, Cursor: cursor},
	})
	require.NoError(t, err)
	require.NotEmpty(t, secondPage)
	assert.Equal(t, "Product 2", secondPage[0].Name)
}
