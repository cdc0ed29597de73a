package checkout

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Muhammad3111/elektromart-backend/internal/cart"
	"github.com/Muhammad3111/elektromart-backend/internal/notifications"
	"github.com/Muhammad3111/elektromart-backend/pkg/config"
	"github.com/Muhammad3111/elektromart-backend/pkg/db"
	"github.com/Muhammad3111/elektromart-backend/pkg/db/models"
	"github.com/Muhammad3111/elektromart-backend/pkg/enums"
	pkgerrors "github.com/Muhammad3111/elektromart-backend/pkg/errors"
	"github.com/Muhammad3111/elektromart-backend/pkg/logger"
)

func setupCheckoutTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:checkout_%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: "sqlite"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	statements := []string{
		`CREATE TABLE products (
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
);`,
		`CREATE TABLE orders (
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
);`,
		`CREATE TABLE order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  subtotal NUMERIC NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, client.DB().Exec(stmt).Error)
	}
	return client
}

type stubUserLoader struct {
	users map[uuid.UUID]*models.User
}

func (s stubUserLoader) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type stubLocker struct {
	denied   bool
	acquired []string
	released []string
}

func (s *stubLocker) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.denied {
		return false, nil
	}
	s.acquired = append(s.acquired, key)
	return true, nil
}

func (s *stubLocker) Del(_ context.Context, keys ...string) error {
	s.released = append(s.released, keys...)
	return nil
}

func (s *stubLocker) SubmissionLockKey(userID string) string {
	return "lock:order:" + userID
}

type stubCounter struct {
	seq  int64
	fail bool
}

func (s *stubCounter) IncrWithTTL(_ context.Context, _ string, _ time.Duration) (int64, error) {
	if s.fail {
		return 0, fmt.Errorf("redis down")
	}
	s.seq++
	return s.seq, nil
}

func (s *stubCounter) CounterKey(name string) string {
	return "counter:" + name
}

type recordingNotifier struct {
	dispatched chan notifications.OrderSummary
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{dispatched: make(chan notifications.OrderSummary, 1)}
}

func (n *recordingNotifier) Dispatch(_ context.Context, summary notifications.OrderSummary) {
	n.dispatched <- summary
}

func (n *recordingNotifier) await(t *testing.T) notifications.OrderSummary {
	t.Helper()
	select {
	case summary := <-n.dispatched:
		return summary
	case <-time.After(2 * time.Second):
		t.Fatalf("notification was never dispatched")
		return notifications.OrderSummary{}
	}
}

type checkoutFixture struct {
	svc      Service
	client   *db.Client
	store    *cart.MemoryStore
	locker   *stubLocker
	counter  *stubCounter
	notifier *recordingNotifier
	user     *models.User
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	client := setupCheckoutTestDB(t)
	store := cart.NewMemoryStore()
	locker := &stubLocker{}
	counter := &stubCounter{}
	notifier := newRecordingNotifier()
	phone := "+998907654321"
	user := &models.User{
		ID:        uuid.New(),
		Email:     "aziz@example.com",
		FirstName: "Aziz",
		LastName:  "Karimov",
		Phone:     &phone,
		IsActive:  true,
	}

	svc, err := NewService(ServiceParams{
		DB:        client,
		CartStore: store,
		Users:     stubUserLoader{users: map[uuid.UUID]*models.User{user.ID: user}},
		Locker:    locker,
		Counter:   counter,
		Notifier:  notifier,
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		CheckoutCfg: config.CheckoutConfig{
			PlaceholderEmail:  "noemail@example.com",
			SubmissionLockTTL: 30 * time.Second,
		},
	})
	require.NoError(t, err)

	return &checkoutFixture{
		svc:      svc,
		client:   client,
		store:    store,
		locker:   locker,
		counter:  counter,
		notifier: notifier,
		user:     user,
	}
}

func (f *checkoutFixture) seedProduct(t *testing.T, name, price string, qty int, active bool) *models.Product {
	t.Helper()
	amount, err := decimal.NewFromString(price)
	require.NoError(t, err)
	product := &models.Product{
		ID:           uuid.New(),
		Name:         name,
		Price:        amount,
		AvailableQty: qty,
		IsActive:     active,
	}
	require.NoError(t, f.client.DB().Create(product).Error)
	return product
}

func (f *checkoutFixture) seedCart(t *testing.T, product *models.Product, qty int) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), f.user.ID, []cart.Item{{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price.String(),
		Quantity:  qty,
	}}))
}

func (f *checkoutFixture) cartLines(t *testing.T) []cart.Item {
	t.Helper()
	items, err := f.store.Load(context.Background(), f.user.ID)
	require.NoError(t, err)
	return items
}

func (f *checkoutFixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.client.DB().Model(&models.Order{}).Count(&count).Error)
	return count
}

func submitInput(userID *uuid.UUID) SubmitOrderInput {
	return SubmitOrderInput{
		UserID: userID,
		Contact: Contact{
			FirstName: "Aziz",
			LastName:  "Karimov",
			Phone:     "+998901234567",
			Address:   "Amir Temur 12",
			City:      "Tashkent",
			Region:    "Tashkent",
		},
	}
}

func TestSubmitOrderHappyPath(t *testing.T) {
	f := newCheckoutFixture(t)
	product := f.seedProduct(t, "Drill", "45000", 10, true)
	f.seedCart(t, product, 2)

	dto, err := f.svc.SubmitOrder(context.Background(), submitInput(&f.user.ID))
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, dto.Status)
	assert.Equal(t, enums.PaymentMethodCash, dto.PaymentMethod)
	assert.Equal(t, "90,000", dto.TotalAmount)
	assert.True(t, strings.HasPrefix(dto.OrderNumber, "EM-"), "order number %q", dto.OrderNumber)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, "45,000", dto.Items[0].UnitPrice)
	assert.Equal(t, 2, dto.Items[0].Quantity)
	// Email was blank on the request and absent from the profile fallback path,
	// so the stored record carries the user's profile email.
	assert.Equal(t, "aziz@example.com", dto.Email)

	// Stock decremented inside the transaction.
	var reloaded models.Product
	require.NoError(t, f.client.DB().First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 8, reloaded.AvailableQty)

	// Cart cleared after the successful submit.
	assert.Empty(t, f.cartLines(t))

	// Lock acquired and released.
	assert.Len(t, f.locker.acquired, 1)
	assert.Len(t, f.locker.released, 1)

	summary := f.notifier.await(t)
	assert.Equal(t, dto.OrderNumber, summary.OrderNumber)
	assert.Equal(t, "90,000", summary.Total)
	assert.Equal(t, "Aziz Karimov", summary.CustomerName)
}

func TestSubmitOrderInvalidPhoneShortCircuits(t *testing.T) {
	f := newCheckoutFixture(t)
	product := f.seedProduct(t, "Drill", "45000", 10, true)
	f.seedCart(t, product, 2)

	input := submitInput(&f.user.ID)
	input.Contact.Phone = "12345"

	_, err := f.svc.SubmitOrder(context.Background(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	failure, ok := typed.Details().(*ValidationFailure)
	require.True(t, ok, "details: %#v", typed.Details())
	assert.Equal(t, ReasonInvalidPhone, failure.Reason)

	// Nothing was written and the cart is untouched.
	assert.Zero(t, f.orderCount(t))
	assert.Len(t, f.cartLines(t), 1)
}

func TestSubmitOrderEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.SubmitOrder(context.Background(), submitInput(&f.user.ID))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	failure, ok := typed.Details().(*ValidationFailure)
	require.True(t, ok)
	assert.Equal(t, ReasonEmptyCart, failure.Reason)
}

func TestSubmitOrderInsufficientStockPreservesCart(t *testing.T) {
	f := newCheckoutFixture(t)
	product := f.seedProduct(t, "Drill", "45000", 1, true)
	f.seedCart(t, product, 2)

	_, err := f.svc.SubmitOrder(context.Background(), submitInput(&f.user.ID))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// The transaction rolled back: no order, stock intact, cart preserved.
	assert.Zero(t, f.orderCount(t))
	var reloaded models.Product
	require.NoError(t, f.client.DB().First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 1, reloaded.AvailableQty)
	assert.Len(t, f.cartLines(t), 1)
}

func TestSubmitOrderInactiveProductRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	product := f.seedProduct(t, "Drill", "45000", 10, false)
	f.seedCart(t, product, 1)

	_, err := f.svc.SubmitOrder(context.Background(), submitInput(&f.user.ID))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Zero(t, f.orderCount(t))
}

func TestSubmitOrderConcurrentSubmissionRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	product := f.seedProduct(t, "Drill", "45000", 10, true)
	f.seedCart(t, product, 1)
	f.locker.denied = true

	_, err := f.svc.SubmitOrder(context.Background(), submitInput(&f.user.ID))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Len(t, f.cartLines(t), 1)
}

func TestSubmitOrderGuestWithExplicitItems(t *testing.T) {
	f := newCheckoutFixture(t)
	product := f.seedProduct(t, "Drill", "45000", 10, true)

	input := submitInput(nil)
	input.Items = []OrderLineInput{{ProductID: product.ID, Quantity: 3}}
	input.PaymentMethod = "card"

	dto, err := f.svc.SubmitOrder(context.Background(), input)
	require.NoError(t, err)

	assert.Nil(t, dto.UserID)
	assert.Equal(t, enums.PaymentMethodCard, dto.PaymentMethod)
	assert.Equal(t, "135,000", dto.TotalAmount)
	// Guests without an email get the placeholder.
	assert.Equal(t, "noemail@example.com", dto.Email)

	f.notifier.await(t)
}

func TestSubmitOrderInvalidPaymentMethod(t *testing.T) {
	f := newCheckoutFixture(t)
	product := f.seedProduct(t, "Drill", "45000", 10, true)
	f.seedCart(t, product, 1)

	input := submitInput(&f.user.ID)
	input.PaymentMethod = "crypto"

	_, err := f.svc.SubmitOrder(context.Background(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSubmitOrderExplicitItemsDoNotClearCart(t *testing.T) {
	f := newCheckoutFixture(t)
	cartProduct := f.seedProduct(t, "Saved for later", "10000", 5, true)
	buyNow := f.seedProduct(t, "Drill", "45000", 10, true)
	f.seedCart(t, cartProduct, 1)

	input := submitInput(&f.user.ID)
	input.Items = []OrderLineInput{{ProductID: buyNow.ID, Quantity: 1}}

	_, err := f.svc.SubmitOrder(context.Background(), input)
	require.NoError(t, err)

	// The order came from explicit lines, so the session cart survives.
	assert.Len(t, f.cartLines(t), 1)
	f.notifier.await(t)
}

func TestSubmitOrderNumberFallsBackWhenCounterDown(t *testing.T) {
	f := newCheckoutFixture(t)
	product := f.seedProduct(t, "Drill", "45000", 10, true)
	f.seedCart(t, product, 1)
	f.counter.fail = true

	dto, err := f.svc.SubmitOrder(context.Background(), submitInput(&f.user.ID))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dto.OrderNumber, "EM-"), "order number %q", dto.OrderNumber)
	f.notifier.await(t)
}

func TestSubmitOrderPrefillsContactFromProfile(t *testing.T) {
	f := newCheckoutFixture(t)
	product := f.seedProduct(t, "Drill", "45000", 10, true)
	f.seedCart(t, product, 1)

	input := SubmitOrderInput{
		UserID: &f.user.ID,
		Contact: Contact{
			Address: "Amir Temur 12",
			City:    "Tashkent",
			Region:  "Tashkent",
			// Name and phone left blank; profile values fill them in.
		},
	}

	dto, err := f.svc.SubmitOrder(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Aziz", dto.FirstName)
	assert.Equal(t, "Karimov", dto.LastName)
	assert.Equal(t, "+998907654321", dto.Phone)
	f.notifier.await(t)
}
