package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Muhammad3111/elektromart-backend/internal/cart"
	"github.com/Muhammad3111/elektromart-backend/internal/notifications"
	"github.com/Muhammad3111/elektromart-backend/internal/orders"
	"github.com/Muhammad3111/elektromart-backend/internal/products"
	"github.com/Muhammad3111/elektromart-backend/pkg/config"
	"github.com/Muhammad3111/elektromart-backend/pkg/db"
	"github.com/Muhammad3111/elektromart-backend/pkg/db/models"
	"github.com/Muhammad3111/elektromart-backend/pkg/enums"
	pkgerrors "github.com/Muhammad3111/elektromart-backend/pkg/errors"
	"github.com/Muhammad3111/elektromart-backend/pkg/logger"
	"github.com/Muhammad3111/elektromart-backend/pkg/metrics"
	"github.com/Muhammad3111/elektromart-backend/pkg/money"
)

const orderCounterTTL = 48 * time.Hour

// OrderLineInput is one explicit order line, used when the request carries its
// own items instead of relying on the session cart (guest checkout).
type OrderLineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// SubmitOrderInput is the full order submission payload after decoding.
type SubmitOrderInput struct {
	UserID        *uuid.UUID
	Contact       Contact
	Notes         *string
	PaymentMethod string
	Items         []OrderLineInput
}

// Service owns the order submission workflow.
type Service interface {
	SubmitOrder(ctx context.Context, input SubmitOrderInput) (*orders.OrderDTO, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type submissionLocker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	SubmissionLockKey(userID string) string
}

type orderCounter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	CounterKey(name string) string
}

// ServiceParams bundles the dependencies of the checkout service.
type ServiceParams struct {
	DB          *db.Client
	CartStore   cart.Store
	Users       userLoader
	Locker      submissionLocker
	Counter     orderCounter
	Notifier    notifications.Notifier
	Logger      *logger.Logger
	Metrics     *metrics.CheckoutMetrics
	CheckoutCfg config.CheckoutConfig
}

type service struct {
	db        *db.Client
	cartStore cart.Store
	users     userLoader
	locker    submissionLocker
	counter   orderCounter
	notifier  notifications.Notifier
	logg      *logger.Logger
	metrics   *metrics.CheckoutMetrics
	cfg       config.CheckoutConfig
}

// NewService constructs the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.CartStore == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user loader is required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("submission locker is required")
	}
	if params.Counter == nil {
		return nil, fmt.Errorf("order counter is required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		db:        params.DB,
		cartStore: params.CartStore,
		users:     params.Users,
		locker:    params.Locker,
		counter:   params.Counter,
		notifier:  params.Notifier,
		logg:      params.Logger,
		metrics:   params.Metrics,
		cfg:       params.CheckoutCfg,
	}, nil
}

// SubmitOrder validates the payload, prices every line from the catalog,
// creates the order in one transaction, and clears the session cart. The
// notification goes out after commit and never affects the result.
func (s *service) SubmitOrder(ctx context.Context, input SubmitOrderInput) (*orders.OrderDTO, error) {
	started := time.Now()

	contact, err := s.prefillContact(ctx, input)
	if err != nil {
		return nil, err
	}

	lines, fromCart, err := s.resolveLines(ctx, input)
	if err != nil {
		return nil, err
	}

	if failure := ValidateOrder(contact, len(lines)); failure != nil {
		s.metrics.IncFailed(failure.Reason)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order validation failed").
			WithDetails(failure)
	}

	paymentMethod := enums.PaymentMethodCash
	if input.PaymentMethod != "" {
		parsed, err := enums.ParsePaymentMethod(input.PaymentMethod)
		if err != nil {
			s.metrics.IncFailed("invalid_payment_method")
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
		}
		paymentMethod = parsed
	}

	if input.UserID != nil {
		release, err := s.acquireLock(ctx, *input.UserID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	order := &models.Order{
		OrderNumber:   s.nextOrderNumber(ctx),
		UserID:        input.UserID,
		FirstName:     contact.FirstName,
		LastName:      contact.LastName,
		Email:         FillEmail(contact.Email, s.cfg.PlaceholderEmail),
		Phone:         contact.Phone,
		Address:       contact.Address,
		City:          contact.City,
		Region:        contact.Region,
		Notes:         input.Notes,
		PaymentMethod: paymentMethod,
		Status:        enums.OrderStatusPending,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		productRepo := products.NewRepository(tx)
		orderRepo := orders.NewRepository(tx)

		items, total, err := s.priceLines(ctx, productRepo, lines)
		if err != nil {
			return err
		}
		order.Items = items
		order.TotalAmount = total

		for _, line := range lines {
			if err := productRepo.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
						WithDetails(map[string]string{"product_id": line.ProductID.String()})
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
		}

		if _, err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			s.metrics.IncFailed(string(typed.Code()))
			return nil, typed
		}
		s.metrics.IncFailed("internal")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submit order")
	}

	s.metrics.IncSubmitted(string(paymentMethod))
	s.metrics.ObserveSubmitDuration(time.Since(started))

	orderCtx := s.logg.WithOrderNumber(ctx, order.OrderNumber)
	s.logg.Info(orderCtx, "order created")

	if fromCart && input.UserID != nil {
		if err := s.cartStore.Clear(ctx, *input.UserID); err != nil {
			s.logg.Error(orderCtx, "clearing cart after order", err)
		}
	}

	go s.notifier.Dispatch(context.WithoutCancel(ctx), buildSummary(order))

	return orders.FromModel(order), nil
}

func (s *service) prefillContact(ctx context.Context, input SubmitOrderInput) (Contact, error) {
	contact := input.Contact
	if input.UserID == nil {
		return contact, nil
	}

	user, err := s.users.FindByID(ctx, *input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contact, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown user")
		}
		return contact, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	if contact.FirstName == "" {
		contact.FirstName = user.FirstName
	}
	if contact.LastName == "" {
		contact.LastName = user.LastName
	}
	if contact.Email == "" {
		contact.Email = user.Email
	}
	if contact.Phone == "" && user.Phone != nil {
		contact.Phone = *user.Phone
	}
	return contact, nil
}

// resolveLines picks explicit request lines when present, otherwise the
// session cart. The boolean reports whether the cart supplied the lines and
// therefore must be cleared after a successful submit.
func (s *service) resolveLines(ctx context.Context, input SubmitOrderInput) ([]OrderLineInput, bool, error) {
	if len(input.Items) > 0 {
		for _, line := range input.Items {
			if line.Quantity < 1 {
				return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
			}
		}
		return input.Items, false, nil
	}

	if input.UserID == nil {
		return nil, false, nil
	}

	items, err := s.cartStore.Load(ctx, *input.UserID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	lines := make([]OrderLineInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, OrderLineInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines, true, nil
}

func (s *service) acquireLock(ctx context.Context, userID uuid.UUID) (func(), error) {
	key := s.locker.SubmissionLockKey(userID.String())
	ttl := s.cfg.SubmissionLockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	acquired, err := s.locker.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquire submission lock")
	}
	if !acquired {
		s.metrics.IncFailed("concurrent_submission")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
	}

	return func() {
		if err := s.locker.Del(context.WithoutCancel(ctx), key); err != nil {
			s.logg.Error(ctx, "releasing submission lock", err)
		}
	}, nil
}

// priceLines snapshots name and unit price from the catalog. Cart display
// prices are never trusted for the durable record.
func (s *service) priceLines(ctx context.Context, repo *products.Repository, lines []OrderLineInput) ([]models.OrderLineItem, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	rows, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	items := make([]models.OrderLineItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok || !product.IsActive {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "product no longer available").
				WithDetails(map[string]string{"product_id": line.ProductID.String()})
		}
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, models.OrderLineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			Subtotal:  subtotal,
		})
		total = total.Add(subtotal)
	}
	return items, total, nil
}

// nextOrderNumber pulls a daily sequence from Redis; when Redis is down it
// falls back to a time-based number so checkout keeps working.
func (s *service) nextOrderNumber(ctx context.Context) string {
	day := time.Now().UTC().Format("20060102")
	seq, err := s.counter.IncrWithTTL(ctx, s.counter.CounterKey("orders:"+day), orderCounterTTL)
	if err != nil {
		s.logg.Error(ctx, "order counter unavailable, using time-based number", err)
		return fmt.Sprintf("EM-%d", time.Now().UTC().UnixNano())
	}
	return fmt.Sprintf("EM-%s-%04d", day, seq)
}

func buildSummary(order *models.Order) notifications.OrderSummary {
	items := make([]notifications.LineSummary, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, notifications.LineSummary{
			Name:     item.Name,
			Quantity: item.Quantity,
			Subtotal: money.Format(item.Subtotal),
		})
	}
	notes := ""
	if order.Notes != nil {
		notes = *order.Notes
	}
	return notifications.OrderSummary{
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.FirstName + " " + order.LastName,
		Phone:         order.Phone,
		Address:       order.Address,
		City:          order.City,
		Region:        order.Region,
		PaymentMethod: string(order.PaymentMethod),
		Notes:         notes,
		Total:         money.Format(order.TotalAmount),
		Items:         items,
	}
}
