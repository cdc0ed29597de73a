package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/Muhammad3111/elektromart-backend/pkg/config"
	"github.com/Muhammad3111/elektromart-backend/pkg/logger"
	"github.com/Muhammad3111/elektromart-backend/pkg/metrics"
)

// LineSummary is one order line rendered into the notification text.
type LineSummary struct {
	Name     string
	Quantity int
	Subtotal string
}

// OrderSummary carries everything the side-channel message needs.
type OrderSummary struct {
	OrderNumber   string
	CustomerName  string
	Phone         string
	Address       string
	City          string
	Region        string
	PaymentMethod string
	Notes         string
	Total         string
	Items         []LineSummary
}

// Notifier delivers order notifications. Implementations are strictly
// best-effort: Dispatch never reports failure to the caller.
type Notifier interface {
	Dispatch(ctx context.Context, order OrderSummary)
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type telegramNotifier struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	cfg     config.TelegramConfig
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
}

// NewTelegramNotifier builds the Telegram Bot API notifier. The HTTP call is
// wrapped in a circuit breaker so a dead bot endpoint stops costing a full
// timeout per order.
func NewTelegramNotifier(cfg config.TelegramConfig, logg *logger.Logger, checkoutMetrics *metrics.CheckoutMetrics) (Notifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telegram",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &telegramNotifier{
		client:  client,
		breaker: breaker,
		cfg:     cfg,
		logg:    logg,
		metrics: checkoutMetrics,
	}, nil
}

// Dispatch sends the order summary to the configured chat. Failures are
// logged and counted, never returned.
func (t *telegramNotifier) Dispatch(ctx context.Context, order OrderSummary) {
	defer func() {
		if r := recover(); r != nil {
			t.logg.Error(ctx, "order notification panicked", fmt.Errorf("%v", r))
			t.metrics.IncNotification("failed")
		}
	}()

	if !t.cfg.Enabled() {
		t.metrics.IncNotification("skipped")
		return
	}

	ctx = t.logg.WithOrderNumber(ctx, order.OrderNumber)

	_, err := t.breaker.Execute(func() (any, error) {
		resp, err := t.client.R().
			SetContext(ctx).
			SetBody(sendMessageRequest{
				ChatID: t.cfg.ChatID,
				Text:   renderMessage(order),
			}).
			Post(fmt.Sprintf("/bot%s/sendMessage", t.cfg.BotToken))
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("telegram responded %d", resp.StatusCode())
		}
		return nil, nil
	})
	if err != nil {
		t.logg.Error(ctx, "order notification failed", err)
		t.metrics.IncNotification("failed")
		return
	}

	t.metrics.IncNotification("sent")
	t.logg.Info(ctx, "order notification sent")
}

func renderMessage(order OrderSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s\n\n", order.OrderNumber)
	fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName)
	fmt.Fprintf(&b, "Phone: %s\n", order.Phone)
	fmt.Fprintf(&b, "Address: %s, %s, %s\n", order.Address, order.City, order.Region)
	fmt.Fprintf(&b, "Payment: %s\n\n", order.PaymentMethod)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s x%d = %s\n", item.Name, item.Quantity, item.Subtotal)
	}
	if order.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", order.Notes)
	}
	fmt.Fprintf(&b, "\nTotal: %s", order.Total)
	return b.String()
}

// NopNotifier drops every notification. Used when the side-channel is not
// configured at all.
type NopNotifier struct{}

func (NopNotifier) Dispatch(context.Context, OrderSummary) {}
