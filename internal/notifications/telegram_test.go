package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Muhammad3111/elektromart-backend/pkg/config"
	"github.com/Muhammad3111/elektromart-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testSummary() OrderSummary {
	return OrderSummary{
		OrderNumber:   "EM-20250901-0001",
		CustomerName:  "Aziz Karimov",
		Phone:         "+998901234567",
		Address:       "Amir Temur 12",
		City:          "Tashkent",
		Region:        "Tashkent",
		PaymentMethod: "cash",
		Total:         "90,000",
		Items: []LineSummary{
			{Name: "Drill", Quantity: 2, Subtotal: "90,000"},
		},
	}
}

func buildNotifier(t *testing.T, baseURL string) Notifier {
	t.Helper()
	notifier, err := NewTelegramNotifier(config.TelegramConfig{
		BotToken: "bot-token",
		ChatID:   "-100200300",
		BaseURL:  baseURL,
		Timeout:  2 * time.Second,
	}, testLogger(), nil)
	if err != nil {
		t.Fatalf("build notifier: %v", err)
	}
	return notifier
}

func TestDispatchSendsMessage(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	notifier := buildNotifier(t, server.URL)
	notifier.Dispatch(context.Background(), testSummary())

	if gotPath != "/botbot-token/sendMessage" {
		t.Fatalf("got path %q", gotPath)
	}
	if gotBody.ChatID != "-100200300" {
		t.Fatalf("got chat id %q", gotBody.ChatID)
	}
	for _, want := range []string{"EM-20250901-0001", "Aziz Karimov", "+998901234567", "Drill x2 = 90,000", "Total: 90,000"} {
		if !strings.Contains(gotBody.Text, want) {
			t.Fatalf("message missing %q:\n%s", want, gotBody.Text)
		}
	}
}

func TestDispatchSwallowsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := buildNotifier(t, server.URL)

	// Must return without surfacing anything; there is no error to assert on.
	notifier.Dispatch(context.Background(), testSummary())
}

func TestDispatchSwallowsConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	notifier := buildNotifier(t, server.URL)
	notifier.Dispatch(context.Background(), testSummary())
}

func TestDispatchSkipsWhenUnconfigured(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	notifier, err := NewTelegramNotifier(config.TelegramConfig{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	}, testLogger(), nil)
	if err != nil {
		t.Fatalf("build notifier: %v", err)
	}

	notifier.Dispatch(context.Background(), testSummary())
	if called {
		t.Fatalf("unconfigured notifier must not call the API")
	}
}

func TestRenderMessage(t *testing.T) {
	text := renderMessage(testSummary())
	lines := strings.Split(text, "\n")
	if lines[0] != "New order EM-20250901-0001" {
		t.Fatalf("got first line %q", lines[0])
	}
	if !strings.HasSuffix(text, "Total: 90,000") {
		t.Fatalf("got message %q", text)
	}
	if strings.Contains(text, "Notes:") {
		t.Fatalf("notes section rendered for empty notes")
	}

	withNotes := testSummary()
	withNotes.Notes = "call before delivery"
	if !strings.Contains(renderMessage(withNotes), "Notes: call before delivery") {
		t.Fatalf("notes missing from message")
	}
}
