package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/Muhammad3111/elektromart-backend/pkg/auth"
	"github.com/Muhammad3111/elektromart-backend/pkg/config"
)

type stubSessionChecker struct {
	active bool
}

func (s stubSessionChecker) HasSession(_ context.Context, _ string) (bool, error) {
	return s.active, nil
}

func authTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "elektromart",
		ExpirationMinutes: 30,
	}
}

func mintTestToken(t *testing.T, role string) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(authTestConfig(), time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    "session-1",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token, userID
}

func TestAuthSeedsContext(t *testing.T) {
	token, userID := mintTestToken(t, pkgauth.RoleCustomer)
	mw := Auth(authTestConfig(), stubSessionChecker{active: true}, nil)

	var gotUserID, gotRole, gotJTI string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		gotJTI = AccessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotUserID != userID.String() {
		t.Fatalf("got user id %q", gotUserID)
	}
	if gotRole != pkgauth.RoleCustomer {
		t.Fatalf("got role %q", gotRole)
	}
	if gotJTI != "session-1" {
		t.Fatalf("got jti %q", gotJTI)
	}
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	mw := Auth(authTestConfig(), stubSessionChecker{active: true}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp = httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	token, _ := mintTestToken(t, pkgauth.RoleCustomer)
	mw := Auth(authTestConfig(), stubSessionChecker{active: false}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	mw := OptionalAuth(authTestConfig(), stubSessionChecker{active: true}, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if UserIDFromContext(r.Context()) != "" {
			t.Fatalf("anonymous request must not carry a user id")
		}
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if !handlerCalled || resp.Code != http.StatusCreated {
		t.Fatalf("expected anonymous pass-through, got %d", resp.Code)
	}
}

func TestOptionalAuthRejectsGarbageToken(t *testing.T) {
	mw := OptionalAuth(authTestConfig(), stubSessionChecker{active: true}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer junk")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	mw := RequireAdmin(nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req = req.WithContext(WithRole(req.Context(), pkgauth.RoleAdmin))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("admin: expected 200 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req = req.WithContext(WithRole(req.Context(), pkgauth.RoleCustomer))
	resp = httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("customer: expected 403 got %d", resp.Code)
	}
}
