package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Muhammad3111/elektromart-backend/internal/users"
	pkgauth "github.com/Muhammad3111/elektromart-backend/pkg/auth"
	"github.com/Muhammad3111/elektromart-backend/pkg/config"
	"github.com/Muhammad3111/elektromart-backend/pkg/db/models"
	pkgerrors "github.com/Muhammad3111/elektromart-backend/pkg/errors"
	"github.com/Muhammad3111/elektromart-backend/pkg/security"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
	created []users.CreateUserDTO
}

func newStubUserRepo(existing ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{
		byEmail: make(map[string]*models.User),
		byID:    make(map[uuid.UUID]*models.User),
	}
	for _, user := range existing {
		repo.byEmail[user.Email] = user
		repo.byID[user.ID] = user
	}
	return repo
}

func (s *stubUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	s.created = append(s.created, dto)
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

type stubSessionManager struct {
	generated []string
	revoked   []string
	rotatedTo string
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-token", nil
}

func (s *stubSessionManager) Rotate(_ context.Context, _, _ string) (string, string, error) {
	s.rotatedTo = uuid.NewString()
	return s.rotatedTo, "rotated-refresh-token", nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "elektromart",
		ExpirationMinutes: 30,
	}
}

func buildAuthService(t *testing.T, repo *stubUserRepo) (Service, *stubSessionManager) {
	t.Helper()
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func TestRegisterCreatesCustomer(t *testing.T) {
	repo := newStubUserRepo()
	svc, sessions := buildAuthService(t, repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Aziz",
		LastName:  "Karimov",
		Email:     "Aziz@Example.com",
		Password:  "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one created user")
	}
	if repo.created[0].Email != "aziz@example.com" {
		t.Fatalf("email not lowercased: %q", repo.created[0].Email)
	}
	if repo.created[0].Role != pkgauth.RoleCustomer {
		t.Fatalf("got role %q", repo.created[0].Role)
	}
	if resp.User.Role != pkgauth.RoleCustomer {
		t.Fatalf("response role %q", resp.User.Role)
	}
	if resp.RefreshToken == "" || resp.AccessToken == "" {
		t.Fatalf("expected token pair")
	}
	if len(sessions.generated) != 1 {
		t.Fatalf("expected one session")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != pkgauth.RoleCustomer {
		t.Fatalf("claim role %q", claims.Role)
	}
	if claims.ID != sessions.generated[0] {
		t.Fatalf("jti %q does not match stored session %q", claims.ID, sessions.generated[0])
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	existing := &models.User{ID: uuid.New(), Email: "aziz@example.com", Role: pkgauth.RoleCustomer}
	svc, _ := buildAuthService(t, newStubUserRepo(existing))

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Aziz",
		LastName:  "Karimov",
		Email:     "aziz@example.com",
		Password:  "correct-horse",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	password := "correct-horse"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "aziz@example.com",
		PasswordHash: mustHashPassword(t, password),
		FirstName:    "Aziz",
		LastName:     "Karimov",
		Role:         pkgauth.RoleCustomer,
		IsActive:     true,
	}
	svc, _ := buildAuthService(t, newStubUserRepo(user))

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "Aziz@example.com",
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User.Email != user.Email {
		t.Fatalf("got user %q", resp.User.Email)
	}
}

func TestLoginFailures(t *testing.T) {
	password := "correct-horse"
	inactive := &models.User{
		ID:           uuid.New(),
		Email:        "inactive@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         pkgauth.RoleCustomer,
		IsActive:     false,
	}
	svc, _ := buildAuthService(t, newStubUserRepo(inactive))

	cases := []struct {
		name  string
		email string
		pass  string
	}{
		{name: "unknown email", email: "nobody@example.com", pass: password},
		{name: "wrong password", email: inactive.Email, pass: "wrong"},
		{name: "inactive account", email: inactive.Email, pass: password},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), LoginRequest{Email: tc.email, Password: tc.pass})
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected unauthorized, got %v", err)
			}
			// All failure modes must produce the same message.
			if typed.Message() != invalidCredentialsMessage {
				t.Fatalf("got message %q", typed.Message())
			}
		})
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	user := &models.User{
		ID:       uuid.New(),
		Email:    "aziz@example.com",
		Role:     pkgauth.RoleCustomer,
		IsActive: true,
	}
	svc, sessions := buildAuthService(t, newStubUserRepo(user))

	// Expired access tokens are still accepted by refresh.
	expired, err := pkgauth.MintAccessToken(testJWTConfig(), time.Now().Add(-2*time.Hour), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    "old-session",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  expired,
		RefreshToken: "refresh-token",
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if resp.RefreshToken != "rotated-refresh-token" {
		t.Fatalf("got refresh token %q", resp.RefreshToken)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID != sessions.rotatedTo {
		t.Fatalf("new token jti %q, want %q", claims.ID, sessions.rotatedTo)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, sessions := buildAuthService(t, newStubUserRepo())

	if err := svc.Logout(context.Background(), "session-id"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "session-id" {
		t.Fatalf("got revoked %v", sessions.revoked)
	}

	err := svc.Logout(context.Background(), " ")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
