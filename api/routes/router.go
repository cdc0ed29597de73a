package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Muhammad3111/elektromart-backend/api/controllers"
	"github.com/Muhammad3111/elektromart-backend/api/middleware"
	authsvc "github.com/Muhammad3111/elektromart-backend/internal/auth"
	"github.com/Muhammad3111/elektromart-backend/internal/cart"
	checkoutsvc "github.com/Muhammad3111/elektromart-backend/internal/checkout"
	"github.com/Muhammad3111/elektromart-backend/internal/orders"
	"github.com/Muhammad3111/elektromart-backend/internal/products"
	"github.com/Muhammad3111/elektromart-backend/internal/users"
	"github.com/Muhammad3111/elektromart-backend/pkg/auth/session"
	"github.com/Muhammad3111/elektromart-backend/pkg/config"
	"github.com/Muhammad3111/elektromart-backend/pkg/logger"
	"github.com/Muhammad3111/elektromart-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	Auth     authsvc.Service
	Users    *users.Repository
	Products products.Service
	Cart     cart.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.Login(deps.Auth, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/register", controllers.Register(deps.Auth, logg))
		r.Post("/refresh", controllers.Refresh(deps.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).
			Post("/logout", controllers.Logout(deps.Auth, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.Products, logg))
		r.Get("/{id}", controllers.GetProduct(deps.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.RequireAdmin(logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))
			r.Post("/", controllers.CreateProduct(deps.Products, logg))
			r.Patch("/{id}", controllers.UpdateProduct(deps.Products, logg))
			r.Delete("/{id}", controllers.DeactivateProduct(deps.Products, logg))
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Get("/me", controllers.Me(deps.Users, logg))
		r.Put("/me", controllers.UpdateMe(deps.Users, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Get("/", controllers.GetCart(deps.Cart, logg))
		r.Post("/items", controllers.AddCartItem(deps.Cart, logg))
		r.Patch("/items/{productID}", controllers.UpdateCartItem(deps.Cart, logg))
		r.Delete("/items/{productID}", controllers.RemoveCartItem(deps.Cart, logg))
		r.Delete("/", controllers.ClearCart(deps.Cart, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		// Guests submit orders too, so auth is optional on the create path.
		r.With(
			middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/", controllers.SubmitOrder(deps.Checkout, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Get("/my-orders", controllers.MyOrders(deps.Orders, logg))
			r.Get("/{id}", controllers.GetOrder(deps.Orders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.RequireAdmin(logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.With(middleware.Idempotency(deps.Redis, logg)).
				Patch("/{id}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
		})
	})

	return r
}
