package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cartrescue/cartrescue-backend/api/controllers"
	"github.com/cartrescue/cartrescue-backend/api/middleware"
	authsvc "github.com/cartrescue/cartrescue-backend/internal/auth"
	"github.com/cartrescue/cartrescue-backend/internal/carts"
	"github.com/cartrescue/cartrescue-backend/internal/checkouts"
	"github.com/cartrescue/cartrescue-backend/internal/marketing"
	"github.com/cartrescue/cartrescue-backend/internal/products"
	"github.com/cartrescue/cartrescue-backend/internal/recovery"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type rateLimiterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps bundles everything the HTTP surface needs. The cron worker has its own
// wiring and shares none of this.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          pinger
	Redis       pinger
	RateLimiter rateLimiterStore

	AuthService     *authsvc.Service
	CartService     *carts.Service
	CheckoutService *checkouts.Service
	CheckoutRepo    *checkouts.Repository
	ProductRepo     *products.Repository
	MarketingRepo   *marketing.Repository
	RecoveryService *recovery.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	tokenPolicy := middleware.NewAuthRateLimitPolicy(
		"get-token",
		cfg.AuthRateLimit.TokenWindow,
		cfg.AuthRateLimit.TokenIPLimit,
		cfg.AuthRateLimit.TokenUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(tokenPolicy, deps.RateLimiter, logg)).
			Post("/get-token", controllers.GetToken(deps.AuthService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/abandoned-checkouts", controllers.ListAbandonedCheckouts(deps.CheckoutRepo, deps.ProductRepo, cfg, logg))
		})
	})

	r.Route("/storefront/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.CartService, cfg, logg))
			r.Post("/items", controllers.AddCartItem(deps.CartService, deps.CheckoutService, cfg, logg))
			r.Delete("/items/{productID}", controllers.RemoveCartItem(deps.CartService, deps.CheckoutService, cfg, logg))
			r.Post("/coupons", controllers.ApplyCartCoupon(deps.CartService, deps.CheckoutService, cfg, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/view", controllers.CheckoutView(deps.CheckoutService, logg))
			r.Post("/", controllers.UpdateCheckout(deps.CheckoutService, logg))
			r.Post("/guest-email", controllers.CaptureGuestEmail(deps.CheckoutService, logg))
			r.Post("/complete", controllers.OrderComplete(deps.CheckoutService, deps.MarketingRepo, logg))
		})

		r.Get("/recover-checkout", controllers.RecoverCheckout(deps.RecoveryService, cfg, logg))
	})

	return r
}
