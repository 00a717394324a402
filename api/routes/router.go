package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bazaar-backend/api/controllers"
	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/internal/auth"
	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/reports"
	"github.com/angelmondragon/bazaar-backend/internal/sellers"
	"github.com/angelmondragon/bazaar-backend/internal/verification"
	"github.com/angelmondragon/bazaar-backend/pkg/auth/session"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
)

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// RouterParams carries everything the HTTP surface is wired to. Nil redis
// stores disable rate limiting and idempotency replay.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	Health       map[string]controllers.Pinger
	Metrics      http.Handler
	HTTPMetrics  *metrics.HTTPMetrics
	Sessions     session.AccessSessionChecker
	RateLimits   middleware.RateLimitStore
	Idempotency  idempotencyStore
	Auth         auth.Service
	Cart         cart.Service
	Verification verification.Service
	Sellers      sellers.Service
	Reports      reports.Service
	Orders       orders.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Instrument(p.HTTPMetrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	loginPolicy := middleware.AuthRateLimitPolicy{Name: "login", Window: cfg.RateLimit.Window, IPLimit: cfg.RateLimit.IPLimit, EmailLimit: cfg.RateLimit.EmailLimit}
	signupPolicy := loginPolicy
	signupPolicy.Name = "signup"

	authn := middleware.Auth(cfg.JWT, p.Sessions, logg)
	optionalAuthn := middleware.OptionalAuth(cfg.JWT, p.Sessions, logg)
	idem := func(ttl time.Duration) func(http.Handler) http.Handler {
		return middleware.Idempotency(p.Idempotency, ttl, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Health))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(signupPolicy, p.RateLimits, logg)).Post("/signup", controllers.AuthSignUp(p.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.RateLimits, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
		r.With(authn).Post("/logout", controllers.AuthLogout(p.Auth, logg))
		r.With(optionalAuthn).Get("/me", controllers.AuthMe(p.Auth, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(optionalAuthn)
		r.Get("/", controllers.CartGet(p.Cart, logg))
		r.Post("/items", controllers.CartAddItem(p.Cart, logg))
		r.Patch("/items/{itemId}", controllers.CartUpdateItem(p.Cart, logg))
		r.Delete("/items/{itemId}", controllers.CartRemoveItem(p.Cart, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authn)

		r.Route("/seller/verification", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleSeller))
			r.Use(middleware.SellerContext(logg))
			r.With(idem(middleware.DefaultIdempotencyTTL)).Post("/", controllers.SellerSubmitVerification(p.Verification, logg))
			r.Post("/documents", controllers.SellerUploadVerificationDocument(p.Verification, cfg.GCS.MaxUploadMB, logg))
			r.Get("/latest", controllers.SellerLatestVerification(p.Verification, logg))
		})

		r.With(idem(middleware.CriticalIdempotencyTTL)).Post("/checkout", controllers.CustomerCheckout(p.Orders, p.Cart, p.Auth, logg))
		r.Post("/orders/{id}/confirm-payment", controllers.CustomerConfirmPayment(p.Orders, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(authn)
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

		r.Route("/verification-requests", func(r chi.Router) {
			r.Get("/", controllers.AdminListVerificationRequests(p.Verification, logg))
			r.With(idem(middleware.DefaultIdempotencyTTL)).Post("/{id}/review", controllers.AdminReviewVerificationRequest(p.Verification, logg))
		})

		r.Route("/sellers/{id}", func(r chi.Router) {
			r.Post("/activate", controllers.AdminActivateSeller(p.Sellers, logg))
			r.Post("/deactivate", controllers.AdminDeactivateSeller(p.Sellers, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/commission", controllers.AdminCommissionReport(p.Reports, logg))
			r.Get("/stock", controllers.AdminStockReport(p.Reports, logg))
			r.Get("/seller-sales", controllers.AdminSellerSalesReport(p.Reports, logg))
			r.Get("/wallet", controllers.AdminWalletReport(p.Reports, logg))
		})

		r.Delete("/order-items/{id}", controllers.AdminCancelOrderItem(p.Orders, logg))
		r.Post("/orders/{id}/deliver", controllers.AdminMarkDelivered(p.Orders, logg))
	})

	return r
}
