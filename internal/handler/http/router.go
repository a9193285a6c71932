package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oakmart/storefront/pkg/health"
	"github.com/oakmart/storefront/pkg/middleware"

	"github.com/oakmart/storefront/internal/auth"
	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/service"
)

// Services bundles the service-layer dependencies of the router.
type Services struct {
	Auth     *service.AuthService
	Product  *service.ProductService
	Cart     *service.CartService
	Discount *service.DiscountService
	Checkout *service.CheckoutService
	Order    *service.OrderService
	Review   *service.ReviewService
}

// NewRouter creates a chi router with all storefront routes registered.
// Pprof endpoints are mounted only when pprofCIDRs is non-empty.
func NewRouter(
	services Services,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))

	// Health and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if len(pprofCIDRs) > 0 {
		middleware.RegisterPprof(r, pprofCIDRs, logger)
	}

	// Token validator bridging to the internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}

	authHandler := NewAuthHandler(services.Auth, logger)
	productHandler := NewProductHandler(services.Product, logger)
	cartHandler := NewCartHandler(services.Cart, logger)
	discountHandler := NewDiscountHandler(services.Discount, logger)
	orderHandler := NewOrderHandler(services.Checkout, services.Order, logger)
	reviewHandler := NewReviewHandler(services.Review, logger)

	// Auth endpoints (public)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
	})

	// Catalog endpoints (public reads, admin writes)
	r.Route("/api/products", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(60))

			r.Get("/", productHandler.List)
			r.Get("/search", productHandler.Search)
			r.Get("/categories", productHandler.Categories)
			r.Get("/{id}", productHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Use(middleware.RequireRole(domain.RoleAdmin))

			r.Post("/", productHandler.Create)
			r.Put("/{id}", productHandler.Update)
			r.Delete("/{id}", productHandler.Delete)
		})
	})

	// Cart endpoints (auth required)
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/", cartHandler.Get)
		r.Post("/add", cartHandler.Add)
		r.Put("/update/{productId}", cartHandler.Update)
		r.Delete("/remove/{productId}", cartHandler.Remove)
	})

	// Discount endpoints (validation for users, CRUD for admins)
	r.Route("/api/discount", func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/validate", discountHandler.Validate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))

			r.Post("/", discountHandler.Create)
			r.Get("/", discountHandler.List)
			r.Get("/{id}", discountHandler.Get)
			r.Put("/{id}", discountHandler.Update)
			r.Delete("/{id}", discountHandler.Delete)
		})
	})

	// Checkout and order endpoints (auth required)
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/", orderHandler.Checkout)
		r.Get("/", orderHandler.List)
		r.Get("/{id}", orderHandler.Get)
	})

	// Review endpoints (public product reads, auth for the rest)
	r.Route("/api/review", func(r chi.Router) {
		r.Get("/product/{productId}", reviewHandler.ListByProduct)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.Post("/product/{productId}", reviewHandler.Create)
			r.Get("/user/me", reviewHandler.ListMine)
			r.Put("/{reviewId}", reviewHandler.Update)
			r.Delete("/{reviewId}", reviewHandler.Delete)
		})
	})

	return r
}
