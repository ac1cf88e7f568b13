// internal/api/router.go
package api

import (
	"net/http"

	"wallet-ledger/internal/api/handler"
	"wallet-ledger/internal/api/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig carries the handlers and cross-cutting dependencies of the HTTP API.
// GeneralLimiter and WithdrawalLimiter are optional; nil disables that limit.
// OwnerVerifier rejects unknown or inactive owners on authenticated routes.
type RouterConfig struct {
	AuthHandler       *handler.AuthHandler
	WalletHandler     *handler.WalletHandler
	WithdrawalHandler *handler.WithdrawalHandler
	JWTSecret         string
	OwnerVerifier     middleware.OwnerVerifier
	GeneralLimiter    middleware.Limiter
	WithdrawalLimiter middleware.Limiter
	Logger            *zap.Logger
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middlewares
	r.Use(chimiddleware.RequestID)                       // Add a request ID to the context
	r.Use(chimiddleware.RealIP)                          // Use the real IP address
	r.Use(middleware.RequestLogger(logger))              // Log HTTP requests
	r.Use(chimiddleware.Recoverer)                       // Recover from panics and return 500
	r.Use(chimiddleware.Timeout(handler.DefaultTimeout)) // Set a default timeout for requests
	if cfg.GeneralLimiter != nil {
		r.Use(middleware.RateLimit(cfg.GeneralLimiter, middleware.ByClientIP, logger))
	}

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Public auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret, cfg.OwnerVerifier, logger))

		// Wallet API routes
		r.Route("/wallets", func(r chi.Router) {
			r.Get("/", cfg.WalletHandler.GetBalance)
			r.Post("/deposit", cfg.WalletHandler.Deposit)
			r.Get("/transactions", cfg.WalletHandler.GetTransactionHistory)
		})

		// Withdrawals carry a stricter per-owner limit
		r.Route("/withdrawals", func(r chi.Router) {
			if cfg.WithdrawalLimiter != nil {
				r.Use(middleware.RateLimit(cfg.WithdrawalLimiter, middleware.ByOwner, logger))
			}
			r.Post("/", cfg.WithdrawalHandler.CreateWithdrawal)
			r.Get("/{withdrawalID}", cfg.WithdrawalHandler.GetWithdrawal)
		})
	})

	return r
}
