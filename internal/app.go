// internal/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	router "wallet-ledger/internal/api"
	"wallet-ledger/internal/api/handler"
	"wallet-ledger/internal/config"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/repository/postgres"
	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
	"wallet-ledger/pkg/ratelimit"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client // Nil when rate limiting is disabled

	// Repositories
	UserRepository       repository.UserRepository
	BalanceRepository    repository.BalanceRepository
	WithdrawalRepository repository.WithdrawalRepository
	AuditLogRepository   repository.AuditLogRepository

	// Services
	AuthService       service.AuthService
	WalletService     service.WalletService
	WithdrawalService service.WithdrawalService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
// Until Initialize configures logging, errors go to a bootstrap production logger.
func NewApplication() *Application {
	bootstrap, err := zap.NewProduction()
	if err != nil {
		bootstrap = util.GetLogger()
	}
	return &Application{Logger: bootstrap}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	if err := util.InitLogger(cfg.LogLevel, cfg.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.", zap.String("env", cfg.Env))

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if app.Config.DB.AutoMigrate {
		applied, err := db.RunMigrations(app.Config.DB.URL())
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		app.Logger.Info("Database migrations checked.", zap.Bool("applied", applied))
	}

	// 4. Initialize Repositories
	app.UserRepository = postgres.NewUserRepository(app.DB)
	app.BalanceRepository = postgres.NewBalanceRepository(app.DB)
	app.WithdrawalRepository = postgres.NewWithdrawalRepository(app.DB)
	app.AuditLogRepository = postgres.NewAuditLogRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 5. Initialize Services
	app.AuthService = service.NewAuthService(app.DB, app.UserRepository, app.Config.JWTSecret, app.Config.JWTTTL)
	// Pass the concrete db.BeginTx, db.CommitTx, db.RollbackTx functions from pkg/db
	app.WalletService = service.NewWalletService(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		app.BalanceRepository,
		app.AuditLogRepository,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
	)
	app.WithdrawalService = service.NewWithdrawalService(
		app.DB,
		app.DB,
		app.WithdrawalRepository,
		app.BalanceRepository,
		app.AuditLogRepository,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Logger,
	)
	app.Logger.Info("Services initialized.")

	// 6. Initialize HTTP Handlers and Router
	routerCfg := router.RouterConfig{
		AuthHandler:       handler.NewAuthHandler(app.AuthService, app.Logger),
		WalletHandler:     handler.NewWalletHandler(app.WalletService, app.Logger),
		WithdrawalHandler: handler.NewWithdrawalHandler(app.WithdrawalService, app.Logger),
		JWTSecret:         app.Config.JWTSecret,
		OwnerVerifier:     app.AuthService,
		Logger:            app.Logger,
	}
	if err := app.initRateLimits(ctx, &routerCfg); err != nil {
		return err
	}
	app.HTTPHandler = router.NewRouter(routerCfg)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// initRateLimits connects to Redis and builds the request limiters when configured.
// An unreachable Redis is logged; the limiters then let requests through.
func (app *Application) initRateLimits(ctx context.Context, routerCfg *router.RouterConfig) error {
	rl := app.Config.RateLimit
	if !rl.Enabled() {
		app.Logger.Info("Rate limiting disabled: REDIS_ADDR is not set.")
		return nil
	}

	app.Redis = redis.NewClient(&redis.Options{
		Addr:     rl.RedisAddr,
		Password: rl.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := app.Redis.Ping(pingCtx).Err(); err != nil {
		app.Logger.Warn("Redis is unreachable, rate limits will fail open", zap.String("addr", rl.RedisAddr), zap.Error(err))
	}

	general, err := ratelimit.NewRedisLimiter(app.Redis, "general", rl.General, rl.Window)
	if err != nil {
		return fmt.Errorf("failed to create general rate limiter: %w", err)
	}
	withdrawals, err := ratelimit.NewRedisLimiter(app.Redis, "withdrawals", rl.Withdrawals, rl.Window)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal rate limiter: %w", err)
	}
	routerCfg.GeneralLimiter = general
	routerCfg.WithdrawalLimiter = withdrawals
	app.Logger.Info("Rate limiting enabled.",
		zap.Int("general", rl.General),
		zap.Int("withdrawals", rl.Withdrawals),
		zap.Duration("window", rl.Window))
	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	var errs []error
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		} else {
			app.Logger.Info("Database connection closed.")
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	app.Logger.Info("Application shut down gracefully.")
	_ = app.Logger.Sync()
	return nil
}
