package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	approvalPostgres "github.com/frahmantamala/expense-approval/internal/approval/postgres"
	"github.com/frahmantamala/expense-approval/internal/approvalrule"
	approvalrulePostgres "github.com/frahmantamala/expense-approval/internal/approvalrule/postgres"
	"github.com/frahmantamala/expense-approval/internal/auth"
	authPostgres "github.com/frahmantamala/expense-approval/internal/auth/postgres"
	"github.com/frahmantamala/expense-approval/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-approval/internal/category/postgres"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-approval/internal/expense/postgres"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/internal/transport/middleware"
	"github.com/frahmantamala/expense-approval/internal/transport/rest"
	"github.com/frahmantamala/expense-approval/internal/user"
	userPostgres "github.com/frahmantamala/expense-approval/internal/user/postgres"
	"github.com/frahmantamala/expense-approval/internal/workflow"
	workflowPostgres "github.com/frahmantamala/expense-approval/internal/workflow/postgres"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/frahmantamala/expense-approval/pkg/tracing"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const serviceVersion = "1.0.0"

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Redis  *redis.Client
	Bus    *events.EventBus
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		deps.Logger.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.close(ctx)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func (d *Dependencies) close(ctx context.Context) {
	if err := d.Bus.Drain(ctx); err != nil {
		d.Logger.Warn("event handlers still running at shutdown", "error", err)
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
	if err := tracing.Shutdown(ctx); err != nil {
		d.Logger.Error("Tracer shutdown error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger
	base := transport.NewBaseHandler(lg)
	policy := auth.NewExpensePolicy()

	// repositories
	authRepo := authPostgres.NewRepository(deps.Gorm)
	userRepo := userPostgres.NewRepository(deps.Gorm)
	categoryRepo := categoryPostgres.NewCategoryRepository(deps.Gorm)
	ruleRepo := approvalrulePostgres.NewRuleRepository(deps.Gorm)
	expenseRepo := expensePostgres.NewExpenseRepository(deps.Gorm)
	requestRepo := approvalPostgres.NewRequestRepository(deps.Gorm)
	inbox := approvalPostgres.NewInboxReader(deps.DB)

	// services
	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGen, lg)
	userService := user.NewService(userRepo, lg)
	categoryService := category.NewService(categoryRepo, lg)
	ruleService := approvalrule.NewService(ruleRepo, userService, categoryService, lg)
	expenseService := expense.NewService(expenseRepo, requestRepo, userService, policy, lg)
	workflowService := workflow.NewService(
		workflowPostgres.NewGormUoW(deps.Gorm),
		userService,
		categoryService,
		inbox,
		policy,
		deps.Bus,
		lg,
	)

	opts := rest.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SpecPath:       cfg.OpenAPI.SpecPath,
	}
	if cfg.OpenAPI.ValidateRequests {
		doc, err := middleware.LoadOpenAPI(context.Background(), cfg.OpenAPI.SpecPath)
		if err != nil {
			return err
		}
		validator, err := middleware.OpenAPIValidator(doc)
		if err != nil {
			return fmt.Errorf("build openapi router: %w", err)
		}
		opts.Validator = validator
	}
	if cfg.Idempotency.Enabled {
		opts.Idempotency = middleware.Idempotency(deps.Redis, cfg.Idempotency.TTL)
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimit = middleware.RateLimit(deps.Redis, "api", cfg.RateLimit.APIRequests, cfg.RateLimit.APIWindow)
		opts.LoginRateLimit = middleware.RateLimit(deps.Redis, "login", cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow)
	}

	var healthRedis redis.Cmdable
	if deps.Redis != nil {
		healthRedis = deps.Redis
	}

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Health:   rest.NewHealthHandler(deps.DB.DB, healthRedis),
		Auth:     auth.NewHandler(base, authService),
		User:     user.NewHandler(base, userService),
		Category: category.NewHandler(base, categoryService),
		Expense:  expense.NewHandler(base, expenseService, workflowService),
		Workflow: workflow.NewHandler(base, workflowService),
		Rules:    approvalrule.NewHandler(base, ruleService),
	}, opts, lg)

	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)

	if t := config.Observability.Tracing; t.Enabled {
		if err := tracing.Init(t.ServiceName, serviceVersion, t.OutputFile); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	var rdb *redis.Client
	if config.RedisRequired() {
		rdb, err = initRedis(config.Redis)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
	}

	bus := events.NewEventBus(lg)
	events.SubscribeAuditLog(bus, lg)

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Gorm:   gdb,
		Redis:  rdb,
		Bus:    bus,
		Router: chi.NewRouter(),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm so both see one set of connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
}

func initRedis(cfg internal.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}
