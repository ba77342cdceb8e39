package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpapi "github.com/aussiebroadwan/mcpauth/internal/auth/http"
	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/mcpauth/pkg/cryptox"
	"github.com/aussiebroadwan/mcpauth/pkg/slogx"
	"github.com/aussiebroadwan/mcpauth/pkg/telemetry"
)

// BuildVersion is overridden at build time:
//
//	go build -ldflags "-X github.com/aussiebroadwan/mcpauth/internal/auth/app.BuildVersion=v1.2.3"
var BuildVersion = "v0.1.0"

// Application encapsulates the authorization server with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db        store.Store
	telemetry *telemetry.Provider
	metrics   *telemetry.Metrics
	hasher    cryptox.SecretHasher

	// Services
	clientService       *service.ClientService
	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

func newLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: httpapi.ServiceName,
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		logger: newLogger(cfg),
	}

	provider, err := telemetry.New(telemetry.Config{
		Enabled:               cfg.MetricsEnabled,
		IncludeRuntimeMetrics: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	app.telemetry = provider

	app.metrics, err = telemetry.NewMetrics(provider.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.SecretHasher{Pepper: pepper}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	app.initServices()

	if cfg.SeedTestClient {
		if err := app.clientService.SeedTestClient(ctx); err != nil {
			_ = app.db.Close()
			return nil, fmt.Errorf("failed to seed test client: %w", err)
		}
		app.logger.Info("test client seeded", "client_id", service.TestClientID)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until ctx is cancelled or the server
// fails, then shuts down gracefully.
func (app *Application) Run(ctx context.Context) error {
	app.housekeepingService.Start()

	app.logger.Info("authorization server starting",
		"port", app.cfg.Port,
		"base_url", app.cfg.BaseURL,
		"store_driver", app.cfg.StoreDriver,
		"version", BuildVersion,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	}

	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down authorization server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.telemetry.Shutdown(ctx); err != nil {
		app.logger.Error("error shutting down telemetry", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("authorization server stopped")
	return nil
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	db, err := openStore(ctx, app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", app.cfg.StoreDriver, err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply store migrations: %w", err)
	}

	app.logger.Info("store ready", "driver", app.cfg.StoreDriver)
	return nil
}

// openStore connects the driver selected by cfg.StoreDriver.
func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case DriverSQLite:
		return sqlite.NewStore(sqlite.FileDSN(cfg.DatabaseFile))
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case DriverRedis:
		return redis.NewStore(ctx, redis.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.clientService = &service.ClientService{
		Store:   app.db,
		Hasher:  app.hasher,
		Metrics: app.metrics,
	}
	app.authorizeService = &service.AuthorizeService{
		Store:   app.db,
		CodeTTL: app.cfg.CodeTTL,
		Metrics: app.metrics,
	}
	app.tokenService = &service.TokenService{
		Store:    app.db,
		Hasher:   app.hasher,
		TokenTTL: app.cfg.TokenTTL,
		Metrics:  app.metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Metrics = app.metrics
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		BaseURL:         app.cfg.BaseURL,
		Environment:     app.cfg.Env,
		BuildVersion:    BuildVersion,
		StoreDriver:     app.cfg.StoreDriver,
		ScopesSupported: app.cfg.ScopesSupported,
		RateLimits:      app.cfg.RateLimits,
		CORSOrigins:     app.cfg.CORSOrigins,
		MCPEnabled:      app.cfg.MCPEnabled,
		MetricsHandler:  app.telemetry.Handler(),
	}, app.db, app.logger)

	// Wire services to router
	router.Metrics = app.metrics
	router.ClientService = app.clientService
	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Handler exposes the routed HTTP surface without starting a listener.
func (app *Application) Handler() http.Handler { return app.router }
