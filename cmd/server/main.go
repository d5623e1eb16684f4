package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"

	"github.com/HammerMeetNail/repeatapi/internal/config"
	"github.com/HammerMeetNail/repeatapi/internal/database"
	"github.com/HammerMeetNail/repeatapi/internal/handlers"
	"github.com/HammerMeetNail/repeatapi/internal/logging"
	"github.com/HammerMeetNail/repeatapi/internal/middleware"
	"github.com/HammerMeetNail/repeatapi/internal/services"
	"github.com/HammerMeetNail/repeatapi/migrations"
)

const usage = "usage: server [migrate up|down|version]"

type schemaMigrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() error
}

var newMigrator = func(dsn string) (schemaMigrator, error) {
	return database.NewMigrator(dsn, migrations.FS)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		logging.Error("Application error", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
}

func run(args []string) error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", logging.Fields{"env": cfg.Server.Environment})
	}

	if len(args) > 0 {
		if args[0] != "migrate" || len(args) != 2 {
			return errors.New(usage)
		}
		return runMigrations(cfg.Database.DSN(), args[1], logger)
	}

	return serve(cfg, logger)
}

func runMigrations(dsn, action string, logger *logging.Logger) error {
	m, err := newMigrator(dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() { _ = m.Close() }()

	return migrateSchema(m, action, logger)
}

func migrateSchema(m schemaMigrator, action string, logger *logging.Logger) error {
	switch action {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
		logger.Info("Migrations completed")
	case "down":
		if err := m.Down(); err != nil {
			return err
		}
		logger.Info("Migrations rolled back")
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("No migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		logger.Info("Schema version", logging.Fields{"version": version, "dirty": dirty})
	default:
		return fmt.Errorf("unknown migrate action %q: %s", action, usage)
	}
	return nil
}

func serve(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Starting signup server...")

	logger.Info("Connecting to PostgreSQL", logging.Fields{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	logger.Info("Running database migrations...")
	if err := runMigrations(cfg.Database.DSN(), "up", logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("Connecting to Redis", logging.Fields{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	userService := services.NewUserService(services.NewPoolAdapter(db.Pool))
	passwordService := services.NewPasswordService(cfg.Signup.BcryptCost)
	registrationService := services.NewRegistrationService(userService, passwordService)

	signupLimiter := middleware.NewRateLimiter(
		redisDB.Client,
		cfg.Signup.RateLimit,
		cfg.Signup.RateWindow,
		"ratelimit:signup:",
		middleware.ClientIPKey(cfg.Signup.TrustProxy),
	)

	handler := newRouter(cfg, logger, routes{
		registration: handlers.NewRegistrationHandler(registrationService, cfg.Signup.MaxBodyBytes),
		health:       handlers.NewHealthHandler(db, redisDB),
		signupLimit:  signupLimiter,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", logging.Fields{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", logging.Fields{"addr": server.Addr})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

type routes struct {
	registration *handlers.RegistrationHandler
	health       *handlers.HealthHandler
	signupLimit  *middleware.RateLimiter
}

func newRouter(cfg *config.Config, logger *logging.Logger, rt routes) http.Handler {
	mux := http.NewServeMux()

	// Health endpoints (no rate limit)
	mux.HandleFunc("GET /health", rt.health.Health)
	mux.HandleFunc("GET /ready", rt.health.Ready)
	mux.HandleFunc("GET /live", rt.health.Live)

	// Registered without a method so non-POST requests get the JSON answer.
	mux.Handle("/api/signup", rt.signupLimit.Middleware(http.HandlerFunc(rt.registration.Register)))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = middleware.Recover(handler)
	handler = middleware.NewCacheControl().Apply(handler)
	handler = middleware.NewSecurityHeaders(cfg.Server.Secure).Apply(handler)
	handler = middleware.NewRequestLogger(logger).Apply(handler)
	return handler
}
