package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "user_management/docs"
	"user_management/internal/config"
	"user_management/internal/handlers"
	"user_management/internal/logger"
	"user_management/internal/observability"
	"user_management/internal/repository"
	"user_management/internal/repository/db"
	"user_management/internal/security"
	"user_management/internal/server"
	"user_management/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

// @title        User Management API
// @version      1.0
// @description  Create, read, update and delete users with salted password hashes.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	hasher := security.NewHasher(security.DefaultParams)

	repos, closeDB, err := openRepository(cfg.DB, hasher, prom, log)
	if err != nil {
		log.Fatalw("failed to open storage", "driver", cfg.DB.Driver, "err", err)
	}
	defer closeDB()

	tokens, err := tokenConfig(cfg.Auth, log)
	if err != nil {
		log.Fatalw("failed to prepare signing key", "err", err)
	}

	services := service.NewService(repos, hasher, tokens)
	if err := bootstrapAdmin(services, cfg.Auth, log); err != nil {
		log.Fatalw("failed to ensure bootstrap admin", "err", err)
	}
	apiHandler := handlers.NewHandler(services, log,
		handlers.WithMetrics(prom),
		handlers.WithAuthRequired(cfg.Auth.Required),
		handlers.WithRequestTimeout(cfg.HTTP.RequestTimeout),
	)

	srv := server.New(cfg.HTTP.RequestTimeout)
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	waitForShutdown(srv, log)
}

// openRepository wires the configured store. The returned func releases it.
func openRepository(cfg config.DB, hasher security.Hasher, prom *observability.Prom, log *logger.Logger) (*repository.Repository, func(), error) {
	if cfg.Driver == config.DriverMemory {
		log.Warnw("using in-memory storage; data is lost on restart")
		return repository.NewMemoryRepository(hasher, log), func() {}, nil
	}

	dialect, err := repository.DialectFor(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Infow("storage ready", "driver", cfg.Driver, "host", cfg.Host, "database", cfg.Database)

	return repository.NewRepository(conn, dialect, hasher, prom, log), func() { closeDB(conn, log) }, nil
}

func closeDB(conn *sql.DB, log *logger.Logger) {
	if err := conn.Close(); err != nil {
		log.Errorw("failed to close db", "err", err)
	}
}

func tokenConfig(cfg config.Auth, log *logger.Logger) (service.TokenConfig, error) {
	key := []byte(cfg.SigningKey)
	if len(key) == 0 {
		var err error
		if key, err = service.EphemeralSigningKey(); err != nil {
			return service.TokenConfig{}, err
		}
		log.Warnw("AUTH_SIGNING_KEY not set; tokens will not survive a restart")
	}
	return service.TokenConfig{SigningKey: key, TTL: cfg.TokenTTL}, nil
}

// bootstrapAdmin creates the configured admin. With auth required and no
// admin configured, only an existing admin can create users.
func bootstrapAdmin(services *service.Service, cfg config.Auth, log *logger.Logger) error {
	acc := service.AdminAccount{Username: cfg.AdminUsername, Password: cfg.AdminPassword}
	if cfg.Required && acc.Username == "" {
		log.Warnw("AUTH_REQUIRED is set without AUTH_ADMIN_USERNAME; an empty store cannot be written to")
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	return service.EnsureAdmin(ctx, services.UserManager, acc, log)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http server listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks until SIGINT/SIGTERM and lets in-flight requests finish.
func waitForShutdown(srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
