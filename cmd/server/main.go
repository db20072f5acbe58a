package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/cache"
	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/handlers"
	"github.com/diewo77/go-crm/internal/logging"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/variables"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "crm",
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	ctx := logger.WithContext(context.Background())

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if *migrateOnlyFlag {
		if err := migrate(cfg, dbConn); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed successfully")
		return
	}
	if *seedOnlyFlag {
		if err := db.Seed(dbConn); err != nil {
			logger.Fatal().Err(err).Msg("seeding failed")
		}
		logger.Info().Msg("seeding completed successfully")
		return
	}

	if cfg.App.Migrations || cfg.App.SQLMigrations {
		if err := migrate(cfg, dbConn); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")
	}
	if cfg.App.Seed {
		if err := db.Seed(dbConn); err != nil {
			logger.Fatal().Err(err).Msg("seeding failed")
		}
	}

	store, err := openCache(cfg.Cache)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to cache")
	}
	defer store.Close()

	catalog, err := loadCatalog(cfg.Documents.CatalogFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load variable catalog")
	}
	logger.Info().Int("variables", catalog.Len()).Msg("variable catalog loaded")

	auth.SetSecret(cfg.Auth.SessionSecret)
	auth.SetResolver(policy.IdentityResolver(dbConn))

	routerCfg := handlers.NewRouterConfig(dbConn, store, catalog, handlers.Options{
		ProfileCacheTTL:          cfg.Auth.ProfileCacheTTL,
		AnalysisTTL:              cfg.Cache.AnalysisTTL,
		EnforceRequiredDocuments: cfg.Documents.EnforceRequiredDocuments,
		DefaultCurrency:          cfg.Documents.DefaultCurrency,
	})
	app := NewApp(routerCfg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go app.runOverdueWorker(workerCtx, cfg.App.OverdueInterval, logger)

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Bool("dev", cfg.App.Dev).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")
	stopWorker()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
	logger.Info().Msg("server stopped gracefully")
}

// migrate runs the versioned SQL migrations when enabled, AutoMigrate otherwise.
func migrate(cfg *config.Config, conn *gorm.DB) error {
	if cfg.App.SQLMigrations {
		return db.RunSQLMigrations(cfg.Database.URL())
	}
	return db.Migrate(conn)
}

// openCache uses Redis when an address is configured.
func openCache(cfg config.CacheConfig) (cache.Client, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryClient(cfg.MaxEntries), nil
	}
	rc, err := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.Prefix,
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func loadCatalog(path string) (*variables.Catalog, error) {
	if path == "" {
		return variables.DefaultCatalog(), nil
	}
	return variables.LoadCatalog(path)
}
