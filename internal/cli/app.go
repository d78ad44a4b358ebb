package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mrops-br/products-inventory-api/internal/domain"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/config"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/repository/gormrepo"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/repository/memory"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/telemetry"
)

const instrumentationName = "products-api"

// application holds the process wide dependencies every command needs
type application struct {
	cfg    *config.Config
	telem  *telemetry.Telemetry
	logger *slog.Logger
	db     *gormrepo.Database
	repo   domain.ProductRepository
}

func newTelemetry(cfg *config.Config) (*telemetry.Telemetry, error) {
	if cfg.OTLP.Enabled {
		return telemetry.NewTelemetry(&cfg.OTLP, &cfg.Log)
	}
	return telemetry.NewNoOpTelemetry(&cfg.OTLP, &cfg.Log)
}

// bootstrap loads config, starts telemetry and opens the product store.
// migrate forces schema migration regardless of DB_AUTO_MIGRATE.
func bootstrap(ctx context.Context, migrate bool) (*application, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	telem, err := newTelemetry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	app := &application{
		cfg:    cfg,
		telem:  telem,
		logger: telem.Logger,
	}
	tracer := telem.TracerProvider.Tracer(instrumentationName)

	if cfg.Database.Driver == "memory" {
		app.repo = memory.NewProductRepository(tracer, app.logger)
		return app, nil
	}

	db, err := gormrepo.Open(&cfg.Database, app.logger, telem.TracerProvider)
	if err != nil {
		_ = app.close(ctx)
		return nil, err
	}
	app.db = db

	if migrate || cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			_ = app.close(ctx)
			return nil, err
		}
		app.logger.Info("Database schema migrated")
	}

	app.repo = gormrepo.NewProductRepository(db.DB, tracer, app.logger)
	return app, nil
}

// close releases the store and flushes telemetry
func (a *application) close(ctx context.Context) error {
	var errs []error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	if err := a.telem.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown telemetry: %w", err))
	}
	return errors.Join(errs...)
}
