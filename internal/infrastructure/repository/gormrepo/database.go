package gormrepo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrops-br/products-inventory-api/internal/infrastructure/config"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database wraps the GORM handle together with the driver it was opened with
type Database struct {
	DB     *gorm.DB
	Driver string
}

// Open connects to the configured SQL store. The tracer provider may be nil
// when statement tracing is disabled.
func Open(cfg *config.DatabaseConfig, logger *slog.Logger, tp trace.TracerProvider) (*Database, error) {
	dialector, err := newDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         telemetry.NewGormLogger(logger, telemetry.MapGormLogLevel(cfg.LogLevel), cfg.SlowThreshold),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// sqlite serialises writers, a single connection avoids "database is locked"
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if cfg.TraceEnabled && tp != nil {
		if err := telemetry.RegisterDBTracing(db, tp, cfg.Driver); err != nil {
			return nil, err
		}
	}

	logger.Info("Database connection established",
		slog.String("driver", cfg.Driver),
	)

	return &Database{DB: db, Driver: cfg.Driver}, nil
}

func newDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates or updates the products table, its indexes and checks
func (d *Database) Migrate(ctx context.Context) error {
	if err := d.DB.WithContext(ctx).AutoMigrate(&productRecord{}); err != nil {
		return fmt.Errorf("failed to migrate products table: %w", err)
	}
	return nil
}

// Ping checks that the store is reachable
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
