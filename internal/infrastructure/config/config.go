package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	OTLP     OTLPConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// DurationMetricMS enables the extra millisecond request duration histogram
	DurationMetricMS bool
}

// DatabaseConfig selects and tunes the product store
type DatabaseConfig struct {
	Driver          string // sqlite, postgres or memory
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	LogLevel        string // silent, error, warn, info
	SlowThreshold   time.Duration
	TraceEnabled    bool
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

type OTLPConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Environment string
}

// Address returns host:port for the HTTP listener
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// envBindings keeps the historical variable names working alongside config keys
var envBindings = map[string]string{
	"server.host":                "SERVER_HOST",
	"server.port":                "SERVER_PORT",
	"server.read_timeout":        "SERVER_READ_TIMEOUT",
	"server.write_timeout":       "SERVER_WRITE_TIMEOUT",
	"server.idle_timeout":        "SERVER_IDLE_TIMEOUT",
	"server.shutdown_timeout":    "SERVER_SHUTDOWN_TIMEOUT",
	"server.duration_metric_ms":  "SERVER_DURATION_METRIC_MS",
	"database.driver":            "DB_DRIVER",
	"database.dsn":               "DB_DSN",
	"database.max_open_conns":    "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns":    "DB_MAX_IDLE_CONNS",
	"database.conn_max_lifetime": "DB_CONN_MAX_LIFETIME",
	"database.auto_migrate":      "DB_AUTO_MIGRATE",
	"database.log_level":         "DB_LOG_LEVEL",
	"database.slow_threshold":    "DB_SLOW_THRESHOLD",
	"database.trace_enabled":     "DB_TRACE_ENABLED",
	"log.level":                  "LOG_LEVEL",
	"log.format":                 "LOG_FORMAT",
	"otlp.enabled":               "OTEL_ENABLED",
	"otlp.endpoint":              "OTEL_EXPORTER_OTLP_ENDPOINT",
	"otlp.service_name":          "OTEL_SERVICE_NAME",
	"otlp.environment":           "OTEL_ENVIRONMENT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.duration_metric_ms", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "products.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)
	v.SetDefault("database.trace_enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("otlp.enabled", false)
	v.SetDefault("otlp.endpoint", "localhost:4317")
	v.SetDefault("otlp.service_name", "products-api")
	v.SetDefault("otlp.environment", "development")
}

// LoadConfig loads configuration.
// Priority (highest to lowest): environment variables, the config file
// (explicit path, or config.yaml in the working directory), built-in defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:             v.GetString("server.host"),
			Port:             v.GetString("server.port"),
			ReadTimeout:      v.GetDuration("server.read_timeout"),
			WriteTimeout:     v.GetDuration("server.write_timeout"),
			IdleTimeout:      v.GetDuration("server.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("server.shutdown_timeout"),
			DurationMetricMS: v.GetBool("server.duration_metric_ms"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
			LogLevel:        strings.ToLower(v.GetString("database.log_level")),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
			TraceEnabled:    v.GetBool("database.trace_enabled"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		OTLP: OTLPConfig{
			Enabled:     v.GetBool("otlp.enabled"),
			Endpoint:    v.GetString("otlp.endpoint"),
			ServiceName: v.GetString("otlp.service_name"),
			Environment: v.GetString("otlp.environment"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the process cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return nil
}
