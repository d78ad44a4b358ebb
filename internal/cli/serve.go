package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mrops-br/products-inventory-api/internal/app/service"
	httpserver "github.com/mrops-br/products-inventory-api/internal/infrastructure/http"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/http/handler"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Starts the HTTP API and the web page, stopping gracefully on SIGINT or SIGTERM",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	logger := app.logger

	logger.Info("Starting Products API",
		slog.String("database.driver", app.cfg.Database.Driver),
		slog.Bool("otel.enabled", app.cfg.OTLP.Enabled),
	)

	tracer := app.telem.TracerProvider.Tracer(instrumentationName)
	meter := app.telem.MeterProvider.Meter(instrumentationName)

	productService := service.NewProductService(app.repo, tracer, meter, logger)
	productHandler := handler.NewProductHandler(productService, logger)

	var pinger httpserver.Pinger
	if app.db != nil {
		pinger = app.db
	}
	server := httpserver.NewServer(&app.cfg.Server, productHandler, logger, app.telem, pinger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err = <-serverErr:
		if err != nil {
			logger.Error("Server error", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("Error shutting down server", slog.String("error", shutdownErr.Error()))
	}
	if closeErr := app.close(shutdownCtx); closeErr != nil {
		logger.Error("Error releasing resources", slog.String("error", closeErr.Error()))
	}

	logger.Info("Server stopped")
	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
