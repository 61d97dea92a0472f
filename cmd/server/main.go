// Command server exposes the cleaning pipeline over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/shopclean/internal/config"
	"github.com/JonMunkholm/shopclean/internal/core"
	"github.com/JonMunkholm/shopclean/internal/logging"
	"github.com/JonMunkholm/shopclean/internal/metrics"
	"github.com/JonMunkholm/shopclean/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg := config.MustLoad()
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"max_file_size", cfg.Upload.MaxFileSize,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"auth_enabled", len(cfg.Security.APIKeys) > 0,
		"metrics_enabled", cfg.Metrics.Enabled,
		"tables", core.TableCount(),
	)

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}
	server := web.NewServer(cfg, reg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if st := server.RunStatus(); st.Active > 0 {
			slog.Info("waiting for cleaning runs to complete", "active", st.Active)
			if err := server.WaitForRuns(ctx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
