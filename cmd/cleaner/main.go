// Command cleaner runs the cleaning pipeline once over the configured CSV
// sources, writes the cleaned tables and prints the run report to stdout.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/shopclean/internal/config"
	"github.com/JonMunkholm/shopclean/internal/core"
	"github.com/JonMunkholm/shopclean/internal/csvio"
	"github.com/JonMunkholm/shopclean/internal/logging"
	"github.com/JonMunkholm/shopclean/internal/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Real environment variables win over .env
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	format, err := report.ParseFormat(cfg.Pipeline.ReportFormat)
	if err != nil {
		slog.Error("invalid report format", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := cfg.Pipeline
	ds, err := csvio.LoadDataset(ctx, csvio.Paths{
		Customers: p.CustomersCSV,
		Products:  p.ProductsCSV,
		Orders:    p.OrdersCSV,
	})
	if err != nil {
		return fail("load sources", err)
	}

	opts := p.Options()
	opts.Logger = slog.Default()
	res, err := core.Run(ctx, ds, opts)
	if err != nil {
		return fail("run pipeline", err)
	}

	if err := csvio.WriteResult(res, csvio.Paths{
		Customers: p.CleanCustomersCSV,
		Products:  p.CleanProductsCSV,
		Orders:    p.CleanOrdersCSV,
	}); err != nil {
		return fail("write cleaned tables", err)
	}
	slog.Info("cleaned tables written",
		"customers", p.CleanCustomersCSV,
		"products", p.CleanProductsCSV,
		"orders", p.CleanOrdersCSV,
	)

	if err := report.Write(os.Stdout, res, format); err != nil {
		return fail("write report", err)
	}
	return 0
}

// fail logs the technical error and prints the user-facing one.
func fail(step string, err error) int {
	slog.Error(step+" failed", "error", err)
	fmt.Fprintln(os.Stderr, core.FormatUserError(err))
	return 1
}
