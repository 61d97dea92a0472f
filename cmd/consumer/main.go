// Command consumer reconciles order events from Kafka against the cleaned
// customer and product tables and appends surviving orders to a CSV file.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/shopclean/internal/config"
	"github.com/JonMunkholm/shopclean/internal/csvio"
	"github.com/JonMunkholm/shopclean/internal/logging"
	"github.com/JonMunkholm/shopclean/internal/metrics"
	"github.com/JonMunkholm/shopclean/internal/stream"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("consumer stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	p, sc := cfg.Pipeline, cfg.Stream

	ref, err := csvio.LoadReference(ctx, p.CleanCustomersCSV, p.CleanProductsCSV, p.PhoneRegion)
	if err != nil {
		return err
	}
	slog.Info("reference loaded",
		"customers", len(ref.CustomerIDs),
		"products", len(ref.ProductIDs),
		"priced", len(ref.Prices),
	)

	reader, err := stream.NewReader(sc.Brokers, sc.Topic, sc.GroupID)
	if err != nil {
		return err
	}
	defer reader.Close()

	var dlq stream.MessageWriter
	if w := stream.NewDLQWriter(sc.Brokers, sc.DLQTopic); w != nil {
		dlq = w
		defer w.Close()
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		srv := metricsServer(cfg.Metrics.Addr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	consumer, err := stream.NewConsumer(reader, dlq, stream.CSVSink{Path: sc.OrdersCSV}, ref, stream.Options{
		BatchSize:     sc.BatchSize,
		FlushInterval: sc.FlushInterval,
		DedupWindow:   sc.DedupWindow,
		GroupID:       sc.GroupID,
		Metrics:       reg,
	})
	if err != nil {
		return err
	}

	slog.Info("consuming order events",
		"brokers", sc.Brokers,
		"topic", sc.Topic,
		"group_id", sc.GroupID,
		"dlq_topic", sc.DLQTopic,
		"output", sc.OrdersCSV,
	)
	err = consumer.Run(ctx)

	st := consumer.Stats()
	slog.Info("consumer totals",
		"batches", st.Batches,
		"events", st.Events,
		"malformed", st.Malformed,
		"duplicates", st.Duplicates,
		"dropped", st.Dropped,
		"orders_out", st.OrdersOut,
	)
	return err
}

func metricsServer(addr string, reg *metrics.Registry) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", reg.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
