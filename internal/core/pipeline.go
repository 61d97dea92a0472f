package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Options configures one pipeline run.
type Options struct {
	// PhoneRegion is the ISO 3166 region used for numbers without a country code.
	PhoneRegion string `validate:"required,len=2,alpha,uppercase"`

	// TopProducts and Months size the analytics reports.
	TopProducts int `validate:"gte=1"`
	Months      int `validate:"gte=1"`

	// Now supplies the backfill time for orders without a timestamp.
	// Defaults to time.Now.
	Now func() time.Time `validate:"-"`

	// Logger receives per-stage summaries. Defaults to slog.Default().
	Logger *slog.Logger `validate:"-"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		PhoneRegion: DefaultPhoneRegion,
		TopProducts: DefaultTopProducts,
		Months:      DefaultMonths,
	}
}

// Run cleans a dataset end to end: customers, products, orders, analytics.
// Each stage consumes the previous stage's output and returns a fresh slice.
//
// Malformed data never fails a run. The only errors are invalid options and
// a context cancelled between stages.
func Run(ctx context.Context, ds Dataset, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: opts.Now().UTC(),
	}
	logger = logger.With("run_id", res.RunID)
	start := time.Now()

	logger.Info("pipeline started",
		"customers_in", len(ds.Customers),
		"products_in", len(ds.Products),
		"orders_in", len(ds.Orders),
		"phone_region", opts.PhoneRegion,
	)

	res.Customers, res.Reports.Customers = CleanCustomers(ds.Customers, opts.PhoneRegion)
	logger.Info("customers cleaned",
		"dropped_invalid", res.Reports.Customers.Invalid,
		"duplicates", res.Reports.Customers.Duplicates,
		"rows", res.Reports.Customers.RowsOut,
	)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline cancelled after customers: %w", err)
	}

	res.Products, res.Reports.Products = CleanProducts(ds.Products)
	logger.Info("products cleaned",
		"dropped_invalid", res.Reports.Products.Invalid,
		"duplicates", res.Reports.Products.Duplicates,
		"rows", res.Reports.Products.RowsOut,
	)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline cancelled after products: %w", err)
	}

	ref := NewReference(res.Customers, res.Products)
	res.Orders, res.Reports.Orders = ReconcileOrders(ds.Orders, ref, opts.Now)
	logger.Info("orders reconciled",
		"dropped_unreferenced", res.Reports.Orders.Unreferenced,
		"dropped_missing_id", res.Reports.Orders.MissingID,
		"backfilled_timestamps", res.Reports.Orders.Backfilled,
		"unpriced", res.Reports.Orders.Unpriced,
		"duplicates", res.Reports.Orders.Duplicates,
		"rows", res.Reports.Orders.RowsOut,
	)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline cancelled after orders: %w", err)
	}

	res.Analytics = Analyze(res.Customers, res.Products, res.Orders, AnalyticsOptions{
		TopProducts: opts.TopProducts,
		Months:      opts.Months,
	})
	res.Duration = time.Since(start)

	logger.Info("pipeline completed",
		"customers", res.Analytics.Customers,
		"products", res.Analytics.Products,
		"orders", res.Analytics.Orders,
		"products_missing_price", res.Analytics.ProductsMissingPrice,
		"duration_ms", res.Duration.Milliseconds(),
	)

	return res, nil
}
