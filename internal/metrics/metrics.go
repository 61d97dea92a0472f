// Package metrics exposes pipeline row counts and stream consumer activity to
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/shopclean/internal/core"
)

// Drop reasons used as the reason label of RowsDropped.
const (
	ReasonInvalid      = "invalid"
	ReasonDuplicate    = "duplicate"
	ReasonMissingID    = "missing_id"
	ReasonUnreferenced = "unreferenced"
)

// Stream event outcomes used as the outcome label of StreamEvents.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeMalformed = "malformed"
	OutcomeDropped   = "dropped"
)

type Registry struct {
	reg *prometheus.Registry

	RowsIn      *prometheus.CounterVec
	RowsDropped *prometheus.CounterVec
	RowsOut     *prometheus.CounterVec
	Backfilled  prometheus.Counter
	Unpriced    prometheus.Counter
	Revenue     prometheus.Counter

	Runs           *prometheus.CounterVec
	RunDurationSec prometheus.Histogram
	MissingPrice   prometheus.Gauge

	StreamEvents    *prometheus.CounterVec
	StreamBatches   prometheus.Counter
	StreamBatchSec  prometheus.Histogram
	StreamCommitted prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	rowsIn := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopclean_rows_in_total",
		Help: "Raw rows read per entity.",
	}, []string{"entity"})
	rowsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopclean_rows_dropped_total",
		Help: "Rows removed per entity and reason.",
	}, []string{"entity", "reason"})
	rowsOut := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopclean_rows_out_total",
		Help: "Cleaned rows written per entity.",
	}, []string{"entity"})
	backfilled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shopclean_orders_backfilled_total",
		Help: "Orders whose timestamp was replaced with the run time.",
	})
	unpriced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shopclean_orders_unpriced_total",
		Help: "Surviving orders without an order value.",
	})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shopclean_order_revenue_total",
		Help: "Sum of order values of surviving orders.",
	})

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopclean_runs_total",
		Help: "Pipeline runs by status.",
	}, []string{"status"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shopclean_run_duration_seconds",
		Help:    "Wall time of successful pipeline runs.",
		Buckets: prometheus.DefBuckets,
	})
	missingPrice := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shopclean_products_missing_price",
		Help: "Cleaned products without a price in the last run.",
	})

	streamEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopclean_stream_events_total",
		Help: "Order events consumed by outcome.",
	}, []string{"outcome"})
	streamBatches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shopclean_stream_batches_total",
		Help: "Order event batches reconciled.",
	})
	streamBatchSec := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shopclean_stream_batch_seconds",
		Help:    "Time to reconcile, write and commit one batch.",
		Buckets: prometheus.DefBuckets,
	})
	streamCommitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shopclean_stream_committed_total",
		Help: "Kafka messages committed.",
	})

	r.MustRegister(rowsIn, rowsDropped, rowsOut, backfilled, unpriced, revenue,
		runs, runDuration, missingPrice,
		streamEvents, streamBatches, streamBatchSec, streamCommitted)

	return &Registry{
		reg:             r,
		RowsIn:          rowsIn,
		RowsDropped:     rowsDropped,
		RowsOut:         rowsOut,
		Backfilled:      backfilled,
		Unpriced:        unpriced,
		Revenue:         revenue,
		Runs:            runs,
		RunDurationSec:  runDuration,
		MissingPrice:    missingPrice,
		StreamEvents:    streamEvents,
		StreamBatches:   streamBatches,
		StreamBatchSec:  streamBatchSec,
		StreamCommitted: streamCommitted,
	}
}

// Observe records the stage reports and analytics of a finished run.
func (r *Registry) Observe(res *core.Result) {
	c, p := res.Reports.Customers, res.Reports.Products

	r.RowsIn.WithLabelValues(core.TableCustomers).Add(float64(c.RowsIn))
	r.RowsDropped.WithLabelValues(core.TableCustomers, ReasonInvalid).Add(float64(c.Invalid))
	r.RowsDropped.WithLabelValues(core.TableCustomers, ReasonDuplicate).Add(float64(c.Duplicates))
	r.RowsOut.WithLabelValues(core.TableCustomers).Add(float64(c.RowsOut))

	r.RowsIn.WithLabelValues(core.TableProducts).Add(float64(p.RowsIn))
	r.RowsDropped.WithLabelValues(core.TableProducts, ReasonInvalid).Add(float64(p.Invalid))
	r.RowsDropped.WithLabelValues(core.TableProducts, ReasonDuplicate).Add(float64(p.Duplicates))
	r.RowsOut.WithLabelValues(core.TableProducts).Add(float64(p.RowsOut))

	r.ObserveOrders(res.Reports.Orders)
	r.ObserveRevenue(res.Orders)

	r.Runs.WithLabelValues("ok").Inc()
	r.RunDurationSec.Observe(res.Duration.Seconds())
	r.MissingPrice.Set(float64(res.Analytics.ProductsMissingPrice))
}

// ObserveOrders records one order reconciliation pass.
func (r *Registry) ObserveOrders(o core.OrderReport) {
	r.RowsIn.WithLabelValues(core.TableOrders).Add(float64(o.RowsIn))
	r.RowsDropped.WithLabelValues(core.TableOrders, ReasonMissingID).Add(float64(o.MissingID))
	r.RowsDropped.WithLabelValues(core.TableOrders, ReasonUnreferenced).Add(float64(o.Unreferenced))
	r.RowsDropped.WithLabelValues(core.TableOrders, ReasonDuplicate).Add(float64(o.Duplicates))
	r.RowsOut.WithLabelValues(core.TableOrders).Add(float64(o.RowsOut))
	r.Backfilled.Add(float64(o.Backfilled))
	r.Unpriced.Add(float64(o.Unpriced))
}

// ObserveRevenue adds the order values of orders. Unpriced orders add nothing.
func (r *Registry) ObserveRevenue(orders []core.Order) {
	var total float64
	for _, o := range orders {
		if v, ok := core.MoneyFloat(o.OrderValue); ok {
			total += v
		}
	}
	r.Revenue.Add(total)
}

// RunFailed counts a run that ended with an error.
func (r *Registry) RunFailed() { r.Runs.WithLabelValues("failed").Inc() }

// StreamEvent counts n consumed events with the given outcome.
func (r *Registry) StreamEvent(outcome string, n int) {
	r.StreamEvents.WithLabelValues(outcome).Add(float64(n))
}

// StreamBatch records one reconciled batch.
func (r *Registry) StreamBatch(d time.Duration, committed int) {
	r.StreamBatches.Inc()
	r.StreamBatchSec.Observe(d.Seconds())
	r.StreamCommitted.Add(float64(committed))
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
