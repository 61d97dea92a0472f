package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/shopclean/internal/core"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read scrape: %v", err)
	}
	return string(body)
}

func assertSeries(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, line := range want {
		if !strings.Contains(body, line+"\n") {
			t.Errorf("missing series %q", line)
		}
	}
}

func TestObserve(t *testing.T) {
	r := NewRegistry()
	res := &core.Result{
		Duration: 250 * time.Millisecond,
		Reports: core.StageReports{
			Customers: core.CustomerReport{RowsIn: 10, Invalid: 2, Duplicates: 1, RowsOut: 7},
			Products:  core.ProductReport{RowsIn: 5, Invalid: 1, Duplicates: 0, RowsOut: 4},
			Orders: core.OrderReport{
				RowsIn: 20, MissingID: 1, Unreferenced: 3, Backfilled: 2,
				Unpriced: 4, Duplicates: 1, RowsOut: 15,
			},
		},
		Analytics: core.Analytics{ProductsMissingPrice: 2},
	}

	r.Observe(res)
	r.Observe(res)

	assertSeries(t, scrape(t, r),
		`shopclean_rows_in_total{entity="customers"} 20`,
		`shopclean_rows_dropped_total{entity="customers",reason="invalid"} 4`,
		`shopclean_rows_dropped_total{entity="customers",reason="duplicate"} 2`,
		`shopclean_rows_out_total{entity="customers"} 14`,
		`shopclean_rows_out_total{entity="products"} 8`,
		`shopclean_rows_dropped_total{entity="orders",reason="missing_id"} 2`,
		`shopclean_rows_dropped_total{entity="orders",reason="unreferenced"} 6`,
		`shopclean_rows_out_total{entity="orders"} 30`,
		`shopclean_orders_backfilled_total 4`,
		`shopclean_orders_unpriced_total 8`,
		`shopclean_runs_total{status="ok"} 2`,
		`shopclean_run_duration_seconds_count 2`,
		`shopclean_products_missing_price 2`,
	)
}

func TestObserveRevenue(t *testing.T) {
	r := NewRegistry()
	r.ObserveRevenue([]core.Order{
		{OrderValue: core.RoundMoneyString("250.00")},
		{OrderValue: core.RoundMoneyString("12.50")},
		{},
	})
	r.Observe(&core.Result{Orders: []core.Order{{OrderValue: core.RoundMoneyString("0.25")}}})

	assertSeries(t, scrape(t, r), `shopclean_order_revenue_total 262.75`)
}

func TestRunFailed(t *testing.T) {
	r := NewRegistry()
	r.RunFailed()

	assertSeries(t, scrape(t, r), `shopclean_runs_total{status="failed"} 1`)
}

func TestStreamMetrics(t *testing.T) {
	r := NewRegistry()
	r.StreamEvent(OutcomeAccepted, 8)
	r.StreamEvent(OutcomeMalformed, 1)
	r.StreamEvent(OutcomeDuplicate, 2)
	r.StreamBatch(10*time.Millisecond, 11)
	r.ObserveOrders(core.OrderReport{RowsIn: 8, Unreferenced: 1, RowsOut: 7})

	assertSeries(t, scrape(t, r),
		`shopclean_stream_events_total{outcome="accepted"} 8`,
		`shopclean_stream_events_total{outcome="malformed"} 1`,
		`shopclean_stream_events_total{outcome="duplicate"} 2`,
		`shopclean_stream_batches_total 1`,
		`shopclean_stream_batch_seconds_count 1`,
		`shopclean_stream_committed_total 11`,
		`shopclean_rows_in_total{entity="orders"} 8`,
		`shopclean_rows_out_total{entity="orders"} 7`,
	)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.RunFailed()

	if strings.Contains(scrape(t, b), `status="failed"`) {
		t.Error("second registry should not see the first registry's samples")
	}
}
