// Package stream reconciles order events consumed from Kafka against a cleaned
// customer and product reference and appends the surviving orders to a sink.
//
// Messages are processed in batches. A batch is written to the sink before
// its offsets are committed, so a crash between the two redelivers the batch
// rather than losing it. Event ids and order ids already written are
// remembered in bounded LRU windows and skipped when they reappear.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/segmentio/kafka-go"

	"github.com/JonMunkholm/shopclean/internal/core"
	"github.com/JonMunkholm/shopclean/internal/logging"
	"github.com/JonMunkholm/shopclean/internal/metrics"
)

// Defaults applied to zero Options fields.
const (
	DefaultBatchSize     = 500
	DefaultFlushInterval = 5 * time.Second
	DefaultDedupWindow   = 100_000
)

// fetchBackoff is the pause after a failed fetch.
var fetchBackoff = time.Second

// Options configures a Consumer.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
	DedupWindow   int

	// GroupID is recorded on dead-lettered messages.
	GroupID string

	// Now supplies the backfill time for events without a timestamp.
	Now func() time.Time

	// Metrics is optional.
	Metrics *metrics.Registry
}

// Stats are running totals since the consumer started.
type Stats struct {
	Batches    int
	Events     int
	Malformed  int
	Duplicates int
	Dropped    int
	OrdersOut  int
}

// Consumer batches order events, reconciles them and commits offsets.
type Consumer struct {
	reader MessageReader
	dlq    MessageWriter
	sink   Sink
	ref    core.Reference
	opts   Options

	events *lru.Cache[string, struct{}]
	orders *lru.Cache[int64, struct{}]
	stats  Stats
}

// NewConsumer creates a consumer. dlq may be nil, in which case undecodable
// events are logged, counted and committed.
func NewConsumer(reader MessageReader, dlq MessageWriter, sink Sink, ref core.Reference, opts Options) (*Consumer, error) {
	if reader == nil {
		return nil, fmt.Errorf("message reader cannot be nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("order sink cannot be nil")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = DefaultDedupWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	events, err := lru.New[string, struct{}](opts.DedupWindow)
	if err != nil {
		return nil, fmt.Errorf("event dedup window: %w", err)
	}
	orders, err := lru.New[int64, struct{}](opts.DedupWindow)
	if err != nil {
		return nil, fmt.Errorf("order dedup window: %w", err)
	}

	return &Consumer{
		reader: reader,
		dlq:    dlq,
		sink:   sink,
		ref:    ref,
		opts:   opts,
		events: events,
		orders: orders,
	}, nil
}

// Stats returns the running totals.
func (c *Consumer) Stats() Stats { return c.stats }

// Run consumes until ctx is cancelled or the reader is closed. A batch is
// flushed when it is full or FlushInterval after its first message arrived.
//
// Cancellation returns ctx.Err() and leaves the pending batch uncommitted for
// redelivery. A closed reader flushes the pending batch and returns nil.
func (c *Consumer) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	batch := make([]kafka.Message, 0, c.opts.BatchSize)
	var deadline time.Time

	for {
		if len(batch) > 0 && (len(batch) >= c.opts.BatchSize || !time.Now().Before(deadline)) {
			if err := c.flush(ctx, log, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}

		fetchCtx, cancel := ctx, context.CancelFunc(func() {})
		if len(batch) > 0 {
			fetchCtx, cancel = context.WithDeadline(ctx, deadline)
		}
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, io.EOF):
				if len(batch) > 0 {
					if err := c.flush(ctx, log, batch); err != nil {
						return err
					}
				}
				return nil
			}

			log.Error("fetch order event", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(fetchBackoff):
			}
			continue
		}

		if len(batch) == 0 {
			deadline = time.Now().Add(c.opts.FlushInterval)
		}
		batch = append(batch, msg)
	}
}

// flush reconciles, writes and commits one batch.
func (c *Consumer) flush(ctx context.Context, log *slog.Logger, msgs []kafka.Message) error {
	start := time.Now()

	var malformed, duplicates int
	rows := make([]core.RawRow, 0, len(msgs))
	eventIDs := make([]string, 0, len(msgs))
	inBatch := make(map[string]struct{}, len(msgs))

	for _, m := range msgs {
		ev, row, err := DecodeEvent(m.Value)
		if err != nil {
			malformed++
			if err := c.deadLetter(ctx, log, m, err); err != nil {
				return err
			}
			continue
		}

		if _, dup := inBatch[ev.EventID]; dup || c.events.Contains(ev.EventID) {
			duplicates++
			continue
		}
		if id := core.ParseInt(row.Value(core.ColOrderID)); id.Valid && c.orders.Contains(id.Int64) {
			duplicates++
			continue
		}

		inBatch[ev.EventID] = struct{}{}
		eventIDs = append(eventIDs, ev.EventID)
		rows = append(rows, row)
	}

	orders, report := core.ReconcileOrders(rows, c.ref, c.opts.Now)

	if err := c.sink.Append(ctx, orders); err != nil {
		return fmt.Errorf("append %d orders: %w", len(orders), err)
	}
	for _, id := range eventIDs {
		c.events.Add(id, struct{}{})
	}
	for _, o := range orders {
		c.orders.Add(o.OrderID.Int64, struct{}{})
	}

	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("commit %d offsets: %w", len(msgs), err)
	}

	dropped := report.MissingID + report.Unreferenced
	duplicates += report.Duplicates

	c.stats.Batches++
	c.stats.Events += len(msgs)
	c.stats.Malformed += malformed
	c.stats.Duplicates += duplicates
	c.stats.Dropped += dropped
	c.stats.OrdersOut += report.RowsOut

	if m := c.opts.Metrics; m != nil {
		m.StreamEvent(metrics.OutcomeAccepted, report.RowsOut)
		m.StreamEvent(metrics.OutcomeMalformed, malformed)
		m.StreamEvent(metrics.OutcomeDuplicate, duplicates)
		m.StreamEvent(metrics.OutcomeDropped, dropped)
		m.ObserveOrders(report)
		m.ObserveRevenue(orders)
		m.StreamBatch(time.Since(start), len(msgs))
	}

	log.Info("order batch reconciled",
		"events", len(msgs),
		"orders_out", report.RowsOut,
		"malformed", malformed,
		"duplicates", duplicates,
		"dropped", dropped,
		"backfilled", report.Backfilled,
		"unpriced", report.Unpriced,
	)
	return nil
}

// deadLetter forwards an undecodable message to the DLQ when one is
// configured. A failed DLQ write fails the batch so the message is not
// committed.
func (c *Consumer) deadLetter(ctx context.Context, log *slog.Logger, msg kafka.Message, cause error) error {
	log.Warn("undecodable order event",
		"partition", msg.Partition,
		"offset", msg.Offset,
		"error", cause,
	)
	if c.dlq == nil {
		return nil
	}
	if err := c.dlq.WriteMessages(ctx, deadLetter(msg, c.opts.GroupID, cause, time.Now())); err != nil {
		return fmt.Errorf("send offset %d to dead letter queue: %w", msg.Offset, err)
	}
	return nil
}
