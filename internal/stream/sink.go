package stream

import (
	"context"

	"github.com/JonMunkholm/shopclean/internal/core"
	"github.com/JonMunkholm/shopclean/internal/csvio"
)

// Sink receives reconciled orders.
type Sink interface {
	Append(ctx context.Context, orders []core.Order) error
}

// CSVSink appends orders to a cleaned orders CSV file.
type CSVSink struct {
	Path string
}

func (s CSVSink) Append(_ context.Context, orders []core.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return csvio.AppendFile(s.Path, core.TableOrders, csvio.OrderRows(orders))
}
