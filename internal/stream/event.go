package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/shopclean/internal/core"
)

// ErrMalformedEvent marks a message that is not a usable order event.
var ErrMalformedEvent = errors.New("malformed order event")

// OrderEvent is one message on the orders topic:
//
//	{"event_id": "<uuid>", "order": {"order_id": 1, "customer_id": 7, ...}}
type OrderEvent struct {
	EventID string         `json:"event_id"`
	Order   map[string]any `json:"order"`
}

// DecodeEvent parses a message value into an event and the raw order row it
// carries. Field values keep their JSON text, so numbers and strings reach
// the reconciler the same way CSV cells do.
func DecodeEvent(value []byte) (OrderEvent, core.RawRow, error) {
	var ev OrderEvent

	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	if err := dec.Decode(&ev); err != nil {
		return ev, nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	ev.EventID = strings.TrimSpace(ev.EventID)
	if ev.EventID == "" {
		return ev, nil, fmt.Errorf("%w: missing event_id", ErrMalformedEvent)
	}
	if len(ev.Order) == 0 {
		return ev, nil, fmt.Errorf("%w: event %s has no order", ErrMalformedEvent, ev.EventID)
	}

	row := make(core.RawRow, len(ev.Order))
	for k, v := range ev.Order {
		row[strings.ToLower(strings.TrimSpace(k))] = core.CleanCell(cellText(v))
	}
	return ev, row, nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		// Nested values cannot parse as any order field.
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
