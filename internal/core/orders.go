package core

import (
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// NormalizeOrder coerces every field of a raw order row. The input
// order_value is ignored; it is recomputed by ReconcileOrders.
//
// order_timestamp is read first; when it is absent the legacy order_date
// column is used instead.
func NormalizeOrder(row RawRow) Order {
	qty := ParsePositiveInt(row.Value(ColQuantity))
	if !qty.Valid {
		qty = pgtype.Int8{Int64: 1, Valid: true}
	}

	ts := ParseDate(row.Value(ColOrderTS))
	if !ts.Valid {
		ts = ParseDate(row.Value(ColOrderDate))
	}

	return Order{
		OrderID:        ParseInt(row.Value(ColOrderID)),
		CustomerID:     ParseInt(row.Value(ColCustomerID)),
		ProductID:      ParseInt(row.Value(ColProductID)),
		Quantity:       qty.Int64,
		OrderTimestamp: ts,
		PaymentMethod:  labelOrUnknown(row.Value(ColPaymentMethod)),
		Status:         labelOrUnknown(row.Value(ColStatus)),
		ShippingCity:   TitleCase(row.Value(ColShippingCity)),
	}
}

// OrderValue computes price × quantity for an order, rounded half-up to
// cents. Absent when the product has no price.
func OrderValue(o Order, prices PriceLookup) pgtype.Numeric {
	price, ok := prices.Price(o.ProductID)
	if !ok {
		return pgtype.Numeric{}
	}
	return MultiplyMoney(price, o.Quantity)
}

// ReconcileOrders normalizes raw order rows against cleaned customers and
// products:
//
//  1. Rows without an order_id are dropped.
//  2. Rows whose customer_id or product_id is not in ref are dropped.
//  3. order_value is computed from ref.Prices.
//  4. Absent timestamps are backfilled with now().
//  5. Rows are ordered by timestamp and the earliest row per order_id is kept.
//
// Backfilling makes the output depend on the run time for rows that had no
// usable timestamp. Once a timestamp is present it is never replaced, so a
// second pass over cleaned output changes nothing.
func ReconcileOrders(rows []RawRow, ref Reference, now func() time.Time) ([]Order, OrderReport) {
	report := OrderReport{RowsIn: len(rows)}
	if now == nil {
		now = time.Now
	}
	runTime := pgtype.Timestamptz{Time: now().UTC().Truncate(time.Second), Valid: true}

	kept := make([]Order, 0, len(rows))
	for _, row := range rows {
		o := NormalizeOrder(row)
		if !o.OrderID.Valid {
			report.MissingID++
			continue
		}
		if !ref.CustomerIDs.Has(o.CustomerID) || !ref.ProductIDs.Has(o.ProductID) {
			report.Unreferenced++
			continue
		}

		o.OrderValue = OrderValue(o, ref.Prices)
		if !o.OrderTimestamp.Valid {
			o.OrderTimestamp = runTime
			report.Backfilled++
		}
		kept = append(kept, o)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].OrderTimestamp.Time.Before(kept[j].OrderTimestamp.Time)
	})

	seen := make(map[int64]struct{}, len(kept))
	out := make([]Order, 0, len(kept))
	for _, o := range kept {
		if _, dup := seen[o.OrderID.Int64]; dup {
			report.Duplicates++
			continue
		}
		seen[o.OrderID.Int64] = struct{}{}
		if !o.OrderValue.Valid {
			report.Unpriced++
		}
		out = append(out, o)
	}

	report.RowsOut = len(out)
	return out, report
}

// labelOrUnknown title-cases a categorical label, defaulting to UnknownLabel.
func labelOrUnknown(s string) string {
	t := TitleCase(s)
	if !t.Valid {
		return UnknownLabel
	}
	return t.String
}
