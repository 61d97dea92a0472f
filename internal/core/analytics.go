package core

import (
	"sort"

	"github.com/jackc/pgx/v5/pgtype"
)

// Report sizes used when AnalyticsOptions leaves them unset.
const (
	DefaultTopProducts = 5
	DefaultMonths      = 6
)

// AnalyticsOptions bounds the size of the ranked reports.
type AnalyticsOptions struct {
	TopProducts int // Products kept in the revenue ranking; <= 0 uses DefaultTopProducts
	Months      int // Months kept in the monthly report; <= 0 uses DefaultMonths
}

// ProductRevenue is one row of the per-product revenue ranking.
type ProductRevenue struct {
	ProductID   int64
	ProductName pgtype.Text
	UnitsSold   int64
	Revenue     pgtype.Numeric // Absent when no order of the product had a value
}

// MonthlyRevenue is the order value booked in one calendar month (UTC).
type MonthlyRevenue struct {
	Month   string // YYYY-MM
	Orders  int
	Revenue pgtype.Numeric // Absent when no order of the month had a value
}

// Analytics is the summary computed over a cleaned dataset.
type Analytics struct {
	Customers            int
	Products             int
	Orders               int
	ProductsMissingPrice int
	TopProducts          []ProductRevenue
	MonthlyRevenue       []MonthlyRevenue
}

// Analyze computes counts and revenue aggregates over cleaned data. It reads
// its inputs only.
//
// Absent order values and timestamps are skipped in sums rather than counted
// as zero. Total counts include every row.
func Analyze(customers []Customer, products []Product, orders []Order, opts AnalyticsOptions) Analytics {
	if opts.TopProducts <= 0 {
		opts.TopProducts = DefaultTopProducts
	}
	if opts.Months <= 0 {
		opts.Months = DefaultMonths
	}

	a := Analytics{
		Customers: len(customers),
		Products:  len(products),
		Orders:    len(orders),
	}

	names := make(map[int64]pgtype.Text, len(products))
	for _, p := range products {
		if !isFinite(p.Price) {
			a.ProductsMissingPrice++
		}
		if p.ProductID.Valid {
			names[p.ProductID.Int64] = p.ProductName
		}
	}

	a.TopProducts = headProducts(revenueByProduct(orders, names), opts.TopProducts)
	a.MonthlyRevenue = headMonths(revenueByMonth(orders), opts.Months)
	return a
}

// revenueByProduct groups orders by product, sorted by revenue descending.
// Products without any valued order sort last; ties break on product id.
func revenueByProduct(orders []Order, names map[int64]pgtype.Text) []ProductRevenue {
	byID := make(map[int64]*ProductRevenue)
	for _, o := range orders {
		if !o.ProductID.Valid {
			continue
		}
		pr, ok := byID[o.ProductID.Int64]
		if !ok {
			pr = &ProductRevenue{ProductID: o.ProductID.Int64, ProductName: names[o.ProductID.Int64]}
			byID[o.ProductID.Int64] = pr
		}
		pr.UnitsSold += o.Quantity
		pr.Revenue = AddMoney(pr.Revenue, o.OrderValue)
	}

	out := make([]ProductRevenue, 0, len(byID))
	for _, pr := range byID {
		out = append(out, *pr)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := CompareMoney(out[i].Revenue, out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// revenueByMonth groups timestamped orders by UTC calendar month in
// chronological order.
func revenueByMonth(orders []Order) []MonthlyRevenue {
	byMonth := make(map[string]*MonthlyRevenue)
	for _, o := range orders {
		if !o.OrderTimestamp.Valid {
			continue
		}
		key := o.OrderTimestamp.Time.UTC().Format("2006-01")
		mr, ok := byMonth[key]
		if !ok {
			mr = &MonthlyRevenue{Month: key}
			byMonth[key] = mr
		}
		mr.Orders++
		mr.Revenue = AddMoney(mr.Revenue, o.OrderValue)
	}

	out := make([]MonthlyRevenue, 0, len(byMonth))
	for _, mr := range byMonth {
		out = append(out, *mr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func headProducts(s []ProductRevenue, n int) []ProductRevenue {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func headMonths(s []MonthlyRevenue, n int) []MonthlyRevenue {
	if len(s) > n {
		return s[:n]
	}
	return s
}
