// Package report renders the outcome of a pipeline run for people and tools.
//
// A Summary is the serializable view of a core.Result: stage counts, analytics
// and money rendered as fixed two-digit decimal strings. It is printed as an
// aligned text report, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/shopclean/internal/core"
)

// Format selects the report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat resolves a case-insensitive format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Summary is the printable outcome of one run.
type Summary struct {
	RunID          string            `json:"runId" yaml:"run_id"`
	StartedAt      time.Time         `json:"startedAt" yaml:"started_at"`
	DurationMS     int64             `json:"durationMs" yaml:"duration_ms"`
	Stages         core.StageReports `json:"stages" yaml:"stages"`
	Counts         Counts            `json:"counts" yaml:"counts"`
	TopProducts    []ProductLine     `json:"topProducts" yaml:"top_products"`
	MonthlyRevenue []MonthLine       `json:"monthlyRevenue" yaml:"monthly_revenue"`
}

// Counts are the entity totals after cleaning.
type Counts struct {
	Customers            int `json:"customers" yaml:"customers"`
	Products             int `json:"products" yaml:"products"`
	Orders               int `json:"orders" yaml:"orders"`
	ProductsMissingPrice int `json:"productsMissingPrice" yaml:"products_missing_price"`
}

// ProductLine is one entry of the revenue ranking. Revenue is nil when unknown.
type ProductLine struct {
	ProductID int64   `json:"productId" yaml:"product_id"`
	Name      string  `json:"name" yaml:"name"`
	UnitsSold int64   `json:"unitsSold" yaml:"units_sold"`
	Revenue   *string `json:"revenue" yaml:"revenue"`
}

// MonthLine is one entry of the monthly revenue report.
type MonthLine struct {
	Month   string  `json:"month" yaml:"month"`
	Orders  int     `json:"orders" yaml:"orders"`
	Revenue *string `json:"revenue" yaml:"revenue"`
}

// NewSummary builds the printable view of res.
func NewSummary(res *core.Result) Summary {
	a := res.Analytics
	s := Summary{
		RunID:      res.RunID,
		StartedAt:  res.StartedAt.UTC(),
		DurationMS: res.Duration.Milliseconds(),
		Stages:     res.Reports,
		Counts: Counts{
			Customers:            a.Customers,
			Products:             a.Products,
			Orders:               a.Orders,
			ProductsMissingPrice: a.ProductsMissingPrice,
		},
		TopProducts:    make([]ProductLine, 0, len(a.TopProducts)),
		MonthlyRevenue: make([]MonthLine, 0, len(a.MonthlyRevenue)),
	}

	for _, p := range a.TopProducts {
		s.TopProducts = append(s.TopProducts, ProductLine{
			ProductID: p.ProductID,
			Name:      core.TextValue(p.ProductName),
			UnitsSold: p.UnitsSold,
			Revenue:   money(p.Revenue),
		})
	}
	for _, m := range a.MonthlyRevenue {
		s.MonthlyRevenue = append(s.MonthlyRevenue, MonthLine{
			Month:   m.Month,
			Orders:  m.Orders,
			Revenue: money(m.Revenue),
		})
	}
	return s
}

// Write renders res to w in format f.
func Write(w io.Writer, res *core.Result, f Format) error {
	s := NewSummary(res)

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return nil

	case FormatText, "":
		return writeText(w, s)

	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

func writeText(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	c, p, o := s.Stages.Customers, s.Stages.Products, s.Stages.Orders

	fmt.Fprintf(tw, "=== CLEANING === run %s (%dms)\n", s.RunID, s.DurationMS)
	fmt.Fprintln(tw, "STAGE\tIN\tINVALID\tMISSING ID\tUNREFERENCED\tDUPLICATES\tOUT")
	fmt.Fprintf(tw, "customers\t%d\t%d\t-\t-\t%d\t%d\n", c.RowsIn, c.Invalid, c.Duplicates, c.RowsOut)
	fmt.Fprintf(tw, "products\t%d\t%d\t-\t-\t%d\t%d\n", p.RowsIn, p.Invalid, p.Duplicates, p.RowsOut)
	fmt.Fprintf(tw, "orders\t%d\t-\t%d\t%d\t%d\t%d\n", o.RowsIn, o.MissingID, o.Unreferenced, o.Duplicates, o.RowsOut)
	fmt.Fprintf(tw, "\nOrders backfilled with run time: %d\n", o.Backfilled)
	fmt.Fprintf(tw, "Orders without value: %d\n", o.Unpriced)

	fmt.Fprintln(tw, "\n=== ANALYTICS ===")
	fmt.Fprintf(tw, "Customers:\t%d\n", s.Counts.Customers)
	fmt.Fprintf(tw, "Products:\t%d\n", s.Counts.Products)
	fmt.Fprintf(tw, "Orders:\t%d\n", s.Counts.Orders)
	fmt.Fprintf(tw, "Products missing price:\t%d\n", s.Counts.ProductsMissingPrice)

	if len(s.TopProducts) > 0 {
		fmt.Fprintf(tw, "\nTop Revenue Products (Top %d):\n", len(s.TopProducts))
		fmt.Fprintln(tw, "PRODUCT ID\tNAME\tUNITS\tREVENUE")
		for _, l := range s.TopProducts {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", l.ProductID, l.Name, l.UnitsSold, display(l.Revenue))
		}
	}

	if len(s.MonthlyRevenue) > 0 {
		fmt.Fprintln(tw, "\nMonthly Revenue:")
		fmt.Fprintln(tw, "MONTH\tORDERS\tREVENUE")
		for _, l := range s.MonthlyRevenue {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", l.Month, l.Orders, display(l.Revenue))
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}

func money(n pgtype.Numeric) *string {
	s := core.FormatMoney(n)
	if s == "" {
		return nil
	}
	return &s
}

func display(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
