package core

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// FieldType represents the expected data type for a CSV field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInteger
	FieldDate
	FieldMoney
	FieldEmail
	FieldPhone
)

var fieldTypeNames = [...]string{
	FieldText:    "text",
	FieldInteger: "integer",
	FieldDate:    "date",
	FieldMoney:   "money",
	FieldEmail:   "email",
	FieldPhone:   "phone",
}

func (t FieldType) String() string {
	if int(t) < 0 || int(t) >= len(fieldTypeNames) {
		return "unknown"
	}
	return fieldTypeNames[t]
}

// FieldSpec describes a single CSV column.
type FieldSpec struct {
	Name     string    // Column header name (lowercase)
	Type     FieldType // Expected data type
	Required bool      // Column must exist in the input header
	Derived  bool      // Recomputed by the pipeline; input values are ignored
	Aliases  []string  // Legacy header names accepted in place of Name
}

// TableInfo contains display information about a table.
type TableInfo struct {
	Key       string   // Unique identifier: "customers"
	Label     string   // Display name: "Customers"
	Columns   []string // Output column order
	UniqueKey []string // Column(s) that identify duplicates after cleaning
}

// TableDefinition contains everything needed to read and write a table.
type TableDefinition struct {
	Info       TableInfo
	FieldSpecs []FieldSpec
}

// Table keys.
const (
	TableCustomers = "customers"
	TableProducts  = "products"
	TableOrders    = "orders"
)

// Column names shared by the cleaners and the table registrations.
const (
	ColCustomerID    = "customer_id"
	ColName          = "name"
	ColEmail         = "email"
	ColPhone         = "phone"
	ColCity          = "city"
	ColState         = "state"
	ColSignupDate    = "signup_date"
	ColProductID     = "product_id"
	ColProductName   = "product_name"
	ColCategory      = "category"
	ColBrand         = "brand"
	ColPrice         = "price"
	ColStockQuantity = "stock_quantity"
	ColOrderID       = "order_id"
	ColQuantity      = "quantity"
	ColOrderTS       = "order_timestamp"
	ColOrderDate     = "order_date"
	ColPaymentMethod = "payment_method"
	ColStatus        = "status"
	ColShippingCity  = "shipping_city"
	ColOrderValue    = "order_value"
)

// UnknownLabel is the default for missing payment methods and statuses.
const UnknownLabel = "Unknown"

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// RawRow is one untyped input row keyed by lowercase column name.
type RawRow map[string]string

// Text returns the trimmed value of col, or absent when the column is missing
// or holds a null marker.
func (r RawRow) Text(col string) pgtype.Text {
	v, ok := r[strings.ToLower(col)]
	if !ok {
		return pgtype.Text{}
	}
	return ToPgText(v)
}

// Value returns the raw value of col, or "" when the column is missing.
func (r RawRow) Value(col string) string {
	return r[strings.ToLower(col)]
}

// Customer is a cleaned customer record.
type Customer struct {
	CustomerID pgtype.Int8
	Name       pgtype.Text
	Email      pgtype.Text
	Phone      pgtype.Text
	City       pgtype.Text
	State      pgtype.Text
	SignupDate pgtype.Timestamptz
}

// ToRawRow converts the customer back into its serialized form.
func (c Customer) ToRawRow() RawRow {
	return RawRow{
		ColCustomerID: IntValue(c.CustomerID),
		ColName:       TextValue(c.Name),
		ColEmail:      TextValue(c.Email),
		ColPhone:      TextValue(c.Phone),
		ColCity:       TextValue(c.City),
		ColState:      TextValue(c.State),
		ColSignupDate: FormatTimestamp(c.SignupDate),
	}
}

// Product is a cleaned product record.
type Product struct {
	ProductID     pgtype.Int8
	ProductName   pgtype.Text
	Category      pgtype.Text
	Brand         pgtype.Text
	Price         pgtype.Numeric
	StockQuantity pgtype.Int8
}

// ToRawRow converts the product back into its serialized form.
func (p Product) ToRawRow() RawRow {
	return RawRow{
		ColProductID:     IntValue(p.ProductID),
		ColProductName:   TextValue(p.ProductName),
		ColCategory:      TextValue(p.Category),
		ColBrand:         TextValue(p.Brand),
		ColPrice:         FormatMoney(p.Price),
		ColStockQuantity: IntValue(p.StockQuantity),
	}
}

// Order is a reconciled order record.
type Order struct {
	OrderID        pgtype.Int8
	CustomerID     pgtype.Int8
	ProductID      pgtype.Int8
	Quantity       int64
	OrderTimestamp pgtype.Timestamptz
	PaymentMethod  string
	Status         string
	ShippingCity   pgtype.Text
	OrderValue     pgtype.Numeric
}

// ToRawRow converts the order back into its serialized form.
func (o Order) ToRawRow() RawRow {
	return RawRow{
		ColOrderID:       IntValue(o.OrderID),
		ColCustomerID:    IntValue(o.CustomerID),
		ColProductID:     IntValue(o.ProductID),
		ColQuantity:      IntValue(pgtype.Int8{Int64: o.Quantity, Valid: true}),
		ColOrderTS:       FormatTimestamp(o.OrderTimestamp),
		ColPaymentMethod: o.PaymentMethod,
		ColStatus:        o.Status,
		ColShippingCity:  TextValue(o.ShippingCity),
		ColOrderValue:    FormatMoney(o.OrderValue),
	}
}

// IDSet is a frozen set of surviving entity ids.
type IDSet map[int64]struct{}

// Has reports whether id is present. An absent id is never a member.
func (s IDSet) Has(id pgtype.Int8) bool {
	if !id.Valid {
		return false
	}
	_, ok := s[id.Int64]
	return ok
}

// PriceLookup maps product ids to their cleaned price.
// Products without a price have no entry.
type PriceLookup map[int64]pgtype.Numeric

// Price returns the price for id and whether one exists.
func (p PriceLookup) Price(id pgtype.Int8) (pgtype.Numeric, bool) {
	if !id.Valid {
		return pgtype.Numeric{}, false
	}
	n, ok := p[id.Int64]
	if !ok || !isFinite(n) {
		return pgtype.Numeric{}, false
	}
	return n, true
}

// Reference is the read-only view of cleaned customers and products that the
// order reconciler checks against.
type Reference struct {
	CustomerIDs IDSet
	ProductIDs  IDSet
	Prices      PriceLookup
}

// CustomerReport summarizes a customer cleaning pass.
type CustomerReport struct {
	RowsIn     int `json:"rowsIn" yaml:"rows_in"`
	Invalid    int `json:"invalid" yaml:"invalid"`       // Missing customer_id or name
	Duplicates int `json:"duplicates" yaml:"duplicates"` // Later rows sharing a dedup key
	RowsOut    int `json:"rowsOut" yaml:"rows_out"`
}

// ProductReport summarizes a product cleaning pass.
type ProductReport struct {
	RowsIn     int `json:"rowsIn" yaml:"rows_in"`
	Invalid    int `json:"invalid" yaml:"invalid"` // Missing product_id or product_name
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	RowsOut    int `json:"rowsOut" yaml:"rows_out"`
}

// OrderReport summarizes an order reconciliation pass.
type OrderReport struct {
	RowsIn       int `json:"rowsIn" yaml:"rows_in"`
	MissingID    int `json:"missingId" yaml:"missing_id"`      // Absent order_id
	Unreferenced int `json:"unreferenced" yaml:"unreferenced"` // Unknown customer or product
	Backfilled   int `json:"backfilled" yaml:"backfilled"`     // Timestamps replaced with the run time
	Unpriced     int `json:"unpriced" yaml:"unpriced"`         // Surviving orders without an order_value
	Duplicates   int `json:"duplicates" yaml:"duplicates"`
	RowsOut      int `json:"rowsOut" yaml:"rows_out"`
}

// Dataset holds the three raw input tables.
type Dataset struct {
	Customers []RawRow
	Products  []RawRow
	Orders    []RawRow
}

// StageReports collects the per-stage summaries of one run.
type StageReports struct {
	Customers CustomerReport `json:"customers" yaml:"customers"`
	Products  ProductReport  `json:"products" yaml:"products"`
	Orders    OrderReport    `json:"orders" yaml:"orders"`
}

// Result is the complete output of one pipeline run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Customers []Customer
	Products  []Product
	Orders    []Order
	Reports   StageReports
	Analytics Analytics
}
