package core

import (
	"reflect"
	"testing"
)

func productRow(id, name, category, brand, price, stock string) RawRow {
	return RawRow{
		ColProductID:     id,
		ColProductName:   name,
		ColCategory:      category,
		ColBrand:         brand,
		ColPrice:         price,
		ColStockQuantity: stock,
	}
}

func TestNormalizeProduct(t *testing.T) {
	tests := []struct {
		name      string
		row       RawRow
		wantPrice string
		wantStock string
	}{
		{
			name:      "clean",
			row:       productRow("1", "Phone", "electronics", "ACME", "499.999", "12"),
			wantPrice: "500.00",
			wantStock: "12",
		},
		{
			name:      "currency text",
			row:       productRow("2", "Lamp", "home", "", "₹1,299.50", "0"),
			wantPrice: "1299.50",
			wantStock: "0",
		},
		{
			name:      "non-numeric price",
			row:       productRow("3", "Mug", "kitchen", "", "abc", "4"),
			wantPrice: "",
			wantStock: "4",
		},
		{
			name:      "negative values",
			row:       productRow("4", "Desk", "", "", "-10", "-2"),
			wantPrice: "",
			wantStock: "",
		},
		{
			name:      "integral stock written as decimal",
			row:       productRow("5", "Pen", "", "", "NA", "7.0"),
			wantPrice: "",
			wantStock: "7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NormalizeProduct(tt.row)
			if got := FormatMoney(p.Price); got != tt.wantPrice {
				t.Errorf("Price = %q, want %q", got, tt.wantPrice)
			}
			if got := IntValue(p.StockQuantity); got != tt.wantStock {
				t.Errorf("StockQuantity = %q, want %q", got, tt.wantStock)
			}
		})
	}
}

func TestNormalizeProductLabels(t *testing.T) {
	p := NormalizeProduct(productRow("1", "  Smart Watch ", "home APPLIANCES", "acme", "10", "1"))
	if p.ProductName.String != "Smart Watch" {
		t.Errorf("ProductName = %q", p.ProductName.String)
	}
	if p.Category.String != "Home Appliances" {
		t.Errorf("Category = %q", p.Category.String)
	}
	if p.Brand.String != "Acme" {
		t.Errorf("Brand = %q", p.Brand.String)
	}
}

func TestCleanProducts(t *testing.T) {
	rows := []RawRow{
		productRow("1", "Phone", "", "", "100", "1"),
		productRow("2", "", "", "", "5", "1"),
		productRow("x", "Bad", "", "", "5", "1"),
		productRow("1", "Phone Copy", "", "", "200", "1"),
		productRow("3", "Cable", "", "", "", "1"),
	}

	got, report := CleanProducts(rows)

	var ids []int64
	for _, p := range got {
		ids = append(ids, p.ProductID.Int64)
	}
	if want := []int64{1, 3}; !reflect.DeepEqual(ids, want) {
		t.Errorf("kept ids = %v, want %v", ids, want)
	}
	if got[0].ProductName.String != "Phone" {
		t.Errorf("kept %q, want the first row per id", got[0].ProductName.String)
	}

	want := ProductReport{RowsIn: 5, Invalid: 2, Duplicates: 1, RowsOut: 2}
	if report != want {
		t.Errorf("report = %+v, want %+v", report, want)
	}
}

func TestCleanProductsIdempotent(t *testing.T) {
	rows := []RawRow{
		productRow("1", "Phone", "electronics", "acme", "$499.995", "3"),
		productRow("2", "Mug", "KITCHEN", "", "abc", "NA"),
	}

	first, _ := CleanProducts(rows)
	reread := make([]RawRow, len(first))
	for i, p := range first {
		reread[i] = p.ToRawRow()
	}
	second, _ := CleanProducts(reread)

	if len(first) != len(second) {
		t.Fatalf("len changed: %d then %d", len(first), len(second))
	}
	for i := range first {
		if !reflect.DeepEqual(first[i].ToRawRow(), second[i].ToRawRow()) {
			t.Errorf("row %d changed:\nfirst:  %v\nsecond: %v", i, first[i].ToRawRow(), second[i].ToRawRow())
		}
	}
}

func TestPriceByProductID(t *testing.T) {
	products, _ := CleanProducts([]RawRow{
		productRow("1", "Priced", "", "", "2.50", ""),
		productRow("2", "Unpriced", "", "", "", ""),
	})

	prices := PriceByProductID(products)

	if p, ok := prices.Price(ParseInt("1")); !ok || FormatMoney(p) != "2.50" {
		t.Errorf("Price(1) = %s, %v; want 2.50, true", FormatMoney(p), ok)
	}
	if _, ok := prices.Price(ParseInt("2")); ok {
		t.Error("Price(2) should be missing")
	}
	if _, ok := prices.Price(ParseInt("")); ok {
		t.Error("Price(absent) should be missing")
	}

	ref := NewReference(nil, products)
	if !ref.ProductIDs.Has(ParseInt("2")) {
		t.Error("unpriced product should still be a known product id")
	}
	if len(ref.CustomerIDs) != 0 {
		t.Errorf("CustomerIDs = %v, want empty", ref.CustomerIDs)
	}
}
