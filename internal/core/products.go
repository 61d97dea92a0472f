package core

import "github.com/jackc/pgx/v5/pgtype"

// NormalizeProduct coerces every field of a raw product row.
// Negative prices and stock quantities are treated as absent.
func NormalizeProduct(row RawRow) Product {
	price := RoundMoneyString(row.Value(ColPrice))
	if price.Valid && price.Int.Sign() < 0 {
		price = pgtype.Numeric{}
	}

	return Product{
		ProductID:     ParsePositiveInt(row.Value(ColProductID)),
		ProductName:   row.Text(ColProductName),
		Category:      TitleCase(row.Value(ColCategory)),
		Brand:         TitleCase(row.Value(ColBrand)),
		Price:         price,
		StockQuantity: ParseNonNegativeInt(row.Value(ColStockQuantity)),
	}
}

// CleanProducts normalizes raw product rows, drops rows without an id or
// name, and keeps the first row per product_id in input order.
func CleanProducts(rows []RawRow) ([]Product, ProductReport) {
	report := ProductReport{RowsIn: len(rows)}

	seen := make(map[int64]struct{}, len(rows))
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		p := NormalizeProduct(row)
		if !p.ProductID.Valid || !p.ProductName.Valid {
			report.Invalid++
			continue
		}
		if _, dup := seen[p.ProductID.Int64]; dup {
			report.Duplicates++
			continue
		}
		seen[p.ProductID.Int64] = struct{}{}
		out = append(out, p)
	}

	report.RowsOut = len(out)
	return out, report
}

// ProductIDs returns the frozen id set of cleaned products.
func ProductIDs(products []Product) IDSet {
	ids := make(IDSet, len(products))
	for _, p := range products {
		if p.ProductID.Valid {
			ids[p.ProductID.Int64] = struct{}{}
		}
	}
	return ids
}

// PriceByProductID returns the price lookup of cleaned products.
// Products without a price are left out.
func PriceByProductID(products []Product) PriceLookup {
	prices := make(PriceLookup, len(products))
	for _, p := range products {
		if p.ProductID.Valid && isFinite(p.Price) {
			prices[p.ProductID.Int64] = p.Price
		}
	}
	return prices
}

// NewReference builds the reconciler's view of cleaned customers and products.
func NewReference(customers []Customer, products []Product) Reference {
	return Reference{
		CustomerIDs: CustomerIDs(customers),
		ProductIDs:  ProductIDs(products),
		Prices:      PriceByProductID(products),
	}
}
