package core

import (
	"sort"

	"github.com/jackc/pgx/v5/pgtype"
)

// NormalizeCustomer coerces every field of a raw customer row.
// Identity fields that fail to parse are left absent for the caller to drop.
func NormalizeCustomer(row RawRow, region string) Customer {
	return Customer{
		CustomerID: ParsePositiveInt(row.Value(ColCustomerID)),
		Name:       row.Text(ColName),
		Email:      NormalizeEmail(row.Value(ColEmail)),
		Phone:      NormalizePhone(row.Value(ColPhone), region),
		City:       TitleCase(row.Value(ColCity)),
		State:      TitleCase(row.Value(ColState)),
		SignupDate: ParseDate(row.Value(ColSignupDate)),
	}
}

// CleanCustomers normalizes raw customer rows, drops rows without an id or
// name, orders the rest by signup date and keeps the earliest customer per
// dedup key.
//
// Absent signup dates sort before every present date. Rows with equal dates
// keep their input order.
func CleanCustomers(rows []RawRow, region string) ([]Customer, CustomerReport) {
	report := CustomerReport{RowsIn: len(rows)}

	valid := make([]Customer, 0, len(rows))
	for _, row := range rows {
		c := NormalizeCustomer(row, region)
		if !c.CustomerID.Valid || !c.Name.Valid {
			report.Invalid++
			continue
		}
		valid = append(valid, c)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return timestampLess(valid[i].SignupDate, valid[j].SignupDate)
	})

	seen := make(map[string]struct{}, len(valid))
	out := make([]Customer, 0, len(valid))
	for _, c := range valid {
		key := CustomerDedupKey(c)
		if _, dup := seen[key]; dup {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	report.RowsOut = len(out)
	return out, report
}

// CustomerDedupKey identifies duplicate customers: the email when present,
// otherwise the phone, otherwise the name joined with the signup date.
func CustomerDedupKey(c Customer) string {
	switch {
	case c.Email.Valid:
		return "email:" + c.Email.String
	case c.Phone.Valid:
		return "phone:" + c.Phone.String
	default:
		return "name:" + c.Name.String + "|" + FormatTimestamp(c.SignupDate)
	}
}

// CustomerIDs returns the frozen id set of cleaned customers.
func CustomerIDs(customers []Customer) IDSet {
	ids := make(IDSet, len(customers))
	for _, c := range customers {
		if c.CustomerID.Valid {
			ids[c.CustomerID.Int64] = struct{}{}
		}
	}
	return ids
}

// timestampLess orders absent timestamps first, then chronologically.
func timestampLess(a, b pgtype.Timestamptz) bool {
	switch {
	case !a.Valid:
		return b.Valid
	case !b.Valid:
		return false
	default:
		return a.Time.Before(b.Time)
	}
}
