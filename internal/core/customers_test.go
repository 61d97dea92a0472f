package core

import (
	"reflect"
	"testing"
)

func customerRow(id, name, email, phone, city, state, signup string) RawRow {
	return RawRow{
		ColCustomerID: id,
		ColName:       name,
		ColEmail:      email,
		ColPhone:      phone,
		ColCity:       city,
		ColState:      state,
		ColSignupDate: signup,
	}
}

func TestNormalizeCustomer(t *testing.T) {
	c := NormalizeCustomer(customerRow("7", " Asha Rao ", "ASHA@Mail.com ", "+91 98765 43210",
		"new delhi", "DELHI", "2023-05-01 08:00:00"), "IN")

	if !c.CustomerID.Valid || c.CustomerID.Int64 != 7 {
		t.Errorf("CustomerID = %+v, want 7", c.CustomerID)
	}
	if c.Name.String != "Asha Rao" {
		t.Errorf("Name = %q, want %q", c.Name.String, "Asha Rao")
	}
	if c.Email.String != "asha@mail.com" {
		t.Errorf("Email = %q", c.Email.String)
	}
	if c.Phone.String != "+919876543210" {
		t.Errorf("Phone = %q", c.Phone.String)
	}
	if c.City.String != "New Delhi" || c.State.String != "Delhi" {
		t.Errorf("City/State = %q/%q", c.City.String, c.State.String)
	}
	if got := FormatTimestamp(c.SignupDate); got != "2023-05-01T08:00:00Z" {
		t.Errorf("SignupDate = %q", got)
	}
}

func TestCleanCustomersDropsInvalid(t *testing.T) {
	rows := []RawRow{
		customerRow("1", "Asha", "a@x.com", "", "", "", "2023-01-01"),
		customerRow("", "No Id", "b@x.com", "", "", "", "2023-01-02"),
		customerRow("abc", "Bad Id", "c@x.com", "", "", "", "2023-01-03"),
		customerRow("4", "NA", "d@x.com", "", "", "", "2023-01-04"),
		customerRow("0", "Zero", "e@x.com", "", "", "", "2023-01-05"),
		customerRow("6", "Kiran", "f@x.com", "", "", "", "2023-01-06"),
	}

	got, report := CleanCustomers(rows, "IN")

	if len(got) != 2 {
		t.Fatalf("got %d customers, want 2", len(got))
	}
	want := CustomerReport{RowsIn: 6, Invalid: 4, Duplicates: 0, RowsOut: 2}
	if report != want {
		t.Errorf("report = %+v, want %+v", report, want)
	}
	for _, c := range got {
		if !c.CustomerID.Valid || !c.Name.Valid {
			t.Errorf("customer without identity survived: %+v", c)
		}
	}
}

func TestCleanCustomersDedupKeepsEarliest(t *testing.T) {
	rows := []RawRow{
		customerRow("2", "Asha Later", "ASHA@mail.com", "", "", "", "2023-06-01"),
		customerRow("1", "Asha Early", "asha@mail.com", "", "", "", "2023-01-01"),
	}

	got, report := CleanCustomers(rows, "IN")

	if len(got) != 1 {
		t.Fatalf("got %d customers, want 1", len(got))
	}
	if got[0].CustomerID.Int64 != 1 {
		t.Errorf("kept customer %d, want the earlier signup (1)", got[0].CustomerID.Int64)
	}
	if report.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", report.Duplicates)
	}
}

func TestCleanCustomersDedupKeyFallbacks(t *testing.T) {
	rows := []RawRow{
		// Same phone in two formats, no email.
		customerRow("1", "Ravi", "", "+91 98765 43210", "", "", "2023-01-01"),
		customerRow("2", "Ravi K", "", "9876543210", "", "", "2023-02-01"),
		// No email or phone: name plus signup date decides.
		customerRow("3", "Meera", "", "", "", "", "2023-03-01"),
		customerRow("4", "Meera", "", "", "", "", "2023-03-01"),
		customerRow("5", "Meera", "", "", "", "", "2023-04-01"),
	}

	got, report := CleanCustomers(rows, "IN")

	var ids []int64
	for _, c := range got {
		ids = append(ids, c.CustomerID.Int64)
	}
	if want := []int64{1, 3, 5}; !reflect.DeepEqual(ids, want) {
		t.Errorf("kept ids = %v, want %v", ids, want)
	}
	if report.Duplicates != 2 {
		t.Errorf("Duplicates = %d, want 2", report.Duplicates)
	}
}

func TestCleanCustomersAbsentSignupSortsFirst(t *testing.T) {
	rows := []RawRow{
		customerRow("1", "Dated", "same@mail.com", "", "", "", "2023-01-01"),
		customerRow("2", "Undated", "same@mail.com", "", "", "", "garbage"),
		customerRow("3", "Other", "other@mail.com", "", "", "", "2022-01-01"),
	}

	got, _ := CleanCustomers(rows, "IN")

	if len(got) != 2 {
		t.Fatalf("got %d customers, want 2", len(got))
	}
	if got[0].CustomerID.Int64 != 2 || got[0].SignupDate.Valid {
		t.Errorf("first customer = %d, want the undated customer 2", got[0].CustomerID.Int64)
	}
	if got[1].CustomerID.Int64 != 3 {
		t.Errorf("second customer = %d, want 3", got[1].CustomerID.Int64)
	}
}

func TestCleanCustomersUniqueKeys(t *testing.T) {
	rows := []RawRow{
		customerRow("1", "A", "x@mail.com", "", "", "", "2023-01-01"),
		customerRow("2", "B", "X@MAIL.COM", "", "", "", "2023-01-02"),
		customerRow("3", "C", "", "+91 98765 43210", "", "", "2023-01-03"),
		customerRow("4", "D", "", "+919876543210", "", "", "2023-01-04"),
		customerRow("5", "E", "y@mail.com", "+919876543210", "", "", "2023-01-05"),
	}

	got, _ := CleanCustomers(rows, "IN")

	seen := make(map[string]bool)
	for _, c := range got {
		key := CustomerDedupKey(c)
		if seen[key] {
			t.Errorf("duplicate dedup key %q in output", key)
		}
		seen[key] = true
	}
	if len(got) != 3 {
		t.Errorf("got %d customers, want 3", len(got))
	}
}

func TestCleanCustomersIdempotent(t *testing.T) {
	rows := []RawRow{
		customerRow("1", "Asha", "Asha@Mail.com", "+91 98765 43210", "new delhi", "delhi", "2023-01-01T10:00:00+05:30"),
		customerRow("2", "Ravi", "", "12345678", "PUNE", "", "NA"),
		customerRow("3", "Asha Dup", "asha@mail.com", "", "", "", "2023-05-01"),
	}

	first, _ := CleanCustomers(rows, "IN")

	reread := make([]RawRow, len(first))
	for i, c := range first {
		reread[i] = c.ToRawRow()
	}
	second, report := CleanCustomers(reread, "IN")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second pass changed output:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if report.Invalid != 0 || report.Duplicates != 0 {
		t.Errorf("second pass report = %+v, want no drops", report)
	}
}

func TestCleanCustomersIdempotentPhoneFallback(t *testing.T) {
	rows := []RawRow{
		customerRow("1", "A", "", "+9876543210", "", "", "2023-01-01"),
		customerRow("2", "B", "", "9876543210", "", "", "2023-01-02"),
		customerRow("3", "C", "", "+0 98765 43210", "", "", "2023-01-03"),
		customerRow("4", "D", "", "12345678", "", "", "2023-01-04"),
	}

	first, report := CleanCustomers(rows, "IN")
	if report.Duplicates != 2 {
		t.Errorf("first pass duplicates = %d, want 2", report.Duplicates)
	}

	reread := make([]RawRow, len(first))
	for i, c := range first {
		reread[i] = c.ToRawRow()
	}
	second, report := CleanCustomers(reread, "IN")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second pass changed output:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if report.Duplicates != 0 {
		t.Errorf("second pass duplicates = %d, want 0", report.Duplicates)
	}
}

func TestCustomerIDs(t *testing.T) {
	got, _ := CleanCustomers([]RawRow{
		customerRow("10", "A", "", "", "", "", ""),
		customerRow("20", "B", "", "", "", "", "2023-01-01"),
	}, "IN")

	ids := CustomerIDs(got)
	if len(ids) != 2 {
		t.Fatalf("len(ids) = %d, want 2", len(ids))
	}
	if !ids.Has(ParseInt("10")) || !ids.Has(ParseInt("20")) {
		t.Errorf("ids = %v, want 10 and 20", ids)
	}
	if ids.Has(ParseInt("")) {
		t.Error("absent id should never be a member")
	}
}
