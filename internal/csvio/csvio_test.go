package csvio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/JonMunkholm/shopclean/internal/core"
)

// ----------------------------------------------------------------------------
// Stream Tests
// ----------------------------------------------------------------------------

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"with BOM", append([]byte{0xEF, 0xBB, 0xBF}, "a,b"...), "a,b"},
		{"without BOM", []byte("a,b"), "a,b"},
		{"short input", []byte("a"), "a"},
		{"empty", nil, ""},
		{"BOM only", []byte{0xEF, 0xBB, 0xBF}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(skipBOM(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"ascii", []byte("name,city"), "name,city"},
		{"valid multibyte", []byte("Zoë,₹100"), "Zoë,₹100"},
		{"invalid byte", []byte("ab\xffcd"), "ab?cd"},
		{"truncated sequence", []byte("x\xe2\x82"), "x??"},
		{"latin1 accent", []byte("caf\xe9"), "caf?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// OneByteReader forces multibyte runes across read boundaries.
			r := newUTF8Sanitizer(iotest.OneByteReader(bytes.NewReader(tt.input)))
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUTF8SanitizerSmallBuffer(t *testing.T) {
	r := newUTF8Sanitizer(strings.NewReader("₹₹"))
	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
	}
	if string(out) != "₹₹" {
		t.Errorf("got %q, want %q", out, "₹₹")
	}
}

// ----------------------------------------------------------------------------
// ReadTable Tests
// ----------------------------------------------------------------------------

func TestReadTable(t *testing.T) {
	input := "\xEF\xBB\xBFCustomer_ID,Name,Email,Phone,City,State,Signup_Date\n" +
		"1, Asha ,asha@mail.com,+91 98765 43210,pune,mh,2023-01-01\n" +
		",,,,,,\n" +
		"2,Ravi\n" +
		"3,=\"Meera\",NA,,,,\n"

	table, err := ReadTable(context.Background(), strings.NewReader(input), core.TableCustomers)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}

	if len(table.Rows) != 3 {
		t.Fatalf("got %d rows, want 3 (blank row skipped)", len(table.Rows))
	}
	if got := table.Rows[0].Value("name"); got != "Asha" {
		t.Errorf("row 0 name = %q, want trimmed Asha", got)
	}
	if got := table.Rows[0].Value("signup_date"); got != "2023-01-01" {
		t.Errorf("row 0 signup_date = %q", got)
	}
	if _, ok := table.Rows[1]["email"]; ok {
		t.Error("short row should not carry trailing columns")
	}
	if got := table.Rows[2].Value("name"); got != "Meera" {
		t.Errorf("row 2 name = %q, want formula prefix removed", got)
	}
	if table.Bytes != int64(len(input)-3) {
		t.Errorf("Bytes = %d, want %d", table.Bytes, len(input)-3)
	}
}

func TestReadTableKeepsQuotesInValues(t *testing.T) {
	input := "product_id,product_name,category,brand,price,stock_quantity\n" +
		"10,\"Monitor 27\"\"\",electronics,acme,250,5\n" +
		"11,'Tis The Season Mug,home,acme,12.5,3\n" +
		"12,=\"00123\",home,acme,1,1\n"

	table, err := ReadTable(context.Background(), strings.NewReader(input), core.TableProducts)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}

	products, _ := core.CleanProducts(table.Rows)
	want := []string{`Monitor 27"`, "'Tis The Season Mug", "00123"}
	if len(products) != len(want) {
		t.Fatalf("got %d products, want %d", len(products), len(want))
	}
	for i, p := range products {
		if p.ProductName.String != want[i] {
			t.Errorf("product %d name = %q, want %q", i, p.ProductName.String, want[i])
		}
	}
}

func TestReadTableLegacyOrderDate(t *testing.T) {
	input := "order_id,customer_id,product_id,quantity,order_date\n1,1,10,2,2024-01-01\n"

	table, err := ReadTable(context.Background(), strings.NewReader(input), core.TableOrders)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}

	o := core.NormalizeOrder(table.Rows[0])
	if got := core.FormatTimestamp(o.OrderTimestamp); got != "2024-01-01T00:00:00Z" {
		t.Errorf("OrderTimestamp = %q, want value from order_date", got)
	}
}

func TestReadTableSkipsDerivedColumns(t *testing.T) {
	input := "order_id,customer_id,product_id,quantity,Order_Value\n1,1,10,2,999.99\n"

	table, err := ReadTable(context.Background(), strings.NewReader(input), core.TableOrders)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if v, ok := table.Rows[0][core.ColOrderValue]; ok {
		t.Errorf("order_value = %q, want derived column not read", v)
	}
	if got := table.Rows[0].Value(core.ColQuantity); got != "2" {
		t.Errorf("quantity = %q, want 2", got)
	}
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name     string
		table    string
		input    string
		wantCode string
	}{
		{
			name:     "empty file",
			table:    core.TableProducts,
			input:    "",
			wantCode: "FILE005",
		},
		{
			name:     "missing identity column",
			table:    core.TableProducts,
			input:    "product_id,price\n1,2.50\n",
			wantCode: "VAL004",
		},
		{
			name:     "row wider than header",
			table:    core.TableProducts,
			input:    "product_id,product_name\n1,Phone,extra\n",
			wantCode: "FILE002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(context.Background(), strings.NewReader(tt.input), tt.table)
			if err == nil {
				t.Fatal("ReadTable() should fail")
			}
			if code := core.MapError(err).Code; code != tt.wantCode {
				t.Errorf("code = %s, want %s (err: %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestReadTableUnknown(t *testing.T) {
	if _, err := ReadTable(context.Background(), strings.NewReader("a\n"), "widgets"); err == nil {
		t.Error("ReadTable() should reject an unregistered table")
	}
}

func TestReadTableCancelled(t *testing.T) {
	var b strings.Builder
	b.WriteString("product_id,product_name\n")
	for i := 0; i < 500; i++ {
		b.WriteString("1,Phone\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadTable(ctx, strings.NewReader(b.String()), core.TableProducts)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// ----------------------------------------------------------------------------
// Write Tests
// ----------------------------------------------------------------------------

func TestWriteTableColumnOrder(t *testing.T) {
	products, _ := core.CleanProducts([]core.RawRow{
		{"product_id": "1", "product_name": "Phone, Pro", "price": "2.005", "stock_quantity": "3"},
		{"product_id": "2", "product_name": "Mug", "price": "abc"},
	})

	var buf bytes.Buffer
	if err := WriteTable(&buf, core.TableProducts, ProductRows(products)); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	want := "product_id,product_name,category,brand,price,stock_quantity\n" +
		"1,\"Phone, Pro\",,,2.01,3\n" +
		"2,Mug,,,,\n"
	if buf.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	ref := core.NewReference(
		[]core.Customer{{CustomerID: core.ParseInt("1"), Name: core.ToPgText("A")}},
		[]core.Product{{ProductID: core.ParseInt("10"), ProductName: core.ToPgText("P"), Price: core.RoundMoneyString("9.99")}},
	)
	now := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	orders, _ := core.ReconcileOrders([]core.RawRow{
		{"order_id": "1", "customer_id": "1", "product_id": "10", "quantity": "3", "shipping_city": "new delhi"},
	}, ref, now)

	var buf bytes.Buffer
	if err := WriteTable(&buf, core.TableOrders, OrderRows(orders)); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	table, err := ReadTable(context.Background(), &buf, core.TableOrders)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	again, report := core.ReconcileOrders(table.Rows, ref, now)

	if report.Backfilled != 0 {
		t.Errorf("Backfilled = %d on re-read, want 0", report.Backfilled)
	}
	if len(again) != 1 {
		t.Fatalf("got %d orders, want 1", len(again))
	}
	got, want := again[0].ToRawRow(), orders[0].ToRawRow()
	for col, v := range want {
		if got[col] != v {
			t.Errorf("%s = %q, want %q", col, got[col], v)
		}
	}
	if want["order_value"] != "29.97" || want["order_timestamp"] != "2024-01-02T03:04:05Z" {
		t.Errorf("unexpected serialized order: %v", want)
	}
}

// ----------------------------------------------------------------------------
// Dataset Tests
// ----------------------------------------------------------------------------

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadDatasetAndWriteResult(t *testing.T) {
	dir := t.TempDir()
	in := Paths{
		Customers: writeFixture(t, dir, "customers.csv",
			"customer_id,name,email,phone,city,state,signup_date\n1,Asha,a@x.com,,,,2023-01-01\n"),
		Products: writeFixture(t, dir, "products.csv",
			"product_id,product_name,category,brand,price,stock_quantity\n10,Phone,,,100,1\n"),
		Orders: writeFixture(t, dir, "orders.csv",
			"order_id,customer_id,product_id,quantity,order_timestamp\n1,1,10,2,2024-01-01\n2,9,10,1,2024-01-01\n"),
	}

	ds, err := LoadDataset(context.Background(), in)
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if len(ds.Customers) != 1 || len(ds.Products) != 1 || len(ds.Orders) != 2 {
		t.Fatalf("dataset sizes = %d/%d/%d, want 1/1/2", len(ds.Customers), len(ds.Products), len(ds.Orders))
	}

	opts := core.DefaultOptions()
	res, err := core.Run(context.Background(), ds, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := Paths{
		Customers: filepath.Join(dir, "out", "customers.csv"),
		Products:  filepath.Join(dir, "out", "products.csv"),
		Orders:    filepath.Join(dir, "out", "orders.csv"),
	}
	if err := WriteResult(res, out); err != nil {
		t.Fatalf("WriteResult() error = %v", err)
	}

	data, err := os.ReadFile(out.Orders)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "order_id,customer_id,product_id,quantity,order_timestamp,payment_method,status,shipping_city,order_value\n" +
		"1,1,10,2,2024-01-01T00:00:00Z,Unknown,Unknown,,200.00\n"
	if string(data) != want {
		t.Errorf("orders output =\n%s\nwant\n%s", data, want)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "out"))
	if len(entries) != 3 {
		t.Errorf("output dir has %d entries, want 3 (no temp files left)", len(entries))
	}
}

func TestLoadDatasetErrors(t *testing.T) {
	dir := t.TempDir()
	customers := writeFixture(t, dir, "customers.csv", "customer_id,name\n1,Asha\n")
	products := writeFixture(t, dir, "products.csv", "product_id,product_name\n1,Phone\n")
	orders := writeFixture(t, dir, "orders.csv", "order_id,customer_id,product_id\n1,1,1\n")

	tests := []struct {
		name     string
		paths    Paths
		wantCode string
	}{
		{
			name:     "missing path",
			paths:    Paths{Customers: "", Products: products, Orders: orders},
			wantCode: "FILE004",
		},
		{
			name:     "file does not exist",
			paths:    Paths{Customers: customers, Products: filepath.Join(dir, "nope.csv"), Orders: orders},
			wantCode: "FILE003",
		},
		{
			name:     "wrong header",
			paths:    Paths{Customers: customers, Products: products, Orders: products},
			wantCode: "VAL004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDataset(context.Background(), tt.paths)
			if err == nil {
				t.Fatal("LoadDataset() should fail")
			}
			if code := core.MapError(err).Code; code != tt.wantCode {
				t.Errorf("code = %s, want %s (err: %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestAppendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream", "orders.csv")
	batch := func(id string) []core.RawRow {
		return []core.RawRow{{"order_id": id, "customer_id": "1", "product_id": "1", "quantity": "1"}}
	}

	if err := AppendFile(path, core.TableOrders, batch("1")); err != nil {
		t.Fatalf("first AppendFile() error = %v", err)
	}
	if err := AppendFile(path, core.TableOrders, batch("2")); err != nil {
		t.Fatalf("second AppendFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if n := strings.Count(string(data), "order_id"); n != 1 {
		t.Errorf("header written %d times:\n%s", n, data)
	}

	tbl, err := ReadFile(context.Background(), path, core.TableOrders)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[0]["order_id"] != "1" || tbl.Rows[1]["order_id"] != "2" {
		t.Errorf("rows = %v", tbl.Rows)
	}
}

func TestLoadReference(t *testing.T) {
	dir := t.TempDir()
	customers := writeFixture(t, dir, "customers.csv", "customer_id,name\n1,Asha\n2,Ravi\n,Nobody\n")
	products := writeFixture(t, dir, "products.csv", "product_id,product_name,price\n10,Phone,250\n11,Mug,\n")

	ref, err := LoadReference(context.Background(), customers, products, "IN")
	if err != nil {
		t.Fatalf("LoadReference() error = %v", err)
	}

	if len(ref.CustomerIDs) != 2 {
		t.Errorf("CustomerIDs = %v, want 1 and 2", ref.CustomerIDs)
	}
	if len(ref.ProductIDs) != 2 {
		t.Errorf("ProductIDs = %v, want 10 and 11", ref.ProductIDs)
	}
	if _, ok := ref.Prices[10]; !ok {
		t.Error("product 10 should have a price")
	}
	if _, ok := ref.Prices[11]; ok {
		t.Error("product 11 should not have a price")
	}

	if _, err := LoadReference(context.Background(), customers, filepath.Join(dir, "missing.csv"), "IN"); err == nil {
		t.Error("LoadReference() should fail for a missing source")
	}
}
