package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/shopclean/internal/core"
)

// WriteTable writes rows as CSV with the registered column order of key.
// Absent values are written as empty cells.
func WriteTable(w io.Writer, key string, rows []core.RawRow) error {
	def, ok := core.Get(key)
	if !ok {
		return fmt.Errorf("unknown table %q", key)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(def.Info.Columns); err != nil {
		return fmt.Errorf("%s: write header: %w", key, err)
	}
	return flushRows(cw, key, def.Info.Columns, rows)
}

// writeRows writes rows without a header.
func writeRows(w io.Writer, key string, rows []core.RawRow) error {
	def, ok := core.Get(key)
	if !ok {
		return fmt.Errorf("unknown table %q", key)
	}
	return flushRows(csv.NewWriter(w), key, def.Info.Columns, rows)
}

func flushRows(cw *csv.Writer, key string, cols []string, rows []core.RawRow) error {
	record := make([]string, len(cols))
	for i, row := range rows {
		for j, col := range cols {
			record[j] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("%s: write row %d: %w", key, i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%s: flush: %w", key, err)
	}
	return nil
}

// CustomerRows serializes cleaned customers.
func CustomerRows(customers []core.Customer) []core.RawRow {
	rows := make([]core.RawRow, len(customers))
	for i, c := range customers {
		rows[i] = c.ToRawRow()
	}
	return rows
}

// ProductRows serializes cleaned products.
func ProductRows(products []core.Product) []core.RawRow {
	rows := make([]core.RawRow, len(products))
	for i, p := range products {
		rows[i] = p.ToRawRow()
	}
	return rows
}

// OrderRows serializes reconciled orders.
func OrderRows(orders []core.Order) []core.RawRow {
	rows := make([]core.RawRow, len(orders))
	for i, o := range orders {
		rows[i] = o.ToRawRow()
	}
	return rows
}

// WriteFile writes a table to path. The file is written next to its final
// location and renamed into place, so readers never see a partial table.
func WriteFile(path, key string, rows []core.RawRow) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%s: create output dir: %w", key, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%s: create output: %w", key, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := WriteTable(tmp, key, rows); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: close output: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%s: rename output: %w", key, err)
	}
	return nil
}

// AppendFile appends rows to the table at path, creating it with a header
// when it does not exist or is empty.
func AppendFile(path, key string, rows []core.RawRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%s: create output dir: %w", key, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%s: open output: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("%s: stat output: %w", key, err)
	}

	if info.Size() == 0 {
		err = WriteTable(f, key, rows)
	} else {
		err = writeRows(f, key, rows)
	}
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: close output: %w", key, err)
	}
	return nil
}
