// Package csvio reads raw source tables into core rows and writes cleaned
// tables back out as CSV.
//
// Readers validate the header against the table registered in package
// core/tables. Data cells are never rejected here: every row reaches the
// cleaners, which turn bad cells into absent values.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JonMunkholm/shopclean/internal/core"
	_ "github.com/JonMunkholm/shopclean/internal/core/tables" // registers customers, products, orders
	"github.com/JonMunkholm/shopclean/internal/logging"
)

// ContextCheckInterval is how often (in rows) reading checks for cancellation.
var ContextCheckInterval = 100

// ErrEmptyFile is returned when a source has no header row.
var ErrEmptyFile = errors.New("empty file")

// Table is one parsed source.
type Table struct {
	Key    string        // Registered table key
	Header []string      // Header as it appeared in the file
	Rows   []core.RawRow // Non-blank data rows, keyed by lowercase header
	Bytes  int64         // Bytes consumed from the source
}

// ReadTable parses CSV from r as the registered table key.
//
// Returns an error only for source-level problems: unknown table, empty
// input, malformed CSV or missing identity columns.
func ReadTable(ctx context.Context, r io.Reader, key string) (*Table, error) {
	def, ok := core.Get(key)
	if !ok {
		return nil, fmt.Errorf("unknown table %q", key)
	}

	src := wrapSource(r)
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w", key, ErrEmptyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: invalid csv: %w", key, err)
	}

	idx, err := core.ValidateHeaders(header, def.FieldSpecs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	cols := columnNames(header, idx, def.FieldSpecs)

	t := &Table{Key: key, Header: header}
	for n := 1; ; n++ {
		if n%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%s: read cancelled: %w", key, err)
			}
		}

		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: invalid csv: %w", key, err)
		}
		if isEmptyRow(record) {
			continue
		}
		if len(record) > len(header) && !isEmptyRow(record[len(header):]) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%s: invalid csv: line %d has %d fields, header has %d",
				key, line, len(record), len(header))
		}
		t.Rows = append(t.Rows, toRawRow(record, cols))
	}

	t.Bytes = src.n
	return t, nil
}

// ReadFile opens path and parses it as the registered table key.
func ReadFile(ctx context.Context, path, key string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", key, err)
	}
	defer f.Close()

	t, err := ReadTable(ctx, f, key)
	if err != nil {
		return nil, err
	}

	logging.WithFields(ctx, "table", key, "path", path).Info("source loaded",
		"rows", len(t.Rows),
		"bytes", t.Bytes,
	)
	return t, nil
}

// columnNames maps each header position to its lookup name. Positions that
// repeat an earlier header, and derived columns, are left blank so they are
// not read.
func columnNames(header []string, idx core.HeaderIndex, specs []core.FieldSpec) []string {
	cols := make([]string, len(header))
	for name, i := range idx {
		cols[i] = name
	}
	for _, spec := range specs {
		if !spec.Derived {
			continue
		}
		if i, ok := idx[strings.ToLower(spec.Name)]; ok {
			cols[i] = ""
		}
	}
	return cols
}

func toRawRow(record []string, cols []string) core.RawRow {
	row := make(core.RawRow, len(cols))
	for i, name := range cols {
		if name == "" || i >= len(record) {
			continue
		}
		row[name] = core.CleanCell(record[i])
	}
	return row
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
