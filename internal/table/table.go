// Package table accumulates pivoted observation rows and writes them as
// canonical CSV output: one key column (a date or month-day), one column per
// standardized measurement, rows sorted by key.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Table is a sparse (key × column) grid of measurement values. Keys are
// formatted date strings chosen so lexicographic order equals chronological
// order (YYYY-MM-DD, YYYY-MM-DD HH:MM:SS, or MM-DD).
type Table struct {
	keyName string
	columns map[string]struct{}
	rows    map[string]map[string]float64
}

// New creates an empty Table whose first CSV column is named keyName.
func New(keyName string) *Table {
	return &Table{
		keyName: keyName,
		columns: make(map[string]struct{}),
		rows:    make(map[string]map[string]float64),
	}
}

// Set records a value for (key, column), overwriting any previous value.
func (t *Table) Set(key, column string, value float64) {
	t.columns[column] = struct{}{}
	row, ok := t.rows[key]
	if !ok {
		row = make(map[string]float64)
		t.rows[key] = row
	}
	row[column] = value
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Empty reports whether the table holds no rows.
func (t *Table) Empty() bool {
	return len(t.rows) == 0
}

// Columns returns the measurement column names in output order.
func (t *Table) Columns() []string {
	cols := make([]string, 0, len(t.columns))
	for c := range t.columns {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Keys returns the row keys in output order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteCSV writes the table as CSV. Output is deterministic: rows sorted by
// key, columns sorted by name, missing cells empty.
func (t *Table) WriteCSV(w io.Writer) error {
	cols := t.Columns()
	cw := csv.NewWriter(w)

	header := append([]string{t.keyName}, cols...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for _, key := range t.Keys() {
		record[0] = key
		row := t.rows[key]
		for i, col := range cols {
			if v, ok := row[col]; ok {
				record[i+1] = formatValue(v)
			} else {
				record[i+1] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", key, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path, creating parent directories and fully
// rewriting any existing file so reprocessing is idempotent.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// formatValue renders a measurement rounded to 4 decimal places with
// trailing zeros trimmed, keeping unit-converted values readable without
// float noise (e.g. (68-32)*5/9 prints as 20, not 20.000000000000004).
func formatValue(v float64) string {
	r := math.Round(v*1e4) / 1e4
	return strconv.FormatFloat(r, 'f', -1, 64)
}
