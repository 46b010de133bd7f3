// Package records loads and saves the spreadsheet tables that back the
// inventory. Every cell is kept as a string; code and price columns are
// canonicalized once at load and again before save.
package records

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNotFound matches *NotFoundError.
	ErrNotFound = errors.New("records: file not found")
	// ErrUnsupportedFileType reports an extension other than .csv, .xlsx or .txt.
	ErrUnsupportedFileType = errors.New("records: unsupported file type")
	// ErrEmptyWorkbook indicates an xlsx file without sheets.
	ErrEmptyWorkbook = errors.New("records: workbook has no sheets")
)

// NotFoundError reports a missing backing file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("records: file %q not found", e.Path)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Row is a single record keyed by column name.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of columns plus rows.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) Table {
	return Table{Columns: slices.Clone(columns)}
}

// Len returns the row count.
func (t Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the column exists.
func (t Table) Has(column string) bool {
	return slices.Contains(t.Columns, column)
}

// Column returns every value of a column in row order.
func (t Table) Column(name string) []string {
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		values = append(values, row[name])
	}
	return values
}

// Append adds a row, registering any column the table does not know yet.
func (t *Table) Append(row Row) {
	for _, key := range sortedKeys(row) {
		if !t.Has(key) {
			t.Columns = append(t.Columns, key)
		}
	}
	t.Rows = append(t.Rows, row)
}

// Clone deep-copies the table.
func (t Table) Clone() Table {
	out := Table{Columns: slices.Clone(t.Columns), Rows: make([]Row, 0, len(t.Rows))}
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, row.Clone())
	}
	return out
}

// Matrix renders the table as header + rows in column order.
func (t Table) Matrix() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, slices.Clone(t.Columns))
	for _, row := range t.Rows {
		line := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			line[i] = row[col]
		}
		out = append(out, line)
	}
	return out
}

// FromMatrix builds a table from a header row followed by data rows.
// Ragged rows are padded; blank rows are skipped.
func FromMatrix(matrix [][]string) Table {
	if len(matrix) == 0 {
		return Table{}
	}
	header := make([]string, 0, len(matrix[0]))
	seen := make(map[string]int)
	for i, h := range matrix[0] {
		name := trimHeader(h)
		if name == "" {
			name = fmt.Sprintf("Column%d", i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		header = append(header, name)
	}
	table := Table{Columns: header}
	for _, line := range matrix[1:] {
		if blankLine(line) {
			continue
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(line) {
				row[col] = line[i]
			} else {
				row[col] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func blankLine(line []string) bool {
	for _, cell := range line {
		if trimCell(cell) != "" {
			return false
		}
	}
	return true
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
