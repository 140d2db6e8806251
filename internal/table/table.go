// Package table holds header-preserving tabular data as read from field
// spreadsheets and index CSVs. Cells are kept as strings; typed access is left
// to the packages that own the column semantics.
package table

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrMissingColumn   = errors.New("missing column")
)

type Table struct {
	Columns []string
	Rows    [][]string
}

// New copies columns and rows, padding or truncating every row to the header width.
func New(columns []string, rows [][]string) *Table {
	t := &Table{
		Columns: slices.Clone(columns),
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		t.Rows = append(t.Rows, t.fit(row))
	}
	return t
}

func (t *Table) fit(row []string) []string {
	out := make([]string, len(t.Columns))
	copy(out, row)
	return out
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the first column with the given name.
func (t *Table) Index(column string) (int, error) {
	i := slices.Index(t.Columns, column)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrMissingColumn, column)
	}
	return i, nil
}

func (t *Table) Column(column string) ([]string, error) {
	i, err := t.Index(column)
	if err != nil {
		return nil, err
	}
	values := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		values[r] = row[i]
	}
	return values, nil
}

// Rename replaces the header positionally. Two columns may not end up with the
// same name.
func (t *Table) Rename(columns []string) (*Table, error) {
	if len(columns) != len(t.Columns) {
		return nil, fmt.Errorf("cannot rename %d columns with %d names", len(t.Columns), len(columns))
	}
	seen := make(map[string]int, len(columns))
	for i, name := range columns {
		if j, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %q assigned to columns %d and %d", ErrDuplicateColumn, name, j+1, i+1)
		}
		seen[name] = i
	}
	return New(columns, t.Rows), nil
}

// DropEmpty removes rows whose cell in column is blank.
func (t *Table) DropEmpty(column string) (*Table, error) {
	i, err := t.Index(column)
	if err != nil {
		return nil, err
	}
	return t.Filter(func(row []string) bool {
		return strings.TrimSpace(row[i]) != ""
	}), nil
}

func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := &Table{Columns: slices.Clone(t.Columns)}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, slices.Clone(row))
		}
	}
	return out
}

// KeyedBy moves column to the front, the way an indexed frame is written out.
func (t *Table) KeyedBy(column string) (*Table, error) {
	i, err := t.Index(column)
	if err != nil {
		return nil, err
	}
	order := []int{i}
	for j := range t.Columns {
		if j != i {
			order = append(order, j)
		}
	}

	out := &Table{Columns: make([]string, 0, len(order))}
	for _, j := range order {
		out.Columns = append(out.Columns, t.Columns[j])
	}
	for _, row := range t.Rows {
		reordered := make([]string, 0, len(order))
		for _, j := range order {
			reordered = append(reordered, row[j])
		}
		out.Rows = append(out.Rows, reordered)
	}
	return out, nil
}

// WithColumns returns a copy of t with extra columns appended. values must hold
// one row per row of t.
func (t *Table) WithColumns(columns []string, values [][]string) (*Table, error) {
	if len(values) != len(t.Rows) {
		return nil, fmt.Errorf("got %d value rows for a table of %d rows", len(values), len(t.Rows))
	}
	for _, c := range columns {
		if slices.Contains(t.Columns, c) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c)
		}
	}
	out := &Table{Columns: append(slices.Clone(t.Columns), columns...)}
	for r, row := range t.Rows {
		extra := make([]string, len(columns))
		copy(extra, values[r])
		out.Rows = append(out.Rows, append(slices.Clone(row), extra...))
	}
	return out, nil
}

// DropColumns returns a copy of t without the columns for which match is true.
func (t *Table) DropColumns(match func(column string) bool) *Table {
	var keep []int
	for i, c := range t.Columns {
		if !match(c) {
			keep = append(keep, i)
		}
	}
	out := &Table{Columns: make([]string, 0, len(keep))}
	for _, i := range keep {
		out.Columns = append(out.Columns, t.Columns[i])
	}
	for _, row := range t.Rows {
		kept := make([]string, 0, len(keep))
		for _, i := range keep {
			kept = append(kept, row[i])
		}
		out.Rows = append(out.Rows, kept)
	}
	return out
}
