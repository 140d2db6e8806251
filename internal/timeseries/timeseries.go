// Package timeseries holds per-field, per-date vegetation index observations
// and their period-over-period deltas. Missing values are NaN so that every
// threshold comparison against them is false.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tschilb252/fallowing-verification/internal/table"
	"github.com/tschilb252/fallowing-verification/internal/utils"
)

const (
	DateLayout  = "20060102"
	DeltaPrefix = "delta"
)

var ErrDuplicateObservation = errors.New("duplicate observation")

type Observation struct {
	FieldID string
	Date    time.Time
	Value   float64
}

// IndexTable is a field x date matrix. Dates are ascending and unique, Fields
// keep their input order.
type IndexTable struct {
	Prefix string
	Dates  []time.Time
	Fields []string
	Values [][]float64
}

// DeltaTable has one column per date after the first: Values[f][i] is
// index(Dates[i]) - index(previous date).
type DeltaTable struct {
	Dates  []time.Time
	Fields []string
	Values [][]float64
}

func Missing(v float64) bool {
	return math.IsNaN(v)
}

func ColumnName(prefix string, date time.Time) string {
	return prefix + "_" + date.Format(DateLayout)
}

// ParseColumn reports whether name is a <prefix>_<YYYYMMDD> column and returns its date.
func ParseColumn(prefix, name string) (time.Time, bool) {
	i := strings.LastIndex(name, "_")
	if i < 0 {
		return time.Time{}, false
	}
	head, date := name[:i], name[i+1:]
	if !strings.EqualFold(head, prefix) || len(date) != len(DateLayout) {
		return time.Time{}, false
	}
	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func ParseValue(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "nan", "null", "<null>", "none":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

func FormatValue(v float64) string {
	if Missing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FromTable reads the key column plus every <prefix>_<YYYYMMDD> column of t.
// Other columns are ignored.
func FromTable(t *table.Table, keyColumn, prefix string) (*IndexTable, error) {
	key, err := t.Index(keyColumn)
	if err != nil {
		return nil, err
	}

	columns := map[time.Time]int{}
	for i, name := range t.Columns {
		date, ok := ParseColumn(prefix, name)
		if !ok {
			continue
		}
		if j, exists := columns[date]; exists {
			return nil, fmt.Errorf("%w: columns %q and %q share date %s", ErrDuplicateObservation, t.Columns[j], name, date.Format(DateLayout))
		}
		columns[date] = i
	}

	idx := &IndexTable{
		Prefix: prefix,
		Dates:  utils.GetSortedKeys(columns, true),
	}
	seen := map[string]int{}
	for r, row := range t.Rows {
		field := strings.TrimSpace(row[key])
		if field == "" {
			return nil, fmt.Errorf("row %d has an empty %s", r+1, keyColumn)
		}
		if first, ok := seen[field]; ok {
			return nil, fmt.Errorf("%w: %s %s appears on rows %d and %d", ErrDuplicateObservation, keyColumn, field, first+1, r+1)
		}
		seen[field] = r

		values := make([]float64, len(idx.Dates))
		for d, date := range idx.Dates {
			v, err := ParseValue(row[columns[date]])
			if err != nil {
				return nil, fmt.Errorf("invalid %s value for %s %s: %w", t.Columns[columns[date]], keyColumn, field, err)
			}
			values[d] = v
		}
		idx.Fields = append(idx.Fields, field)
		idx.Values = append(idx.Values, values)
	}
	return idx, nil
}

// FromObservations builds a table from loose observations. Fields are ordered
// by first appearance; a field without a value for some date gets NaN there.
func FromObservations(prefix string, observations []Observation) (*IndexTable, error) {
	type key struct {
		field string
		date  time.Time
	}
	values := map[key]float64{}
	dates := map[time.Time]struct{}{}
	var fields []string
	for _, o := range observations {
		k := key{o.FieldID, o.Date}
		if _, ok := values[k]; ok {
			return nil, fmt.Errorf("%w: field %s on %s", ErrDuplicateObservation, o.FieldID, o.Date.Format(DateLayout))
		}
		values[k] = o.Value
		dates[o.Date] = struct{}{}
		if !slices.Contains(fields, o.FieldID) {
			fields = append(fields, o.FieldID)
		}
	}

	idx := &IndexTable{
		Prefix: prefix,
		Dates:  utils.GetSortedKeys(dates, true),
		Fields: fields,
	}
	for _, field := range fields {
		row := make([]float64, len(idx.Dates))
		for d, date := range idx.Dates {
			v, ok := values[key{field, date}]
			if !ok {
				v = math.NaN()
			}
			row[d] = v
		}
		idx.Values = append(idx.Values, row)
	}
	return idx, nil
}

// Deltas computes forward differences along the dates. The first date has no
// delta and is dropped; a missing operand yields a missing delta.
func (t *IndexTable) Deltas() *DeltaTable {
	d := &DeltaTable{Fields: slices.Clone(t.Fields)}
	if len(t.Dates) > 1 {
		d.Dates = slices.Clone(t.Dates[1:])
	}
	for _, series := range t.Values {
		deltas := make([]float64, len(d.Dates))
		for i := range d.Dates {
			deltas[i] = series[i+1] - series[i]
		}
		d.Values = append(d.Values, deltas)
	}
	return d
}

// Observed counts the non-missing values of a series.
func Observed(series []float64) int {
	n := 0
	for _, v := range series {
		if !Missing(v) {
			n++
		}
	}
	return n
}

func (t *IndexTable) Columns() []string {
	columns := make([]string, len(t.Dates))
	for i, date := range t.Dates {
		columns[i] = ColumnName(t.Prefix, date)
	}
	return columns
}

func (d *DeltaTable) Columns() []string {
	columns := make([]string, len(d.Dates))
	for i, date := range d.Dates {
		columns[i] = ColumnName(DeltaPrefix, date)
	}
	return columns
}

// Table renders the index matrix with keyColumn first.
func (t *IndexTable) Table(keyColumn string) *table.Table {
	rows := make([][]string, len(t.Fields))
	for f, field := range t.Fields {
		row := []string{field}
		for _, v := range t.Values[f] {
			row = append(row, FormatValue(v))
		}
		rows[f] = row
	}
	return table.New(append([]string{keyColumn}, t.Columns()...), rows)
}
