// Package merge writes classification output back onto the field boundaries.
package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/tschilb252/fallowing-verification/internal/table"
	"github.com/tschilb252/fallowing-verification/internal/timeseries"
)

// Merger joins table rows onto features whose ZoneKey property equals the
// row's KeyColumn cell.
type Merger struct {
	ZoneKey   string
	KeyColumn string
	// Columns copied onto the features. Empty means every column but the key.
	Columns []string
	// Cells of <NumericPrefixes>_<YYYYMMDD> columns are written as numbers.
	NumericPrefixes []string
	Logger          *zap.Logger
}

type Stats struct {
	Matched   int
	Unmatched int
}

// Join returns a copy of fc with the joined properties set. Features without
// a matching row are copied unchanged.
func (m Merger) Join(fc *geojson.FeatureCollection, tbl *table.Table) (*geojson.FeatureCollection, Stats, error) {
	key, err := tbl.Index(m.KeyColumn)
	if err != nil {
		return nil, Stats{}, err
	}
	columns := m.Columns
	if len(columns) == 0 {
		for _, c := range tbl.Columns {
			if c != m.KeyColumn {
				columns = append(columns, c)
			}
		}
	}
	positions := make([]int, len(columns))
	for i, c := range columns {
		if positions[i], err = tbl.Index(c); err != nil {
			return nil, Stats{}, err
		}
	}

	rows := make(map[string][]string, tbl.Len())
	for _, row := range tbl.Rows {
		rows[strings.TrimSpace(row[key])] = row
	}

	var stats Stats
	out := geojson.NewFeatureCollection()
	out.BBox = fc.BBox
	out.ExtraMembers = fc.ExtraMembers.Clone()
	for _, f := range fc.Features {
		clone := geojson.NewFeature(f.Geometry)
		clone.ID = f.ID
		clone.BBox = f.BBox
		clone.Properties = f.Properties.Clone()
		if clone.Properties == nil {
			clone.Properties = geojson.Properties{}
		}

		row, ok := rows[propertyString(f.Properties[m.ZoneKey])]
		if ok {
			stats.Matched++
			for i, c := range columns {
				clone.Properties[c] = m.value(c, row[positions[i]])
			}
		} else {
			stats.Unmatched++
		}
		out.Append(clone)
	}
	return out, stats, nil
}

// MergeFile joins tbl onto the features read from fieldsPath and writes the
// result to outPath. fieldsPath is never modified.
func (m Merger) MergeFile(fieldsPath, outPath string, tbl *table.Table) (*geojson.FeatureCollection, Stats, error) {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(fieldsPath)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read field boundaries: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to parse field boundaries %s: %w", fieldsPath, err)
	}

	merged, stats, err := m.Join(fc, tbl)
	if err != nil {
		return nil, Stats{}, err
	}

	payload, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to encode merged features: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), os.ModePerm); err != nil {
		return nil, Stats{}, fmt.Errorf("failed to create result folder: %w", err)
	}
	if err := os.WriteFile(outPath, payload, 0644); err != nil {
		return nil, Stats{}, fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	logger.Info("merged results onto field boundaries",
		zap.String("output", outPath),
		zap.Int("matched", stats.Matched),
		zap.Int("unmatched", stats.Unmatched))
	return merged, stats, nil
}

func (m Merger) value(column, cell string) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	for _, prefix := range m.NumericPrefixes {
		if _, ok := timeseries.ParseColumn(prefix, column); !ok {
			continue
		}
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return v
		}
	}
	return cell
}

// propertyString renders an id property the way it appears in a table cell;
// JSON numbers arrive as float64.
func propertyString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}
