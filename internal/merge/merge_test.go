package merge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tschilb252/fallowing-verification/internal/fallow"
	"github.com/tschilb252/fallowing-verification/internal/table"
)

const boundaries = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"FIELD_ID": 101, "OWNER": "x"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "properties": {"FIELD_ID": "B7"},
     "geometry": {"type": "Polygon", "coordinates": [[[2,0],[3,0],[3,1],[2,1],[2,0]]]}},
    {"type": "Feature", "properties": {"FIELD_ID": "Z9"},
     "geometry": {"type": "Polygon", "coordinates": [[[4,0],[5,0],[5,1],[4,1],[4,0]]]}}
  ]
}`

func classified() *table.Table {
	return table.New(
		[]string{"FIELD_ID", "ndvi_20200501", "delta_20200515", "Harvest_Date", "Fallow_Status"},
		[][]string{
			{"101", "0.5", "-0.25", "20200515", "Not_Fallow"},
			{"B7", "0.1", "", "", "Fallow"},
		},
	)
}

func merger() Merger {
	return Merger{ZoneKey: "FIELD_ID", KeyColumn: "FIELD_ID", NumericPrefixes: []string{"ndvi", "delta"}}
}

func TestJoin(t *testing.T) {
	fc, err := geojson.UnmarshalFeatureCollection([]byte(boundaries))
	require.NoError(t, err)

	merged, stats, err := merger().Join(fc, classified())
	require.NoError(t, err)
	assert.Equal(t, Stats{Matched: 2, Unmatched: 1}, stats)

	first := merged.Features[0].Properties
	assert.Equal(t, "x", first["OWNER"])
	assert.Equal(t, 0.5, first["ndvi_20200501"])
	assert.Equal(t, -0.25, first["delta_20200515"])
	assert.Equal(t, "20200515", first["Harvest_Date"])
	assert.Equal(t, "Not_Fallow", first["Fallow_Status"])

	second := merged.Features[1].Properties
	assert.Nil(t, second["delta_20200515"])
	assert.Equal(t, "Fallow", second["Fallow_Status"])

	assert.NotContains(t, merged.Features[2].Properties, "Fallow_Status")
	assert.NotContains(t, fc.Features[0].Properties, "Fallow_Status", "input is left untouched")
	assert.Equal(t, orb.Polygon{{{2, 0}, {3, 0}, {3, 1}, {2, 1}, {2, 0}}}, merged.Features[1].Geometry)
}

func TestJoinSelectedColumns(t *testing.T) {
	fc, err := geojson.UnmarshalFeatureCollection([]byte(boundaries))
	require.NoError(t, err)

	m := merger()
	m.Columns = []string{"Fallow_Status"}
	merged, _, err := m.Join(fc, classified())
	require.NoError(t, err)
	assert.NotContains(t, merged.Features[0].Properties, "Harvest_Date")

	m.Columns = []string{"Missing"}
	_, _, err = m.Join(fc, classified())
	require.ErrorIs(t, err, table.ErrMissingColumn)
}

func TestMergeFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "fields.geojson")
	require.NoError(t, os.WriteFile(in, []byte(boundaries), 0644))
	out := filepath.Join(dir, "result", "fields_fallow.geojson")

	merged, stats, err := merger().MergeFile(in, out, classified())
	require.NoError(t, err)
	assert.Len(t, merged.Features, 3)
	assert.Equal(t, 2, stats.Matched)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	require.NoError(t, err)
	assert.Equal(t, "Fallow", fc.Features[1].Properties["Fallow_Status"])

	original, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, boundaries, string(original))
}

func TestResultsCSV(t *testing.T) {
	harvest, _ := time.Parse("20060102", "20200515")
	records := Records([]fallow.Result{
		{FieldID: "A", HarvestDate: harvest, Status: fallow.NotFallow},
		{FieldID: "B", Status: fallow.Fallow},
	})
	path := filepath.Join(t.TempDir(), "out", "results.csv")
	require.NoError(t, WriteResults(path, records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "field_id,harvest_date,fallow_status\nA,20200515,Not_Fallow\nB,,Fallow\n", string(raw))

	read, err := ReadResults(path)
	require.NoError(t, err)
	assert.Equal(t, records, read)
}
