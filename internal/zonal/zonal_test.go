package zonal

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tschilb252/fallowing-verification/internal/cache"
	"github.com/tschilb252/fallowing-verification/internal/timeseries"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}
}

func day(s string) time.Time {
	d, _ := time.Parse(timeseries.DateLayout, s)
	return d
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"T11SPS_S2A_20200515_B2-4_8.img",
		"T11SPS_S2B_20200501_B2-4_8.img",
		"T11SPS_S2B_20200501_B2-4_8.img.aux.xml",
		"notes.txt",
	)

	images, err := Discover(dir, "*_B2-4_8.img", 2)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, day("20200501"), images[0].Date)
	assert.Equal(t, filepath.Join(dir, "T11SPS_S2A_20200515_B2-4_8.img"), images[1].Path)

	touch(t, dir, "T12XXX_S2A_20200515_B2-4_8.img")
	_, err = Discover(dir, "*_B2-4_8.img", 2)
	require.ErrorIs(t, err, timeseries.ErrDuplicateObservation)
}

func TestImageDate(t *testing.T) {
	d, err := ImageDate("T11SPS_S2A_20200515T181921_B2-4_8.img", 2)
	require.NoError(t, err)
	assert.Equal(t, day("20200515"), d)

	_, err = ImageDate("short.img", 2)
	require.Error(t, err)
	_, err = ImageDate("a_b_2020-05-15_c.img", 2)
	require.Error(t, err)
}

type fakeComputer struct {
	calls atomic.Int32
	means map[string]map[string]float64
	fail  string
}

func (f *fakeComputer) ComputeZonalMean(_ context.Context, raster, _, _ string) (map[string]float64, error) {
	f.calls.Add(1)
	if raster == f.fail {
		return nil, errors.New("corrupt raster")
	}
	return f.means[raster], nil
}

func fixture(t *testing.T) (string, []Image, *fakeComputer) {
	dir := t.TempDir()
	touch(t, dir, "a_s_20200501_B2-4_8.img", "a_s_20200515_B2-4_8.img", "fields.geojson")
	images, err := Discover(dir, "*_B2-4_8.img", 2)
	require.NoError(t, err)
	return filepath.Join(dir, "fields.geojson"), images, &fakeComputer{means: map[string]map[string]float64{
		images[0].Path: {"B": 0.5, "A": 0.25},
		images[1].Path: {"A": 0.125},
	}}
}

func TestBuild(t *testing.T) {
	zones, images, computer := fixture(t)
	store := cache.New[map[string]float64](filepath.Join(t.TempDir(), "cache"))
	b := &Builder{Computer: computer, Cache: store, Workers: 2, Prefix: "ndvi"}

	idx, err := b.Build(context.Background(), images, zones, "FIELD_ID")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, idx.Fields)
	assert.Equal(t, []time.Time{day("20200501"), day("20200515")}, idx.Dates)
	assert.Equal(t, []float64{0.25, 0.125}, idx.Values[0])
	assert.Equal(t, 0.5, idx.Values[1][0])
	assert.True(t, math.IsNaN(idx.Values[1][1]))
	assert.Equal(t, int32(2), computer.calls.Load())

	again, err := b.Build(context.Background(), images, zones, "FIELD_ID")
	require.NoError(t, err)
	assert.Equal(t, idx.Fields, again.Fields)
	assert.Equal(t, int32(2), computer.calls.Load(), "second run is served from cache")
}

func TestBuildErrors(t *testing.T) {
	zones, images, computer := fixture(t)
	computer.fail = images[1].Path
	b := &Builder{Computer: computer, Workers: 1, Prefix: "ndvi"}

	_, err := b.Build(context.Background(), images, zones, "FIELD_ID")
	require.ErrorContains(t, err, "corrupt raster")

	_, err = b.Build(context.Background(), nil, zones, "FIELD_ID")
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Build(ctx, images, zones, "FIELD_ID")
	require.ErrorIs(t, err, context.Canceled)
}

func TestPixelWindow(t *testing.T) {
	w := window{
		gt:   [6]float64{1000, 10, 0, 2000, 0, -10},
		size: godal.DatasetStructure{SizeX: 100, SizeY: 50},
	}

	x0, y0, width, height := w.pixelWindow([4]float64{1015, 1900, 1041, 1975})
	assert.Equal(t, []int{1, 2, 4, 8}, []int{x0, y0, width, height})

	// clipped against the raster extent
	x0, y0, width, height = w.pixelWindow([4]float64{900, 1400, 1030, 1990})
	assert.Equal(t, []int{0, 1, 3, 49}, []int{x0, y0, width, height})

	_, _, width, _ = w.pixelWindow([4]float64{5000, 1900, 5100, 1975})
	assert.LessOrEqual(t, width, 0)
}

func TestBurnSharesRasterSpatialRef(t *testing.T) {
	godal.RegisterAll()
	sr, err := godal.NewSpatialRefFromEPSG(32611)
	require.NoError(t, err)
	defer sr.Close()

	w := window{
		gt:   [6]float64{1000, 10, 0, 2000, 0, -10},
		size: godal.DatasetStructure{SizeX: 100, SizeY: 50},
		sr:   sr,
	}
	geom, err := godal.NewGeometryFromWKT("POLYGON((1010 1990,1030 1990,1030 1970,1010 1970,1010 1990))", sr)
	require.NoError(t, err)
	defer geom.Close()

	bounds, err := geom.Bounds()
	require.NoError(t, err)
	x0, y0, width, height := w.pixelWindow(bounds)
	require.Equal(t, []int{1, 1, 2, 2}, []int{x0, y0, width, height})

	// the same reference serves every zone of the raster
	for range 3 {
		mask, err := w.burn(geom, x0, y0, width, height)
		require.NoError(t, err)
		assert.Equal(t, []uint8{1, 1, 1, 1}, mask)
	}
	assert.True(t, sr.IsSame(w.sr))
}

func TestNDVI(t *testing.T) {
	v, ok := ndvi(0.1, 0.3)
	require.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-12)

	_, ok = ndvi(0, 0)
	assert.False(t, ok)
}
