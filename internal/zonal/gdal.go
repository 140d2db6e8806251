package zonal

import (
	"context"
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
	"github.com/montanaflynn/stats"

	"github.com/tschilb252/fallowing-verification/internal/utils"
)

// GDALComputer computes NDVI zonal means with GDAL. Bands are 1-based.
type GDALComputer struct {
	RedBand int
	NIRBand int
}

func (g GDALComputer) ComputeZonalMean(ctx context.Context, raster, zones, zoneKey string) (map[string]float64, error) {
	var means map[string]float64
	err := utils.WithGDAL(func() error {
		var err error
		means, err = g.compute(ctx, raster, zones, zoneKey)
		return err
	})
	return means, err
}

func (g GDALComputer) compute(ctx context.Context, raster, zones, zoneKey string) (map[string]float64, error) {
	img, err := godal.Open(raster, godal.RasterOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to open raster: %w", err)
	}
	defer img.Close()

	bands := img.Bands()
	if g.RedBand < 1 || g.NIRBand < 1 || g.RedBand > len(bands) || g.NIRBand > len(bands) {
		return nil, fmt.Errorf("raster has %d bands, red=%d nir=%d requested", len(bands), g.RedBand, g.NIRBand)
	}
	gt, err := img.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("failed to get GeoTransform: %w", err)
	}

	vec, err := godal.Open(zones, godal.VectorOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to open zones: %w", err)
	}
	defer vec.Close()
	layers := vec.Layers()
	if len(layers) == 0 {
		return nil, fmt.Errorf("%s has no layer", zones)
	}

	w := window{
		red:  bands[g.RedBand-1],
		nir:  bands[g.NIRBand-1],
		gt:   gt,
		size: img.Structure(),
		sr:   img.SpatialRef(),
	}
	if w.sr != nil {
		defer w.sr.Close()
	}

	means := map[string]float64{}
	layer := layers[0]
	layer.ResetReading()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		feat := layer.NextFeature()
		if feat == nil {
			break
		}
		id, mean, err := w.zoneMean(feat, zoneKey)
		feat.Close()
		if err != nil {
			return nil, err
		}
		if !math.IsNaN(mean) {
			means[id] = mean
		}
	}
	return means, nil
}

type window struct {
	red, nir godal.Band
	gt       [6]float64
	size     godal.DatasetStructure
	// nil when the raster has no projection
	sr *godal.SpatialRef
}

func (w window) zoneMean(feat *godal.Feature, zoneKey string) (string, float64, error) {
	field, ok := feat.Fields()[zoneKey]
	if !ok {
		return "", 0, fmt.Errorf("zone feature has no %s attribute", zoneKey)
	}
	id := field.String()

	geom := feat.Geometry()
	if geom == nil || geom.Empty() {
		return id, math.NaN(), nil
	}
	if w.sr != nil && geom.SpatialRef() != nil && !geom.SpatialRef().IsSame(w.sr) {
		if err := geom.Reproject(w.sr); err != nil {
			return "", 0, fmt.Errorf("failed to reproject zone %s: %w", id, err)
		}
	}

	bounds, err := geom.Bounds()
	if err != nil {
		return "", 0, fmt.Errorf("failed to get bounds of zone %s: %w", id, err)
	}
	x0, y0, width, height := w.pixelWindow(bounds)
	if width <= 0 || height <= 0 {
		return id, math.NaN(), nil
	}

	red := make([]float64, width*height)
	nir := make([]float64, width*height)
	if err := w.red.Read(x0, y0, red, width, height); err != nil {
		return "", 0, fmt.Errorf("failed to read red band: %w", err)
	}
	if err := w.nir.Read(x0, y0, nir, width, height); err != nil {
		return "", 0, fmt.Errorf("failed to read nir band: %w", err)
	}

	mask, err := w.burn(geom, x0, y0, width, height)
	if err != nil {
		return "", 0, fmt.Errorf("failed to rasterize zone %s: %w", id, err)
	}

	redNoData, redHasNoData := w.red.NoData()
	nirNoData, nirHasNoData := w.nir.NoData()
	var values []float64
	for i := range mask {
		if mask[i] == 0 {
			continue
		}
		if (redHasNoData && red[i] == redNoData) || (nirHasNoData && nir[i] == nirNoData) {
			continue
		}
		if v, ok := ndvi(red[i], nir[i]); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return id, math.NaN(), nil
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return "", 0, err
	}
	return id, mean, nil
}

// pixelWindow converts map bounds [minx, miny, maxx, maxy] into the clipped
// pixel window covering them.
func (w window) pixelWindow(bounds [4]float64) (x0, y0, width, height int) {
	px := func(x float64) float64 { return (x - w.gt[0]) / w.gt[1] }
	py := func(y float64) float64 { return (y - w.gt[3]) / w.gt[5] }

	left, right := px(bounds[0]), px(bounds[2])
	top, bottom := py(bounds[3]), py(bounds[1])
	if left > right {
		left, right = right, left
	}
	if top > bottom {
		top, bottom = bottom, top
	}

	x0 = max(int(math.Floor(left)), 0)
	y0 = max(int(math.Floor(top)), 0)
	x1 := min(int(math.Ceil(right)), w.size.SizeX)
	y1 := min(int(math.Ceil(bottom)), w.size.SizeY)
	return x0, y0, x1 - x0, y1 - y0
}

// burn rasterizes geom onto an in-memory grid aligned with the given pixel
// window and returns 1 for every pixel the polygon covers.
func (w window) burn(geom *godal.Geometry, x0, y0, width, height int) ([]uint8, error) {
	mem, err := godal.Create(godal.Memory, "", 1, godal.Byte, width, height)
	if err != nil {
		return nil, err
	}
	defer mem.Close()

	gt := w.gt
	gt[0] += float64(x0)*w.gt[1] + float64(y0)*w.gt[2]
	gt[3] += float64(x0)*w.gt[4] + float64(y0)*w.gt[5]
	if err := mem.SetGeoTransform(gt); err != nil {
		return nil, err
	}
	if w.sr != nil {
		if err := mem.SetSpatialRef(w.sr); err != nil {
			return nil, err
		}
	}
	if err := mem.RasterizeGeometry(geom, godal.Values(1)); err != nil {
		return nil, err
	}

	mask := make([]uint8, width*height)
	if err := mem.Bands()[0].Read(0, 0, mask, width, height); err != nil {
		return nil, err
	}
	return mask, nil
}

// ndvi is (NIR - Red) / (NIR + Red), undefined where both bands are zero.
func ndvi(red, nir float64) (float64, bool) {
	sum := nir + red
	if sum == 0 {
		return 0, false
	}
	return (nir - red) / sum, true
}
