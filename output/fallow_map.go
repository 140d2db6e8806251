package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tschilb252/fallowing-verification/internal/properties"
)

const (
	mapPadding   = 20.0
	legendHeight = 40.0
)

// CreateFallowMap draws every polygon of fc filled with the colour of its
// statusProperty and saves the map as a PNG width pixels wide.
func CreateFallowMap(fc *geojson.FeatureCollection, statusProperty, outputPath string, width int) error {
	// Features without geometry are counted in the legend but not drawn.
	var bound orb.Bound
	drawable := 0
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if drawable == 0 {
			bound = f.Geometry.Bound()
		} else {
			bound = bound.Union(f.Geometry.Bound())
		}
		drawable++
	}
	if drawable == 0 {
		return errors.New("no features to draw")
	}
	dx, dy := bound.Max.X()-bound.Min.X(), bound.Max.Y()-bound.Min.Y()
	if dx <= 0 || dy <= 0 {
		return fmt.Errorf("features span a degenerate extent %v", bound)
	}

	inner := float64(width) - 2*mapPadding
	if inner <= 0 {
		return fmt.Errorf("map width %d is too small", width)
	}
	scale := inner / dx
	height := int(dy*scale+2*mapPadding+legendHeight) + 1

	project := func(p orb.Point) (float64, float64) {
		return mapPadding + (p.X()-bound.Min.X())*scale, mapPadding + (bound.Max.Y()-p.Y())*scale
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1) // White background
	dc.Clear()

	counts := map[string]int{}
	for _, f := range fc.Features {
		status, _ := f.Properties[statusProperty].(string)
		if _, ok := properties.ColorMap[status]; !ok {
			status = "unknown"
		}
		counts[status]++

		for _, polygon := range polygons(f.Geometry) {
			for _, ring := range polygon {
				for i, p := range ring {
					x, y := project(p)
					if i == 0 {
						dc.MoveTo(x, y)
					} else {
						dc.LineTo(x, y)
					}
				}
				dc.ClosePath()
			}
			c := properties.ColorMap[status]
			dc.SetFillRuleEvenOdd()
			dc.SetRGB255(int(c.R), int(c.G), int(c.B))
			dc.FillPreserve()
			dc.SetRGB(0.2, 0.2, 0.2)
			dc.SetLineWidth(1)
			dc.Stroke()
		}
	}

	drawLegend(dc, counts, float64(height)-legendHeight+10)

	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}
	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save map: %w", err)
	}
	return nil
}

func drawLegend(dc *gg.Context, counts map[string]int, y float64) {
	x := mapPadding
	for _, status := range []string{"Fallow", "Not_Fallow", "unknown"} {
		if counts[status] == 0 {
			continue
		}
		c := properties.ColorMap[status]
		dc.SetRGB255(int(c.R), int(c.G), int(c.B))
		dc.DrawRectangle(x, y, 15, 15)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(x, y, 15, 15)
		dc.SetLineWidth(1)
		dc.Stroke()

		label := fmt.Sprintf("%s (%d)", status, counts[status])
		dc.DrawStringAnchored(label, x+20, y+7, 0, 0.5)
		w, _ := dc.MeasureString(label)
		x += 20 + w + 20
	}
}

func polygons(g orb.Geometry) []orb.Polygon {
	switch geom := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{geom}
	case orb.MultiPolygon:
		return geom
	case orb.Collection:
		var out []orb.Polygon
		for _, child := range geom {
			out = append(out, polygons(child)...)
		}
		return out
	}
	return nil
}
