package zonal

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tschilb252/fallowing-verification/internal/timeseries"
)

// Image is one dated composite raster.
type Image struct {
	Path string
	Date time.Time
}

// Discover lists the rasters in dir matching pattern, dated by the dateChunk-th
// "_"-separated chunk of their file name, oldest first. Two images of the same
// date would yield duplicate observations and are rejected.
func Discover(dir, pattern string, dateChunk int) ([]Image, error) {
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid imagery pattern %q: %w", pattern, err)
	}

	var images []Image
	seen := map[time.Time]string{}
	for _, path := range paths {
		date, err := ImageDate(filepath.Base(path), dateChunk)
		if err != nil {
			return nil, err
		}
		if other, ok := seen[date]; ok {
			return nil, fmt.Errorf("%w: %s and %s are both dated %s", timeseries.ErrDuplicateObservation,
				filepath.Base(other), filepath.Base(path), date.Format(timeseries.DateLayout))
		}
		seen[date] = path
		images = append(images, Image{Path: path, Date: date})
	}

	slices.SortFunc(images, func(a, b Image) int {
		return a.Date.Compare(b.Date)
	})
	return images, nil
}

func ImageDate(name string, dateChunk int) (time.Time, error) {
	chunks := strings.Split(name, "_")
	if dateChunk >= len(chunks) {
		return time.Time{}, fmt.Errorf("image %s has no date chunk at position %d", name, dateChunk)
	}
	raw := chunks[dateChunk]
	if len(raw) > len(timeseries.DateLayout) {
		raw = raw[:len(timeseries.DateLayout)]
	}
	date, err := time.Parse(timeseries.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("image %s: invalid date %q: %w", name, chunks[dateChunk], err)
	}
	return date, nil
}
