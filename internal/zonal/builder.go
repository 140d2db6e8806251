// Package zonal turns a directory of dated composite images into a per-field
// vegetation index table.
package zonal

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/tschilb252/fallowing-verification/internal/cache"
	"github.com/tschilb252/fallowing-verification/internal/timeseries"
)

// ZonalMeanComputer returns the mean index value of raster inside every zone
// polygon of zones, keyed by the zone's zoneKey attribute. Zones covering no
// valid pixel are left out.
type ZonalMeanComputer interface {
	ComputeZonalMean(ctx context.Context, raster, zones, zoneKey string) (map[string]float64, error)
}

type Builder struct {
	Computer ZonalMeanComputer
	// Cache is optional. Entries are keyed by raster and zone file identity.
	Cache    *cache.Store[map[string]float64]
	CacheTag string
	Workers  int
	Prefix   string
	Progress bool
	Logger   *zap.Logger
}

// Build computes the zonal means of every image and assembles them into an
// index table with one <Prefix>_<YYYYMMDD> column per image.
func (b *Builder) Build(ctx context.Context, images []Image, zones, zoneKey string) (*timeseries.IndexTable, error) {
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(images) == 0 {
		return nil, errors.New("no imagery to process")
	}

	var bar *progressbar.ProgressBar
	if b.Progress {
		bar = progressbar.Default(int64(len(images)), "computing zonal means")
	}

	means := make([]map[string]float64, len(images))
	var mu sync.Mutex
	var errs []error

	wp := workerpool.New(max(b.Workers, 1))
	for i, img := range images {
		wp.Submit(func() {
			if bar != nil {
				defer bar.Add(1)
			}
			if ctx.Err() != nil {
				return
			}
			m, err := b.imageMeans(ctx, logger, img, zones, zoneKey)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", img.Path, err))
				return
			}
			means[i] = m
		})
	}
	wp.StopWait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	var observations []timeseries.Observation
	for i, img := range images {
		for _, field := range slices.Sorted(maps.Keys(means[i])) {
			observations = append(observations, timeseries.Observation{
				FieldID: field,
				Date:    img.Date,
				Value:   means[i][field],
			})
		}
	}
	return timeseries.FromObservations(b.Prefix, observations)
}

func (b *Builder) imageMeans(ctx context.Context, logger *zap.Logger, img Image, zones, zoneKey string) (map[string]float64, error) {
	key := ""
	if b.Cache != nil {
		var err error
		if key, err = cacheKey(img.Path, zones, zoneKey, b.CacheTag); err != nil {
			return nil, err
		}
		if m, ok := b.Cache.Get(key); ok {
			logger.Debug("zonal means cache hit", zap.String("image", img.Path))
			return m, nil
		}
	}

	m, err := b.Computer.ComputeZonalMean(ctx, img.Path, zones, zoneKey)
	if err != nil {
		return nil, err
	}
	logger.Info("computed zonal means",
		zap.String("image", img.Path),
		zap.Time("date", img.Date),
		zap.Int("zones", len(m)))

	if b.Cache != nil {
		if err := b.Cache.Put(key, m); err != nil {
			logger.Warn("failed to cache zonal means", zap.String("image", img.Path), zap.Error(err))
		}
	}
	return m, nil
}

func cacheKey(raster, zones, zoneKey, tag string) (string, error) {
	parts := []any{zoneKey, tag}
	for _, path := range []string{raster, zones} {
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		parts = append(parts, path, info.Size(), info.ModTime().UnixNano())
	}
	return cache.Key(parts...), nil
}
