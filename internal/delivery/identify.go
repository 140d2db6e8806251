package delivery

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tschilb252/fallowing-verification/internal/cache"
	"github.com/tschilb252/fallowing-verification/internal/fallow"
	"github.com/tschilb252/fallowing-verification/internal/merge"
	"github.com/tschilb252/fallowing-verification/internal/notification"
	"github.com/tschilb252/fallowing-verification/internal/table"
	"github.com/tschilb252/fallowing-verification/internal/timeseries"
	"github.com/tschilb252/fallowing-verification/internal/zonal"
	"github.com/tschilb252/fallowing-verification/output"
)

type IdentifyRequest struct {
	RunID      string
	Region     string
	ImageryDir string
	// FieldsPath holds the field boundaries used as zones. GeoJSON boundaries
	// also get the results merged back and a status map drawn.
	FieldsPath string
	ZoneField  string
	OutputDir  string
	// IndexTablePath skips the zonal statistics and classifies an existing
	// <zone field>, ndvi_<YYYYMMDD>... CSV instead.
	IndexTablePath string
	Today          time.Time
	MapWidth       int
}

type IdentifyResult struct {
	RunID          string
	IndexTablePath string
	ClassifiedPath string
	ResultsPath    string
	MergedPath     string
	MapPath        string
	Fallow         int
	NotFallow      int
	Harvested      int
}

// IdentifyFallowFields builds the per-field NDVI table, classifies every field
// and writes the results next to the field boundaries.
func (s *Service) IdentifyFallowFields(ctx context.Context, req IdentifyRequest) (IdentifyResult, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	result, err := s.identify(ctx, req)
	if err != nil {
		s.logger().Error("fallow identification failed", zap.String("run_id", req.RunID), zap.Error(err))
		s.notifyError(ctx, req.RunID, fmt.Errorf("fallow identification for %s: %w", req.Region, err))
		return result, err
	}

	s.notifySuccess(ctx, req.RunID, fmt.Sprintf("Fallow fields identified for %s", req.Region),
		notification.DiscordField{Name: "Fallow", Value: strconv.Itoa(result.Fallow), Inline: true},
		notification.DiscordField{Name: "Not fallow", Value: strconv.Itoa(result.NotFallow), Inline: true},
		notification.DiscordField{Name: "Harvest detected", Value: strconv.Itoa(result.Harvested), Inline: true},
		notification.DiscordField{Name: "Results", Value: result.ResultsPath},
	)
	return result, nil
}

func (s *Service) identify(ctx context.Context, req IdentifyRequest) (IdentifyResult, error) {
	logger := s.logger().With(zap.String("run_id", req.RunID), zap.String("region", req.Region))
	result := IdentifyResult{RunID: req.RunID}
	params := s.Params.Classifier
	if req.Today.IsZero() {
		req.Today = time.Now()
	}
	outPath := func(suffix string) string {
		return filepath.Join(req.OutputDir, fmt.Sprintf("%s_%s", req.Region, suffix))
	}

	var src *table.Table
	if req.IndexTablePath != "" {
		var err error
		if src, err = table.ReadCSVFile(req.IndexTablePath); err != nil {
			return result, err
		}
		result.IndexTablePath = req.IndexTablePath
	} else {
		idx, err := s.buildIndexTable(ctx, req, logger)
		if err != nil {
			return result, err
		}
		src = idx.Table(req.ZoneField)
		result.IndexTablePath = outPath(params.IndexPrefix + ".csv")
		if err := src.WriteCSVFile(result.IndexTablePath); err != nil {
			return result, err
		}
	}

	classifier := fallow.NewClassifier(fallow.ParamsFrom(params), logger)
	classified, results, err := classifier.Augment(src, req.ZoneField, req.Today)
	if err != nil {
		return result, err
	}
	for _, r := range results {
		if r.Status == fallow.Fallow {
			result.Fallow++
		} else {
			result.NotFallow++
		}
		if !r.HarvestDate.IsZero() {
			result.Harvested++
		}
	}

	result.ClassifiedPath = outPath("fallow.csv")
	if err := classified.WriteCSVFile(result.ClassifiedPath); err != nil {
		return result, err
	}
	result.ResultsPath = outPath("results.csv")
	if err := merge.WriteResults(result.ResultsPath, merge.Records(results)); err != nil {
		return result, err
	}

	if isGeoJSON(req.FieldsPath) {
		merger := merge.Merger{
			ZoneKey:         req.ZoneField,
			KeyColumn:       req.ZoneField,
			NumericPrefixes: []string{params.IndexPrefix, timeseries.DeltaPrefix},
			Logger:          logger,
		}
		result.MergedPath = outPath("fields_fallow.geojson")
		merged, _, err := merger.MergeFile(req.FieldsPath, result.MergedPath, classified)
		if err != nil {
			return result, err
		}

		width := req.MapWidth
		if width == 0 {
			width = 1200
		}
		result.MapPath = outPath("fallow_map.png")
		if err := output.CreateFallowMap(merged, fallow.FallowStatusColumn, result.MapPath, width); err != nil {
			return result, err
		}
	}

	logger.Info("fallow identification finished",
		zap.Int("fallow", result.Fallow),
		zap.Int("not_fallow", result.NotFallow),
		zap.String("results", result.ResultsPath))
	return result, nil
}

func (s *Service) buildIndexTable(ctx context.Context, req IdentifyRequest, logger *zap.Logger) (*timeseries.IndexTable, error) {
	imagery := s.Params.Imagery
	images, err := zonal.Discover(req.ImageryDir, imagery.Pattern, imagery.DateChunk)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no %s images found in %s", imagery.Pattern, req.ImageryDir)
	}
	logger.Info("found imagery",
		zap.Int("images", len(images)),
		zap.Time("first", images[0].Date),
		zap.Time("last", images[len(images)-1].Date))

	builder := &zonal.Builder{
		Computer: s.Computer,
		CacheTag: fmt.Sprintf("red%d_nir%d", imagery.RedBand, imagery.NIRBand),
		Workers:  imagery.Workers,
		Prefix:   s.Params.Classifier.IndexPrefix,
		Progress: s.Progress,
		Logger:   logger,
	}
	if s.CacheDir != "" {
		builder.Cache = cache.New[map[string]float64](filepath.Join(s.CacheDir, "zonal"))
	}
	return builder.Build(ctx, images, req.FieldsPath, req.ZoneField)
}

func isGeoJSON(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".geojson" || ext == ".json"
}
