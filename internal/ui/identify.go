package ui

import (
	"context"
	"fmt"

	"github.com/tschilb252/fallowing-verification/internal/delivery"
	"github.com/tschilb252/fallowing-verification/internal/properties"
)

// IdentifyFallowFields prompts for the imagery run inputs, defaulting to the
// configured locations.
func IdentifyFallowFields(ctx context.Context, s *delivery.Service) {
	PrintWarning(fmt.Sprintf("Images matching %s are read from the imagery directory.\nResults are written to the output directory.", s.Params.Imagery.Pattern))
	req, err := readIdentifyRequest(false)
	if err != nil {
		PrintError(err.Error())
		return
	}
	runIdentify(ctx, s, req)
}

// ClassifyIndexTable classifies a CSV of precomputed ndvi_<YYYYMMDD> columns.
func ClassifyIndexTable(ctx context.Context, s *delivery.Service) {
	req, err := readIdentifyRequest(true)
	if err != nil {
		PrintError(err.Error())
		return
	}
	runIdentify(ctx, s, req)
}

func readIdentifyRequest(fromTable bool) (delivery.IdentifyRequest, error) {
	var req delivery.IdentifyRequest
	var err error

	if fromTable {
		if req.IndexTablePath, err = ReadString("Enter the NDVI table path (.csv): "); err != nil {
			return req, err
		}
		if req.IndexTablePath == "" {
			return req, fmt.Errorf("NDVI table path cannot be empty")
		}
	} else if req.ImageryDir, err = ReadStringDefault("Imagery directory", properties.ImageryDirectory()); err != nil {
		return req, err
	}
	if req.FieldsPath, err = ReadStringDefault("Field boundaries", properties.FieldsPath()); err != nil {
		return req, err
	}
	if req.ZoneField, err = ReadStringDefault("Field id attribute", properties.ZoneField()); err != nil {
		return req, err
	}
	if req.Region, err = ReadStringDefault("Region name", properties.Region()); err != nil {
		return req, err
	}
	if req.OutputDir, err = ReadStringDefault("Output directory", properties.OutputDirectory()); err != nil {
		return req, err
	}
	if req.Today, err = ReadDate("Run date (YYYY-MM-DD, empty for today): "); err != nil {
		return req, err
	}
	return req, nil
}

func runIdentify(ctx context.Context, s *delivery.Service, req delivery.IdentifyRequest) {
	res, err := s.IdentifyFallowFields(ctx, req)
	if err != nil {
		PrintError(fmt.Sprintf("Error identifying fallow fields: %s", err))
		return
	}
	PrintSuccess(fmt.Sprintf("%d fallow and %d not fallow fields (harvest detected on %d).", res.Fallow, res.NotFallow, res.Harvested))
	for _, path := range []string{res.IndexTablePath, res.ClassifiedPath, res.ResultsPath, res.MergedPath, res.MapPath} {
		if path != "" {
			fmt.Fprintf(out, "%s  %s%s\n", ColorGreen, path, ColorReset)
		}
	}
}
