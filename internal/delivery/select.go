package delivery

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/tschilb252/fallowing-verification/internal/notification"
	"github.com/tschilb252/fallowing-verification/internal/sampling"
	"github.com/tschilb252/fallowing-verification/internal/table"
)

type SelectRequest struct {
	RunID string
	// InputPath is the inspection workbook (.xlsx) or a CSV export of it.
	InputPath  string
	InputSheet string
	// OutputPath defaults to InputPath for workbooks, so the selection lands
	// in a new sheet of the same file.
	OutputPath string
	// Seed makes the draw reproducible. Nil draws from system entropy.
	Seed *uint64
}

type SelectResult struct {
	RunID      string
	Selection  sampling.Selection
	Rows       int
	OutputPath string
	Sheet      string
}

// SelectFields draws the inspection sample and writes the selected rows,
// keyed by field_id, to the output workbook.
func (s *Service) SelectFields(ctx context.Context, req SelectRequest) (SelectResult, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	result, err := s.selectFields(ctx, req)
	if err != nil {
		s.logger().Error("field selection failed", zap.String("run_id", req.RunID), zap.Error(err))
		s.notifyError(ctx, req.RunID, fmt.Errorf("random field selection from %s: %w", filepath.Base(req.InputPath), err))
		return result, err
	}

	s.notifySuccess(ctx, req.RunID, fmt.Sprintf("%d fields selected for inspection", len(result.Selection.FieldIDs)),
		notification.DiscordField{Name: "Acreage", Value: strconv.FormatFloat(result.Selection.Acreage, 'f', 2, 64), Inline: true},
		notification.DiscordField{Name: "Target", Value: strconv.FormatFloat(result.Selection.Target, 'f', 2, 64), Inline: true},
		notification.DiscordField{Name: "Attempts", Value: strconv.Itoa(result.Selection.Attempts), Inline: true},
		notification.DiscordField{Name: "Fields", Value: strings.Join(result.Selection.FieldIDs, ", ")},
	)
	return result, nil
}

func (s *Service) selectFields(ctx context.Context, req SelectRequest) (SelectResult, error) {
	logger := s.logger().With(zap.String("run_id", req.RunID))
	params := s.Params.Sampler
	result := SelectResult{RunID: req.RunID, Sheet: params.OutputSheet}

	src, err := s.readInspections(req)
	if err != nil {
		return result, err
	}
	if len(params.Columns) > 0 {
		if src, err = src.Rename(params.Columns); err != nil {
			return result, fmt.Errorf("unexpected inspection layout: %w", err)
		}
	}
	if params.RequiredColumn != "" {
		if src, err = src.DropEmpty(params.RequiredColumn); err != nil {
			return result, err
		}
	}

	cols := sampling.DefaultColumns()
	candidates, err := sampling.CandidatesFromTable(src, cols)
	if err != nil {
		return result, err
	}
	if params.CollapseDuplicates {
		candidates = sampling.Collapse(candidates)
	}

	var rng *rand.Rand
	if req.Seed != nil {
		rng = rand.New(rand.NewPCG(*req.Seed, *req.Seed))
	}
	sampler := sampling.NewSampler(sampling.ParamsFrom(params), rng, logger)
	if s.Progress {
		bar := progressbar.Default(-1, "selecting fields")
		defer bar.Finish()
		sampler.OnAttempt(func(int, int) { bar.Add(1) })
	}

	selection, err := sampler.Select(ctx, candidates)
	if err != nil {
		return result, err
	}
	result.Selection = selection

	selected, err := sampling.Project(src, selection, cols.FieldID)
	if err != nil {
		return result, err
	}
	result.Rows = selected.Len()

	result.OutputPath = req.OutputPath
	if result.OutputPath == "" {
		result.OutputPath = req.InputPath
		if isCSV(req.InputPath) {
			result.OutputPath = strings.TrimSuffix(req.InputPath, filepath.Ext(req.InputPath)) + ".xlsx"
		}
	}
	if isCSV(result.OutputPath) {
		result.Sheet = ""
		err = selected.WriteCSVFile(result.OutputPath)
	} else {
		err = table.WriteSheet(result.OutputPath, params.OutputSheet, selected)
	}
	if err != nil {
		return result, err
	}

	logger.Info("selection written",
		zap.String("output", result.OutputPath),
		zap.String("sheet", result.Sheet),
		zap.Int("fields", len(selection.FieldIDs)),
		zap.Int("rows", result.Rows))
	return result, nil
}

func (s *Service) readInspections(req SelectRequest) (*table.Table, error) {
	if isCSV(req.InputPath) {
		return table.ReadCSVFile(req.InputPath)
	}
	sheet := req.InputSheet
	if sheet == "" {
		sheet = s.Params.Sampler.InputSheet
	}
	return table.ReadXLSX(req.InputPath, sheet, s.Params.Sampler.HeaderRow)
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
