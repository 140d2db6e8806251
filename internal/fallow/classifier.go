// Package fallow flags fields as fallow from the recent trend of their
// vegetation index and infers the date of their latest harvest.
package fallow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tschilb252/fallowing-verification/internal/properties"
	"github.com/tschilb252/fallowing-verification/internal/table"
	"github.com/tschilb252/fallowing-verification/internal/timeseries"
	"github.com/tschilb252/fallowing-verification/internal/utils"
)

type Status string

const (
	Fallow    Status = "Fallow"
	NotFallow Status = "Not_Fallow"
)

const (
	HarvestDateColumn  = "Harvest_Date"
	FallowStatusColumn = "Fallow_Status"
)

// EmptyWindowPolicy decides the provisional status of every field when no
// imagery date falls inside the recent window.
type EmptyWindowPolicy string

const (
	EmptyWindowError     EmptyWindowPolicy = "error"
	EmptyWindowFallow    EmptyWindowPolicy = "fallow"
	EmptyWindowNotFallow EmptyWindowPolicy = "not_fallow"
)

var ErrEmptyRecentWindow = errors.New("no imagery date inside the recent window")

type Params struct {
	IndexPrefix            string
	HarvestDropThreshold   float64
	RecentWindowDays       int
	FallowThreshold        float64
	RecoveryIndexThreshold float64
	RecoveryDeltaThreshold float64
	EmptyWindow            EmptyWindowPolicy
}

func DefaultParams() Params {
	return ParamsFrom(properties.DefaultParameters().Classifier)
}

func ParamsFrom(p properties.ClassifierParameters) Params {
	return Params{
		IndexPrefix:            p.IndexPrefix,
		HarvestDropThreshold:   p.HarvestDropThreshold,
		RecentWindowDays:       p.RecentWindowDays,
		FallowThreshold:        p.FallowThreshold,
		RecoveryIndexThreshold: p.RecoveryIndexThreshold,
		RecoveryDeltaThreshold: p.RecoveryDeltaThreshold,
		EmptyWindow:            EmptyWindowPolicy(p.EmptyWindowPolicy),
	}
}

// Result is the classification of one field. A zero HarvestDate means no
// harvest was detected.
type Result struct {
	FieldID     string
	HarvestDate time.Time
	Status      Status
}

func (r Result) HarvestDateString() string {
	if r.HarvestDate.IsZero() {
		return ""
	}
	return r.HarvestDate.Format(timeseries.DateLayout)
}

type Classifier struct {
	params Params
	logger *zap.Logger
}

func NewClassifier(params Params, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{params: params, logger: logger}
}

// Classify returns one result per field of idx, in the same order. today is
// the run date the recent window is measured from.
func (c *Classifier) Classify(idx *timeseries.IndexTable, today time.Time) ([]Result, error) {
	deltas := idx.Deltas()
	recent := c.recentDates(idx.Dates, today)

	emptyWindow := len(idx.Dates) >= 2 && len(recent) == 0
	if emptyWindow {
		switch c.params.EmptyWindow {
		case EmptyWindowFallow, EmptyWindowNotFallow:
			c.logger.Warn("no imagery inside the recent window",
				zap.Time("today", today),
				zap.Int("window_days", c.params.RecentWindowDays),
				zap.String("policy", string(c.params.EmptyWindow)))
		default:
			last := idx.Dates[len(idx.Dates)-1]
			return nil, fmt.Errorf("%w: latest image is from %s, window starts %s", ErrEmptyRecentWindow,
				last.Format(timeseries.DateLayout), c.cutoff(today).Format(timeseries.DateLayout))
		}
	}

	results := make([]Result, len(idx.Fields))
	fallow := 0
	for f, field := range idx.Fields {
		results[f] = c.classifyField(field, idx.Dates, idx.Values[f], deltas.Values[f], recent, emptyWindow)
		if results[f].Status == Fallow {
			fallow++
		}
	}

	c.logger.Info("classified fields",
		zap.Int("fields", len(results)),
		zap.Int("dates", len(idx.Dates)),
		zap.Int("recent_dates", len(recent)),
		zap.Int("fallow", fallow))
	return results, nil
}

func (c *Classifier) classifyField(field string, dates []time.Time, values, deltas []float64, recent []int, emptyWindow bool) Result {
	result := Result{FieldID: field, Status: NotFallow}
	if len(dates) < 2 || timeseries.Observed(values) < 2 {
		return result
	}

	// deltas[i] belongs to dates[i+1]; the latest drop wins.
	for i := len(deltas) - 1; i >= 0; i-- {
		if deltas[i] < c.params.HarvestDropThreshold {
			result.HarvestDate = dates[i+1]
			break
		}
	}

	if emptyWindow {
		if c.params.EmptyWindow != EmptyWindowFallow {
			return result
		}
	} else {
		for _, d := range recent {
			// NaN compares false and disqualifies the field.
			if !(values[d] < c.params.FallowThreshold) {
				return result
			}
		}
	}

	if c.recovering(values, deltas) {
		c.logger.Debug("fallow overridden by recovery", zap.String("field_id", field))
		return result
	}
	result.Status = Fallow
	return result
}

// recovering reports whether the latest index value is above the recovery
// threshold while one of the two latest deltas still rises.
func (c *Classifier) recovering(values, deltas []float64) bool {
	if !(values[len(values)-1] > c.params.RecoveryIndexThreshold) {
		return false
	}
	for i := len(deltas) - 1; i >= 0 && i >= len(deltas)-2; i-- {
		if deltas[i] > c.params.RecoveryDeltaThreshold {
			return true
		}
	}
	return false
}

func (c *Classifier) cutoff(today time.Time) time.Time {
	return utils.Day(today).AddDate(0, 0, -c.params.RecentWindowDays)
}

func (c *Classifier) recentDates(dates []time.Time, today time.Time) []int {
	cutoff := c.cutoff(today)
	var recent []int
	for i, d := range dates {
		if !utils.Day(d).Before(cutoff) {
			recent = append(recent, i)
		}
	}
	return recent
}

// Augment classifies the index table src and returns it with the delta,
// harvest date and status columns appended. Columns from a previous run are
// replaced rather than duplicated.
func (c *Classifier) Augment(src *table.Table, keyColumn string, today time.Time) (*table.Table, []Result, error) {
	src = src.DropColumns(func(column string) bool {
		if column == HarvestDateColumn || column == FallowStatusColumn {
			return true
		}
		_, ok := timeseries.ParseColumn(timeseries.DeltaPrefix, column)
		return ok
	})

	idx, err := timeseries.FromTable(src, keyColumn, c.params.IndexPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s columns: %w", c.params.IndexPrefix, err)
	}
	if len(idx.Dates) == 0 {
		return nil, nil, fmt.Errorf("no %s_<YYYYMMDD> columns in [%s]", c.params.IndexPrefix, strings.Join(src.Columns, ", "))
	}

	results, err := c.Classify(idx, today)
	if err != nil {
		return nil, nil, err
	}

	deltas := idx.Deltas()
	columns := append(deltas.Columns(), HarvestDateColumn, FallowStatusColumn)
	values := make([][]string, len(results))
	for f, r := range results {
		row := make([]string, 0, len(columns))
		for _, d := range deltas.Values[f] {
			row = append(row, timeseries.FormatValue(d))
		}
		values[f] = append(row, r.HarvestDateString(), string(r.Status))
	}

	out, err := src.WithColumns(columns, values)
	if err != nil {
		return nil, nil, err
	}
	return out, results, nil
}
