// Package sampling draws a random, section-stratified subset of fallowed
// fields for on-the-ground inspection.
package sampling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/tschilb252/fallowing-verification/internal/properties"
)

var (
	ErrSelectionExhausted = errors.New("selection exhausted")
	ErrInvalidAcreage     = errors.New("invalid acreage")
)

// ExhaustedError is returned when no attempt produced an acceptable number of
// fields. It matches ErrSelectionExhausted.
type ExhaustedError struct {
	Attempts  int
	LastCount int
	Min, Max  int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: no selection of %d-%d fields after %d attempts (last attempt selected %d)",
		ErrSelectionExhausted, e.Min, e.Max, e.Attempts, e.LastCount)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrSelectionExhausted
}

type Params struct {
	TargetFraction  float64
	MinFieldAcreage float64
	MinSelected     int
	MaxSelected     int
	MaxAttempts     int
}

func DefaultParams() Params {
	return ParamsFrom(properties.DefaultParameters().Sampler)
}

func ParamsFrom(p properties.SamplerParameters) Params {
	return Params{
		TargetFraction:  p.TargetFraction,
		MinFieldAcreage: p.MinFieldAcreage,
		MinSelected:     p.MinSelectedCount,
		MaxSelected:     p.MaxSelectedCount,
		MaxAttempts:     p.MaxAttempts,
	}
}

type Candidate struct {
	FieldID string
	Section string
	Acreage float64
}

type Selection struct {
	FieldIDs []string
	Sections []string
	Acreage  float64
	Target   float64
	Attempts int
}

type Sampler struct {
	params    Params
	rng       *rand.Rand
	logger    *zap.Logger
	onAttempt func(attempt, selected int)
}

// NewSampler returns a sampler drawing from rng. A nil rng is seeded from
// system entropy, so two samplers give independent selections.
func NewSampler(params Params, rng *rand.Rand, logger *zap.Logger) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{params: params, rng: rng, logger: logger}
}

// OnAttempt registers fn to be called after every attempt with the number of
// fields it selected.
func (s *Sampler) OnAttempt(fn func(attempt, selected int)) {
	s.onAttempt = fn
}

// validAcreage reports whether acres is finite and non-negative.
func validAcreage(acres float64) bool {
	return !math.IsNaN(acres) && !math.IsInf(acres, 0) && acres >= 0
}

// Select retries random attempts until one selects between MinSelected and
// MaxSelected fields. ctx is checked between attempts.
func (s *Sampler) Select(ctx context.Context, candidates []Candidate) (Selection, error) {
	acres := make([]float64, len(candidates))
	for i, c := range candidates {
		if !validAcreage(c.Acreage) {
			return Selection{}, fmt.Errorf("%w: field %s has %v acres", ErrInvalidAcreage, c.FieldID, c.Acreage)
		}
		acres[i] = c.Acreage
	}
	total, _ := stats.Sum(acres)
	target := s.params.TargetFraction * total

	s.logger.Info("selecting fields",
		zap.Int("candidates", len(candidates)),
		zap.Float64("total_acreage", total),
		zap.Float64("target_acreage", target))

	maxAttempts := max(s.params.MaxAttempts, 1)
	last := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Selection{}, fmt.Errorf("selection interrupted after %d attempts: %w", attempt-1, err)
		}

		sel := s.attempt(candidates, target)
		sel.Attempts = attempt
		last = len(sel.FieldIDs)
		if s.onAttempt != nil {
			s.onAttempt(attempt, last)
		}
		s.logger.Debug("selection attempt",
			zap.Int("attempt", attempt),
			zap.Int("selected", last),
			zap.Float64("acreage", sel.Acreage))

		if last >= s.params.MinSelected && last <= s.params.MaxSelected {
			s.logger.Info("selection accepted",
				zap.Int("attempts", attempt),
				zap.Int("selected", last),
				zap.Float64("acreage", sel.Acreage))
			return sel, nil
		}
	}
	return Selection{}, &ExhaustedError{Attempts: maxAttempts, LastCount: last, Min: s.params.MinSelected, Max: s.params.MaxSelected}
}

func (s *Sampler) attempt(candidates []Candidate, target float64) Selection {
	order := s.rng.Perm(len(candidates))

	var sections []string
	for _, i := range order {
		if !slices.Contains(sections, candidates[i].Section) {
			sections = append(sections, candidates[i].Section)
		}
	}

	sel := Selection{Target: target}
	fields := map[string]bool{}
	for _, section := range sections {
		for _, i := range order {
			c := candidates[i]
			if sel.Acreage >= target {
				return sel
			}
			if c.Section != section || fields[c.FieldID] || c.Acreage < s.params.MinFieldAcreage {
				continue
			}
			fields[c.FieldID] = true
			sel.FieldIDs = append(sel.FieldIDs, c.FieldID)
			sel.Sections = append(sel.Sections, c.Section)
			sel.Acreage += c.Acreage
			break
		}
	}
	return sel
}

// Collapse merges rows sharing a field_id, keeping the first section and
// summing the acreage. Fields keep their first-appearance order.
func Collapse(candidates []Candidate) []Candidate {
	index := map[string]int{}
	var out []Candidate
	for _, c := range candidates {
		if i, ok := index[c.FieldID]; ok {
			out[i].Acreage += c.Acreage
			continue
		}
		index[c.FieldID] = len(out)
		out = append(out, c)
	}
	return out
}
