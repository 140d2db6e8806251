package properties

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ClassifierParameters struct {
	IndexPrefix            string  `yaml:"index_prefix"`
	HarvestDropThreshold   float64 `yaml:"harvest_drop_threshold"`
	RecentWindowDays       int     `yaml:"recent_window_days"`
	FallowThreshold        float64 `yaml:"fallow_threshold"`
	RecoveryIndexThreshold float64 `yaml:"recovery_index_threshold"`
	RecoveryDeltaThreshold float64 `yaml:"recovery_delta_threshold"`
	EmptyWindowPolicy      string  `yaml:"empty_window_policy"`
}

type SamplerParameters struct {
	TargetFraction     float64  `yaml:"target_fraction"`
	MinFieldAcreage    float64  `yaml:"min_field_acreage"`
	MinSelectedCount   int      `yaml:"min_selected_count"`
	MaxSelectedCount   int      `yaml:"max_selected_count"`
	MaxAttempts        int      `yaml:"max_attempts"`
	CollapseDuplicates bool     `yaml:"collapse_duplicates"`
	HeaderRow          int      `yaml:"header_row"`
	InputSheet         string   `yaml:"input_sheet"`
	OutputSheet        string   `yaml:"output_sheet"`
	Columns            []string `yaml:"columns"`
	RequiredColumn     string   `yaml:"required_column"`
}

type ImageryParameters struct {
	Pattern   string `yaml:"pattern"`
	DateChunk int    `yaml:"date_chunk"`
	RedBand   int    `yaml:"red_band"`
	NIRBand   int    `yaml:"nir_band"`
	Workers   int    `yaml:"workers"`
}

type Parameters struct {
	Classifier ClassifierParameters `yaml:"classifier"`
	Sampler    SamplerParameters    `yaml:"sampler"`
	Imagery    ImageryParameters    `yaml:"imagery"`
}

// SourceColumns is the positional header of the fallowing program inspection workbook.
var SourceColumns = []string{
	"field_id", "farm_id", "section", "township", "range", "acct_id", "parcel_id",
	"qualified_acres", "parcel_number", "canal_gate", "fallowed_acreage",
	"special_location", "zip_code", "blank", "date_fallowed", "duration_fallowed",
}

func DefaultParameters() Parameters {
	return Parameters{
		Classifier: ClassifierParameters{
			IndexPrefix:            "ndvi",
			HarvestDropThreshold:   -0.15,
			RecentWindowDays:       30,
			FallowThreshold:        0.2,
			RecoveryIndexThreshold: 0.14,
			RecoveryDeltaThreshold: 0.02,
			EmptyWindowPolicy:      "error",
		},
		Sampler: SamplerParameters{
			TargetFraction:   0.05,
			MinFieldAcreage:  5,
			MinSelectedCount: 25,
			MaxSelectedCount: 30,
			MaxAttempts:      10000,
			HeaderRow:        6,
			OutputSheet:      "Selected_Fields",
			Columns:          append([]string(nil), SourceColumns...),
			RequiredColumn:   "farm_id",
		},
		Imagery: ImageryParameters{
			Pattern:   "*_B2-4_8.img",
			DateChunk: 2,
			RedBand:   3,
			NIRBand:   4,
			Workers:   4,
		},
	}
}

// LoadParameters returns the defaults overridden by the YAML file at path.
// An empty path yields the defaults.
func LoadParameters(path string) (Parameters, error) {
	params := DefaultParameters()
	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("failed to read parameters file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		return params, fmt.Errorf("failed to parse parameters file %s: %w", path, err)
	}

	if err := params.Validate(); err != nil {
		return params, fmt.Errorf("invalid parameters in %s: %w", path, err)
	}
	return params, nil
}

func (p Parameters) Validate() error {
	c, s, i := p.Classifier, p.Sampler, p.Imagery
	switch {
	case c.IndexPrefix == "":
		return errors.New("classifier.index_prefix cannot be empty")
	case c.RecentWindowDays < 0:
		return errors.New("classifier.recent_window_days cannot be negative")
	case c.EmptyWindowPolicy != "error" && c.EmptyWindowPolicy != "fallow" && c.EmptyWindowPolicy != "not_fallow":
		return fmt.Errorf("classifier.empty_window_policy %q must be one of error, fallow, not_fallow", c.EmptyWindowPolicy)
	case s.TargetFraction <= 0 || s.TargetFraction > 1:
		return fmt.Errorf("sampler.target_fraction %v must be in (0, 1]", s.TargetFraction)
	case s.MinFieldAcreage < 0:
		return errors.New("sampler.min_field_acreage cannot be negative")
	case s.MinSelectedCount < 1 || s.MaxSelectedCount < s.MinSelectedCount:
		return fmt.Errorf("sampler selected count bounds [%d, %d] are inconsistent", s.MinSelectedCount, s.MaxSelectedCount)
	case s.MaxAttempts < 1:
		return errors.New("sampler.max_attempts must be positive")
	case s.HeaderRow < 1:
		return errors.New("sampler.header_row must be positive")
	case s.OutputSheet == "":
		return errors.New("sampler.output_sheet cannot be empty")
	case i.Pattern == "":
		return errors.New("imagery.pattern cannot be empty")
	case i.DateChunk < 0:
		return errors.New("imagery.date_chunk cannot be negative")
	case i.RedBand < 1 || i.NIRBand < 1:
		return errors.New("imagery bands are 1-based")
	case i.Workers < 1:
		return errors.New("imagery.workers must be positive")
	}
	return nil
}

// LoadEnv loads the first .env file found among paths. Missing files are not an
// error since every key can also come from the process environment.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", "../.env", "../../.env"}
	}
	for _, path := range paths {
		err := godotenv.Load(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}
