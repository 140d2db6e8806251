package merge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/tschilb252/fallowing-verification/internal/fallow"
)

// Record is one row of the classification summary CSV.
type Record struct {
	FieldID      string `csv:"field_id"`
	HarvestDate  string `csv:"harvest_date"`
	FallowStatus string `csv:"fallow_status"`
}

func Records(results []fallow.Result) []Record {
	records := make([]Record, len(results))
	for i, r := range results {
		records[i] = Record{
			FieldID:      r.FieldID,
			HarvestDate:  r.HarvestDateString(),
			FallowStatus: string(r.Status),
		}
	}
	return records
}

func WriteResults(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&records, file); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func ReadResults(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	var records []Record
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, fmt.Errorf("failed to read results %s: %w", path, err)
	}
	return records, nil
}
