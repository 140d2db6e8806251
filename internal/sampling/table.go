package sampling

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tschilb252/fallowing-verification/internal/table"
)

// Columns names the inputs the sampler reads from an inspection table.
type Columns struct {
	FieldID string
	Section string
	Acreage string
}

func DefaultColumns() Columns {
	return Columns{FieldID: "field_id", Section: "section", Acreage: "fallowed_acreage"}
}

// CandidatesFromTable reads one candidate per row of t. Every row must carry a
// non-negative acreage.
func CandidatesFromTable(t *table.Table, cols Columns) ([]Candidate, error) {
	field, err := t.Index(cols.FieldID)
	if err != nil {
		return nil, err
	}
	section, err := t.Index(cols.Section)
	if err != nil {
		return nil, err
	}
	acreage, err := t.Index(cols.Acreage)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, t.Len())
	for r, row := range t.Rows {
		raw := strings.TrimSpace(row[acreage])
		acres, err := strconv.ParseFloat(raw, 64)
		if err != nil || !validAcreage(acres) {
			return nil, fmt.Errorf("%w: row %d (%s %s) has %s %q", ErrInvalidAcreage, r+1, cols.FieldID, row[field], cols.Acreage, raw)
		}
		candidates = append(candidates, Candidate{
			FieldID: strings.TrimSpace(row[field]),
			Section: strings.TrimSpace(row[section]),
			Acreage: acres,
		})
	}
	return candidates, nil
}

// Project keeps the rows of t whose field was selected, every duplicate row
// included, with the field column moved to the front.
func Project(t *table.Table, sel Selection, fieldColumn string) (*table.Table, error) {
	i, err := t.Index(fieldColumn)
	if err != nil {
		return nil, err
	}
	selected := make(map[string]bool, len(sel.FieldIDs))
	for _, id := range sel.FieldIDs {
		selected[id] = true
	}
	kept := t.Filter(func(row []string) bool {
		return selected[strings.TrimSpace(row[i])]
	})
	return kept.KeyedBy(fieldColumn)
}
