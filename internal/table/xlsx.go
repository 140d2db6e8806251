package table

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads sheet (the first sheet when empty) taking row headerRow
// (1-based) as the header. Rows above the header are skipped and blank header
// cells are named "Unnamed: <i>".
func ReadXLSX(path, sheet string, headerRow int) (*Table, error) {
	if headerRow < 1 {
		return nil, fmt.Errorf("header row must be positive, got %d", headerRow)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < headerRow {
		return nil, fmt.Errorf("sheet %q has %d rows, header expected at row %d", sheet, len(rows), headerRow)
	}

	header := make([]string, len(rows[headerRow-1]))
	for i, name := range rows[headerRow-1] {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		header[i] = name
	}
	return New(header, rows[headerRow:]), nil
}

// WriteSheet stores t in the named sheet of the workbook at path. An existing
// workbook keeps its other sheets and only the named one is replaced; a missing
// workbook is created.
func WriteSheet(path, sheet string, t *Table) error {
	if sheet == "" {
		return errors.New("sheet name cannot be empty")
	}

	var f *excelize.File
	created := false
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return fmt.Errorf("failed to open workbook %s: %w", path, err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return fmt.Errorf("failed to create output folder: %w", err)
		}
		f = excelize.NewFile()
		created = true
	}
	defer f.Close()

	if err := replaceSheet(f, sheet, created); err != nil {
		return err
	}

	if err := writeRow(f, sheet, 1, t.Columns); err != nil {
		return err
	}
	for r, row := range t.Rows {
		if err := writeRow(f, sheet, r+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func replaceSheet(f *excelize.File, sheet string, created bool) error {
	const scratch = "__replacing__"

	existing, err := f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}

	// A fresh workbook only has the default sheet, which is dropped once the target exists.
	defaults := ""
	if created && sheet != "Sheet1" {
		defaults = "Sheet1"
	}

	if existing >= 0 {
		if _, err := f.NewSheet(scratch); err != nil {
			return err
		}
		if err := f.DeleteSheet(sheet); err != nil {
			return fmt.Errorf("failed to replace sheet %q: %w", sheet, err)
		}
		if err := f.SetSheetName(scratch, sheet); err != nil {
			return fmt.Errorf("failed to replace sheet %q: %w", sheet, err)
		}
	} else if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add sheet %q: %w", sheet, err)
	}

	if defaults != "" {
		if err := f.DeleteSheet(defaults); err != nil {
			return err
		}
	}

	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		// Identifiers such as "007" stay text.
		if n, err := strconv.ParseFloat(v, 64); err == nil && row > 1 && strconv.FormatFloat(n, 'f', -1, 64) == v {
			cells[i] = n
			continue
		}
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d of sheet %q: %w", row, sheet, err)
	}
	return nil
}
