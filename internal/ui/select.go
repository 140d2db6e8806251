package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/tschilb252/fallowing-verification/internal/delivery"
	"github.com/tschilb252/fallowing-verification/internal/properties"
)

func SelectFields(ctx context.Context, s *delivery.Service) {
	PrintWarning(fmt.Sprintf("The selection is written to the %q sheet of the input workbook.\nAn existing sheet with that name is overwritten.", s.Params.Sampler.OutputSheet))

	input, err := ReadStringDefault("Inspection workbook", properties.SelectionInput())
	if err != nil {
		PrintError(err.Error())
		return
	}
	sheet, err := ReadString("Sheet name (empty for the first sheet): ")
	if err != nil {
		PrintError(err.Error())
		return
	}
	if sheet == "" {
		sheet = properties.SelectionSheet()
	}

	res, err := s.SelectFields(ctx, delivery.SelectRequest{InputPath: input, InputSheet: sheet})
	if err != nil {
		PrintError(fmt.Sprintf("Error selecting fields: %s", err))
		return
	}
	PrintSuccess(fmt.Sprintf("%d fields (%.2f of %.2f target acres) selected after %d attempts.",
		len(res.Selection.FieldIDs), res.Selection.Acreage, res.Selection.Target, res.Selection.Attempts))
	fmt.Fprintf(out, "%s%s%s\n", ColorGreen, strings.Join(res.Selection.FieldIDs, ", "), ColorReset)
	fmt.Fprintf(out, "%sWritten to %s [%s]%s\n", ColorGreen, res.OutputPath, res.Sheet, ColorReset)
}
