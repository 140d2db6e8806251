package ui

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tschilb252/fallowing-verification/internal/delivery"
)

// ShowParameters prints the thresholds in effect as YAML, the same layout the
// parameters file uses.
func ShowParameters(_ context.Context, s *delivery.Service) {
	raw, err := yaml.Marshal(s.Params)
	if err != nil {
		PrintError(err.Error())
		return
	}
	fmt.Fprintf(out, "%s%s%s", ColorGreen, raw, ColorReset)
}
