package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tschilb252/fallowing-verification/internal/delivery"
	"github.com/tschilb252/fallowing-verification/internal/logging"
	"github.com/tschilb252/fallowing-verification/internal/notification"
	"github.com/tschilb252/fallowing-verification/internal/properties"
	"github.com/tschilb252/fallowing-verification/internal/ui"
)

var (
	logger  *zap.Logger
	service *delivery.Service

	parametersFile string
	logLevel       string
	logFile        string
	noProgress     bool
)

func printBanner() {
	figure1 := figure.NewFigure("Fallowing", "small", true)
	figure2 := figure.NewFigure("Verification", "small", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

var rootCmd = &cobra.Command{
	Use:   "fallowing",
	Short: "Fallow field identification and random inspection selection",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := properties.LoadEnv(); err != nil {
			return err
		}
		if !cmd.Flags().Changed("params") {
			parametersFile = properties.ParametersFile()
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = properties.LogLevel()
		}

		params, err := properties.LoadParameters(parametersFile)
		if err != nil {
			return err
		}

		var paths []string
		if logFile != "" {
			paths = []string{logFile}
		}
		if logger, err = logging.New(logLevel, paths...); err != nil {
			return err
		}

		godal.RegisterAll()
		service = delivery.NewService(params, logger)
		service.Progress = !noProgress
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		printBanner()
		ui.ShowMenu(cmd.Context(), service)
		return nil
	},
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Interactive prompts (default)",
	RunE:  rootCmd.RunE,
}

var identifyRequest delivery.IdentifyRequest
var runDate string

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Compute per-field NDVI from imagery and flag fallow fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := identifyRequest
		if req.ImageryDir == "" {
			req.ImageryDir = properties.ImageryDirectory()
		}
		if req.FieldsPath == "" {
			req.FieldsPath = properties.FieldsPath()
		}
		if req.ZoneField == "" {
			req.ZoneField = properties.ZoneField()
		}
		if req.Region == "" {
			req.Region = properties.Region()
		}
		if req.OutputDir == "" {
			req.OutputDir = properties.OutputDirectory()
		}
		if runDate != "" {
			today, err := time.Parse("2006-01-02", runDate)
			if err != nil {
				return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", runDate)
			}
			req.Today = today
		}
		req.RunID = uuid.NewString()

		res, err := service.IdentifyFallowFields(cmd.Context(), req)
		if err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("%d fallow, %d not fallow. Results: %s", res.Fallow, res.NotFallow, res.ResultsPath))
		return nil
	},
}

var selectRequest delivery.SelectRequest
var seed uint64

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Randomly select fallowed fields for on-the-ground inspection",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := selectRequest
		if req.InputPath == "" {
			req.InputPath = properties.SelectionInput()
		}
		if req.InputSheet == "" {
			req.InputSheet = properties.SelectionSheet()
		}
		if cmd.Flags().Changed("seed") {
			req.Seed = &seed
		}
		req.RunID = uuid.NewString()

		res, err := service.SelectFields(cmd.Context(), req)
		if err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("%d fields selected (%.2f acres, target %.2f) in %s [%s]",
			len(res.Selection.FieldIDs), res.Selection.Acreage, res.Selection.Target, res.OutputPath, res.Sheet))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&parametersFile, "params", "", "YAML parameters file (env PARAMETERS_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (env LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "hide progress bars")

	identifyCmd.Flags().StringVar(&identifyRequest.ImageryDir, "imagery", "", "directory of composite images (env IMAGERY_DIR)")
	identifyCmd.Flags().StringVar(&identifyRequest.FieldsPath, "fields", "", "field boundaries (env FIELDS_PATH)")
	identifyCmd.Flags().StringVar(&identifyRequest.ZoneField, "zone-field", "", "field id attribute (env ZONE_FIELD)")
	identifyCmd.Flags().StringVar(&identifyRequest.Region, "region", "", "region name used in output file names (env REGION)")
	identifyCmd.Flags().StringVar(&identifyRequest.OutputDir, "output", "", "output directory (env OUTPUT_DIR)")
	identifyCmd.Flags().StringVar(&identifyRequest.IndexTablePath, "index-table", "", "classify this NDVI CSV instead of reading imagery")
	identifyCmd.Flags().StringVar(&runDate, "date", "", "run date YYYY-MM-DD (default today)")
	identifyCmd.Flags().IntVar(&identifyRequest.MapWidth, "map-width", 1200, "status map width in pixels")

	selectCmd.Flags().StringVar(&selectRequest.InputPath, "input", "", "inspection workbook or CSV (env SELECTION_INPUT)")
	selectCmd.Flags().StringVar(&selectRequest.InputSheet, "sheet", "", "input sheet (env SELECTION_SHEET)")
	selectCmd.Flags().StringVar(&selectRequest.OutputPath, "output", "", "output workbook (default: the input workbook)")
	selectCmd.Flags().Uint64Var(&seed, "seed", 0, "seed for a reproducible selection")

	rootCmd.AddCommand(menuCmd, identifyCmd, selectCmd)
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
			fmt.Printf("\033[31mExiting...\033[0m\n")
			err := notification.NewDiscord().Error(context.Background(), "panic", fmt.Errorf("%v\n\nStack trace:\n%s", r, debug.Stack()))
			if err != nil {
				fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
			}
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
