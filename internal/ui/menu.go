package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/tschilb252/fallowing-verification/internal/delivery"
)

type menuOption struct {
	title   string
	handler func(ctx context.Context, s *delivery.Service)
}

var errExit = errors.New("exit")

// ShowMenu displays the main menu and handles user input until the user exits,
// stdin is closed or ctx is cancelled. ctx is handed to every run.
func ShowMenu(ctx context.Context, s *delivery.Service) {
	menuOptions := []menuOption{
		{"Identify fallow fields from imagery", IdentifyFallowFields},
		{"Classify an existing NDVI table", ClassifyIndexTable},
		{"Randomly select fields for inspection", SelectFields},
		{"Show current parameters", ShowParameters},
	}

	for ctx.Err() == nil {
		fmt.Fprintln(out, ColorBlue+"==================="+ColorReset)
		for i, opt := range menuOptions {
			fmt.Fprintf(out, "%s%d. %s%s\n", ColorBlue, i+1, opt.title, ColorReset)
		}
		fmt.Fprintf(out, "%s%d. Exit the application%s\n", ColorBlue, len(menuOptions)+1, ColorReset)

		choice, err := ReadInt("Please enter your choice: ", 1, len(menuOptions)+1)
		if errors.Is(err, errInputClosed) {
			return
		}
		if err != nil {
			PrintError(err.Error())
			continue
		}
		if choice == len(menuOptions)+1 {
			fmt.Fprintln(out, "Exiting...")
			return
		}
		menuOptions[choice-1].handler(ctx, s)
	}
}
