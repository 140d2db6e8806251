package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

var (
	in  = bufio.NewReader(os.Stdin)
	out io.Writer = os.Stdout
)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Fprintf(out, "%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Fprintf(out, "%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fmt.Fprintf(out, "\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	fmt.Fprintf(out, "\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	fmt.Fprintf(out, "%s%s%s", ColorBlue, message, ColorReset)
}

var errInputClosed = errors.New("input closed")

// ReadString reads a line from stdin with trimming
func ReadString(prompt string) (string, error) {
	PrintInfo(prompt)
	input, err := in.ReadString('\n')
	if err != nil && (input == "" || !errors.Is(err, io.EOF)) {
		return "", errInputClosed
	}
	return strings.TrimSpace(input), nil
}

// ReadStringDefault returns def when the user just presses enter.
func ReadStringDefault(prompt, def string) (string, error) {
	input, err := ReadString(fmt.Sprintf("%s [%s]: ", prompt, def))
	if err != nil || input != "" {
		return input, err
	}
	return def, nil
}

// ReadInt reads an integer from stdin with validation
func ReadInt(prompt string, min, max int) (int, error) {
	input, err := ReadString(prompt)
	if err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}
	return value, nil
}

// ReadDate reads a date from stdin with validation. Empty input and "today"
// both mean the current date.
func ReadDate(prompt string) (time.Time, error) {
	input, err := ReadString(prompt)
	if err != nil {
		return time.Time{}, err
	}
	if input == "" || input == "today" {
		return time.Now(), nil
	}
	date, err := time.Parse("2006-01-02", input)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD", input)
	}
	return date, nil
}

// ReadYesNo reads a y/n answer, returning def on empty input.
func ReadYesNo(prompt string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	input, err := ReadString(fmt.Sprintf("%s [%s]: ", prompt, hint))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(input) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return false, fmt.Errorf("please answer y or n, got %q", input)
}
