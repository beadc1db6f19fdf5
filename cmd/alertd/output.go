package main

import (
	"io"
	"os"
	"strconv"
	"strings"

	isatty "github.com/mattn/go-isatty"

	"github.com/opus-domini/alertd/internal/alerts"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
)

type outputRow struct {
	Key   string
	Value string
}

// prettyOutput reports whether w is a terminal that accepts ANSI colors.
func prettyOutput(w io.Writer) bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("TERM")), "dumb") {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printRows(w io.Writer, rows []outputRow) {
	pretty := prettyOutput(w)
	width := 0
	for _, row := range rows {
		width = max(width, len(row.Key))
	}
	for _, row := range rows {
		if !pretty {
			writef(w, "%s: %s\n", row.Key, row.Value)
			continue
		}
		writef(w, "%s%-*s%s  %s\n", ansiDim, width, row.Key, ansiReset, colorizeValue(row.Value))
	}
}

func printHeading(w io.Writer, title string) {
	if prettyOutput(w) {
		writef(w, "%s%s%s\n", ansiBold, title, ansiReset)
		return
	}
	writeln(w, title)
}

func printNotice(w io.Writer, message string) {
	if prettyOutput(w) {
		writef(w, "%s%s%s\n", ansiGreen, message, ansiReset)
		return
	}
	writeln(w, message)
}

func printAlert(w io.Writer, a alerts.Alert) {
	printRows(w, []outputRow{
		{Key: "id", Value: strconv.FormatInt(a.ID, 10)},
		{Key: "name", Value: a.Name},
		{Key: "frequency", Value: formatFrequency(a.Frequency)},
		{Key: "active", Value: strconv.FormatBool(a.Active)},
	})
}

// printAlertTable writes one tab-separated line per alert, under a header
// when w is a terminal.
func printAlertTable(w io.Writer, list []alerts.Alert) {
	pretty := prettyOutput(w)
	if pretty {
		writef(w, "%sID\tNAME\tFREQUENCY\tACTIVE%s\n", ansiBold, ansiReset)
	}
	for _, a := range list {
		active := strconv.FormatBool(a.Active)
		if pretty {
			active = colorizeValue(active)
		}
		writef(w, "%d\t%s\t%s\t%s\n", a.ID, a.Name, formatFrequency(a.Frequency), active)
	}
}

func formatFrequency(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func colorizeValue(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "ok":
		return ansiGreen + value + ansiReset
	case "false", "error":
		return ansiRed + value + ansiReset
	default:
		if strings.HasPrefix(value, "error:") {
			return ansiRed + value + ansiReset
		}
		return value
	}
}
