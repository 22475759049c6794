package ui

import (
	"fmt"
	"io"
)

// Logo is printed when the server starts in a terminal
const Logo = `
  ┌┬┐┌─┐┌┬┐┬┌─┐┌─┐┌─┐┌┬┐┌─┐
  │││├┤  ││││├─┤│ ┬├─┤ │ ├┤
  ┴ ┴└─┘─┴┘┴┴ ┴└─┘┴ ┴ ┴ └─┘
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the logo and version in cyan
func PrintLogo(w io.Writer, version string) {
	fmt.Fprint(w, Cyan(Logo))
	fmt.Fprintln(w, Dim("  media gateway "+version))
}

// PrintError prints msg in red, followed by err when given
func PrintError(w io.Writer, msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	fmt.Fprintln(w, Red(msg))
}

func PrintSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, Green(msg))
}

// PrintInfo prints a "label: value" pair
func PrintInfo(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s: %s\n", Cyan(label), Yellow(value))
}

func PrintWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, Yellow(msg))
}

func PrintHighlight(w io.Writer, msg string) {
	fmt.Fprintln(w, Magenta(msg))
}
