package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// stdout receives every status line; tests swap it out.
var stdout io.Writer = os.Stdout

// Palette, ANSI 256.
var (
	colorAccent = lipgloss.Color("36")
	colorOK     = lipgloss.Color("35")
	colorWarn   = lipgloss.Color("220")
	colorFail   = lipgloss.Color("167")
	colorCmd    = lipgloss.Color("75")
	colorValue  = lipgloss.Color("255")
	colorLabel  = lipgloss.Color("245")
	colorMuted  = lipgloss.Color("240")
)

var (
	styleTitle       = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleMuted       = lipgloss.NewStyle().Foreground(colorMuted)
	styleValue       = lipgloss.NewStyle().Foreground(colorValue)
	styleLabel       = lipgloss.NewStyle().Foreground(colorLabel).Width(12)
	styleCommand     = lipgloss.NewStyle().Foreground(colorCmd)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
)

// A mark is the one-character prefix of a status line.
type mark struct {
	glyph string
	style lipgloss.Style
}

var (
	markOK   = mark{"✓", lipgloss.NewStyle().Foreground(colorOK)}
	markFail = mark{"✗", lipgloss.NewStyle().Foreground(colorFail)}
	markWarn = mark{"!", lipgloss.NewStyle().Foreground(colorWarn)}
	markInfo = mark{"›", lipgloss.NewStyle().Foreground(colorLabel)}
)

func (m mark) println(format string, args ...any) {
	fmt.Fprintln(stdout, m.style.Render(m.glyph)+" "+fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { markOK.println(format, args...) }
func printError(format string, args ...any)   { markFail.println(format, args...) }
func printInfo(format string, args ...any)    { markInfo.println(format, args...) }

func printWarning(format string, args ...any) {
	markWarn.println("%s", markWarn.style.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented, muted line under the previous status.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+styleMuted.Render(fmt.Sprintf(format, args...)))
}

// printFile reports a written file, e.g. a preview PNG.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+styleMuted.Render("→")+" "+styleValue.Render(path))
}

// printKeyValue prints a device or config field in an aligned column.
func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleLabel.Render(key)+" "+styleValue.Render(value))
}

// printStats prints the payload size and degradation level of a frame.
func printStats(size, level int) {
	fmt.Fprintln(stdout, "  "+styleMuted.Render(statsLine(size, level)))
}

func statsLine(size, level int) string {
	quality := "full colour"
	if level > 0 {
		quality = fmt.Sprintf("degraded level %d", level)
	}
	return fmt.Sprintf("%d bytes · %s", size, quality)
}

// printNextStep suggests the command to run after this one.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, styleMuted.Render(description+":")+" "+styleCommand.Render(cmd))
}
