package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/upgraph/pkg/build"
	"github.com/matzehuels/upgraph/pkg/pipeline"
)

// stdout receives every status line. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// Colors follow the diagram: safe functions green, unsafe ones red.
var (
	colorAccent = lipgloss.Color("36")
	colorSafe   = lipgloss.Color("35")
	colorUnsafe = lipgloss.Color("167")
	colorWarn   = lipgloss.Color("220")
	colorCmd    = lipgloss.Color("75")
	colorValue  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	// StyleTitle renders headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	// StyleHighlight renders caller names and addresses inline.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	// StyleDim renders secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	styleValue   = lipgloss.NewStyle().Foreground(colorValue)
	styleSafe    = lipgloss.NewStyle().Foreground(colorSafe)
	styleUnsafe  = lipgloss.NewStyle().Foreground(colorUnsafe)
	styleWarn    = lipgloss.NewStyle().Foreground(colorWarn)
	styleInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand = lipgloss.NewStyle().Foreground(colorCmd)
	styleSpinner = lipgloss.NewStyle().Foreground(colorAccent)
)

const (
	markOK   = "✓"
	markFail = "✗"
	markWarn = "!"
	markInfo = "›"
	markFile = "→"
	sep      = " · "
)

func printLine(mark lipgloss.Style, icon, msg string) {
	fmt.Fprintln(stdout, mark.Render(icon)+" "+msg)
}

func printSuccess(format string, args ...any) {
	printLine(styleSafe, markOK, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	printLine(styleUnsafe, markFail, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	printLine(styleWarn, markWarn, styleWarn.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	printLine(styleInfo, markInfo, fmt.Sprintf(format, args...))
}

// printDetail prints an indented dim line under the previous status line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints one written output file.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(markFile)+" "+styleValue.Render(path))
}

// printKeyValue prints one row of the serve banner.
func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleInfo.Width(12).Render(key)+" "+styleValue.Render(value))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// safetyLabel colors a caller name by its safety.
func safetyLabel(name string, safe bool) string {
	if safe {
		return styleSafe.Render(name)
	}
	return styleUnsafe.Render(name)
}

// printSummary prints one line describing a finished render: diagram size,
// skipped input entries, the cache outcome of both layout stages and the
// number of geometric fixes.
func printSummary(res *pipeline.Result) {
	parts := []string{
		fmt.Sprintf("%d nodes", res.Stats.NodeCount),
		fmt.Sprintf("%d edges", res.Stats.EdgeCount),
	}
	if n := len(res.Diagnostics); n > 0 {
		parts = append(parts, styleWarn.Render(fmt.Sprintf("%d skipped", n)))
	}
	parts = append(parts,
		stageCache("nested", res.CacheInfo.NestedHit),
		stageCache("tree", res.CacheInfo.TreeHit),
	)
	r := res.Refine
	if fixes := r.Grown + r.Widened + r.Moved; fixes > 0 {
		parts = append(parts, fmt.Sprintf("%d fixes", fixes))
	}
	fmt.Fprintln(stdout, "  "+strings.Join(parts, StyleDim.Render(sep)))
}

func stageCache(stage string, hit bool) string {
	if hit {
		return styleSafe.Render(stage + " cached")
	}
	return StyleDim.Render(stage + " fresh")
}

// printDiagnostics lists the input entries a render skipped.
func printDiagnostics(diags []build.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(stdout, "  "+styleWarn.Render(markWarn)+" "+
			StyleDim.Render(string(d.Code))+" "+styleValue.Render(d.Subject)+StyleDim.Render(": "+d.Message))
	}
}
