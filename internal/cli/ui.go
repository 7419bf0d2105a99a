package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/gdsfill/pkg/pipeline"
	"github.com/matzehuels/gdsfill/pkg/report"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failures.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached = lipgloss.NewStyle().Foreground(colorCyan)
	styleHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Tables
// =============================================================================

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...)
}

// summaryTable renders one row per filled layer.
func summaryTable(res *pipeline.Result) string {
	rows := make([][]string, 0, len(res.Layers))
	failed := make([]bool, 0, len(res.Layers))
	for _, lr := range res.Layers {
		s := lr.Summary()
		rows = append(rows, []string{
			lr.Layer,
			lr.Algorithm.String(),
			fmt.Sprintf("%.1f ± %.1f", lr.Rule.Density, lr.Rule.Deviation),
			strconv.Itoa(len(lr.Tiles)),
			strconv.Itoa(s.Success),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Cached),
			fmt.Sprintf("%.2f%%", s.Density),
		})
		failed = append(failed, s.Failed > 0)
	}
	t := newTable("Layer", "Algorithm", "Target", "Tiles", "Success", "Skipped", "Failed", "Cached", "Mean").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == -1:
				return styleHeader.Padding(0, 1)
			case col == 6 && failed[row]:
				return base.Foreground(colorRed)
			case col == 7:
				return base.Foreground(colorCyan)
			}
			return base
		})
	return t.Render()
}

// densityTable renders whole-chip layer densities.
func densityTable(densities []report.LayerDensity) string {
	rows := make([][]string, 0, len(densities))
	for _, d := range densities {
		rows = append(rows, []string{
			d.Layer,
			fmt.Sprintf("%.2f", d.Drawing),
			fmt.Sprintf("%.2f", d.Fill),
			fmt.Sprintf("%.2f%%", d.Density),
			fmt.Sprintf("%.1f ± %.1f", d.Target, d.Deviation),
		})
	}
	t := newTable("Layer", "Drawing µm²", "Fill µm²", "Density", "Target").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == -1:
				return styleHeader.Padding(0, 1)
			case col == 3 && densities[row].InBand():
				return base.Foreground(colorGreen)
			case col == 3:
				return base.Foreground(colorYellow)
			}
			return base
		})
	return t.Render()
}

// historyTable renders recorded runs, most recent first.
func historyTable(records []*report.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		var layers, tiles, failed int
		for _, l := range r.Layers {
			layers++
			tiles += len(l.Tiles)
			failed += l.Failed
		}
		mode := "fill"
		if r.DryRun {
			mode = "dry run"
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.Started.Local().Format("2006-01-02 15:04"),
			r.Process,
			r.Input,
			mode,
			strconv.Itoa(layers),
			strconv.Itoa(tiles),
			strconv.Itoa(failed),
		})
	}
	t := newTable("Run", "Started", "Process", "Input", "Mode", "Layers", "Tiles", "Failed").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == -1:
				return styleHeader.Padding(0, 1)
			case col == 0:
				return base.Foreground(colorCyan)
			case col == 7 && records[row].Failed():
				return base.Foreground(colorRed)
			}
			return base
		})
	return t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
