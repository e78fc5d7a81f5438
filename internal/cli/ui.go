package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/flowkeeper/pkg/catalog"
)

// stdout receives human-readable status lines. Machine output (exports,
// renders) goes to the command's own writer instead.
var stdout io.Writer = os.Stdout

// =============================================================================
// Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorBlue   = lipgloss.Color("75")
	colorPurple = lipgloss.Color("141")
	colorOrange = lipgloss.Color("209")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// categoryColors tints the kind column of node tables.
var categoryColors = map[catalog.Category]lipgloss.Color{
	catalog.CategoryFlow:     colorCyan,
	catalog.CategoryLogic:    colorPurple,
	catalog.CategoryData:     colorBlue,
	catalog.CategoryIO:       colorOrange,
	catalog.CategoryAnnotate: colorGray,
}

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleLink      = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleSaved   = lipgloss.NewStyle().Foreground(colorGreen)
	stylePending = lipgloss.NewStyle().Foreground(colorYellow)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// categoryStyle returns the style for a node category.
func categoryStyle(c catalog.Category) lipgloss.Style {
	if color, ok := categoryColors[c]; ok {
		return lipgloss.NewStyle().Foreground(color)
	}
	return StyleDim
}

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconSaved   = "saved"
	iconPending = "unsaved"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints the path of a written file.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printStats prints project counts and whether everything is stored, e.g.
// "2 graphs · 9 nodes · 7 edges · saved".
func printStats(graphs, nodes, edges int, saved bool) {
	parts := []string{
		StyleDim.Render(fmt.Sprintf("%d graphs", graphs)),
		StyleDim.Render(fmt.Sprintf("%d nodes", nodes)),
	}
	if edges > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d edges", edges)))
	}
	if saved {
		parts = append(parts, styleSaved.Render(iconSaved))
	} else {
		parts = append(parts, stylePending.Render(iconPending))
	}
	fmt.Fprintln(stdout, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}
