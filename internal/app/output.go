package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Flags holds the global flags shared by every command.
var Flags struct {
	ConfigPath string
	JSON       bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5f5fd7"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5faf5f"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#d7af00"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#bcbcbc")).Width(18)
)

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
}

func printField(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "  %s %v\n", labelStyle.Render(label+":"), value)
}

func printWarnings(w io.Writer, warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintln(w, warningStyle.Render("Warning: "+warning))
	}
}

func printList(w io.Writer, items []string, empty string) {
	if len(items) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  "+empty))
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
