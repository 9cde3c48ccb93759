package commands

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	User  lipgloss.Style
	Model lipgloss.Style
	Error lipgloss.Style
	Dim   lipgloss.Style
}

// newStyles builds styles for w; colors are dropped when w is not a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	primary := lipgloss.Color("#4f8cff")
	return styles{
		Title: r.NewStyle().Bold(true).Foreground(primary),
		Label: r.NewStyle().Bold(true).Foreground(primary),
		User:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00b894")),
		Model: r.NewStyle().Bold(true).Foreground(primary),
		Error: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f56")),
		Dim:   r.NewStyle().Foreground(lipgloss.Color("#6e7681")),
	}
}
