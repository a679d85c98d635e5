package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette for CLI output, adapted from the lime-green accent scheme
// used elsewhere in this codebase's terminal rendering.
const (
	colorLime     = "154"
	colorGray     = "245"
	colorDarkGray = "238"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorLime))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorLime))
)

// scoreBar renders score (expected roughly in [0,1]) as a fixed-width bar of
// filled/empty blocks, the same "sparkline-ish" approach the rest of this
// codebase's terminal rendering uses for at-a-glance magnitude.
func scoreBar(score float64, width int) string {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	filled := int(score*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return barStyle.Render(bar)
}
