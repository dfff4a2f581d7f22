package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Tape colour palette
var (
	tapeAmber  = lipgloss.Color("#FFB000") // Phosphor amber
	tapeOrange = lipgloss.Color("#FF8C00")
	tapeRust   = lipgloss.Color("#B7410E")
	tapeBrown  = lipgloss.Color("#5C3A21") // Oxide brown
	tapeGreen  = lipgloss.Color("#4A9B4A")
	tapeRed    = lipgloss.Color("#DC143C")

	warmGray = lipgloss.Color("#B8860B")
	dimGray  = lipgloss.Color("#3A3A3A")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(tapeAmber)
	faint      = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(tapeRed)
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(tapeGreen)
)

// title renders the application title with a subtitle underneath
func title(subtitle string) string {
	return titleStyle.Render("tapedeck 📼") + "\n" +
		lipgloss.NewStyle().Foreground(tapeOrange).Render(subtitle) + "\n\n"
}

func box(content string, border lipgloss.Color) string {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 2).
		Render(content)
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// formatSeconds formats a tape position as m:ss.s
func formatSeconds(s float64) string {
	if s < 0 {
		s = 0
	}
	m := int(s) / 60
	return fmt.Sprintf("%d:%04.1f", m, s-float64(m*60))
}

func makeSparkline(ratio float64, width int) string {
	filled := int(ratio * float64(width))
	filled = max(0, min(filled, width))

	var result strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			pos := float64(i) / float64(width)
			var color lipgloss.Color
			switch {
			case pos < 0.25:
				color = tapeBrown
			case pos < 0.5:
				color = tapeRust
			case pos < 0.75:
				color = tapeOrange
			default:
				color = tapeAmber
			}
			result.WriteString(lipgloss.NewStyle().Foreground(color).Render("█"))
		} else {
			result.WriteString(lipgloss.NewStyle().Foreground(dimGray).Render("░"))
		}
	}
	return result.String()
}

// RenderHistogram draws counts as a two row bar chart of at most width
// columns, scaled to the largest count.
func RenderHistogram(counts []int, width int) string {
	if len(counts) == 0 || width <= 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	colors := []lipgloss.Color{tapeBrown, tapeRust, tapeOrange, tapeAmber}

	// merge neighbouring buckets to fit width
	stride := (len(counts) + width - 1) / width
	var merged []float64
	maxHeight := 0.0
	for i := 0; i < len(counts); i += stride {
		sum := 0
		for _, c := range counts[i:min(i+stride, len(counts))] {
			sum += c
		}
		merged = append(merged, float64(sum))
		maxHeight = max(maxHeight, float64(sum))
	}
	if maxHeight == 0 {
		maxHeight = 1
	}

	cell := func(normalised float64, row int) string {
		// row 0 covers the upper half, row 1 the lower
		var portion float64
		switch {
		case row == 0 && normalised <= 0.5:
			return " "
		case row == 0:
			portion = (normalised - 0.5) * 2
		case normalised >= 0.5:
			portion = 1
		default:
			portion = normalised * 2
		}
		if normalised == 0 {
			return " "
		}
		idx := min(int(portion*float64(len(blocks)-1)), len(blocks)-1)
		color := colors[min(int(normalised*float64(len(colors))), len(colors)-1)]
		return lipgloss.NewStyle().Foreground(color).Render(string(blocks[idx]))
	}

	var s strings.Builder
	for row := range 2 {
		if row > 0 {
			s.WriteString("\n")
		}
		for _, h := range merged {
			s.WriteString(cell(h/maxHeight, row))
		}
	}
	return s.String()
}
