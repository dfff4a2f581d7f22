package cli

import "github.com/charmbracelet/lipgloss"

// Tape colour palette 📼
// Shared colours for consistent branding across CLI and TUI
var (
	// Core tape colours (dark to bright)
	TapeAmber  = lipgloss.Color("#FFB000") // Phosphor amber
	TapeOrange = lipgloss.Color("#FF8C00") // Deep orange
	TapeRust   = lipgloss.Color("#B7410E") // Oxide rust
	TapeBrown  = lipgloss.Color("#5C3A21") // Oxide brown

	// Accent colours
	WarmGray = lipgloss.Color("#B8860B") // Dark goldenrod for subtle text
)
