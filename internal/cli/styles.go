package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Status colours outside the tape palette
var (
	okColor    = lipgloss.Color("#4A9B4A")
	warnColor  = lipgloss.Color("#FFD700")
	errColor   = lipgloss.Color("#DC143C")
	valueColor = lipgloss.Color("#F5F5DC")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(TapeAmber)
	subtitleStyle = lipgloss.NewStyle().Foreground(WarmGray).Italic(true)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TapeOrange).
			MarginTop(1)

	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(okColor)
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(warnColor)
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(errColor)
	keyStyle   = lipgloss.NewStyle().Foreground(WarmGray)
	valueStyle = lipgloss.NewStyle().Foreground(valueColor)

	// Tape label frame around summaries
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(TapeBrown).
			Padding(0, 2).
			MarginTop(1)
)

// PrintBanner prints the application name and tagline
func PrintBanner() {
	fmt.Println(titleStyle.Render(appTitle))
	fmt.Println(subtitleStyle.Render(appDescription))
}

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Printf("%s %s\n", titleStyle.Render(appTitle), valueStyle.Render(version))
}

// PrintError prints an error message to stderr
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errStyle.Render("✗ Error:"), message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("%s %s\n", warnStyle.Render("! "), message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("%s %s\n", okStyle.Render("✓"), message)
}

// PrintInfo prints a key and its value on one line
func PrintInfo(key, value string) {
	fmt.Printf("  %s %s\n", keyStyle.Render(key+":"), valueStyle.Render(value))
}

// PrintSection prints a section header
func PrintSection(title string) {
	fmt.Println(sectionStyle.Render("▸ " + title))
}

// FormatDuration formats a wall clock duration
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatBytes formats a size with binary units
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	value := float64(n) / unit
	prefix := 0
	for value >= unit && prefix < 5 {
		value /= unit
		prefix++
	}
	return fmt.Sprintf("%.1f %ciB", value, "KMGTP"[prefix])
}

// formatRealtime describes how much faster than tape speed something ran
func formatRealtime(tape, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "instant"
	}
	return fmt.Sprintf("%.0fx tape speed", float64(tape)/float64(elapsed))
}

// table renders aligned key/value rows
type table struct {
	sb    strings.Builder
	width int
}

func (t *table) row(key, value string) {
	t.sb.WriteString(keyStyle.Render(fmt.Sprintf("%-*s", t.width, key)))
	t.sb.WriteString(valueStyle.Render(value))
	t.sb.WriteString("\n")
}

func (t *table) String() string {
	return strings.TrimSuffix(t.sb.String(), "\n")
}

// EncodeSummary is the content of the box printed after encoding
type EncodeSummary struct {
	Output   string
	Format   string
	Input    int64
	Duration time.Duration
	FileSize int64
	Blocks   int
	Elapsed  time.Duration
}

// PrintEncodeSummary prints an encode summary framed like a tape label
func PrintEncodeSummary(sum EncodeSummary) {
	t := &table{width: 11}
	t.sb.WriteString(okStyle.Render("✓ " + sum.Output))
	t.sb.WriteString("\n\n")
	t.row("Format", sum.Format)
	t.row("Input", FormatBytes(sum.Input))
	t.row("Blocks", fmt.Sprintf("%d", sum.Blocks))
	t.row("Tape time", sum.Duration.Round(100*time.Millisecond).String())
	if sum.FileSize > 0 {
		t.row("Audio", FormatBytes(sum.FileSize))
	}
	t.row("Encoded in", fmt.Sprintf("%s (%s)", FormatDuration(sum.Elapsed), formatRealtime(sum.Duration, sum.Elapsed)))

	fmt.Println(boxStyle.Render(t.String()))
}

// DecodedFile is one line of a decode summary
type DecodedFile struct {
	Path      string
	Detail    string
	Defective bool
}

// DecodeSummary lists what was found on one input
type DecodeSummary struct {
	Input    string
	Files    []DecodedFile
	Duration float64 // Seconds of tape read
	MapPath  string
}

// PrintDecodeSummary prints the files decoded from each input and a total.
func PrintDecodeSummary(inputs []DecodeSummary, elapsed time.Duration, dryRun bool) {
	total, defective := 0, 0
	for _, in := range inputs {
		PrintSection(fmt.Sprintf("%s (%.1fs of tape)", in.Input, in.Duration))
		if len(in.Files) == 0 {
			PrintWarning("no files found")
		}
		for _, f := range in.Files {
			mark := okStyle.Render("✓")
			if f.Defective {
				mark = errStyle.Render("✗")
				defective++
			}
			fmt.Printf("  %s %s  %s\n", mark, valueStyle.Render(f.Path), keyStyle.Render(f.Detail))
		}
		if in.MapPath != "" {
			PrintInfo("Map", in.MapPath)
		}
		total += len(in.Files)
	}

	fmt.Println()
	msg := fmt.Sprintf("%d file(s), %d defective in %s", total, defective, FormatDuration(elapsed))
	if dryRun {
		msg += " (dry run, nothing written)"
	}
	if defective > 0 {
		PrintWarning(msg)
		return
	}
	PrintSuccess(msg)
}
