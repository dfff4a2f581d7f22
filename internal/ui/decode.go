package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// DecodeProgress reports how far one input has been read
type DecodeProgress struct {
	Input    string
	Seconds  float64 // Position in the input
	Duration float64 // Length of the input, 0 if unknown
	Files    int
	Errors   int
}

// DecodeSummary describes the outcome for one input
type DecodeSummary struct {
	Input    string
	Files    []string
	Errors   int
	Duration float64
	MapPath  string
}

// DecodeComplete signals that all inputs are done
type DecodeComplete struct {
	Format    string
	Inputs    []DecodeSummary
	Warnings  int
	TotalTime time.Duration
	Err       error
}

// quitTimerMsg is sent when it's time to quit after showing completion
type quitTimerMsg struct{}

// DecodeModel is the Bubbletea model for decoding
type DecodeModel struct {
	progress    progress.Model
	format      string
	order       []string
	inputs      map[string]DecodeProgress
	complete    *DecodeComplete
	startTime   time.Time
	width       int
	interrupted bool

	completionDelay time.Duration
}

// NewDecodeModel creates the decode progress model. inputs fixes the
// display order.
func NewDecodeModel(format string, inputs []string) *DecodeModel {
	p := progress.New(
		progress.WithGradient(string(tapeRust), string(tapeAmber)),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	m := &DecodeModel{
		progress:        p,
		format:          format,
		order:           inputs,
		inputs:          make(map[string]DecodeProgress, len(inputs)),
		startTime:       time.Now(),
		completionDelay: 500 * time.Millisecond,
	}
	for _, in := range inputs {
		m.inputs[in] = DecodeProgress{Input: in}
	}
	return m
}

// Interrupted reports whether the user quit before decoding finished
func (m *DecodeModel) Interrupted() bool {
	return m.interrupted
}

// Init initializes the model
func (m *DecodeModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *DecodeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(10, min(msg.Width-50, 40))
		return m, nil

	case DecodeProgress:
		if _, ok := m.inputs[msg.Input]; !ok {
			m.order = append(m.order, msg.Input)
		}
		m.inputs[msg.Input] = msg
		return m, nil

	case DecodeComplete:
		m.complete = &msg
		return m, tea.Tick(m.completionDelay, func(time.Time) tea.Msg {
			return quitTimerMsg{}
		})

	case quitTimerMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		if m.complete != nil {
			return m, tea.Quit
		}
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.interrupted = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the UI
func (m *DecodeModel) View() string {
	if m.complete != nil {
		return m.renderComplete()
	}
	return m.renderProgress()
}

func (m *DecodeModel) renderProgress() string {
	var s strings.Builder
	s.WriteString(title("Decoding " + m.format))

	for _, in := range m.order {
		p := m.inputs[in]
		ratio := 0.0
		if p.Duration > 0 {
			ratio = min(p.Seconds/p.Duration, 1)
		}

		s.WriteString(fmt.Sprintf("%-20s ", truncate(filepath.Base(in), 20)))
		s.WriteString(m.progress.ViewAs(ratio))
		s.WriteString(fmt.Sprintf(" %3d%%  %s", int(ratio*100), formatSeconds(p.Seconds)))
		s.WriteString(faint.Render(fmt.Sprintf("  │  %d file(s)", p.Files)))
		if p.Errors > 0 {
			s.WriteString("  ")
			s.WriteString(errorStyle.Render(fmt.Sprintf("%d defective", p.Errors)))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(faint.Render(fmt.Sprintf("Elapsed: %s  │  q to stop", formatDuration(time.Since(m.startTime)))))

	return box(s.String(), tapeOrange)
}

func (m *DecodeModel) renderComplete() string {
	var s strings.Builder

	border := tapeGreen
	if m.complete.Err != nil {
		border = tapeRed
		s.WriteString(errorStyle.Render("✗ Decoding stopped"))
		s.WriteString("\n")
		s.WriteString(m.complete.Err.Error())
	} else {
		s.WriteString(okStyle.Render("✓ Decoding complete!"))
	}
	s.WriteString("\n\n")

	total, defective := 0, 0
	for _, in := range m.complete.Inputs {
		total += len(in.Files)
		defective += in.Errors

		s.WriteString(faint.Render(filepath.Base(in.Input)))
		s.WriteString(fmt.Sprintf("  %s of tape\n", formatSeconds(in.Duration)))
		for _, f := range in.Files {
			s.WriteString("  " + f + "\n")
		}
		if len(in.Files) == 0 {
			s.WriteString(faint.Render("  no files found") + "\n")
		}
		if in.MapPath != "" {
			s.WriteString(faint.Render("  map: "+in.MapPath) + "\n")
		}
	}

	s.WriteString("\n")
	ratio := 1.0
	if total > 0 {
		ratio = float64(total-defective) / float64(total)
	}
	s.WriteString(fmt.Sprintf("%-12s%d file(s), %d defective  %s\n", "Files:", total, defective, makeSparkline(ratio, 20)))
	if m.complete.Warnings > 0 {
		s.WriteString(fmt.Sprintf("%-12s%d (run with --verbose for details)\n", "Warnings:", m.complete.Warnings))
	}
	s.WriteString(fmt.Sprintf("%-12s%s", "Time:", formatDuration(m.complete.TotalTime)))

	return box(s.String(), border) + "\n"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
