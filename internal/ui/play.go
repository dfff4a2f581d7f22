package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// PlayProgress reports playback position
type PlayProgress struct {
	Played time.Duration
	Total  time.Duration
	Label  string // Block or record being played
}

// PlayComplete signals the end of playback
type PlayComplete struct {
	Err error
}

// PlayModel is the Bubbletea model for playback
type PlayModel struct {
	progress    progress.Model
	subtitle    string
	lastUpdate  PlayProgress
	complete    *PlayComplete
	interrupted bool
}

// NewPlayModel creates the playback model
func NewPlayModel(subtitle string, total time.Duration) *PlayModel {
	p := progress.New(
		progress.WithGradient(string(tapeRust), string(tapeAmber)),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &PlayModel{
		progress:   p,
		subtitle:   subtitle,
		lastUpdate: PlayProgress{Total: total},
	}
}

// Interrupted reports whether the user stopped playback
func (m *PlayModel) Interrupted() bool {
	return m.interrupted
}

// Init initializes the model
func (m *PlayModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = max(10, min(msg.Width-30, 50))
		return m, nil

	case PlayProgress:
		m.lastUpdate = msg
		return m, nil

	case PlayComplete:
		m.complete = &msg
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.interrupted = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the UI
func (m *PlayModel) View() string {
	var s strings.Builder
	s.WriteString(title(m.subtitle))

	ratio := 0.0
	if m.lastUpdate.Total > 0 {
		ratio = min(float64(m.lastUpdate.Played)/float64(m.lastUpdate.Total), 1)
	}
	if m.complete != nil && m.complete.Err == nil {
		ratio = 1
	}

	s.WriteString("Playing: ")
	s.WriteString(m.progress.ViewAs(ratio))
	s.WriteString(fmt.Sprintf("  %d%%\n\n", int(ratio*100)))

	s.WriteString(faint.Render(fmt.Sprintf("Time: %s / %s",
		formatSeconds(m.lastUpdate.Played.Seconds()),
		formatSeconds(m.lastUpdate.Total.Seconds()))))
	if m.lastUpdate.Label != "" {
		s.WriteString(faint.Render("  │  " + m.lastUpdate.Label))
	}
	s.WriteString("\n")

	border := tapeOrange
	switch {
	case m.complete != nil && m.complete.Err != nil:
		border = tapeRed
		s.WriteString("\n" + errorStyle.Render("✗ "+m.complete.Err.Error()))
	case m.complete != nil:
		border = tapeGreen
		s.WriteString("\n" + okStyle.Render("✓ Playback complete"))
	default:
		s.WriteString("\n" + faint.Render("q to stop"))
	}

	return box(s.String(), border) + "\n"
}
