// Package logger is the central log for tapedeck. Entries are tagged and
// kept in a bounded history; consecutive identical entries are folded into
// one entry with a repeat count. Entries can optionally be echoed to a
// writer as they arrive.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Level orders entries by importance.
type Level int

// List of valid Level values.
const (
	Debug Level = iota
	Info
	Warn
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	}
	return "unknown"
}

var levelStyles = map[Level]lipgloss.Style{
	Debug: lipgloss.NewStyle().Faint(true),
	Info:  lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	Warn:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFF00")),
}

// Entry is a single log entry.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Tag       string
	Detail    string
	repeated  int
}

func (e Entry) String() string {
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("%s: %s", e.Tag, e.Detail))
	if e.repeated > 0 {
		s.WriteString(fmt.Sprintf(" (repeat x%d)", e.repeated+1))
	}
	return s.String()
}

// Repeated returns the number of times the entry was logged.
func (e Entry) Repeated() int {
	return e.repeated + 1
}

// Logger is a bounded, tagged log. The zero value is not usable; use New.
type Logger struct {
	crit       sync.Mutex
	maxEntries int
	entries    []Entry

	echo      io.Writer
	echoLevel Level
	styled    bool
}

// New creates a Logger keeping at most maxEntries entries.
func New(maxEntries int) *Logger {
	return &Logger{
		maxEntries: maxEntries,
		entries:    make([]Entry, 0, maxEntries),
	}
}

// SetEcho writes every new entry at or above level to output. A nil output
// disables echoing. Styled output uses the terminal colour palette.
func (l *Logger) SetEcho(output io.Writer, level Level, styled bool) {
	l.crit.Lock()
	defer l.crit.Unlock()
	l.echo = output
	l.echoLevel = level
	l.styled = styled
}

// Log adds an entry.
func (l *Logger) Log(level Level, tag, detail string) {
	l.crit.Lock()
	defer l.crit.Unlock()

	// entries are single line
	tag = strings.ReplaceAll(tag, "\n", "")
	detail = strings.ReplaceAll(detail, "\n", "")

	var e *Entry
	if n := len(l.entries); n > 0 {
		last := &l.entries[n-1]
		if last.Tag == tag && last.Detail == detail && last.Level == level {
			last.repeated++
			last.Timestamp = time.Now()
			e = last
		}
	}

	if e == nil {
		l.entries = append(l.entries, Entry{
			Timestamp: time.Now(),
			Level:     level,
			Tag:       tag,
			Detail:    detail,
		})
		e = &l.entries[len(l.entries)-1]
	}

	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
		e = &l.entries[len(l.entries)-1]
	}

	if l.echo != nil && level >= l.echoLevel && e.repeated == 0 {
		line := e.String()
		if l.styled {
			line = levelStyles[level].Render(line)
		}
		io.WriteString(l.echo, line+"\n")
	}
}

// Logf adds an entry with a formatted detail string.
func (l *Logger) Logf(level Level, tag, detail string, args ...any) {
	l.Log(level, tag, fmt.Sprintf(detail, args...))
}

// Clear removes all entries.
func (l *Logger) Clear() {
	l.crit.Lock()
	defer l.crit.Unlock()
	l.entries = l.entries[:0]
}

// Write prints every entry to output. Returns false if there was nothing
// to write.
func (l *Logger) Write(output io.Writer) bool {
	l.crit.Lock()
	defer l.crit.Unlock()
	if len(l.entries) == 0 {
		return false
	}
	for _, e := range l.entries {
		io.WriteString(output, e.String()+"\n")
	}
	return true
}

// Tail prints the last number entries to output.
func (l *Logger) Tail(output io.Writer, number int) {
	l.crit.Lock()
	defer l.crit.Unlock()
	if number > len(l.entries) {
		number = len(l.entries)
	}
	for _, e := range l.entries[len(l.entries)-number:] {
		io.WriteString(output, e.String()+"\n")
	}
}

// Entries returns a copy of the entries at or above level.
func (l *Logger) Entries(level Level) []Entry {
	l.crit.Lock()
	defer l.crit.Unlock()
	c := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Level >= level {
			c = append(c, e)
		}
	}
	return c
}
