package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLogger verifies that an empty log writes nothing and entries are
// written with their tag.
func TestLogger(t *testing.T) {
	l := New(10)
	var sb strings.Builder

	assert.False(t, l.Write(&sb), "empty log should write nothing")
	assert.Empty(t, sb.String())

	l.Log(Info, "test", "this is a test")
	l.Write(&sb)
	assert.Equal(t, "test: this is a test\n", sb.String())

	sb.Reset()
	l.Log(Warn, "test2", "this is another test")
	l.Write(&sb)
	assert.Equal(t, "test: this is a test\ntest2: this is another test\n", sb.String())

	// asking for too many entries in a Tail() should be okay
	sb.Reset()
	l.Tail(&sb, 100)
	assert.Equal(t, "test: this is a test\ntest2: this is another test\n", sb.String())

	sb.Reset()
	l.Tail(&sb, 1)
	assert.Equal(t, "test2: this is another test\n", sb.String())

	sb.Reset()
	l.Tail(&sb, 0)
	assert.Empty(t, sb.String())
}

// Repeated messages are folded into one entry with a count.
func TestLoggerRepeat(t *testing.T) {
	l := New(10)
	l.Log(Warn, "kc", "missing block")
	l.Log(Warn, "kc", "missing block")
	l.Log(Warn, "kc", "missing block")

	entries := l.Entries(Debug)
	assert.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Repeated())
	assert.Equal(t, "kc: missing block (repeat x3)", entries[0].String())
}

// TestLoggerBounded verifies that only the newest entries are kept.
func TestLoggerBounded(t *testing.T) {
	l := New(3)
	for _, d := range []string{"a", "b", "c", "d", "e"} {
		l.Log(Info, "t", d)
	}

	var sb strings.Builder
	l.Write(&sb)
	assert.Equal(t, "t: c\nt: d\nt: e\n", sb.String())
}

// TestLoggerEcho verifies that echo respects the level and skips repeats.
func TestLoggerEcho(t *testing.T) {
	l := New(10)
	var sb strings.Builder
	l.SetEcho(&sb, Info, false)

	l.Log(Debug, "t", "hidden")
	l.Logf(Info, "t", "block %02x", 0x1f)
	l.Logf(Info, "t", "block %02x", 0x1f)

	assert.Equal(t, "t: block 1f\n", sb.String(), "debug entries and repeats are not echoed")
}

// TestLoggerEntriesByLevel verifies filtering by minimum level.
func TestLoggerEntriesByLevel(t *testing.T) {
	l := New(10)
	l.Log(Debug, "t", "one")
	l.Log(Info, "t", "two")
	l.Log(Warn, "t", "three")

	warnings := l.Entries(Warn)
	assert.Len(t, warnings, 1)
	assert.Equal(t, "three", warnings[0].Detail)
	assert.Len(t, l.Entries(Info), 2)
}
