package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestFormatBytes verifies the switch to binary units at 1024.
func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.n), "FormatBytes(%d)", tt.n)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "2.5s", FormatDuration(2500*time.Millisecond))
}

// An instant run must not divide by zero.
func TestFormatRealtime(t *testing.T) {
	assert.Equal(t, "instant", formatRealtime(time.Minute, 0))
	assert.Equal(t, "60x tape speed", formatRealtime(time.Minute, time.Second))
}

// TestTable verifies that rows are rendered without a trailing newline.
func TestTable(t *testing.T) {
	tb := &table{width: 8}
	tb.row("Format", "kc")
	tb.row("Blocks", "3")
	out := tb.String()
	assert.Contains(t, out, "Format")
	assert.Contains(t, out, "kc")
	assert.NotContains(t, out[len(out)-1:], "\n")
}
