package formats

import (
	"fmt"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.,]`)

// SanitizeName trims name and replaces every character outside
// [A-Za-z0-9_.,] with an underscore.
func SanitizeName(name string) string {
	name = strings.TrimSpace(strings.TrimRight(name, "\x00"))
	return unsafeChars.ReplaceAllString(name, "_")
}

// Namer hands out unique file names for decoded files.
type Namer struct {
	used  map[string]bool
	count int
}

// NewNamer creates an empty Namer.
func NewNamer() *Namer {
	return &Namer{used: make(map[string]bool)}
}

// Next returns a unique name for f. Unnamed files are numbered; names
// already handed out get a numeric suffix.
func (n *Namer) Next(f OutputFile) string {
	n.count++
	base := SanitizeName(f.Name)
	if base == "" || strings.Trim(base, "._") == "" {
		base = fmt.Sprintf("file%03d", n.count)
	}

	name := base + "." + f.Extension
	for i := 1; n.used[strings.ToLower(name)]; i++ {
		name = fmt.Sprintf("%s_%d.%s", base, i, f.Extension)
	}
	n.used[strings.ToLower(name)] = true
	return name
}
