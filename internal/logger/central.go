package logger

import "io"

var central = New(maxCentral)

const maxCentral = 512

// Logf adds an entry to the central logger.
func Logf(level Level, tag, detail string, args ...any) {
	central.Logf(level, tag, detail, args...)
}

// Log adds an entry to the central logger.
func Log(level Level, tag, detail string) {
	central.Log(level, tag, detail)
}

// SetEcho echoes central entries at or above level to output.
func SetEcho(output io.Writer, level Level, styled bool) {
	central.SetEcho(output, level, styled)
}

// Write prints the central log to output.
func Write(output io.Writer) bool {
	return central.Write(output)
}

// Tail prints the last number entries of the central log.
func Tail(output io.Writer, number int) {
	central.Tail(output, number)
}

// Clear empties the central log.
func Clear() {
	central.Clear()
}

// Warnings returns the warnings currently in the central log.
func Warnings() []Entry {
	return central.Entries(Warn)
}
