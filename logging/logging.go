// Package logging implements the level-tagged logging contract from spec
// §6.3: a free-form callback the core notifies on interesting events. The
// core never consults a Sink for control flow — every decision it makes is
// based on return values, never on what got logged.
package logging

import "fmt"

// Level is one of the three severities spec §6.3 names.
type Level int

const (
	INFO Level = iota
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Sink is the logging callback contract: level, the caller's file and line,
// and a printf-style message. The core calls this purely for observability.
type Sink func(level Level, file string, line int, format string, args ...any)

// NopSink discards every message. This is the core's default sink.
func NopSink(Level, string, int, string, ...any) {}

// StdSink writes every message through the standard log package, prefixed
// with its level.
func StdSink(level Level, file string, line int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	stdLogger.Printf("%s %s:%d: %s", level, file, line, msg)
}
