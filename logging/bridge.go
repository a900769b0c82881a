package logging

import (
	dsologging "github.com/dsoprea/go-logging"
)

// NewBridgeSink returns a Sink that passes each WARN and ERROR message to
// github.com/dsoprea/go-logging's Errorf, which builds a stack-aware error
// value the way dsoprea-go-exfat builds its own. The value is discarded: the
// sink writes nothing anywhere and returns nothing to the caller. INFO
// messages are dropped before that step.
//
// Grounded on dsoprea-go-exfat's use of the same library (tree.go,
// navigator.go: log.Wrap/log.Errorf/log.PanicIf throughout its directory
// tree traversal) for exactly the same purpose — structured, leveled
// diagnostics while parsing an on-disk filesystem format.
func NewBridgeSink() Sink {
	return func(level Level, file string, line int, format string, args ...any) {
		if level == INFO {
			return
		}
		_ = dsologging.Errorf(format, args...)
	}
}
