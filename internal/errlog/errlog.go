// Package errlog implements the pipeline's flat append-only error log.
//
// Every worker appends independently; each entry is written with a single
// write syscall on a descriptor opened with O_APPEND, so lines from
// concurrent writers never interleave. The log is never read back or
// truncated by the pipeline itself.
package errlog

import (
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze timestamps via
// SetClock. Production code uses the real clock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for log timestamps. Pass nil to reset to
// real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Log appends timestamped failure messages to a single file.
type Log struct {
	path string
}

// New creates a Log writing to path. The file is created on first append.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Append writes one "{timestamp}: {message}" line to the log.
func (l *Log) Append(message string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open error log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s: %s\n", clock.Now().Format("Mon Jan _2 15:04:05 2006"), message)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append error log: %w", err)
	}
	return nil
}

// Appendf formats a message and appends it.
func (l *Log) Appendf(format string, args ...any) error {
	return l.Append(fmt.Sprintf(format, args...))
}
