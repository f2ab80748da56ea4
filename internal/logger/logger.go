// ABOUTME: Level logging with verbosity control over the standard log package
// ABOUTME: Component loggers prefix lines with [COMPONENT:id] for per-connection tracing

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

var verbose atomic.Bool

// SetVerbose enables or disables verbose (DEBUG) logging
func SetVerbose(v bool) {
	verbose.Store(v)
}

// IsVerbose returns current verbose setting
func IsVerbose() bool {
	return verbose.Load()
}

// SetOutput sets the output destination for logs. nil restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	log.SetOutput(w)
}

func emit(level, prefix, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if prefix != "" {
		log.Printf("[%s] %s %s", level, prefix, msg)
		return
	}
	log.Printf("[%s] %s", level, msg)
}

// Debug logs at DEBUG level (only shown when verbose)
func Debug(format string, args ...interface{}) {
	if IsVerbose() {
		emit("DEBUG", "", format, args...)
	}
}

// Info logs at INFO level (always shown)
func Info(format string, args ...interface{}) {
	emit("INFO", "", format, args...)
}

// Warn logs at WARN level (always shown)
func Warn(format string, args ...interface{}) {
	emit("WARN", "", format, args...)
}

// Error logs at ERROR level (always shown)
func Error(format string, args ...interface{}) {
	emit("ERROR", "", format, args...)
}

// Component is a logger whose lines carry a [NAME:id] tag.
type Component struct {
	prefix string
}

// For returns a component logger. id is shortened to eight characters so
// uuids stay readable; an empty id yields a bare [NAME] tag.
func For(name, id string) Component {
	if id == "" {
		return Component{prefix: "[" + name + "]"}
	}
	return Component{prefix: fmt.Sprintf("[%s:%s]", name, Short(id))}
}

// Short truncates an id for log output.
func Short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (c Component) Debug(format string, args ...interface{}) {
	if IsVerbose() {
		emit("DEBUG", c.prefix, format, args...)
	}
}

func (c Component) Info(format string, args ...interface{}) {
	emit("INFO", c.prefix, format, args...)
}

func (c Component) Warn(format string, args ...interface{}) {
	emit("WARN", c.prefix, format, args...)
}

func (c Component) Error(format string, args ...interface{}) {
	emit("ERROR", c.prefix, format, args...)
}
