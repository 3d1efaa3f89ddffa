package observability

import (
	"fmt"
	"log"
	"strings"
)

// StdLogger adapts the standard library logger to the structured interface.
// Fields render as key=value pairs appended to the message.
type StdLogger struct {
	Base *log.Logger
}

// NewStdLogger wraps the provided base logger, defaulting to log.Default().
func NewStdLogger(base *log.Logger) *StdLogger {
	if base == nil {
		base = log.Default()
	}
	return &StdLogger{Base: base}
}

// Debug logs at debug level.
func (l *StdLogger) Debug(msg string, fields ...Field) { l.emit("DEBUG", msg, fields) }

// Info logs at info level.
func (l *StdLogger) Info(msg string, fields ...Field) { l.emit("INFO", msg, fields) }

// Error logs at error level.
func (l *StdLogger) Error(msg string, fields ...Field) { l.emit("ERROR", msg, fields) }

func (l *StdLogger) emit(level, msg string, fields []Field) {
	if l == nil || l.Base == nil {
		return
	}
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteString(" ")
		b.WriteString(f.Key)
		b.WriteString("=")
		fmt.Fprintf(&b, "%v", f.Value)
	}
	l.Base.Print(b.String())
}
