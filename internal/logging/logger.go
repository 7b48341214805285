package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger interface for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// ZeroLogger writes structured entries through zerolog
type ZeroLogger struct {
	zl zerolog.Logger
}

// New creates a logger writing to out. format is "json" or "console";
// level is one of debug, info, warn, error (anything else means info).
func New(out io.Writer, level, format string) *ZeroLogger {
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05.000"}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return &ZeroLogger{
		zl: zerolog.New(out).Level(lvl).With().Timestamp().Logger(),
	}
}

// With returns a child logger that always carries the given fields.
func (l *ZeroLogger) With(fields ...Field) *ZeroLogger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, sanitizeValue(f.Value))
	}
	return &ZeroLogger{zl: ctx.Logger()}
}

func (l *ZeroLogger) Debug(msg string, fields ...Field) {
	l.log(l.zl.Debug(), msg, fields...)
}

func (l *ZeroLogger) Info(msg string, fields ...Field) {
	l.log(l.zl.Info(), msg, fields...)
}

func (l *ZeroLogger) Warn(msg string, fields ...Field) {
	l.log(l.zl.Warn(), msg, fields...)
}

func (l *ZeroLogger) Error(msg string, fields ...Field) {
	l.log(l.zl.Error(), msg, fields...)
}

func (l *ZeroLogger) log(e *zerolog.Event, msg string, fields ...Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			e = e.AnErr(f.Key, v)
		case time.Duration:
			e = e.Dur(f.Key, v)
		default:
			e = e.Interface(f.Key, sanitizeValue(v))
		}
	}
	e.Msg(msg)
}

// Don't log full values of long strings (bodies, cookies)
func sanitizeValue(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		if len(s) > 100 {
			return s[:100] + "...[truncated]"
		}
	}
	return v
}

// NullLogger discards all logs (for testing)
type NullLogger struct{}

func (NullLogger) Debug(msg string, fields ...Field) {}
func (NullLogger) Info(msg string, fields ...Field)  {}
func (NullLogger) Warn(msg string, fields ...Field)  {}
func (NullLogger) Error(msg string, fields ...Field) {}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return NullLogger{}
}
