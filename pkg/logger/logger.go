// Package logger provides structured logging for popcli components.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a component-scoped structured logger. It embeds a logrus entry
// so call sites get the full logrus API (WithField, WithError, Infof, ...).
type Logger struct {
	*logrus.Entry
}

// New creates a logger for the named component at the given level.
func New(component string, level logrus.Level) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
	return &Logger{Entry: l.WithField("component", component)}
}

// NewDefault creates a logger for the named component using the level from
// the LOG_LEVEL environment variable, defaulting to info.
func NewDefault(component string) *Logger {
	return New(component, levelFromEnv())
}

// WithComponent returns a child logger scoped to a sub-component.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Entry: l.Entry.WithField("component", name)}
}

func levelFromEnv() logrus.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
