package client

import (
	"fmt"
	"log/slog"
)

// Logger is an optional package logger used for non-fatal warnings.
type Logger interface {
	// Warnf logs a formatted warning message.
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any) {}

// SlogLogger adapts a *slog.Logger to Logger.
func SlogLogger(l *slog.Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return slogLogger{l: l.With("component", "client")}
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Warnf(format string, args ...any) {
	s.l.Warn(fmt.Sprintf(format, args...))
}
