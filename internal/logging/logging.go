// Package logging defines the pluggable Logger capability. Components take a
// Logger and never nil-check: callers that want silence pass Nop().
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the minimal surface the framework reports through. Any
// implementation can be plugged into the server or orchestrator.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Error(msg string)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type zeroLogger struct {
	l zerolog.Logger
}

// NewZerolog wraps an existing zerolog.Logger.
func NewZerolog(l zerolog.Logger) Logger {
	return &zeroLogger{l: l}
}

// NewConsole builds the default console logger. Unknown levels fall back to
// info.
func NewConsole(out io.Writer, level string) Logger {
	if out == nil {
		out = os.Stdout
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		Level(parseLevel(level)).
		With().Timestamp().Logger()
	return &zeroLogger{l: l}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (z *zeroLogger) Debug(msg string) { z.l.Debug().Msg(msg) }
func (z *zeroLogger) Info(msg string)  { z.l.Info().Msg(msg) }
func (z *zeroLogger) Error(msg string) { z.l.Error().Msg(msg) }

func (z *zeroLogger) Debugf(format string, args ...any) {
	z.l.Debug().Msg(fmt.Sprintf(format, args...))
}

func (z *zeroLogger) Infof(format string, args ...any) {
	z.l.Info().Msg(fmt.Sprintf(format, args...))
}

func (z *zeroLogger) Errorf(format string, args ...any) {
	z.l.Error().Msg(fmt.Sprintf(format, args...))
}

type nopLogger struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debug(string)          {}
func (nopLogger) Info(string)           {}
func (nopLogger) Error(string)          {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
