// Package report provides structured logging and run-progress reporting
// for the engine, wrapping zerolog the way the example pack's reporting
// package does.
package report

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogFormat selects the log line encoding.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	Level  zerolog.Level
	Format LogFormat
	Output io.Writer
}

// Logger wraps a zerolog.Logger configured for benchalot's CLI.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger builds a Logger from cfg. A nil Output defaults to stderr;
// LogFormatText selects console output and any other Format writes JSON;
// Level is applied as given (its zero value is zerolog's debug level).
func NewLogger(cfg LoggerConfig) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	var output io.Writer = cfg.Output
	if cfg.Format == LogFormatText {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).With().Timestamp().Logger().Level(cfg.Level)
	return &Logger{logger: zlog}
}

func (l *Logger) Debug(msg string, fields map[string]any) { l.event(l.logger.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields map[string]any)  { l.event(l.logger.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]any)  { l.event(l.logger.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields map[string]any) { l.event(l.logger.Error(), msg, fields) }

func (l *Logger) event(event *zerolog.Event, msg string, fields map[string]any) {
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// WithField returns a child logger with an additional field attached to
// every subsequent event.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// ParseLevel maps a --log-level flag value to a zerolog.Level, defaulting
// to info for an unrecognized value.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
