// Package logging builds the zerolog logger shared by every binary and adapts it to
// Temporal's logger interface.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"

	"claim-intake-service/internal/config"
)

// New builds a logger from cfg writing to stderr.
func New(cfg config.LogConfig) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

func NewWithWriter(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// TemporalLogger implements log.Logger on top of zerolog.
type TemporalLogger struct {
	zl zerolog.Logger
}

var _ log.Logger = (*TemporalLogger)(nil)
var _ log.WithLogger = (*TemporalLogger)(nil)

func NewTemporalLogger(zl zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{zl: zl}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.zl.Debug().Fields(fields(keyvals)).Msg(msg)
}

func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	l.zl.Info().Fields(fields(keyvals)).Msg(msg)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.zl.Warn().Fields(fields(keyvals)).Msg(msg)
}

func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	l.zl.Error().Fields(fields(keyvals)).Msg(msg)
}

func (l *TemporalLogger) With(keyvals ...interface{}) log.Logger {
	return &TemporalLogger{zl: l.zl.With().Fields(fields(keyvals)).Logger()}
}

// fields turns Temporal's alternating key/value list into a zerolog field map.
// A trailing key without a value is kept with a nil value.
func fields(keyvals []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, (len(keyvals)+1)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		var val interface{}
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		out[key] = val
	}
	return out
}
