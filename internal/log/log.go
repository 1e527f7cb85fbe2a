// Package log defines the structured logging capability injected throughout
// busrpc. It wraps zap rather than exposing it directly, so call sites
// depend on a small interface instead of a process-wide singleton.
package log

import "go.uber.org/zap"

// Field is a structured logging key/value pair.
type Field = zap.Field

var (
	String = zap.String
	Int64  = zap.Int64
	Int    = zap.Int
	Error  = zap.Error
	Bool   = zap.Bool
)

// Logger is the structured sink every component in busrpc accepts as a
// dependency. It mirrors the levels a production logger is expected to
// offer.
type Logger interface {
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// zapLogger adapts *zap.Logger to Logger. zap has no Trace level, so Trace
// is mapped to Debug.
type zapLogger struct {
	l *zap.Logger
}

// NewZap wraps an existing *zap.Logger.
func NewZap(l *zap.Logger) Logger {
	return &zapLogger{l: l}
}

// NewProduction builds a Logger suitable for a deployed consumer/producer
// process: JSON output, info level and above.
func NewProduction() (Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZap(l), nil
}

// NewDevelopment builds a Logger suitable for local development: console
// output, debug level and above.
func NewDevelopment() (Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return NewZap(l), nil
}

// NewNop builds a Logger that discards everything, useful as a default
// when no logger is injected.
func NewNop() Logger {
	return NewZap(zap.NewNop())
}

func (z *zapLogger) Trace(msg string, fields ...Field) { z.l.Debug(msg, fields...) }
func (z *zapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...Field)  { z.l.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...Field)  { z.l.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, fields...) }
func (z *zapLogger) Fatal(msg string, fields ...Field) { z.l.Fatal(msg, fields...) }

func (z *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{l: z.l.With(fields...)}
}
