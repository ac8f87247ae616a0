// Package logging wraps zap with the encoder settings shared by the form
// controllers. Controllers never print to stdout; everything that the browser
// implementation sent to the console goes through a Logger instead.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger writing to stderr at info level.
func New() *zap.Logger {
	return NewWithWriter(os.Stderr, zapcore.InfoLevel)
}

// NewWithWriter returns a JSON logger writing to w. Tests use it to capture
// log lines.
func NewWithWriter(w io.Writer, level zapcore.Level) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		NameKey:     "logger",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core)
}

// Debug enables debug level output on stderr.
func Debug() *zap.Logger {
	return NewWithWriter(os.Stderr, zapcore.DebugLevel)
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
