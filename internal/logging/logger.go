package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// #region new-logger
// New builds a zap logger at the given level ("debug", "info", "warn",
// "error"). Development mode switches to the console encoder.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// #endregion new-logger

// #region buffered-logger

// DefaultFlushInterval bounds how long a buffered entry waits before it
// reaches stderr.
const DefaultFlushInterval = time.Second

// NewBuffered builds a production JSON logger whose output goes through a
// zapcore.BufferedWriteSyncer, so warnings emitted on the engine's update
// path land in memory instead of a stderr write. Sync flushes; the returned
// stop flushes and ends the flush goroutine and must be called once logging
// is done.
func NewBuffered(level string) (*zap.Logger, func() error, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}
	return newBuffered(lvl, zapcore.Lock(os.Stderr), DefaultFlushInterval)
}

func newBuffered(lvl zapcore.Level, out zapcore.WriteSyncer, interval time.Duration) (*zap.Logger, func() error, error) {
	config := zap.NewProductionConfig()
	ws := &zapcore.BufferedWriteSyncer{WS: out, FlushInterval: interval}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(config.EncoderConfig), ws, zap.NewAtomicLevelAt(lvl))
	if s := config.Sampling; s != nil {
		core = zapcore.NewSamplerWithOptions(core, time.Second, s.Initial, s.Thereafter)
	}
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel), zap.ErrorOutput(out))
	return logger, ws.Stop, nil
}

// #endregion buffered-logger
