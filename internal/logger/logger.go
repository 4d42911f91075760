// Package logger is the one process-wide facility spec.md §9 allows
// ("Global state: logging and timing are the only process-wide
// facilities"). Grounded on the pack's zap-based logger
// (wegman-software-osm2pgsql-go/internal/logger), adapted to this
// module's needs: no log-file rotation (this module has no long-running
// daemon mode), just console output at a configurable level.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once
)

// Init initializes the global logger. Safe to call multiple times; only
// the first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		level := zapcore.InfoLevel
		encoderConfig := zap.NewProductionEncoderConfig()
		if debug {
			level = zapcore.DebugLevel
			encoderConfig = zap.NewDevelopmentEncoderConfig()
		}
		encoderConfig.TimeKey = "ts"
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(zapcore.AddSync(os.Stdout)),
			level,
		)
		log = zap.New(core)
	})
}

// Get returns the global logger, initializing it at Info level if Init
// was never called (e.g. in tests).
func Get() *zap.Logger {
	if log == nil {
		Init(false)
	}
	return log
}

// Sync flushes buffered log entries; call before process exit.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
