// Package logger provides the process-wide diagnostic logger. Command
// results are printed by the output package; the logger carries only
// debug/progress information and always writes to stderr so that piped
// stdout stays machine-readable.
package logger

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Initialize configures the global zap logger. When debug is true the
// level drops to Debug. Setting SKILLS_LOG_JSON=1 switches from the
// human-readable console encoder to production JSON logs.
func Initialize(debug bool) {
	var config zap.Config
	if jsonLogs() {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{"stderr"}
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.Kitchen)
		config.OutputPaths = []string{"stderr"}
		config.DisableStacktrace = true
		config.DisableCaller = true
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	zap.ReplaceGlobals(zap.Must(config.Build()))
}

func jsonLogs() bool {
	v, err := strconv.ParseBool(os.Getenv("SKILLS_LOG_JSON"))
	if err != nil {
		return false
	}
	return v
}

// Debugf logs a formatted message at debug level.
func Debugf(msg string, args ...any) {
	zap.S().Debugf(msg, args...)
}

// Debugw logs a message at debug level with additional key-value pairs.
func Debugw(msg string, keysAndValues ...any) {
	zap.S().Debugw(msg, keysAndValues...)
}

// Infof logs a formatted message at info level.
func Infof(msg string, args ...any) {
	zap.S().Infof(msg, args...)
}

// Warnf logs a formatted message at warning level.
func Warnf(msg string, args ...any) {
	zap.S().Warnf(msg, args...)
}

// Errorf logs a formatted message at error level.
func Errorf(msg string, args ...any) {
	zap.S().Errorf(msg, args...)
}

// Errorw logs a message at error level with additional key-value pairs.
func Errorw(msg string, keysAndValues ...any) {
	zap.S().Errorw(msg, keysAndValues...)
}

// Sync flushes any buffered log entries. Called before process exit.
func Sync() {
	_ = zap.L().Sync()
}
