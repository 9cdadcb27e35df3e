package internal

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

var (
	logLevel = LogLevelInfo
	zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger   = newSugar(false)
)

func newSugar(development bool) *zap.SugaredLogger {
	cfg := zap.Config{
		Level:             zapLevel,
		Development:       development,
		Encoding:          "console",
		EncoderConfig:     encoderConfig(development),
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: !development,
	}
	if !development {
		cfg.Encoding = "json"
	}

	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		// Fallback to no-op logger
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	if development {
		return zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			CallerKey:      "C",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "M",
			StacktraceKey:  "S",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}
	}
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// ConfigureLogger rebuilds the process logger. level is one of
// "debug", "info", "warn", "error".
func ConfigureLogger(level string, development bool) error {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	switch {
	case zl <= zapcore.DebugLevel:
		SetLogLevel(LogLevelDebug)
	case zl == zapcore.InfoLevel:
		SetLogLevel(LogLevelInfo)
	case zl == zapcore.WarnLevel:
		SetLogLevel(LogLevelWarn)
	default:
		SetLogLevel(LogLevelError)
	}
	_ = logger.Sync()
	logger = newSugar(development)
	return nil
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	logLevel = level
	switch level {
	case LogLevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	case LogLevelWarn:
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LogLevelInfo:
		zapLevel.SetLevel(zapcore.InfoLevel)
	default:
		zapLevel.SetLevel(zapcore.DebugLevel)
	}
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		SetLogLevel(LogLevelDebug)
	} else {
		SetLogLevel(LogLevelInfo)
	}
}

func logError(format string, args ...interface{}) {
	if logLevel >= LogLevelError {
		logger.Errorf(format, args...)
	}
}

func logWarn(format string, args ...interface{}) {
	if logLevel >= LogLevelWarn {
		logger.Warnf(format, args...)
	}
}

func logInfo(format string, args ...interface{}) {
	if logLevel >= LogLevelInfo {
		logger.Infof(format, args...)
	}
}

func logDebug(format string, args ...interface{}) {
	if logLevel >= LogLevelDebug {
		logger.Debugf(format, args...)
	}
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	logError(format, args...)
}

// LogWarn logs a warning message
func LogWarn(format string, args ...interface{}) {
	logWarn(format, args...)
}

// LogInfo logs an info message
func LogInfo(format string, args ...interface{}) {
	logInfo(format, args...)
}

// LogDebug logs a debug message
func LogDebug(format string, args ...interface{}) {
	logDebug(format, args...)
}

// SyncLogger flushes buffered log entries.
func SyncLogger() {
	_ = logger.Sync()
}
