package internal

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestSetLogLevel(t *testing.T) {
	originalLevel := logLevel
	defer SetLogLevel(originalLevel)

	tests := []struct {
		level LogLevel
		want  zapcore.Level
	}{
		{LogLevelError, zapcore.ErrorLevel},
		{LogLevelWarn, zapcore.WarnLevel},
		{LogLevelInfo, zapcore.InfoLevel},
		{LogLevelDebug, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		SetLogLevel(tt.level)
		if logLevel != tt.level {
			t.Errorf("SetLogLevel(%v) logLevel = %v", tt.level, logLevel)
		}
		if got := zapLevel.Level(); got != tt.want {
			t.Errorf("SetLogLevel(%v) zap level = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSetVerbose(t *testing.T) {
	originalLevel := logLevel
	defer SetLogLevel(originalLevel)

	SetVerbose(true)
	if logLevel != LogLevelDebug {
		t.Errorf("SetVerbose(true) logLevel = %v, want LogLevelDebug", logLevel)
	}

	SetVerbose(false)
	if logLevel != LogLevelInfo {
		t.Errorf("SetVerbose(false) logLevel = %v, want LogLevelInfo", logLevel)
	}
}

func TestConfigureLogger(t *testing.T) {
	originalLevel := logLevel
	defer func() {
		_ = ConfigureLogger("info", false)
		SetLogLevel(originalLevel)
	}()

	tests := []struct {
		level       string
		development bool
		want        LogLevel
		wantErr     bool
	}{
		{"debug", true, LogLevelDebug, false},
		{"info", false, LogLevelInfo, false},
		{"warn", false, LogLevelWarn, false},
		{"error", false, LogLevelError, false},
		{"loud", false, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := ConfigureLogger(tt.level, tt.development)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ConfigureLogger(%q) error = %v", tt.level, err)
			}
			if !tt.wantErr && logLevel != tt.want {
				t.Errorf("logLevel = %v, want %v", logLevel, tt.want)
			}
		})
	}
}

func TestLogFunctions(t *testing.T) {
	// must not panic at any level
	LogError("test error message %d", 1)
	LogWarn("test warning message")
	LogInfo("test info message")
	LogDebug("test debug message")
	SyncLogger()
}
