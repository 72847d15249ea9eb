package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLoggingBeforeInit(t *testing.T) {
	sugar = nil
	Info("message before initialization", "key", "value")
	if sugar == nil {
		t.Fatal("expected a default logger to be installed")
	}
}

func TestInitLevel(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantDebug bool
	}{
		{"empty defaults to info", "", false},
		{"debug enables debug", "debug", true},
		{"unknown falls back to info", "verbose", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.level)
			Init()
			if sugar == nil {
				t.Fatal("expected a logger after Init")
			}
			got := sugar.Desugar().Core().Enabled(zapcore.DebugLevel)
			if got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}
