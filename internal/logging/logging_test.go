package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{name: "text debug", level: "debug", format: "text", wantLevel: zapcore.DebugLevel},
		{name: "json warn", level: "WARN", format: "json", wantLevel: zapcore.WarnLevel},
		{name: "default format", level: "error", format: "", wantLevel: zapcore.ErrorLevel},
		{name: "unknown level", level: "loud", format: "text", wantLevel: zapcore.InfoLevel},
		{name: "unknown format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer func() { _ = logger.Sync() }()

			if got := logger.Level(); got != tt.wantLevel {
				t.Errorf("Expected level %s, got %s", tt.wantLevel, got)
			}
		})
	}
}
