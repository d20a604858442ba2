package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{" WARN ", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestZapLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLoggerFrom(zap.New(core))

	l.Info("[Pipeline] processing PR %s", "42")
	l.Warn("[Classifier] pattern mismatch: %s", "p")
	l.Error("[Pipeline] failed: %v", "boom")
	l.Debug("[Parser] skipped %d", 3)

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	wantLevels := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel, zapcore.DebugLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Errorf("entry %d level = %v, want %v", i, e.Level, wantLevels[i])
		}
	}
	if entries[0].Message != "[Pipeline] processing PR 42" {
		t.Errorf("entry 0 message = %q", entries[0].Message)
	}
}

func TestNewZapLogger_InvalidLevel(t *testing.T) {
	if _, err := NewZapLogger("chatty"); err == nil {
		t.Fatal("NewZapLogger() with invalid level returned nil error")
	}
}

func TestLoggersSatisfyInterface(t *testing.T) {
	var _ Logger = NewConsoleLogger()
	var _ Logger = NewSilentLogger()
	var _ Logger = &ZapLogger{}
}
