package logger

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/wonny/stockscan/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLogLevel(tt.in); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "debug",
		LogFormat: "json",
	}

	log := New(cfg)
	if log == nil {
		t.Fatal("New() returned nil")
	}

	// Chained loggers must not mutate the parent
	child := log.WithField("stock_code", "005930")
	if child == log {
		t.Error("WithField() should return a new logger")
	}

	if got := zerolog.GlobalLevel(); got != zerolog.DebugLevel {
		t.Errorf("global level = %v, want debug", got)
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()

	// Must not panic on any level
	log.Debug("debug")
	log.Info("info")
	log.Warn("warn")
	log.Error("error")
	log.WithError(nil).WithFields(map[string]interface{}{"k": "v"}).Infof("fmt %d", 1)
}
