package logger

import (
	"testing"

	"github.com/terraincognita07/telecare/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Fatal("expected invalid level to be rejected")
	}
}

func TestNewHonoursLevel(t *testing.T) {
	built, err := New(config.LogConfig{Level: "warn", Format: "console"})
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	if built.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info to be disabled at warn level")
	}
	if !built.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatal("expected error to be enabled at warn level")
	}
}
