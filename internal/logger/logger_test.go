package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   zapcore.Level
		wantOK bool
	}{
		{in: "debug", want: zapcore.DebugLevel, wantOK: true},
		{in: "info", want: zapcore.InfoLevel, wantOK: true},
		{in: "warn", want: zapcore.WarnLevel, wantOK: true},
		{in: "Warning", want: zapcore.WarnLevel, wantOK: true},
		{in: " DEBUG ", want: zapcore.DebugLevel, wantOK: true},
		{in: "error", want: zapcore.ErrorLevel, wantOK: true},
		{in: "verbose"},
		{in: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lvl, ok := parseLevel(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("parseLevel(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && lvl != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, lvl, tt.want)
			}
		})
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := wrap(zap.New(core)).With(String("component", "sync"))

	log.Info("refreshed", Int64("remote_updated_at", 150), Strings("groups", []string{"a"}))
	log.Debugf("checked %d lists", 3)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["component"] != "sync" {
		t.Errorf("component = %v", ctx["component"])
	}
	if ctx["remote_updated_at"] != int64(150) {
		t.Errorf("remote_updated_at = %v", ctx["remote_updated_at"])
	}
	if entries[1].Message != "checked 3 lists" {
		t.Errorf("message = %q", entries[1].Message)
	}
	if entries[1].ContextMap()["component"] != "sync" {
		t.Error("sugared entries lose the With fields")
	}
}

func TestNewIgnoresUnknownLevel(t *testing.T) {
	log := New("verbose", false)
	log.Debug("not emitted")
	NewNop().Info("discarded", Int("n", 1))
}
