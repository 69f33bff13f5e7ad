package common

import (
	"context"
	"strings"
	"testing"
)

func TestNewLogger_ReturnsNonNil(t *testing.T) {
	logger := NewLogger("info")
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}
}

func TestNewLogger_FluentAPI(t *testing.T) {
	logger := NewLogger("error")
	logger.Info().Str("tool", "ls").Msg("test message")
	logger.Warn().Int("count", 42).Msg("warning")
	logger.Error().Err(nil).Msg("error message")
	logger.Debug().Bool("ok", true).Msg("debug")
}

func TestNewSilentLogger_DiscardsOutput(t *testing.T) {
	logger := NewSilentLogger()
	if logger == nil {
		t.Fatal("NewSilentLogger returned nil")
	}
	logger.Info().Str("key", "value").Msg("should be discarded")
	logger.Error().Str("key", "value").Msg("should be discarded")
}

func TestWithCorrelationId_ReturnsNewLogger(t *testing.T) {
	base := NewSilentLogger()
	child := base.WithCorrelationId("abc-123")
	if child == nil {
		t.Fatal("WithCorrelationId returned nil")
	}
	if child == base {
		t.Error("WithCorrelationId should return a new logger")
	}
	child.Info().Msg("traced")
}

func TestNewLoggerFromConfig_DefaultsLevel(t *testing.T) {
	logger := NewLoggerFromConfig(LoggingConfig{Outputs: []string{"console"}})
	if logger == nil {
		t.Fatal("NewLoggerFromConfig returned nil")
	}
}

func TestGetFullVersion(t *testing.T) {
	v := GetFullVersion()
	if !strings.Contains(v, Version) {
		t.Errorf("GetFullVersion() = %q, want it to contain %q", v, Version)
	}
	if !strings.Contains(v, "commit:") {
		t.Errorf("GetFullVersion() = %q, want commit info", v)
	}
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	if info.Version != Version || info.Build != Build || info.GitCommit != GitCommit {
		t.Errorf("GetVersionInfo() = %+v, want package vars", info)
	}
}

func TestCallContext_RoundTrip(t *testing.T) {
	fallback := NewSilentLogger()
	ctx := context.Background()

	if got := LoggerFrom(ctx, fallback); got != fallback {
		t.Error("LoggerFrom without call context should return fallback")
	}

	scoped := fallback.WithCorrelationId("id-1")
	ctx = WithCallContext(ctx, CallContext{CorrelationID: "id-1", Tool: "ls", Logger: scoped})

	cc, ok := GetCallContext(ctx)
	if !ok || cc.CorrelationID != "id-1" || cc.Tool != "ls" {
		t.Errorf("GetCallContext = %+v, %v", cc, ok)
	}
	if got := LoggerFrom(ctx, fallback); got != scoped {
		t.Error("LoggerFrom should return the call-scoped logger")
	}
}
