package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	if lvl, ok := parseLevel("debug"); !ok || lvl != zerolog.DebugLevel {
		t.Fatalf("debug: got=%v ok=%v", lvl, ok)
	}
	if lvl, ok := parseLevel(" WARNING "); !ok || lvl != zerolog.WarnLevel {
		t.Fatalf("warning: got=%v ok=%v", lvl, ok)
	}
	if lvl, ok := parseLevel("off"); !ok || lvl != zerolog.Disabled {
		t.Fatalf("off: got=%v ok=%v", lvl, ok)
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
	if _, ok := parseLevel(""); ok {
		t.Fatalf("expected empty level to be ignored")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "true")
	t.Setenv(EnvLogBypass, "nope")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel {
		t.Fatalf("unexpected level: %v", cfg.Level)
	}
	if cfg.Timestamp {
		t.Fatalf("expected timestamp disabled")
	}
	if !cfg.NoColor {
		t.Fatalf("expected no color")
	}
	if cfg.Bypass {
		t.Fatalf("invalid bool must not enable bypass")
	}
}
