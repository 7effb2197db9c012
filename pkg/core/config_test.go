package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshalString(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`"2m30s"`), &d); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if d.Std() != 2*time.Minute+30*time.Second {
		t.Errorf("duration: got %s, want 2m30s", d.Std())
	}
}

func TestDurationUnmarshalSeconds(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`90`), &d); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Errorf("duration: got %s, want 90s", d.Std())
	}

	if err := yaml.Unmarshal([]byte(`1.5`), &d); err != nil {
		t.Fatalf("unmarshal of fractional seconds failed: %v", err)
	}
	if d.Std() != 1500*time.Millisecond {
		t.Errorf("duration: got %s, want 1.5s", d.Std())
	}
}

func TestDurationUnmarshalInvalid(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`"not a duration"`), &d); err == nil {
		t.Error("expected error for invalid duration string")
	}
}

func TestDurationMarshal(t *testing.T) {
	data, err := yaml.Marshal(Duration(195 * time.Second))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != "3m15s\n" {
		t.Errorf("marshal: got %q, want %q", string(data), "3m15s\n")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blemux.yaml")
	content := `
switch_threshold: 10
time_floor: 45s
watchdog_timeout: 120
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.SwitchThreshold != 10 {
		t.Errorf("switch_threshold: got %d, want 10", cfg.SwitchThreshold)
	}
	if cfg.TimeFloor.Std() != 45*time.Second {
		t.Errorf("time_floor: got %s, want 45s", cfg.TimeFloor.Std())
	}
	if cfg.WatchdogTimeout.Std() != 2*time.Minute {
		t.Errorf("watchdog_timeout: got %s, want 2m", cfg.WatchdogTimeout.Std())
	}

	// Absent fields keep their defaults.
	def := DefaultConfig()
	if cfg.StrengthDelta != def.StrengthDelta {
		t.Errorf("strength_delta: got %d, want default %d", cfg.StrengthDelta, def.StrengthDelta)
	}
	if cfg.QueueSize != def.QueueSize {
		t.Errorf("queue_size: got %d, want default %d", cfg.QueueSize, def.QueueSize)
	}
	if cfg.Logger == nil {
		t.Error("logger not defaulted")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("switch_threshold: [oops"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	def := DefaultConfig()

	if cfg.SwitchThreshold != def.SwitchThreshold {
		t.Errorf("switch threshold: got %d, want %d", cfg.SwitchThreshold, def.SwitchThreshold)
	}
	if cfg.FallbackStaleWindow != def.FallbackStaleWindow {
		t.Errorf("fallback stale window: got %s, want %s",
			cfg.FallbackStaleWindow.Std(), def.FallbackStaleWindow.Std())
	}
	if cfg.Logger == nil {
		t.Error("logger not defaulted")
	}

	// Explicit values survive.
	cfg = Config{SwitchThreshold: 8}.withDefaults()
	if cfg.SwitchThreshold != 8 {
		t.Errorf("explicit switch threshold overwritten: got %d", cfg.SwitchThreshold)
	}
}
