package runtimeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestLoad_DefaultsWithNoConfigFile(t *testing.T) {
	m, err := Load("", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := m.Current()
	if cfg.AdminPort != 9443 {
		t.Errorf("expected default admin_port 9443, got %d", cfg.AdminPort)
	}
	if cfg.LoopbackPortRangeStart != 10000 || cfg.LoopbackPortRangeEnd != 20000 {
		t.Errorf("expected default loopback range [10000, 20000), got [%d, %d)",
			cfg.LoopbackPortRangeStart, cfg.LoopbackPortRangeEnd)
	}
	if cfg.HousekeepingIntervalSeconds != 3 || cfg.StartIntervalSeconds != 2 || cfg.HealthIntervalSeconds != 60 {
		t.Errorf("unexpected default intervals: %+v", cfg)
	}
	if cfg.TargetPath != "hjz-target.yaml" || cfg.AuthPath != ".hjz-auth.yaml" {
		t.Errorf("unexpected default file paths: %+v", cfg)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.yaml")
	content := "admin_port: 9999\nloopback_port_range_start: 30000\nloopback_port_range_end: 31000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	m, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := m.Current()
	if cfg.AdminPort != 9999 {
		t.Errorf("expected overridden admin_port 9999, got %d", cfg.AdminPort)
	}
	if cfg.LoopbackPortRangeStart != 30000 || cfg.LoopbackPortRangeEnd != 31000 {
		t.Errorf("expected overridden loopback range, got [%d, %d)",
			cfg.LoopbackPortRangeStart, cfg.LoopbackPortRangeEnd)
	}
	// Unspecified fields still take their defaults.
	if cfg.HealthIntervalSeconds != 60 {
		t.Errorf("expected default health_interval_seconds 60, got %d", cfg.HealthIntervalSeconds)
	}
}

func TestLoad_RejectsInvalidPortRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.yaml")
	content := "loopback_port_range_start: 5000\nloopback_port_range_end: 4000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path, zap.NewNop()); err == nil {
		t.Fatal("expected an error for an empty/reversed port range")
	}
}

func TestLoad_RejectsNonexistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/runtime.yaml", zap.NewNop()); err == nil {
		t.Fatal("expected an error reading a nonexistent config file")
	}
}
