package keyed

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFile(t *testing.T) {
	yaml := `
defaults:
  capacity: 100
  time_unit: 1s
  algorithm: gcra
  enabled: true

policies:
  "/api/login":
    capacity: 5
    time_unit: 1m
    algorithm: leakybucket
    enabled: true
  "/health":
    capacity: 1
    enabled: false

cleanup_age: 30m
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() failed: %v", err)
	}

	if cfg.Defaults.Capacity != 100 {
		t.Errorf("Defaults.Capacity = %d, want 100", cfg.Defaults.Capacity)
	}
	login := cfg.PolicyFor("/api/login")
	if login.Capacity != 5 || login.TimeUnit != "1m" || login.Algorithm != "leakybucket" {
		t.Errorf("login policy = %+v", login)
	}
	if p := cfg.PolicyFor("/unknown"); p.Capacity != 100 {
		t.Errorf("unknown route should fall back to defaults, got %+v", p)
	}
	if cfg.PolicyFor("/health").Enabled {
		t.Error("health policy should be disabled")
	}
	if got := cfg.CleanupAgeDuration(); got != 30*time.Minute {
		t.Errorf("CleanupAgeDuration() = %v, want 30m", got)
	}
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "zero capacity defaults",
			yaml: "defaults:\n  capacity: 0\n  enabled: true\n",
		},
		{
			name: "bad time unit",
			yaml: "defaults:\n  capacity: 10\n  time_unit: soon\n  enabled: true\n",
		},
		{
			name: "bad algorithm",
			yaml: "defaults:\n  capacity: 10\n  algorithm: fifo\n  enabled: true\n",
		},
		{
			name: "bad policy",
			yaml: "defaults:\n  capacity: 10\n  enabled: true\npolicies:\n  \"/x\":\n    capacity: -1\n",
		},
		{
			name: "bad cleanup age",
			yaml: "defaults:\n  capacity: 10\n  enabled: true\ncleanup_age: often\n",
		},
		{
			name: "not yaml",
			yaml: "{{{",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfigFile(path); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("LoadConfigFile() error = %v, want %v", err, ErrInvalidConfig)
			}
		})
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadConfigFile() error = %v, want %v", err, ErrInvalidConfig)
	}
}

func TestPolicyConfig_Limiter(t *testing.T) {
	p := PolicyConfig{Capacity: 3, TimeUnit: "1s", Algorithm: "gcra", Enabled: true}
	lim, err := p.Limiter()
	if err != nil {
		t.Fatalf("Limiter() failed: %v", err)
	}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if d, _ := lim.AllowAt("k", now); !d.Allowed {
			t.Fatalf("cell %d should be admitted", i+1)
		}
	}
	if d, _ := lim.AllowAt("k", now); d.Allowed {
		t.Error("4th same-instant cell should be denied")
	}
}
