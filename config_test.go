package goCredSync

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Retry.MaxRetries != 3 {
		t.Fatalf("expected 3 retries, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelay != time.Second {
		t.Fatalf("expected 1s base delay, got %v", cfg.Retry.BaseDelay)
	}
	if cfg.Retry.MaxDelay != 10*time.Second {
		t.Fatalf("expected 10s max delay, got %v", cfg.Retry.MaxDelay)
	}
	if cfg.Retry.BackoffMultiplier != 2.0 {
		t.Fatalf("expected 2.0 multiplier, got %v", cfg.Retry.BackoffMultiplier)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }},
		{"zero base delay", func(c *Config) { c.Retry.BaseDelay = 0 }},
		{"max below base", func(c *Config) { c.Retry.MaxDelay = c.Retry.BaseDelay / 2 }},
		{"multiplier below one", func(c *Config) { c.Retry.BackoffMultiplier = 0.5 }},
		{"zero workers", func(c *Config) { c.Encryption.Workers = 0 }},
		{"zero timeout", func(c *Config) { c.Remote.RequestTimeout = 0 }},
		{"empty filename", func(c *Config) { c.Remote.GistFilename = "" }},
		{"audit enabled zero buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			c.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigIsolatesPlatforms(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Platforms = []string{"chrome"}

	clone := cloneConfig(cfg)
	clone.Session.Platforms[0] = "mutated"

	if cfg.Session.Platforms[0] != "chrome" {
		t.Fatal("clone shares the platforms slice")
	}
}

func TestLoadConfigFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
retry:
  max_retries: 5
  base_delay: 500ms
session:
  platforms: [chrome, firefox]
remote:
  request_timeout: 10s
metrics:
  enabled: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}

	if cfg.Retry.MaxRetries != 5 {
		t.Fatalf("expected 5 retries, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelay != 500*time.Millisecond {
		t.Fatalf("expected 500ms base delay, got %v", cfg.Retry.BaseDelay)
	}
	// Untouched fields keep their defaults.
	if cfg.Retry.MaxDelay != 10*time.Second {
		t.Fatalf("expected default max delay, got %v", cfg.Retry.MaxDelay)
	}
	if cfg.Remote.RequestTimeout != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %v", cfg.Remote.RequestTimeout)
	}
	if len(cfg.Session.Platforms) != 2 {
		t.Fatalf("unexpected platforms %v", cfg.Session.Platforms)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected metrics enabled")
	}
	if cfg.Remote.GistFilename != defaultConfig().Remote.GistFilename {
		t.Fatal("filename default lost in overlay")
	}
}

func TestLoadConfigFileMissingFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigFileMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("retry: ["), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestBuildRequiresTokenSource(t *testing.T) {
	_, err := New().
		WithStateDir(t.TempDir()).
		Build()
	if err == nil {
		t.Fatal("expected error without token source")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().
		WithToken("tok").
		WithSecretSource(newTestSecretSource()).
		WithStateDir(t.TempDir())

	store, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	store.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}
