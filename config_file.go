package goCredSync

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// duration accepts either a Go duration string ("500ms", "1m") or a bare
// integer nanosecond count.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = duration(n)
	return nil
}

// configFile is the on-disk YAML shape. Sections and fields are optional;
// anything absent keeps its default.
type configFile struct {
	Retry struct {
		MaxRetries        *int      `yaml:"max_retries"`
		BaseDelay         *duration `yaml:"base_delay"`
		MaxDelay          *duration `yaml:"max_delay"`
		BackoffMultiplier *float64  `yaml:"backoff_multiplier"`
	} `yaml:"retry"`
	Session struct {
		Platforms []string `yaml:"platforms"`
		DeviceID  string   `yaml:"device_id"`
	} `yaml:"session"`
	Encryption struct {
		Workers *int `yaml:"workers"`
	} `yaml:"encryption"`
	Remote struct {
		BaseURL         string    `yaml:"base_url"`
		RequestTimeout  *duration `yaml:"request_timeout"`
		GistDescription string    `yaml:"gist_description"`
		GistFilename    string    `yaml:"gist_filename"`
	} `yaml:"remote"`
	Ledger struct {
		RedisPrefix string `yaml:"redis_prefix"`
	} `yaml:"ledger"`
	Audit struct {
		Enabled    *bool `yaml:"enabled"`
		BufferSize *int  `yaml:"buffer_size"`
		DropIfFull *bool `yaml:"drop_if_full"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled                 *bool `yaml:"enabled"`
		EnableLatencyHistograms *bool `yaml:"enable_latency_histograms"`
	} `yaml:"metrics"`
}

// LoadConfigFile reads a YAML configuration file and overlays it onto the
// defaults. The result still goes through [Config.Validate] at Build.
func LoadConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	var file configFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	cfg := defaultConfig()

	if file.Retry.MaxRetries != nil {
		cfg.Retry.MaxRetries = *file.Retry.MaxRetries
	}
	if file.Retry.BaseDelay != nil {
		cfg.Retry.BaseDelay = time.Duration(*file.Retry.BaseDelay)
	}
	if file.Retry.MaxDelay != nil {
		cfg.Retry.MaxDelay = time.Duration(*file.Retry.MaxDelay)
	}
	if file.Retry.BackoffMultiplier != nil {
		cfg.Retry.BackoffMultiplier = *file.Retry.BackoffMultiplier
	}

	if len(file.Session.Platforms) > 0 {
		cfg.Session.Platforms = file.Session.Platforms
	}
	if file.Session.DeviceID != "" {
		cfg.Session.DeviceID = file.Session.DeviceID
	}

	if file.Encryption.Workers != nil {
		cfg.Encryption.Workers = *file.Encryption.Workers
	}

	if file.Remote.BaseURL != "" {
		cfg.Remote.BaseURL = file.Remote.BaseURL
	}
	if file.Remote.RequestTimeout != nil {
		cfg.Remote.RequestTimeout = time.Duration(*file.Remote.RequestTimeout)
	}
	if file.Remote.GistDescription != "" {
		cfg.Remote.GistDescription = file.Remote.GistDescription
	}
	if file.Remote.GistFilename != "" {
		cfg.Remote.GistFilename = file.Remote.GistFilename
	}

	if file.Ledger.RedisPrefix != "" {
		cfg.Ledger.RedisPrefix = file.Ledger.RedisPrefix
	}

	if file.Audit.Enabled != nil {
		cfg.Audit.Enabled = *file.Audit.Enabled
	}
	if file.Audit.BufferSize != nil {
		cfg.Audit.BufferSize = *file.Audit.BufferSize
	}
	if file.Audit.DropIfFull != nil {
		cfg.Audit.DropIfFull = *file.Audit.DropIfFull
	}

	if file.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *file.Metrics.Enabled
	}
	if file.Metrics.EnableLatencyHistograms != nil {
		cfg.Metrics.EnableLatencyHistograms = *file.Metrics.EnableLatencyHistograms
	}

	return cfg, nil
}
