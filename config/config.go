// Package config loads the layered YAML configuration described in
// SPEC_FULL.md §4.11: a Config struct with sane defaults, optionally
// overlaid by a YAML file, with load-time validation of every bound
// the engine depends on. It follows the Default-then-merge shape used
// by the corpus's config loaders rather than a flag-parsing library.
package config

import (
	"fmt"
	"os"

	"github.com/jsccast/yaml"
)

// Config is the complete engine configuration. Every field has a
// usable zero-overlay default from Default(); a caller that never
// loads a file still gets a working engine.
type Config struct {
	CascadeDepthLimit int `yaml:"cascade_depth_limit"`
	CascadeQueueLimit int `yaml:"cascade_queue_limit"`

	LogLevel string `yaml:"log_level"`

	MetricsAddr     string `yaml:"metrics_addr"`
	DiagnosticsAddr string `yaml:"diagnostics_addr"`

	ExecutionLogPath string `yaml:"execution_log_path"`

	// ScanSchedules maps an entity type to the cron expression that
	// drives its SCAN trigger (see package scan).
	ScanSchedules map[string]string `yaml:"scan_schedules"`

	MQTT MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig configures the optional change bridge (package
// changebridge). A zero BrokerURL disables the bridge entirely.
type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	Topic     string `yaml:"topic"`
}

// Default returns the configuration a fresh engine runs with if no
// file is loaded, matching the defaults named in SPEC_FULL.md §4.11.
func Default() *Config {
	return &Config{
		CascadeDepthLimit: 10,
		CascadeQueueLimit: 1000,
		LogLevel:          "info",
		MetricsAddr:       ":9090",
		DiagnosticsAddr:   ":9091",
		ExecutionLogPath:  "./rules.db",
		ScanSchedules:     map[string]string{},
	}
}

// Load starts from Default() and, if path is non-empty, overlays the
// YAML file at path on top of it. A missing file is not an error — it
// behaves exactly like passing an empty path — but malformed YAML or
// a field that fails Validate is returned synchronously, never
// silently dropped.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(bs, &overlay); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.merge(&overlay)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge overlays every non-zero field of o onto c. Maps are replaced
// wholesale rather than key-merged: a file that sets scan_schedules
// owns the full set.
func (c *Config) merge(o *Config) {
	if o.CascadeDepthLimit != 0 {
		c.CascadeDepthLimit = o.CascadeDepthLimit
	}
	if o.CascadeQueueLimit != 0 {
		c.CascadeQueueLimit = o.CascadeQueueLimit
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.MetricsAddr != "" {
		c.MetricsAddr = o.MetricsAddr
	}
	if o.DiagnosticsAddr != "" {
		c.DiagnosticsAddr = o.DiagnosticsAddr
	}
	if o.ExecutionLogPath != "" {
		c.ExecutionLogPath = o.ExecutionLogPath
	}
	if len(o.ScanSchedules) > 0 {
		c.ScanSchedules = o.ScanSchedules
	}
	if o.MQTT.BrokerURL != "" {
		c.MQTT = o.MQTT
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate rejects configuration that would leave the engine in an
// undefined state. Empty listener addresses and an empty
// ExecutionLogPath are legal — they disable the corresponding
// optional component, per SPEC_FULL.md §4.11/§4.14/§4.15.
func (c *Config) Validate() error {
	if c.CascadeDepthLimit <= 0 {
		return fmt.Errorf("config: cascade_depth_limit must be positive, got %d", c.CascadeDepthLimit)
	}
	if c.CascadeQueueLimit <= 0 {
		return fmt.Errorf("config: cascade_queue_limit must be positive, got %d", c.CascadeQueueLimit)
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("config: log_level %q is not one of debug|info|warn|error", c.LogLevel)
	}
	return nil
}
