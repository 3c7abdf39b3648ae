// Package config loads and validates the process-wide tunables spec §6
// names under "Configuration keys (read at init)", plus the listener
// bind addresses and ambient settings (log level, metrics address)
// SPEC_FULL.md adds. It reads a config file, environment variables
// (PLAYERCTLD_*), and defaults, the way nabbar-golib's viper wrapper
// layers a Viper instance over all three.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully validated, process-wide configuration. Every
// field here is read once at startup and never mutated afterward
// (spec §5 "Shared mutability": tunables are immutable after init).
type Config struct {
	ConnectionTimeout  time.Duration
	MaxConnections     int
	MaxCommandListSize int // bytes, after the KiB*1024 conversion
	MaxOutputBufferSize int // bytes, after the KiB*1024 conversion

	Bind []string // e.g. "tcp://127.0.0.1:6600", "unix:///run/playerctld.sock"

	LogLevel    string
	MetricsAddr string // empty disables the metrics HTTP listener
}

// Default returns the configuration spec §4.6 lists as defaults.
func Default() *Config {
	return &Config{
		ConnectionTimeout:    60 * time.Second,
		MaxConnections:       10,
		MaxCommandListSize:   2048 * 1024,
		MaxOutputBufferSize:  8192 * 1024,
		Bind:                 []string{"tcp://127.0.0.1:6600"},
		LogLevel:             "info",
		MetricsAddr:          "",
	}
}

// Load reads configuration from configPath (if non-empty), environment
// variables prefixed PLAYERCTLD_, and falls back to Default() for
// anything unset, then validates the result. An empty configPath skips
// the file; a configPath that does not exist or fails to parse is a
// fatal error (spec §7 "Configuration errors... fatal; abort the process with
// a message citing the offending line").
func Load(configPath string) (*Config, error) {
	v := viper.New()
	def := Default()

	v.SetDefault("connection_timeout", int(def.ConnectionTimeout.Seconds()))
	v.SetDefault("max_connections", def.MaxConnections)
	v.SetDefault("max_command_list_size", def.MaxCommandListSize/1024)
	v.SetDefault("max_output_buffer_size", def.MaxOutputBufferSize/1024)
	v.SetDefault("bind", def.Bind)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("metrics_addr", def.MetricsAddr)

	v.SetEnvPrefix("playerctld")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		ConnectionTimeout:    time.Duration(v.GetInt("connection_timeout")) * time.Second,
		MaxConnections:       v.GetInt("max_connections"),
		MaxCommandListSize:   v.GetInt("max_command_list_size") * 1024,
		MaxOutputBufferSize:  v.GetInt("max_output_buffer_size") * 1024,
		Bind:                 v.GetStringSlice("bind"),
		LogLevel:             v.GetString("log_level"),
		MetricsAddr:          v.GetString("metrics_addr"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("config: connection_timeout must be positive, got %s", c.ConnectionTimeout)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("config: max_connections must be positive, got %d", c.MaxConnections)
	}
	if c.MaxCommandListSize <= 0 {
		return fmt.Errorf("config: max_command_list_size must be positive")
	}
	if c.MaxOutputBufferSize <= 0 {
		return fmt.Errorf("config: max_output_buffer_size must be positive")
	}
	if len(c.Bind) == 0 {
		return fmt.Errorf("config: bind must list at least one listener address")
	}
	for _, b := range c.Bind {
		if !strings.HasPrefix(b, "tcp://") && !strings.HasPrefix(b, "unix://") {
			return fmt.Errorf("config: bind address %q must start with tcp:// or unix://", b)
		}
	}
	return nil
}
