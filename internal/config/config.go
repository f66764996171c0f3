// Package config provides configuration loading for gantry.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/voslin/gantry/internal/paths"
)

// Defaults for the engine connection and lifecycle budgets.
const (
	// DefaultEnginePort is the fixed local port the engine serves on.
	DefaultEnginePort = 8077

	// DefaultHealthPath is the engine's readiness endpoint.
	DefaultHealthPath = "/api/ping"

	// DefaultProbeInterval is the sleep between readiness checks.
	DefaultProbeInterval = 500 * time.Millisecond

	// DefaultProbeMaxWait bounds the whole readiness wait.
	DefaultProbeMaxWait = 60 * time.Second

	// DefaultProbeRequestTimeout bounds each individual readiness request.
	DefaultProbeRequestTimeout = 2 * time.Second

	// DefaultGracePeriod is how long the engine gets to exit after SIGTERM
	// before escalation. Sized to the engine's own shutdown budget (it flushes
	// in-flight work on termination), not to UI latency.
	DefaultGracePeriod = 30 * time.Second

	// DefaultHardStopMargin is added to the grace period for the SIGKILL
	// confirmation wait; the host exit fallback adds the margin again, so the
	// host never waits more than grace + 2*margin.
	DefaultHardStopMargin = 10 * time.Second
)

// Config is the gantry configuration, loaded from config.toml.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Probe    ProbeConfig    `toml:"probe"`
	Shutdown ShutdownConfig `toml:"shutdown"`
	Log      LogConfig      `toml:"log"`
}

// EngineConfig describes how to find and reach the engine binary.
type EngineConfig struct {
	// Binary overrides binary resolution with an explicit path.
	Binary string `toml:"binary"`
	// Port is the local port the engine serves on.
	Port int `toml:"port"`
	// HealthPath is the readiness endpoint path.
	HealthPath string `toml:"health_path"`
	// Debug resolves the binary from PATH instead of the bundle.
	Debug bool `toml:"debug"`
}

// ProbeConfig tunes the readiness poll loop.
type ProbeConfig struct {
	Interval       Duration `toml:"interval"`
	MaxWait        Duration `toml:"max_wait"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// ShutdownConfig tunes the termination sequence.
type ShutdownConfig struct {
	GracePeriod    Duration `toml:"grace_period"`
	HardStopMargin Duration `toml:"hard_stop_margin"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns a Config populated with all defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Port:       DefaultEnginePort,
			HealthPath: DefaultHealthPath,
		},
		Probe: ProbeConfig{
			Interval:       Duration(DefaultProbeInterval),
			MaxWait:        Duration(DefaultProbeMaxWait),
			RequestTimeout: Duration(DefaultProbeRequestTimeout),
		},
		Shutdown: ShutdownConfig{
			GracePeriod:    Duration(DefaultGracePeriod),
			HardStopMargin: Duration(DefaultHardStopMargin),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the gantry config from the default path.
// A missing file is not an error: defaults apply.
func Load() (*Config, error) {
	path, err := paths.ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads the config from a specific path, applying defaults for
// absent keys. Returns defaults and nil error if the file doesn't exist.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.Port <= 0 || c.Engine.Port > 65535 {
		return fmt.Errorf("engine.port %d out of range", c.Engine.Port)
	}
	if c.Probe.Interval.Std() <= 0 {
		return fmt.Errorf("probe.interval must be positive")
	}
	if c.Probe.MaxWait.Std() <= 0 {
		return fmt.Errorf("probe.max_wait must be positive")
	}
	if c.Shutdown.GracePeriod.Std() <= 0 {
		return fmt.Errorf("shutdown.grace_period must be positive")
	}
	if c.Shutdown.HardStopMargin.Std() <= 0 {
		return fmt.Errorf("shutdown.hard_stop_margin must be positive")
	}
	return nil
}

// BaseURL returns the engine's root HTTP address.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.Engine.Port)
}

// HealthURL returns the full readiness endpoint URL.
func (c *Config) HealthURL() string {
	return c.BaseURL() + c.Engine.HealthPath
}

// DashboardURL returns the dashboard address the shell navigates to once the
// engine is ready. The hosted flag tells the served page to skip its own
// standalone splash sequence.
func (c *Config) DashboardURL() string {
	return c.BaseURL() + "/?hosted=1"
}
