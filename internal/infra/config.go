package infra

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the engine. Sensitive or
// deployment-specific values can be overridden through environment
// variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		WSAddr    string `yaml:"ws_addr"`
		PprofAddr string `yaml:"pprof_addr"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Arena struct {
		StartingCapital decimal.Decimal `yaml:"starting_capital"`
		RebuildWorkers  int             `yaml:"rebuild_workers"`
	} `yaml:"arena"`

	Throttle struct {
		CooldownMS         int             `yaml:"cooldown_ms"`
		FrequencyWindowSec int             `yaml:"frequency_window_sec"`
		MaxTradesPerWindow int             `yaml:"max_trades_per_window"`
		MaxConcentration   decimal.Decimal `yaml:"max_concentration"`
		DailyLossFloor     decimal.Decimal `yaml:"daily_loss_floor"`
	} `yaml:"throttle"`

	Execution struct {
		LockTimeoutMS int `yaml:"lock_timeout_ms"`
	} `yaml:"execution"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies env
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.WSAddr == "" {
		return fmt.Errorf("server ws_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if !c.Arena.StartingCapital.IsPositive() {
		return fmt.Errorf("starting capital must be positive")
	}
	if c.Arena.RebuildWorkers <= 0 {
		return fmt.Errorf("rebuild workers must be positive")
	}
	if c.Throttle.CooldownMS < 0 || c.Throttle.FrequencyWindowSec <= 0 {
		return fmt.Errorf("throttle windows must be positive")
	}
	if c.Throttle.MaxTradesPerWindow <= 0 {
		return fmt.Errorf("max trades per window must be positive")
	}
	if !c.Throttle.MaxConcentration.IsPositive() || c.Throttle.MaxConcentration.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("max concentration must be in (0, 1]")
	}
	if c.Execution.LockTimeoutMS <= 0 {
		return fmt.Errorf("lock timeout must be positive")
	}
	return nil
}

// Cooldown returns the per-symbol trade cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Throttle.CooldownMS) * time.Millisecond
}

// FrequencyWindow returns the rolling trade-count window as a duration.
func (c *Config) FrequencyWindow() time.Duration {
	return time.Duration(c.Throttle.FrequencyWindowSec) * time.Second
}

// LockTimeout returns the bounded ledger lock wait as a duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Execution.LockTimeoutMS) * time.Millisecond
}

// overrideWithEnv replaces config values from the environment when set.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("ARENA_WS_ADDR"); addr != "" {
		cfg.Server.WSAddr = addr
	}
	if path := os.Getenv("ARENA_DB_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if level := os.Getenv("ARENA_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
