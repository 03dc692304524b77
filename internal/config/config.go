// Package config loads the settings of the taskgroup demo CLI.
//
// Values come, in increasing priority, from built-in defaults, an optional
// YAML file, TASKGROUP_* environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/NetPo4ki/go-taskgroup/internal/logging"
	"github.com/NetPo4ki/go-taskgroup/scope"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// TASKGROUP_MAX_CONCURRENCY for max_concurrency.
const EnvPrefix = "TASKGROUP"

// Config holds the settings of one demo run. FailTask is the 1-based task
// that fails; 0 disables the failure.
type Config struct {
	Tasks          int           `mapstructure:"tasks"`
	Policy         string        `mapstructure:"policy"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Delay          time.Duration `mapstructure:"delay"`
	FailTask       int           `mapstructure:"fail_task"`
	Timeout        time.Duration `mapstructure:"timeout"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	Metrics        bool          `mapstructure:"metrics"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tasks:     3,
		Policy:    scope.Supervisor.String(),
		Delay:     10 * time.Millisecond,
		LogLevel:  logging.LevelWarn,
		LogFormat: logging.FormatText,
	}
}

// SetDefaults registers Default with v so that every key is known to
// viper, which AutomaticEnv needs to resolve environment overrides.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("tasks", d.Tasks)
	v.SetDefault("policy", d.Policy)
	v.SetDefault("max_concurrency", d.MaxConcurrency)
	v.SetDefault("delay", d.Delay)
	v.SetDefault("fail_task", d.FailTask)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("metrics", d.Metrics)
}

// NewViper returns a viper instance with defaults and environment
// overrides configured. If file is non-empty it is read as well.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return v, nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the demo cannot run with.
func (c Config) Validate() error {
	if c.Tasks < 1 {
		return fmt.Errorf("tasks must be at least 1, got %d", c.Tasks)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency cannot be negative, got %d", c.MaxConcurrency)
	}
	if c.Delay < 0 || c.Timeout < 0 {
		return fmt.Errorf("delay and timeout cannot be negative")
	}
	if c.FailTask < 0 || c.FailTask > c.Tasks {
		return fmt.Errorf("fail_task must be between 0 and %d, got %d", c.Tasks, c.FailTask)
	}
	if _, err := c.ParsePolicy(); err != nil {
		return err
	}
	return nil
}

// ParsePolicy maps the policy name onto a scope.Policy.
func (c Config) ParsePolicy() (scope.Policy, error) {
	switch strings.ToLower(c.Policy) {
	case scope.FailFast.String(), "fail-fast":
		return scope.FailFast, nil
	case scope.Supervisor.String():
		return scope.Supervisor, nil
	default:
		return 0, fmt.Errorf("unknown policy %q (want failfast or supervisor)", c.Policy)
	}
}
