// Package config loads the optional YAML configuration file. Flags on the
// binary override whatever the file sets.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"github.com/JoshCap20/areion/internal/cronspec"
)

type Config struct {
	Addr        string       `yaml:"addr"`
	DBPath      string       `yaml:"db_path"`
	LogLevel    string       `yaml:"log_level"`
	TemplateDir string       `yaml:"template_dir"`
	StaticDir   string       `yaml:"static_dir"`
	Tasks       TasksConfig  `yaml:"tasks"`
	Cron        []CronConfig `yaml:"cron"`
}

type TasksConfig struct {
	MaxWorkers   int    `yaml:"max_workers"`
	QueueSize    int    `yaml:"queue_size"`
	DrainTimeout string `yaml:"drain_timeout"`
}

// CronConfig declares a schedule registered at boot, pointing at a built-in
// handler type.
type CronConfig struct {
	Name     string `yaml:"name"`
	Expr     string `yaml:"expr"`
	TaskType string `yaml:"task_type"`
	Payload  string `yaml:"payload"`
}

func Default() Config {
	return Config{
		Addr:     ":8080",
		DBPath:   "areion.db",
		LogLevel: "info",
		Tasks: TasksConfig{
			MaxWorkers: 4,
			QueueSize:  256,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults
// untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Tasks.MaxWorkers <= 0 {
		return fmt.Errorf("tasks.max_workers: must be positive")
	}
	if c.Tasks.QueueSize < 0 {
		return fmt.Errorf("tasks.queue_size: must not be negative")
	}
	if _, err := c.Tasks.drainTimeout(); err != nil {
		return err
	}
	for i, cron := range c.Cron {
		if cron.Name == "" || cron.Expr == "" || cron.TaskType == "" {
			return fmt.Errorf("cron[%d]: name, expr and task_type are required", i)
		}
		if err := cronspec.Validate(cron.Expr); err != nil {
			return fmt.Errorf("cron[%d]: %w", i, err)
		}
	}
	return nil
}

func (t TasksConfig) drainTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(t.DrainTimeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("tasks.drain_timeout: invalid duration %q: %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("tasks.drain_timeout: must be >= 0")
	}
	return d, nil
}

// DrainTimeout returns the parsed drain timeout; zero means use the
// orchestrator default. Load has already validated the value.
func (t TasksConfig) DrainTimeoutValue() time.Duration {
	d, _ := t.drainTimeout()
	return d
}
