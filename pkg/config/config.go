// Package config loads taskmgr settings from an optional YAML file on top of
// built-in defaults. Command-line flags are applied by the caller afterwards.
//
//	interval: 1500ms
//	limit: 0          # 0 = fit the terminal
//	sort: cpu         # pid | cpu | mem | name
//	reverse: false
//	backend: auto     # auto | procfs | psutil
//	proc_root: /proc
//	cmdline: false
//	log_level: info
//	log_file: ""
//	cpu:
//	  k: 100
//	  cores: 1
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ja7ad/taskmgr/pkg/accounting"
	"github.com/ja7ad/taskmgr/pkg/monitor"
	"github.com/ja7ad/taskmgr/pkg/system/guard"
)

var (
	ErrInterval = errors.New("config: interval must be > 0")
	ErrLimit    = errors.New("config: limit must be >= 0")
	ErrLogLevel = errors.New("config: unknown log level")
)

// Config is the full set of runtime settings.
type Config struct {
	Interval time.Duration     `yaml:"interval"`
	Limit    int               `yaml:"limit"`
	Sort     string            `yaml:"sort"`
	Reverse  bool              `yaml:"reverse"`
	Backend  string            `yaml:"backend"`
	ProcRoot string            `yaml:"proc_root"`
	Cmdline  bool              `yaml:"cmdline"`
	LogLevel string            `yaml:"log_level"`
	LogFile  string            `yaml:"log_file"`
	CPU      accounting.Config `yaml:"cpu"`
}

// Default returns the built-in settings. The interval matches the 1.5s key
// wait of the interactive view.
func Default() *Config {
	return &Config{
		Interval: 1500 * time.Millisecond,
		Sort:     string(monitor.SortPID),
		Backend:  string(monitor.BackendAuto),
		ProcRoot: "/proc",
		LogLevel: "info",
		CPU:      accounting.DefaultConfig(),
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	g, err := guard.Open(path, guard.LogReporter{})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer g.Release()

	if err := Decode(g.Get(), cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg and validates the result.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return cfg.Validate()
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return ErrInterval
	}
	if c.Limit < 0 {
		return ErrLimit
	}
	if _, err := monitor.ParseSortKey(c.Sort); err != nil {
		return err
	}
	if _, err := monitor.ParseBackend(c.Backend); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrLogLevel, c.LogLevel)
	}
}

// Monitor converts the settings to monitor options.
func (c *Config) Monitor() monitor.Options {
	key, _ := monitor.ParseSortKey(c.Sort)
	cpu := c.CPU
	return monitor.Options{
		Sort:    key,
		Reverse: c.Reverse,
		Cmdline: c.Cmdline,
		CPU:     &cpu,
	}
}

// Source converts the settings to backend options.
func (c *Config) Source() monitor.OpenOptions {
	b, _ := monitor.ParseBackend(c.Backend)
	return monitor.OpenOptions{Backend: b, Root: c.ProcRoot}
}
