package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App     AppConfig     `toml:"app"`
	Window  WindowConfig  `toml:"window"`
	Logging LoggingConfig `toml:"logging"`
	Demo    DemoConfig    `toml:"demo"`
}

type AppConfig struct {
	Name     string        `toml:"name"`
	TickRate time.Duration `toml:"tick_rate"`
	MaxTicks uint64        `toml:"max_ticks"` // 0 = run until cancelled
	Workers  int           `toml:"workers"`   // <= 1 runs every batch on the caller
	// CompactThreshold is the hole ratio above which storage is compacted at
	// the end of a tick. 0 disables compaction.
	CompactThreshold float64 `toml:"compact_threshold"`
}

// WindowConfig is only consumed by the windowed presenter.
type WindowConfig struct {
	Title   string `toml:"title"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	DebugUI bool   `toml:"debug_ui"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // "json" or "console"
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type DemoConfig struct {
	GreetPeriod time.Duration `toml:"greet_period"`
	MoveStep    float64       `toml:"move_step"`
	Scene       string        `toml:"scene"` // empty = embedded scene
}

// Load reads a TOML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.App.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("app.tick_rate must be positive, got %s", c.App.TickRate))
	}
	if c.App.Workers < 0 {
		errs = append(errs, fmt.Errorf("app.workers must not be negative, got %d", c.App.Workers))
	}
	if c.App.CompactThreshold < 0 || c.App.CompactThreshold > 1 {
		errs = append(errs, fmt.Errorf("app.compact_threshold must be within [0, 1], got %v", c.App.CompactThreshold))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Demo.GreetPeriod < 0 {
		errs = append(errs, fmt.Errorf("demo.greet_period must not be negative, got %s", c.Demo.GreetPeriod))
	}
	return errors.Join(errs...)
}

func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:             "hearth",
			TickRate:         time.Second / 60,
			Workers:          0,
			CompactThreshold: 0.5,
		},
		Window: WindowConfig{
			Title:  "hearth",
			Width:  800,
			Height: 600,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Demo: DemoConfig{
			GreetPeriod: 2 * time.Second,
			MoveStep:    4,
		},
	}
}
