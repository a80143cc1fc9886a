// Package config loads the viewer and CLI settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Present modes accepted in [render].
const (
	PresentFifo      = "fifo"
	PresentImmediate = "immediate"
	PresentMailbox   = "mailbox"
)

// Config is the whole settings file.
type Config struct {
	Window Window `toml:"window"`
	Render Render `toml:"render"`
	Engine Engine `toml:"engine"`
	Mesh   Mesh   `toml:"mesh"`
	Log    Log    `toml:"log"`
}

// Window configures the viewer window.
type Window struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

// Render configures the GPU renderer.
type Render struct {
	PresentMode          string     `toml:"present_mode"`
	ForceFallbackAdapter bool       `toml:"force_fallback_adapter"`
	ClearColor           [3]float64 `toml:"clear_color"`
	// MaxSkippedFrames is how many consecutive frames may fail before the
	// viewer gives up.
	MaxSkippedFrames int `toml:"max_skipped_frames"`
}

// Engine configures scene evaluation.
type Engine struct {
	EvalTimeout Duration `toml:"eval_timeout"`
}

// Mesh configures preview mesh export.
type Mesh struct {
	Cells int `toml:"cells"`
}

// Log configures the CLI logger.
type Log struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a string such as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the settings used for keys missing from the file.
func Default() Config {
	return Config{
		Window: Window{Width: 1280, Height: 720, Title: "morpheus"},
		Render: Render{
			PresentMode:      PresentFifo,
			ClearColor:       [3]float64{0.1, 0.6, 0.3},
			MaxSkippedFrames: 120,
		},
		Engine: Engine{EvalTimeout: Duration{5 * time.Second}},
		Mesh:   Mesh{Cells: 200},
		Log:    Log{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r over the defaults and validates the result.
// Unknown keys are errors.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, errors.New(strict.String())
		}
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window: size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	switch c.Render.PresentMode {
	case PresentFifo, PresentImmediate, PresentMailbox:
	default:
		errs = append(errs, fmt.Errorf("render: unknown present_mode %q", c.Render.PresentMode))
	}
	for _, v := range c.Render.ClearColor {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("render: clear_color components must be in [0, 1], got %v", c.Render.ClearColor))
			break
		}
	}
	if c.Render.MaxSkippedFrames < 0 {
		errs = append(errs, fmt.Errorf("render: max_skipped_frames must not be negative"))
	}
	if c.Engine.EvalTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("engine: eval_timeout must be positive"))
	}
	if c.Mesh.Cells < 8 {
		errs = append(errs, fmt.Errorf("mesh: cells must be at least 8, got %d", c.Mesh.Cells))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log: unknown level %q", c.Log.Level))
	}
	return errors.Join(errs...)
}
