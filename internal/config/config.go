// Package config loads easel settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/ayusman/easel/internal/detector"
)

// Config holds every runtime setting. Values come from EASEL_* environment
// variables, optionally loaded from a .env file, and may be overridden by flags.
type Config struct {
	DataDir string `env:"EASEL_DATA_DIR"`
	Addr    string `env:"EASEL_ADDR"     envDefault:":8080"`
	WebDir  string `env:"EASEL_WEB_DIR"`
	MDNS    bool   `env:"EASEL_MDNS"     envDefault:"false"`
	Tray    bool   `env:"EASEL_TRAY"     envDefault:"false"`

	CameraID     int `env:"EASEL_CAMERA_ID"     envDefault:"0"`
	CameraWidth  int `env:"EASEL_CAMERA_WIDTH"  envDefault:"640"`
	CameraHeight int `env:"EASEL_CAMERA_HEIGHT" envDefault:"480"`

	CanvasWidth   int `env:"EASEL_CANVAS_WIDTH"   envDefault:"640"`
	CanvasHeight  int `env:"EASEL_CANVAS_HEIGHT"  envDefault:"480"`
	OverlayWidth  int `env:"EASEL_OVERLAY_WIDTH"  envDefault:"480"`
	OverlayHeight int `env:"EASEL_OVERLAY_HEIGHT" envDefault:"360"`

	MouthThreshold float64 `env:"EASEL_MOUTH_THRESHOLD" envDefault:"0.045"`
	SmoothingAlpha float64 `env:"EASEL_SMOOTHING_ALPHA" envDefault:"0.22"`
	BrushSize      int     `env:"EASEL_BRUSH_SIZE"      envDefault:"6"`

	MaxFaces         int     `env:"EASEL_MAX_FACES"                envDefault:"1"`
	RefineLandmarks  bool    `env:"EASEL_REFINE_LANDMARKS"         envDefault:"true"`
	MinDetectionConf float64 `env:"EASEL_MIN_DETECTION_CONFIDENCE" envDefault:"0.6"`
	MinTrackingConf  float64 `env:"EASEL_MIN_TRACKING_CONFIDENCE"  envDefault:"0.6"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".easel")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		errs = append(errs, fmt.Errorf("canvas size %dx%d must be positive", c.CanvasWidth, c.CanvasHeight))
	}
	if c.OverlayWidth <= 0 || c.OverlayHeight <= 0 {
		errs = append(errs, fmt.Errorf("overlay size %dx%d must be positive", c.OverlayWidth, c.OverlayHeight))
	}
	if c.MouthThreshold <= 0 {
		errs = append(errs, fmt.Errorf("mouth threshold %v must be positive", c.MouthThreshold))
	}
	if c.SmoothingAlpha <= 0 || c.SmoothingAlpha >= 1 {
		errs = append(errs, fmt.Errorf("smoothing alpha %v must be in (0,1)", c.SmoothingAlpha))
	}
	if c.MinDetectionConf < 0 || c.MinDetectionConf > 1 || c.MinTrackingConf < 0 || c.MinTrackingConf > 1 {
		errs = append(errs, errors.New("detector confidences must be in [0,1]"))
	}
	return errors.Join(errs...)
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "easel.db")
}

// EnsureDataDir creates the data directory if needed.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

// DetectorConfig returns the landmark detector options.
func (c *Config) DetectorConfig() detector.Config {
	return detector.Config{
		MaxFaces:         c.MaxFaces,
		RefineLandmarks:  c.RefineLandmarks,
		MinDetectionConf: c.MinDetectionConf,
		MinTrackingConf:  c.MinTrackingConf,
	}.Normalize()
}
