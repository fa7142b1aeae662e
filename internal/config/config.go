// Package config loads the tuning file that overrides classifier thresholds,
// voting and cooldown settings, and the camera setup.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
)

// MaxFileSize is the largest config file Load accepts.
const MaxFileSize = 1 * 1024 * 1024

// DefaultPluginName is the plugin that receives fired actions.
const DefaultPluginName = "media"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the on-disk configuration. Every field is optional; omitted
// fields fall back to the defaults returned by the Get* methods, so partial
// files are safe.
type Config struct {
	// Classifier
	FistThreshold          *float64 `json:"fist_threshold,omitempty"`
	OpenThreshold          *float64 `json:"open_threshold,omitempty"`
	PointSepThreshold      *float64 `json:"point_sep_threshold,omitempty"`
	IndexExtendedThreshold *float64 `json:"index_extended_threshold,omitempty"`

	// Stabilizer
	WindowSize       *int              `json:"window_size,omitempty"`
	RequiredFraction *float64          `json:"required_fraction,omitempty"`
	MinConfirm       *string           `json:"min_confirm,omitempty"` // duration string like "300ms"
	Cooldown         *string           `json:"cooldown,omitempty"`    // duration string like "1.2s"
	Actions          map[string]string `json:"actions,omitempty"`     // label name -> action

	// Capture
	CameraID    *int `json:"camera_id,omitempty"`
	FrameWidth  *int `json:"frame_width,omitempty"`
	FrameHeight *int `json:"frame_height,omitempty"`

	// MotionFraction gates idle detection; 0 disables the gate.
	MotionFraction *float64 `json:"motion_fraction,omitempty"`

	// Dispatch
	PluginName *string `json:"plugin_name,omitempty"`
}

// Load reads a Config from a .json file no larger than MaxFileSize.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a Config from JSON.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects negative thresholds, out of range fractions, unparsable
// durations and unknown gesture labels.
func (c *Config) Validate() error {
	thresholds := map[string]*float64{
		"fist_threshold":           c.FistThreshold,
		"open_threshold":           c.OpenThreshold,
		"point_sep_threshold":      c.PointSepThreshold,
		"index_extended_threshold": c.IndexExtendedThreshold,
	}
	for name, v := range thresholds {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %g", ErrInvalid, name, *v)
		}
	}

	if c.WindowSize != nil && *c.WindowSize < 1 {
		return fmt.Errorf("%w: window_size must be at least 1, got %d", ErrInvalid, *c.WindowSize)
	}
	if c.RequiredFraction != nil && (*c.RequiredFraction <= 0 || *c.RequiredFraction > 1) {
		return fmt.Errorf("%w: required_fraction must be in (0,1], got %g", ErrInvalid, *c.RequiredFraction)
	}

	durations := map[string]*string{
		"min_confirm": c.MinConfirm,
		"cooldown":    c.Cooldown,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrInvalid, name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %s", ErrInvalid, name, d)
		}
	}

	for name := range c.Actions {
		label, err := gesture.ParseLabel(name)
		if err != nil {
			return fmt.Errorf("%w: actions: %v", ErrInvalid, err)
		}
		if !label.Actionable() {
			return fmt.Errorf("%w: actions: %q cannot be bound to an action", ErrInvalid, name)
		}
	}

	if c.FrameWidth != nil && *c.FrameWidth <= 0 {
		return fmt.Errorf("%w: frame_width must be positive, got %d", ErrInvalid, *c.FrameWidth)
	}
	if c.MotionFraction != nil && (*c.MotionFraction < 0 || *c.MotionFraction > 1) {
		return fmt.Errorf("%w: motion_fraction must be in [0,1], got %g", ErrInvalid, *c.MotionFraction)
	}
	if c.FrameHeight != nil && *c.FrameHeight <= 0 {
		return fmt.Errorf("%w: frame_height must be positive, got %d", ErrInvalid, *c.FrameHeight)
	}

	return nil
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetWindowSize returns window_size or the default of 5.
func (c *Config) GetWindowSize() int {
	return intOr(c.WindowSize, gesture.DefaultStabilizerConfig().WindowSize)
}

// GetRequiredFraction returns required_fraction or the default of 0.5.
func (c *Config) GetRequiredFraction() float64 {
	return floatOr(c.RequiredFraction, gesture.DefaultStabilizerConfig().RequiredFraction)
}

// GetMinConfirm returns min_confirm or the default of 300ms.
func (c *Config) GetMinConfirm() time.Duration {
	return durationOr(c.MinConfirm, gesture.DefaultStabilizerConfig().MinConfirm)
}

// GetCooldown returns cooldown or the default of 1.2s.
func (c *Config) GetCooldown() time.Duration {
	return durationOr(c.Cooldown, gesture.DefaultStabilizerConfig().Cooldown)
}

// GetActions returns the configured bindings, or the default media bindings
// when none are set. Unknown labels are skipped.
func (c *Config) GetActions() gesture.ActionMap {
	if len(c.Actions) == 0 {
		return gesture.DefaultActionMap()
	}
	m := make(gesture.ActionMap, len(c.Actions))
	for name, action := range c.Actions {
		if label, err := gesture.ParseLabel(name); err == nil {
			m[label] = action
		}
	}
	return m
}

// GetCameraID returns camera_id or 0.
func (c *Config) GetCameraID() int {
	return intOr(c.CameraID, 0)
}

// GetFrameSize returns frame_width and frame_height or 640x480.
func (c *Config) GetFrameSize() (int, int) {
	return intOr(c.FrameWidth, capture.DefaultWidth), intOr(c.FrameHeight, capture.DefaultHeight)
}

// GetMotionFraction returns motion_fraction or capture.DefaultMotionFraction.
func (c *Config) GetMotionFraction() float64 {
	return floatOr(c.MotionFraction, capture.DefaultMotionFraction)
}

// GetPluginName returns plugin_name or DefaultPluginName.
func (c *Config) GetPluginName() string {
	if c.PluginName == nil || *c.PluginName == "" {
		return DefaultPluginName
	}
	return *c.PluginName
}

// ClassifierConfig builds the classifier thresholds.
func (c *Config) ClassifierConfig() gesture.ClassifierConfig {
	d := gesture.DefaultClassifierConfig()
	return gesture.ClassifierConfig{
		FistThreshold:          floatOr(c.FistThreshold, d.FistThreshold),
		OpenThreshold:          floatOr(c.OpenThreshold, d.OpenThreshold),
		PointSepThreshold:      floatOr(c.PointSepThreshold, d.PointSepThreshold),
		IndexExtendedThreshold: floatOr(c.IndexExtendedThreshold, d.IndexExtendedThreshold),
	}
}

// StabilizerConfig builds the voting, debounce and cooldown settings.
func (c *Config) StabilizerConfig() gesture.StabilizerConfig {
	return gesture.StabilizerConfig{
		WindowSize:       c.GetWindowSize(),
		RequiredFraction: c.GetRequiredFraction(),
		MinConfirm:       c.GetMinConfirm(),
		Cooldown:         c.GetCooldown(),
		Actions:          c.GetActions(),
	}
}

// CaptureConfig builds the camera settings.
func (c *Config) CaptureConfig() capture.Config {
	w, h := c.GetFrameSize()
	cfg := capture.DefaultConfig()
	cfg.DeviceID = c.GetCameraID()
	cfg.Width = w
	cfg.Height = h
	return cfg
}
