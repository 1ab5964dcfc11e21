package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DeviceConfig defines a saved device selection
type DeviceConfig struct {
	// Selector is matched against MIDI port names, or opens a raw
	// serial port when prefixed with "serial:".
	Selector          string `json:"selector"`
	Model             Model  `json:"model"`
	AutoConnect       bool   `json:"autoConnect"`
	RestoreStandalone bool   `json:"restoreStandalone"`
	Banner            string `json:"banner,omitempty"`
}

// ThresholdConfig overrides the model's gesture thresholds. Zero fields
// keep the model default.
type ThresholdConfig struct {
	On          float64 `json:"on,omitempty"`
	Off         float64 `json:"off,omitempty"`
	Hold        float64 `json:"hold,omitempty"`
	HoldAfterMS int     `json:"holdAfterMs,omitempty"`
	MinDelta    float64 `json:"minDelta,omitempty"`
}

// UIConfig stores monitor preferences
type UIConfig struct {
	ShowRaw bool `json:"showRaw,omitempty"`
	Backlit bool `json:"backlit,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Device     DeviceConfig    `json:"device"`
	Thresholds ThresholdConfig `json:"thresholds,omitempty"`
	UI         UIConfig        `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Selector:          "SSCOM",
			Model:             ModelSoftStep1,
			AutoConnect:       true,
			RestoreStandalone: true,
			Banner:            "HELO",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "softstep"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Merge lays the override on top of a model's defaults.
func (t ThresholdConfig) Merge(base Thresholds) Thresholds {
	if t.On > 0 {
		base.On = t.On
	}
	if t.Off > 0 {
		base.Off = t.Off
	}
	if t.Hold > 0 {
		base.Hold = t.Hold
	}
	if t.HoldAfterMS > 0 {
		base.HoldAfter = msToDuration(t.HoldAfterMS)
	}
	if t.MinDelta > 0 {
		base.MinDelta = t.MinDelta
	}
	return base
}
