// SPDX-FileCopyrightText: © 2022-2024 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package world

// config.go reduces the World construction API footprint using
// functional options, and loads the boot-time physics settings (§6)
// from YAML. See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BootConfig carries the settings read once at startup that shape how
// the simulation steps. Physics fields match spec.md §6 "Physics
// settings (from boot config)".
type BootConfig struct {
	Physics PhysicsSettings `yaml:"physics"`
}

// PhysicsSettings is `{ step_frequency, max_substeps }` from spec.md §6.
type PhysicsSettings struct {
	StepFrequency uint32 `yaml:"step_frequency"`
	MaxSubsteps   uint32 `yaml:"max_substeps"`
}

// defaultBootConfig matches the spec's stated default: 60 Hz, 4.
var defaultBootConfig = BootConfig{
	Physics: PhysicsSettings{StepFrequency: 60, MaxSubsteps: 4},
}

// LoadBootConfig reads a YAML boot config from path. Missing fields
// fall back to defaultBootConfig's values.
func LoadBootConfig(path string) (BootConfig, error) {
	cfg := defaultBootConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("world: read boot config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("world: parse boot config %q: %w", path, err)
	}
	if cfg.Physics.StepFrequency == 0 {
		cfg.Physics.StepFrequency = defaultBootConfig.Physics.StepFrequency
	}
	if cfg.Physics.MaxSubsteps == 0 {
		cfg.Physics.MaxSubsteps = defaultBootConfig.Physics.MaxSubsteps
	}
	return cfg, nil
}

// Config contains attributes that can be set before running the World.
type Config struct {
	title    string
	windowed bool
	x, y     int32
	w, h     int32
	r, g, b, a float32
	boot     BootConfig
}

// configDefaults provides reasonable defaults so the simulation
// runs even if no configuration attributes are set.
var configDefaults = Config{
	title:    "World",
	windowed: false,
	x:        0,
	y:        0,
	w:        800,
	h:        450,
	r:        0.0,
	g:        0.0,
	b:        0.0,
	a:        1.0,
	boot:     defaultBootConfig,
}

// Attr defines optional attributes used to configure a World.
type Attr func(*Config)

// Title sets the window title when using windowed mode.
func Title(t string) Attr { return func(c *Config) { c.title = t } }

// Size sets the window top left corner location and size in pixels.
func Size(x, y, w, h int32) Attr {
	return func(c *Config) {
		if x >= 0 && x < 10_000 {
			c.x = x
		}
		if y >= 0 && y < 10_000 {
			c.y = y
		}
		if w > 10 && w < 10_000 {
			c.w = w
		}
		if h > 10 && h < 10_000 {
			c.h = h
		}
	}
}

// Windowed mode instead of fullscreen.
func Windowed() Attr { return func(c *Config) { c.windowed = true } }

// Background display clear color.
func Background(r, g, b, a float32) Attr {
	return func(c *Config) { c.r = r; c.g = g; c.b = b; c.a = a }
}

// Boot sets the boot-time physics settings (§6).
func Boot(boot BootConfig) Attr {
	return func(c *Config) { c.boot = boot }
}
