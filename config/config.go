package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JeanRibes/chiptracker/chip"
	"github.com/JeanRibes/chiptracker/engine"
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "~/.config/chiptracker/config.yaml"

type Config struct {
	Audio struct {
		SampleRate int     `yaml:"sample_rate"`
		BufferMS   int     `yaml:"buffer_ms"`
		Gain       float32 `yaml:"gain"`
	} `yaml:"audio"`
	Engine struct {
		FrameRate    int `yaml:"frame_rate"`
		TicksPerStep int `yaml:"ticks_per_step"`
		RingLength   int `yaml:"ring_length"`
		VizPoints    int `yaml:"viz_points"`
	} `yaml:"engine"`
	Sync struct {
		Enabled   bool    `yaml:"enabled"`
		Division  int     `yaml:"division"`
		PulseMS   float64 `yaml:"pulse_ms"`
		Amplitude float32 `yaml:"amplitude"`
	} `yaml:"sync"`
	Instruments struct {
		File       string `yaml:"file"`
		DebounceMS int    `yaml:"debounce_ms"`
	} `yaml:"instruments"`
	Serial struct {
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
	} `yaml:"serial"`
	MIDI struct {
		Input string `yaml:"input"`
	} `yaml:"midi"`
	Keymap struct {
		File string `yaml:"file"`
	} `yaml:"keymap"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Default() *Config {
	c := &Config{}
	c.Audio.SampleRate = 44100
	c.Audio.BufferMS = 40
	c.Audio.Gain = 0.8
	c.Engine.FrameRate = 60
	c.Engine.TicksPerStep = 6
	c.Engine.RingLength = 64
	c.Engine.VizPoints = 128
	c.Sync.Division = 1
	c.Sync.PulseMS = 2
	c.Sync.Amplitude = 0.9
	c.Instruments.DebounceMS = 200
	c.Serial.Baud = 115200
	c.Log.Level = "info"
	return c
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	c := Default()
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("config path"))
	}
	data, err := os.ReadFile(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("read config"))
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fault.Wrap(err, fmsg.With("parse "+expanded))
	}
	if err := c.resolve(filepath.Dir(expanded)); err != nil {
		return nil, err
	}
	return c, nil
}

// resolve makes file paths relative to the config file's directory.
func (c *Config) resolve(dir string) error {
	for _, p := range []*string{&c.Instruments.File, &c.Keymap.File} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return err
		}
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(dir, expanded)
		}
		*p = expanded
	}
	return nil
}

func (c *Config) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = errors.Join(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Audio.SampleRate > 0, "audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	check(c.Audio.BufferMS > 0, "audio.buffer_ms must be positive, got %d", c.Audio.BufferMS)
	check(c.Engine.FrameRate > 0, "engine.frame_rate must be positive, got %d", c.Engine.FrameRate)
	check(c.Engine.FrameRate <= c.Audio.SampleRate, "engine.frame_rate above the sample rate")
	check(c.Engine.TicksPerStep > 0, "engine.ticks_per_step must be positive, got %d", c.Engine.TicksPerStep)
	check(c.Engine.RingLength >= chip.MinRingLength, "engine.ring_length must be at least %d, got %d", chip.MinRingLength, c.Engine.RingLength)
	check(c.Engine.VizPoints >= 0, "engine.viz_points is negative")
	check(c.Sync.Division >= 1, "sync.division must be at least 1, got %d", c.Sync.Division)
	check(c.Sync.PulseMS > 0, "sync.pulse_ms must be positive")
	check(c.Instruments.DebounceMS >= 0, "instruments.debounce_ms is negative")
	return errs
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Instruments.DebounceMS) * time.Millisecond
}

func (c *Config) AudioBuffer() time.Duration {
	return time.Duration(c.Audio.BufferMS) * time.Millisecond
}

// EngineConfig maps the file's sections onto the engine's settings.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		SampleRate:    c.Audio.SampleRate,
		FrameRate:     c.Engine.FrameRate,
		TicksPerStep:  c.Engine.TicksPerStep,
		RingLength:    c.Engine.RingLength,
		VizPoints:     c.Engine.VizPoints,
		Gain:          c.Audio.Gain,
		Sync:          c.Sync.Enabled,
		SyncDivision:  c.Sync.Division,
		SyncPulse:     time.Duration(c.Sync.PulseMS * float64(time.Millisecond)),
		SyncAmplitude: c.Sync.Amplitude,
	}
}
