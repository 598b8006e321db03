package fracture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// EffectorWeights scale the force fields and the gravity.
type EffectorWeights struct {
	Global  float64 `yaml:"global"`
	Gravity float64 `yaml:"gravity"`
}

// Settings configure the simulation world and its cache.
type Settings struct {
	SolverIterations int     `yaml:"solver_iterations"`
	SplitImpulse     bool    `yaml:"split_impulse"`
	StepsPerSecond   int     `yaml:"steps_per_second"`
	TimeScale        float64 `yaml:"time_scale"`

	StartFrame int `yaml:"start_frame"`
	EndFrame   int `yaml:"end_frame"`
	CacheStep  int `yaml:"cache_step"`

	EffectorWeights EffectorWeights `yaml:"effector_weights"`
}

func DefaultSettings() Settings {
	return Settings{
		SolverIterations: 10,
		StepsPerSecond:   60,
		TimeScale:        1.0,
		StartFrame:       1,
		EndFrame:         250,
		CacheStep:        1,
		EffectorWeights:  EffectorWeights{Global: 1, Gravity: 1},
	}
}

// Validate checks the ranges of the settings.
func (s Settings) Validate() error {
	switch {
	case s.SolverIterations < 1:
		return fmt.Errorf("solver_iterations %d must be positive: %w", s.SolverIterations, ErrInvalidSettings)
	case s.StepsPerSecond < 1:
		return fmt.Errorf("steps_per_second %d must be positive: %w", s.StepsPerSecond, ErrInvalidSettings)
	case s.TimeScale <= 0:
		return fmt.Errorf("time_scale %v must be positive: %w", s.TimeScale, ErrInvalidSettings)
	case s.EndFrame <= s.StartFrame:
		return fmt.Errorf("end_frame %d must follow start_frame %d: %w", s.EndFrame, s.StartFrame, ErrInvalidSettings)
	case s.CacheStep < 1:
		return fmt.Errorf("cache_step %d must be positive: %w", s.CacheStep, ErrInvalidSettings)
	}
	return nil
}

// LoadSettings reads YAML settings over the defaults. Unknown fields are
// rejected.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}
	return ParseSettings(data)
}

func ParseSettings(data []byte) (Settings, error) {
	settings := DefaultSettings()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// an empty document keeps the defaults
	if err := decoder.Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}
