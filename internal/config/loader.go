package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidSourceNames lists known capture source names. Used by [Validate] to
// warn about unrecognised names, which may be typos or third-party adapters.
var ValidSourceNames = []string{"portaudio", "replay"}

// ValidBackendNames lists known classifier backend names.
var ValidBackendNames = []string{"onnx"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Capture
	if cfg.Capture.Source != "" && !slices.Contains(ValidSourceNames, cfg.Capture.Source) {
		slog.Warn("unknown capture source, may be a typo or third-party adapter",
			"source", cfg.Capture.Source,
			"known", ValidSourceNames,
		)
	}
	if cfg.Capture.Source == "replay" && cfg.Capture.ReplayPath == "" {
		errs = append(errs, errors.New("capture.replay_path is required when capture.source is replay"))
	}
	if err := cfg.Capture.StreamConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("capture: %w", err))
	}

	// Classifier
	if cfg.Classifier.Backend != "" && !slices.Contains(ValidBackendNames, cfg.Classifier.Backend) {
		slog.Warn("unknown classifier backend, may be a typo or third-party backend",
			"backend", cfg.Classifier.Backend,
			"known", ValidBackendNames,
		)
	}
	if err := cfg.Classifier.ClassifyConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("classifier: %w", err))
	}

	return errors.Join(errs...)
}
