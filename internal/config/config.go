// Package config provides the configuration schema and loader for the
// earshot demo daemon.
package config

import (
	"github.com/sonaptic/earshot/pkg/classify"
	"github.com/sonaptic/earshot/pkg/stream"
)

// LogLevel controls log verbosity for the earshot daemon.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for earshot.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Capture    CaptureConfig    `yaml:"capture"`
	Classifier ClassifierConfig `yaml:"classifier"`
}

// ServerConfig holds logging and telemetry settings for the daemon.
type ServerConfig struct {
	// MetricsAddr is the TCP address the Prometheus /metrics endpoint
	// listens on (e.g., ":9105"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// CaptureConfig selects the capture backend and the window geometry.
type CaptureConfig struct {
	// Source selects the capture backend implementation (e.g., "portaudio",
	// "replay").
	Source string `yaml:"source"`

	// ReplayPath is the WAV file looped when Source is "replay". Ignored
	// otherwise.
	ReplayPath string `yaml:"replay_path"`

	// SampleRate is the capture sample rate in Hz. Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// WindowSamples is the number of mono samples per classification
	// window. Default: 15600.
	WindowSamples int `yaml:"window_samples"`

	// OverlapStep is the window overlap in quarter-steps, 0..3. Default: 2
	// (overlap 0.5).
	OverlapStep *int `yaml:"overlap_step"`
}

// ClassifierConfig selects the classifier backend and its parameters.
type ClassifierConfig struct {
	// Backend selects the classifier implementation (e.g., "onnx").
	Backend string `yaml:"backend"`

	// Model is the backend-specific model reference (file path or asset
	// name). Default: "yamnet.tflite".
	Model string `yaml:"model"`

	// Labels is the class-map CSV path. Empty lets the backend derive it
	// from the model location.
	Labels string `yaml:"labels"`

	// RuntimeLibrary is the path to the inference runtime's shared library,
	// for backends that need one (ONNX Runtime). Empty uses the platform
	// default search path.
	RuntimeLibrary string `yaml:"runtime_library"`

	// ScoreThreshold is the minimum category score, [0, 1]. Default: 0.1.
	ScoreThreshold *float64 `yaml:"score_threshold"`

	// MaxResults bounds the categories per result. Default: 3.
	MaxResults *int `yaml:"max_results"`

	// Mode selects streaming or one-shot operation. Default: streaming.
	Mode classify.Mode `yaml:"mode"`
}

// StreamConfig converts the capture section into the scheduler's window
// geometry, applying defaults for unset fields.
func (c CaptureConfig) StreamConfig() stream.Config {
	cfg := stream.DefaultConfig()
	if c.SampleRate > 0 {
		cfg.SampleRateHz = c.SampleRate
	}
	if c.WindowSamples > 0 {
		cfg.WindowSamples = c.WindowSamples
	}
	if c.OverlapStep != nil {
		cfg.OverlapStep = *c.OverlapStep
	}
	return cfg
}

// ClassifyConfig converts the classifier section into a classify.Config,
// applying defaults for unset fields.
func (c ClassifierConfig) ClassifyConfig() classify.Config {
	cfg := classify.DefaultConfig()
	if c.Model != "" {
		cfg.Model = c.Model
	}
	if c.ScoreThreshold != nil {
		cfg.ScoreThreshold = *c.ScoreThreshold
	}
	if c.MaxResults != nil {
		cfg.MaxResults = *c.MaxResults
	}
	if c.Mode != "" {
		cfg.Mode = c.Mode
	}
	return cfg
}
