package stream

import (
	"errors"
	"fmt"
	"time"
)

// overlapSteps is the number of quarter-steps the overlap factor is
// expressed in: step n means an overlap fraction of n/4.
const overlapSteps = 4

// Config describes the capture window geometry driving a [Scheduler].
//
// The overlap factor is expressed as an integer number of quarter-steps
// (0 → 0.0, 1 → 0.25, 2 → 0.5, 3 → 0.75), matching the classifier's native
// configuration surface. Larger overlap means more frequent, more redundant
// classification over sliding windows; zero overlap means back-to-back
// non-overlapping windows.
type Config struct {
	// SampleRateHz is the capture sample rate in Hz. Must be > 0.
	SampleRateHz int

	// WindowSamples is the number of mono samples per classification window.
	// Must be > 0. YAMNet-family models use 15600 (0.975 s at 16 kHz).
	WindowSamples int

	// OverlapStep is the overlap factor in quarter-steps, 0..3. Default 2
	// (overlap 0.5).
	OverlapStep int
}

// DefaultConfig returns the window geometry for YAMNet-family models:
// 16 kHz, 15600-sample windows, overlap 0.5.
func DefaultConfig() Config {
	return Config{
		SampleRateHz:  16000,
		WindowSamples: 15600,
		OverlapStep:   2,
	}
}

// Validate checks that cfg is coherent and yields a strictly positive
// trigger interval. It returns a joined error listing all failures found.
func (cfg Config) Validate() error {
	var errs []error
	if cfg.SampleRateHz <= 0 {
		errs = append(errs, fmt.Errorf("stream: sample rate %d must be positive", cfg.SampleRateHz))
	}
	if cfg.WindowSamples <= 0 {
		errs = append(errs, fmt.Errorf("stream: window samples %d must be positive", cfg.WindowSamples))
	}
	if cfg.OverlapStep < 0 || cfg.OverlapStep >= overlapSteps {
		errs = append(errs, fmt.Errorf("stream: overlap step %d is out of range [0, %d]", cfg.OverlapStep, overlapSteps-1))
	}
	if len(errs) == 0 && cfg.Interval() <= 0 {
		errs = append(errs, fmt.Errorf("stream: window of %d samples at %d Hz yields a non-positive trigger interval",
			cfg.WindowSamples, cfg.SampleRateHz))
	}
	return errors.Join(errs...)
}

// OverlapFraction returns the overlap factor as a fraction in [0, 1).
func (cfg Config) OverlapFraction() float64 {
	return float64(cfg.OverlapStep) / overlapSteps
}

// WindowDuration returns the play length of one window, truncated to whole
// milliseconds. Truncation toward zero is the defined rounding policy.
func (cfg Config) WindowDuration() time.Duration {
	if cfg.SampleRateHz <= 0 {
		return 0
	}
	ms := int64(cfg.WindowSamples) * 1000 / int64(cfg.SampleRateHz)
	return time.Duration(ms) * time.Millisecond
}

// Interval returns the trigger period between classification cycles:
// the window duration scaled by (1 − overlap), truncated to whole
// milliseconds. With the worked default geometry (16 kHz, 15600 samples,
// overlap 0.5) this is 487 ms for a 975 ms window.
func (cfg Config) Interval() time.Duration {
	windowMs := cfg.WindowDuration().Milliseconds()
	ms := windowMs * int64(overlapSteps-cfg.OverlapStep) / overlapSteps
	return time.Duration(ms) * time.Millisecond
}

// WindowBytes returns the size of one window in bytes of mono PCM16.
func (cfg Config) WindowBytes() int {
	return cfg.WindowSamples * 2
}

// BufferBytes returns the capture ring size: two windows of mono PCM16, so
// a complete window is always readable while the recorder keeps writing.
func (cfg Config) BufferBytes() int {
	return 2 * cfg.WindowBytes()
}
