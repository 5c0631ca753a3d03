// Package classify defines the Backend interface for audio classification
// engines and the Listener interface through which results reach consumers.
//
// A classification backend wraps an on-device model (e.g., a YAMNet-style
// sound classifier running under ONNX Runtime) and surfaces it through two
// paths: a synchronous one-shot call for caller-supplied frames, and an
// asynchronous call used by the streaming scheduler, whose completions are
// delivered to the [Listener] supplied at construction time.
//
// Implementations must be safe for concurrent use: the scheduler may issue
// ClassifyAsync from its timer goroutine while a previous inference is still
// completing on the backend's own notification goroutine.
package classify

import (
	"errors"
	"fmt"

	"github.com/sonaptic/earshot/pkg/audio"
)

// Default configuration values, matching the classifier's native tuning.
const (
	DefaultScoreThreshold = 0.1
	DefaultMaxResults     = 3
	DefaultModel          = "yamnet.tflite"
)

// Mode selects how a backend will be driven.
type Mode string

const (
	// ModeOneShot configures the backend for synchronous single-frame
	// classification via Classify.
	ModeOneShot Mode = "one_shot"

	// ModeStreaming configures the backend for scheduler-driven async
	// classification via ClassifyAsync.
	ModeStreaming Mode = "streaming"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	return m == ModeOneShot || m == ModeStreaming
}

// Config holds the parameters for constructing a classifier backend. It is
// an explicit immutable configuration struct: all ranges are validated
// eagerly by [Config.Validate] rather than deferred to backend-specific
// failures.
type Config struct {
	// Model is the backend-specific model reference (a file path or asset
	// name). Default: "yamnet.tflite".
	Model string

	// ScoreThreshold is the minimum score a category must reach to be
	// included in a ResultBundle. Range: [0.0, 1.0]. Default: 0.1.
	ScoreThreshold float64

	// MaxResults bounds how many categories a ResultBundle may carry.
	// Must be ≥ 1. Default: 3.
	MaxResults int

	// Mode selects one-shot or streaming operation. Default: streaming.
	Mode Mode
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() Config {
	return Config{
		Model:          DefaultModel,
		ScoreThreshold: DefaultScoreThreshold,
		MaxResults:     DefaultMaxResults,
		Mode:           ModeStreaming,
	}
}

// Validate checks that cfg is coherent. It returns a joined error listing
// all failures found.
func (cfg Config) Validate() error {
	var errs []error
	if cfg.Model == "" {
		errs = append(errs, errors.New("classify: model reference must not be empty"))
	}
	if cfg.ScoreThreshold < 0 || cfg.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("classify: score threshold %.3f is out of range [0, 1]", cfg.ScoreThreshold))
	}
	if cfg.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("classify: max results %d must be at least 1", cfg.MaxResults))
	}
	if !cfg.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("classify: mode %q is invalid; valid values: one_shot, streaming", cfg.Mode))
	}
	return errors.Join(errs...)
}

// Listener is the consumer-supplied sink for classification outcomes.
// Exactly one of the two methods is invoked per classification attempt.
//
// Both methods may be called from the backend's notification goroutine and
// must not block.
type Listener interface {
	// OnResult delivers a successful classification.
	OnResult(bundle ResultBundle)

	// OnError delivers the failure of a classification attempt or of backend
	// construction. The error is terminal only for that attempt, not for the
	// stream.
	OnError(err error)
}

// Backend is the abstraction over any audio classification engine.
type Backend interface {
	// Classify synchronously classifies a single frame. Returns (nil, nil)
	// when the backend produces no result for the frame; callers must treat
	// that as "no result available", not as success with an empty bundle.
	Classify(frame audio.Frame) (*ResultBundle, error)

	// ClassifyAsync submits a frame for classification and returns
	// immediately. The frame's Timestamp is the correlation token; the
	// eventual completion fires on the Listener supplied when the backend
	// was constructed, carrying that token. Returns an error only if the
	// frame cannot be accepted (e.g., backend closed).
	ClassifyAsync(frame audio.Frame) error

	// InputFormat reports the PCM format the model expects. The scheduler
	// normalizes captured windows to this format before submission.
	InputFormat() audio.Format

	// Close releases the model and all backend resources. In-flight async
	// classifications may be dropped. Calling Close more than once is safe
	// and returns nil.
	Close() error
}

// Factory constructs classifier backends. It is the seam through which the
// scheduler stays ignorant of concrete engines: tests supply a mock factory,
// production supplies classify/onnx.
type Factory interface {
	// New constructs a backend from cfg. Async completions are delivered to
	// listener. Returns an error if the model cannot be loaded or cfg is
	// invalid.
	New(cfg Config, listener Listener) (Backend, error)
}

// Listeners fans a classification outcome out to multiple listeners in
// order. It implements [Listener] itself, so a chain can be passed anywhere
// a single listener is expected.
type Listeners []Listener

// OnResult delivers bundle to every listener in order.
func (ls Listeners) OnResult(bundle ResultBundle) {
	for _, l := range ls {
		l.OnResult(bundle)
	}
}

// OnError delivers err to every listener in order.
func (ls Listeners) OnError(err error) {
	for _, l := range ls {
		l.OnError(err)
	}
}

// Ensure Listeners implements Listener at compile time.
var _ Listener = (Listeners)(nil)
