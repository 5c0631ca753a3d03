//go:build cgo

// Package onnx provides a classify.Backend running YAMNet-style sound
// classification models under ONNX Runtime.
//
// The model is loaded once per backend and shared by the sync and async
// classification paths. Inference runs are serialised internally; the async
// path executes on its own goroutine and delivers completions to the
// listener supplied at construction.
//
// The ONNX Runtime shared library must be available on the host. Set its
// location with [WithLibraryPath] when it is not on the default search path.
// Builds without cgo exclude this package entirely.
package onnx

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/sonaptic/earshot/pkg/audio"
	"github.com/sonaptic/earshot/pkg/classify"
)

const (
	// modelSampleRate is the input rate YAMNet-family models are trained on.
	modelSampleRate = 16000

	defaultInputName  = "waveform"
	defaultOutputName = "scores"
)

// Option is a functional option for configuring a Factory.
type Option func(*Factory)

// WithLibraryPath sets the path to the ONNX Runtime shared library
// (libonnxruntime.so / .dylib / .dll). When empty the platform default
// search path is used.
func WithLibraryPath(path string) Option {
	return func(f *Factory) { f.libraryPath = path }
}

// WithLabelsPath sets the class-map CSV path. Defaults to
// "<model dir>/yamnet_class_map.csv".
func WithLabelsPath(path string) Option {
	return func(f *Factory) { f.labelsPath = path }
}

// WithTensorNames overrides the model's input and output tensor names.
// Defaults match the common YAMNet export ("waveform" → "scores").
func WithTensorNames(input, output string) Option {
	return func(f *Factory) {
		f.inputName = input
		f.outputName = output
	}
}

// Factory constructs ONNX classification backends.
type Factory struct {
	libraryPath string
	labelsPath  string
	inputName   string
	outputName  string
}

// NewFactory creates a Factory with the given options applied.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		inputName:  defaultInputName,
		outputName: defaultOutputName,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Ensure Factory implements classify.Factory at compile time.
var _ classify.Factory = (*Factory)(nil)

// initEnvironment initialises the shared ONNX Runtime environment. Safe to
// call for every backend; re-initialisation errors are swallowed because the
// runtime is process-global.
func (f *Factory) initEnvironment() error {
	if f.libraryPath != "" {
		ort.SetSharedLibraryPath(f.libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		if strings.Contains(err.Error(), "already initialized") {
			return nil
		}
		return fmt.Errorf("onnx: initialize runtime: %w", err)
	}
	return nil
}

// New loads the model named by cfg.Model and its class map, and returns a
// ready backend. Async completions fire on listener.
func (f *Factory) New(cfg classify.Config, listener classify.Listener) (classify.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if listener == nil {
		return nil, errors.New("onnx: listener must not be nil")
	}
	if err := f.initEnvironment(); err != nil {
		return nil, err
	}

	labelsPath := f.labelsPath
	if labelsPath == "" {
		labelsPath = filepath.Join(filepath.Dir(cfg.Model), "yamnet_class_map.csv")
	}
	labels, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.Model,
		[]string{f.inputName},
		[]string{f.outputName},
		nil, // default session options
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: load model %q: %w", cfg.Model, err)
	}

	return &backend{
		session:        session,
		labels:         labels,
		scoreThreshold: cfg.ScoreThreshold,
		maxResults:     cfg.MaxResults,
		listener:       listener,
		done:           make(chan struct{}),
	}, nil
}

// backend runs inference over a loaded ONNX session. It implements
// classify.Backend.
type backend struct {
	// runMu serialises session.Run; ONNX sessions do not promise concurrent
	// Run safety.
	runMu   sync.Mutex
	session *ort.DynamicAdvancedSession

	labels         []string
	scoreThreshold float64
	maxResults     int
	listener       classify.Listener

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// InputFormat reports the model's expected PCM format: 16 kHz mono.
func (b *backend) InputFormat() audio.Format {
	return audio.Format{SampleRate: modelSampleRate, Channels: 1}
}

// Classify runs one synchronous inference over frame. Returns (nil, nil) if
// the model yields no category above the score threshold.
func (b *backend) Classify(frame audio.Frame) (*classify.ResultBundle, error) {
	select {
	case <-b.done:
		return nil, errors.New("onnx: backend is closed")
	default:
	}
	return b.infer(frame)
}

// ClassifyAsync submits frame for classification on the backend's own
// goroutine. The completion, result or error, fires on the construction
// listener with the frame's timestamp as correlation token.
func (b *backend) ClassifyAsync(frame audio.Frame) error {
	select {
	case <-b.done:
		return errors.New("onnx: backend is closed")
	default:
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		bundle, err := b.infer(frame)
		if err != nil {
			b.listener.OnError(err)
			return
		}
		if bundle == nil {
			b.listener.OnError(fmt.Errorf("onnx: no category above threshold for window at %s", frame.Timestamp))
			return
		}
		b.listener.OnResult(*bundle)
	}()
	return nil
}

// infer converts the frame to the model's input tensor, runs the session,
// and collects the surviving categories.
func (b *backend) infer(frame audio.Frame) (*classify.ResultBundle, error) {
	waveform := audio.PCMToFloat32(frame.Data)
	if len(waveform) == 0 {
		return nil, errors.New("onnx: empty audio frame")
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(len(waveform))), waveform)
	if err != nil {
		return nil, fmt.Errorf("onnx: create input tensor: %w", err)
	}
	defer input.Destroy()

	scores := make([]float32, len(b.labels))
	output, err := ort.NewTensor(ort.NewShape(1, int64(len(b.labels))), scores)
	if err != nil {
		return nil, fmt.Errorf("onnx: create output tensor: %w", err)
	}
	defer output.Destroy()

	start := time.Now()
	b.runMu.Lock()
	err = b.session.Run([]ort.Value{input}, []ort.Value{output})
	b.runMu.Unlock()
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("onnx: inference: %w", err)
	}

	cats := b.collect(output.GetData())
	if len(cats) == 0 {
		return nil, nil
	}
	return &classify.ResultBundle{
		Categories:    cats,
		InferenceTime: elapsed,
		Token:         frame.Timestamp,
	}, nil
}

// collect filters scores by threshold and keeps the top maxResults
// categories, highest score first.
func (b *backend) collect(scores []float32) []classify.Category {
	cats := make([]classify.Category, 0, b.maxResults)
	for i, s := range scores {
		if i >= len(b.labels) {
			break
		}
		if float64(s) >= b.scoreThreshold {
			cats = append(cats, classify.Category{Label: b.labels[i], Score: float64(s)})
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Score > cats[j].Score })
	if len(cats) > b.maxResults {
		cats = cats[:b.maxResults]
	}
	return cats
}

// Close waits for in-flight async inferences, then destroys the session.
// Completions still in flight are delivered before Close returns; nothing
// fires afterwards. Calling Close more than once is safe and returns nil.
func (b *backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
		b.runMu.Lock()
		_ = b.session.Destroy()
		b.runMu.Unlock()
	})
	return nil
}

// Ensure backend implements classify.Backend at compile time.
var _ classify.Backend = (*backend)(nil)
