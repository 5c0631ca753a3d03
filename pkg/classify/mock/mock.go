// Package mock provides test doubles for the classify package interfaces.
//
// Use Factory to verify that backends are constructed with the expected
// Config and to capture the listener the scheduler wires in. Use Backend to
// inject results and inspect the frames submitted for classification.
// Recorder is a call-recording Listener for asserting delivery counts.
//
// Example:
//
//	be := &mock.Backend{ClassifyResult: &classify.ResultBundle{...}}
//	f := &mock.Factory{Backend: be}
//	rec := &mock.Recorder{}
package mock

import (
	"sync"

	"github.com/sonaptic/earshot/pkg/audio"
	"github.com/sonaptic/earshot/pkg/classify"
)

// NewCall records a single invocation of Factory.New.
type NewCall struct {
	// Cfg is the Config passed to New.
	Cfg classify.Config
}

// Factory is a mock implementation of classify.Factory.
type Factory struct {
	mu sync.Mutex

	// Backend is returned by New. If nil, New returns a new default Backend.
	Backend classify.Backend

	// NewErr, if non-nil, is returned as the error from New.
	NewErr error

	// NewCalls records every call to New in order.
	NewCalls []NewCall

	// Listener captures the listener passed to the most recent New call.
	Listener classify.Listener
}

// New records the call, captures the listener, and returns Backend, NewErr.
func (f *Factory) New(cfg classify.Config, listener classify.Listener) (classify.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NewCalls = append(f.NewCalls, NewCall{Cfg: cfg})
	f.Listener = listener
	if f.NewErr != nil {
		return nil, f.NewErr
	}
	if f.Backend != nil {
		return f.Backend, nil
	}
	return &Backend{}, nil
}

// CapturedListener returns the listener from the most recent New call.
// Thread-safe.
func (f *Factory) CapturedListener() classify.Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Listener
}

// Ensure Factory implements classify.Factory at compile time.
var _ classify.Factory = (*Factory)(nil)

// ClassifyCall records a single frame submission.
type ClassifyCall struct {
	// Frame is the frame passed to Classify or ClassifyAsync. Data is not
	// copied; tests own the buffers they inject.
	Frame audio.Frame
}

// Backend is a mock implementation of classify.Backend.
type Backend struct {
	mu sync.Mutex

	// ClassifyResult is returned by every Classify call. Leave nil to
	// simulate "no result available".
	ClassifyResult *classify.ResultBundle

	// ClassifyErr, if non-nil, is returned by Classify and ClassifyAsync.
	ClassifyErr error

	// ClassifyAsyncFn, if non-nil, replaces the default ClassifyAsync
	// behaviour. Use it to drive the captured listener from the test.
	ClassifyAsyncFn func(frame audio.Frame) error

	// Format is returned by InputFormat. Defaults to 16 kHz mono when zero.
	Format audio.Format

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// ClassifyCalls records every synchronous Classify call in order.
	ClassifyCalls []ClassifyCall

	// ClassifyAsyncCalls records every ClassifyAsync call in order.
	ClassifyAsyncCalls []ClassifyCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Classify records the call and returns ClassifyResult, ClassifyErr.
func (b *Backend) Classify(frame audio.Frame) (*classify.ResultBundle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ClassifyCalls = append(b.ClassifyCalls, ClassifyCall{Frame: frame})
	if b.ClassifyErr != nil {
		return nil, b.ClassifyErr
	}
	return b.ClassifyResult, nil
}

// ClassifyAsync records the call and invokes ClassifyAsyncFn when set,
// otherwise returns ClassifyErr.
func (b *Backend) ClassifyAsync(frame audio.Frame) error {
	b.mu.Lock()
	b.ClassifyAsyncCalls = append(b.ClassifyAsyncCalls, ClassifyCall{Frame: frame})
	fn := b.ClassifyAsyncFn
	err := b.ClassifyErr
	b.mu.Unlock()
	if fn != nil {
		return fn(frame)
	}
	return err
}

// InputFormat returns Format, defaulting to 16 kHz mono.
func (b *Backend) InputFormat() audio.Format {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Format.SampleRate == 0 {
		return audio.Format{SampleRate: 16000, Channels: 1}
	}
	return b.Format
}

// Close records the call and returns CloseErr.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCallCount++
	return b.CloseErr
}

// AsyncCallCount returns the number of ClassifyAsync calls. Thread-safe.
func (b *Backend) AsyncCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ClassifyAsyncCalls)
}

// ResetCalls clears all recorded call history. Thread-safe.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ClassifyCalls = nil
	b.ClassifyAsyncCalls = nil
	b.CloseCallCount = 0
}

// Ensure Backend implements classify.Backend at compile time.
var _ classify.Backend = (*Backend)(nil)

// Recorder is a call-recording implementation of classify.Listener.
type Recorder struct {
	mu sync.Mutex

	// Results records every bundle delivered via OnResult in order.
	Results []classify.ResultBundle

	// Errors records every error delivered via OnError in order.
	Errors []error
}

// OnResult records the bundle.
func (r *Recorder) OnResult(bundle classify.ResultBundle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results = append(r.Results, bundle)
}

// OnError records the error.
func (r *Recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, err)
}

// ResultCount returns the number of recorded results. Thread-safe.
func (r *Recorder) ResultCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Results)
}

// ErrorCount returns the number of recorded errors. Thread-safe.
func (r *Recorder) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors)
}

// Ensure Recorder implements classify.Listener at compile time.
var _ classify.Listener = (*Recorder)(nil)
