// Package mock provides test doubles for the audio package interfaces.
//
// Use Opener to verify that sources are opened with the expected
// CaptureConfig. Use Source to inject window contents and inspect the
// lifecycle calls made by the scheduler.
//
// Example:
//
//	src := &mock.Source{WindowResult: make([]byte, 31200)}
//	op := &mock.Opener{Source: src}
//	s, _ := op.Open(cfg)
package mock

import (
	"sync"

	"github.com/sonaptic/earshot/pkg/audio"
)

// OpenCall records a single invocation of Opener.Open.
type OpenCall struct {
	// Cfg is the CaptureConfig passed to Open.
	Cfg audio.CaptureConfig
}

// Opener is a mock implementation of audio.Opener.
type Opener struct {
	mu sync.Mutex

	// Source is the CaptureSource returned by Open. If nil, Open returns a
	// new default Source.
	Source audio.CaptureSource

	// OpenErr, if non-nil, is returned as the error from Open.
	OpenErr error

	// OpenCalls records every call to Open in order.
	OpenCalls []OpenCall
}

// Open records the call and returns Source, OpenErr.
func (o *Opener) Open(cfg audio.CaptureConfig) (audio.CaptureSource, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.OpenCalls = append(o.OpenCalls, OpenCall{Cfg: cfg})
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	if o.Source != nil {
		return o.Source, nil
	}
	return &Source{}, nil
}

// Ensure Opener implements audio.Opener at compile time.
var _ audio.Opener = (*Opener)(nil)

// Source is a mock implementation of audio.CaptureSource.
type Source struct {
	mu sync.Mutex

	// WindowResult is returned by every ReadWindow call, truncated or
	// zero-padded to the requested length.
	WindowResult []byte

	// ReadWindowErr, if non-nil, is returned by every ReadWindow call.
	ReadWindowErr error

	// StartErr, if non-nil, is returned by Start.
	StartErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// StartCallCount is the number of times Start was called.
	StartCallCount int

	// StopCallCount is the number of times Stop was called.
	StopCallCount int

	// ReadWindowCalls records the byte counts requested from ReadWindow.
	ReadWindowCalls []int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	recording bool
	closed    bool
}

// Start records the call and marks the source recording unless StartErr is set.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartCallCount++
	if s.StartErr != nil {
		return s.StartErr
	}
	s.recording = true
	return nil
}

// Stop records the call and marks the source stopped.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCallCount++
	s.recording = false
	return nil
}

// RecordingState reports the mock's recording flag.
func (s *Source) RecordingState() audio.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recording {
		return audio.StateRecording
	}
	return audio.StateStopped
}

// ReadWindow records the call and returns WindowResult fitted to n bytes.
func (s *Source) ReadWindow(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReadWindowCalls = append(s.ReadWindowCalls, n)
	if s.ReadWindowErr != nil {
		return nil, s.ReadWindowErr
	}
	out := make([]byte, n)
	if len(s.WindowResult) >= n {
		copy(out, s.WindowResult[len(s.WindowResult)-n:])
	} else {
		copy(out[n-len(s.WindowResult):], s.WindowResult)
	}
	return out, nil
}

// Close records the call, marks the source stopped, and returns CloseErr.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	s.recording = false
	s.closed = true
	return s.CloseErr
}

// Closed reports whether Close has been called. Thread-safe.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ResetCalls clears all recorded call history. Thread-safe.
func (s *Source) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartCallCount = 0
	s.StopCallCount = 0
	s.ReadWindowCalls = nil
	s.CloseCallCount = 0
}

// Ensure Source implements audio.CaptureSource at compile time.
var _ audio.CaptureSource = (*Source)(nil)
