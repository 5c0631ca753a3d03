// Package stream implements the streaming audio-classification scheduler:
// periodic fixed-window capture, overlap arithmetic, and asynchronous
// delivery of classification results to a consumer-supplied listener.
//
// A [Scheduler] owns one capture window geometry ([Config]) and drives one
// classifier backend through repeated capture-and-classify cycles:
//
//	s, err := stream.New(stream.DefaultConfig(), classify.DefaultConfig())
//	if err := s.Initialize(factory, opener, listener); err != nil { ... }
//	if err := s.Start(); err != nil { ... }
//	...
//	s.Stop()
//
// Results and classification failures arrive exclusively through the
// listener; once initialization has succeeded there is no synchronous
// error channel for the streaming path.
//
// Control calls (Initialize, Start, Stop, ClassifySync) are not meant to be
// issued concurrently with each other; callers serialise their own control
// flow. The scheduler internally synchronises against its own timer
// goroutine and the backend's completion goroutine.
package stream

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sonaptic/earshot/pkg/audio"
	"github.com/sonaptic/earshot/pkg/classify"
)

// SchedulerState enumerates the lifecycle states of a [Scheduler].
type SchedulerState int

const (
	// StateIdle means no backend has been constructed yet (or the last
	// Initialize failed).
	StateIdle SchedulerState = iota

	// StateReady means Initialize succeeded and the scheduler can Start
	// (streaming mode) or ClassifySync (one-shot mode).
	StateReady

	// StateRunning means the recurring capture-classify cycle is active.
	StateRunning

	// StateStopped means the backend has been released. Terminal until a
	// fresh Initialize.
	StateStopped
)

// String returns the human-readable name of the state.
func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Stats is a snapshot of the scheduler's cycle counters.
type Stats struct {
	// Cycles is the number of timer triggers since Start.
	Cycles uint64

	// Skipped is the number of cycles dropped by the in-flight guard
	// because a previous classification had not completed yet.
	Skipped uint64

	// Submitted is the number of windows handed to the backend.
	Submitted uint64
}

// Option is a functional option for configuring a Scheduler.
type Option func(*Scheduler)

// WithMaxInFlight bounds how many async classifications may be in flight at
// once. When a cycle fires while the bound is exhausted, the cycle is
// skipped and counted in [Stats.Skipped] rather than queued; a stale
// window is worthless by the time a slot frees up.
//
// The default is 1 (single-flight). n ≤ 0 removes the bound entirely,
// reproducing the behaviour of schedulers that let slow backends accumulate
// unbounded concurrent inferences; this is provided for compatibility, not
// recommended.
func WithMaxInFlight(n int) Option {
	return func(s *Scheduler) { s.maxInFlight = n }
}

// WithSkipHook registers fn to be called once for every cycle dropped by the
// in-flight guard, in addition to the [Stats.Skipped] counter. Use it to feed
// skip counts into an external telemetry instrument. fn runs on the timer
// goroutine and must not block.
func WithSkipHook(fn func()) Option {
	return func(s *Scheduler) { s.onSkip = fn }
}

// Scheduler drives periodic capture-and-classify cycles and manages the
// classifier backend's lifecycle. Create one with [New], wire it with
// [Scheduler.Initialize], and drive it with [Scheduler.Start] /
// [Scheduler.Stop]. A Scheduler is not reusable across Stop except through
// a fresh Initialize.
type Scheduler struct {
	cfg         Config
	clsCfg      classify.Config
	maxInFlight int
	onSkip      func()

	mu       sync.Mutex
	state    SchedulerState
	backend  classify.Backend
	source   audio.CaptureSource
	listener classify.Listener
	norm     *audio.Normalizer
	gate     *completionGate
	inflight *semaphore.Weighted

	startedAt time.Time
	done      chan struct{}
	wg        sync.WaitGroup

	cycles    atomic.Uint64
	skipped   atomic.Uint64
	submitted atomic.Uint64
}

// New creates a Scheduler in the Idle state. Both configurations are
// validated eagerly; construction is the only operation that reports
// invalid parameters as a returned error rather than through a listener.
func New(cfg Config, clsCfg classify.Config, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := clsCfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:         cfg,
		clsCfg:      clsCfg,
		maxInFlight: 1,
		state:       StateIdle,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Config returns the window geometry the scheduler was created with.
func (s *Scheduler) Config() Config { return s.cfg }

// Initialize constructs the classifier backend via factory and, in
// streaming mode, acquires a capture source from opener sized per
// [Config.BufferBytes]. On failure the error is delivered to
// listener.OnError exactly once, wrapped in [ErrBackendInit], the same
// error is returned, and the scheduler stays Idle.
//
// Initialize is accepted from Idle and from Stopped (re-initialization with
// a fresh backend); calling it while Ready or Running is an error.
func (s *Scheduler) Initialize(factory classify.Factory, opener audio.Opener, listener classify.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateReady, StateRunning:
		return fmt.Errorf("stream: initialize called in state %s", s.state)
	}
	if listener == nil {
		return fmt.Errorf("stream: listener must not be nil")
	}

	var inflight *semaphore.Weighted
	if s.maxInFlight > 0 {
		inflight = semaphore.NewWeighted(int64(s.maxInFlight))
	}
	release := func() {
		if inflight != nil {
			inflight.Release(1)
		}
	}

	gate := newCompletionGate(listener, release)
	backend, err := factory.New(s.clsCfg, gate)
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrBackendInit, err)
		s.state = StateIdle
		listener.OnError(wrapped)
		return wrapped
	}

	var source audio.CaptureSource
	if s.clsCfg.Mode == classify.ModeStreaming {
		source, err = opener.Open(audio.CaptureConfig{
			SampleRate:  s.cfg.SampleRateHz,
			Channels:    1,
			BufferBytes: s.cfg.BufferBytes(),
		})
		if err != nil {
			_ = backend.Close()
			wrapped := fmt.Errorf("%w: open capture source: %w", ErrBackendInit, err)
			s.state = StateIdle
			listener.OnError(wrapped)
			return wrapped
		}
	}

	s.backend = backend
	s.source = source
	s.listener = listener
	s.gate = gate
	s.norm = &audio.Normalizer{Target: backend.InputFormat()}
	s.inflight = inflight
	s.state = StateReady

	slog.Debug("scheduler initialized",
		"interval", s.cfg.Interval(),
		"window", s.cfg.WindowDuration(),
		"overlap", s.cfg.OverlapFraction(),
		"mode", s.clsCfg.Mode,
	)
	return nil
}

// Start begins capture and schedules the recurring classification cycle at
// the interval computed from the window geometry, with the first cycle
// executing immediately. Start is idempotent while running. Starting a
// stopped scheduler fails with [ErrStopped]; starting before Initialize
// fails with [ErrNotInitialized]; starting a one-shot scheduler fails with
// [ErrNotStreaming].
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning:
		return nil
	case StateStopped:
		return ErrStopped
	case StateIdle:
		return ErrNotInitialized
	}
	if s.clsCfg.Mode != classify.ModeStreaming {
		return ErrNotStreaming
	}

	if s.source.RecordingState() != audio.StateRecording {
		if err := s.source.Start(); err != nil {
			return fmt.Errorf("stream: start capture: %w", err)
		}
	}

	s.startedAt = time.Now()
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.done)
	s.state = StateRunning

	slog.Info("streaming classification started", "interval", s.cfg.Interval())
	return nil
}

// run is the scheduler's single timer goroutine. Cycles fire at a fixed
// period from the scheduler's own clock, independent of how long each
// classification takes; the in-flight guard decides what happens when the
// backend cannot keep up.
func (s *Scheduler) run(done chan struct{}) {
	defer s.wg.Done()

	// First execution is immediate.
	s.cycle()

	t := time.NewTicker(s.cfg.Interval())
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			s.cycle()
		}
	}
}

// cycle snapshots the most recent window, normalizes it, and submits it to
// the backend's async path. Failures are delivered to the listener; they end
// the cycle, not the stream.
func (s *Scheduler) cycle() {
	s.cycles.Add(1)

	if s.inflight != nil && !s.inflight.TryAcquire(1) {
		s.skipped.Add(1)
		if s.onSkip != nil {
			s.onSkip()
		}
		slog.Debug("classification still in flight, skipping cycle")
		return
	}
	release := func() {
		if s.inflight != nil {
			s.inflight.Release(1)
		}
	}

	window, err := s.source.ReadWindow(s.cfg.WindowBytes())
	if err != nil {
		release()
		s.gate.deliverError(fmt.Errorf("stream: read capture window: %w", err))
		return
	}

	frame := s.norm.Normalize(audio.Frame{
		Data:       window,
		SampleRate: s.cfg.SampleRateHz,
		Channels:   1,
		Timestamp:  time.Since(s.startedAt),
	})
	if len(frame.Data) == 0 {
		release()
		return
	}

	s.gate.arm()
	if err := s.backend.ClassifyAsync(frame); err != nil {
		s.gate.disarm()
		release()
		s.gate.deliverError(fmt.Errorf("stream: submit window: %w", err))
		return
	}
	s.submitted.Add(1)
}

// ClassifySync classifies a single caller-supplied frame on the synchronous
// one-shot path, measuring elapsed time around the backend call. When the
// backend returns no result or fails, the error is reported through the
// listener and ClassifySync returns nil; callers must treat a nil return
// as "already notified via listener, no result to use". On success the
// bundle is returned and also delivered to the listener's OnResult.
func (s *Scheduler) ClassifySync(frame audio.Frame) *classify.ResultBundle {
	s.mu.Lock()
	backend := s.backend
	listener := s.listener
	norm := s.norm
	s.mu.Unlock()

	if backend == nil {
		slog.Warn("ClassifySync called on an uninitialized or stopped scheduler")
		return nil
	}

	frame = norm.Normalize(frame)

	start := time.Now()
	bundle, err := backend.Classify(frame)
	elapsed := time.Since(start)

	if err != nil {
		listener.OnError(fmt.Errorf("stream: classify: %w", err))
		return nil
	}
	if bundle == nil {
		listener.OnError(fmt.Errorf("%w (window at %s)", ErrNoResult, frame.Timestamp))
		return nil
	}

	// The scheduler's own measurement is the authoritative inference time
	// for the one-shot path.
	out := *bundle
	out.InferenceTime = elapsed
	listener.OnResult(out)
	return &out
}

// Stop cancels the recurring cycle immediately, halts capture, and releases
// the classifier backend. In-flight asynchronous classifications are not
// awaited; completions firing after Stop are dropped rather than delivered
// (best-effort, no delivery guarantee after Stop). Stop is idempotent.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	wasRunning := s.state == StateRunning
	done := s.done
	s.state = StateStopped
	s.mu.Unlock()

	// Quiesce the timer goroutine before touching the resources it reads.
	if wasRunning {
		close(done)
		s.wg.Wait()
	}

	s.mu.Lock()
	backend := s.backend
	source := s.source
	gate := s.gate
	s.backend = nil
	s.source = nil
	s.mu.Unlock()
	if gate != nil {
		gate.close()
	}
	if source != nil {
		_ = source.Stop()
		_ = source.Close()
	}
	if backend != nil {
		if err := backend.Close(); err != nil {
			slog.Warn("closing classifier backend", "err", err)
		}
	}

	if backend != nil {
		slog.Info("streaming classification stopped",
			"cycles", s.cycles.Load(),
			"skipped", s.skipped.Load(),
			"submitted", s.submitted.Load(),
		)
	}
	return nil
}

// IsStopped reports whether the classifier backend has been released. It is
// false before Initialize (Idle) and true only after Stop.
func (s *Scheduler) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateStopped
}

// State returns the scheduler's current lifecycle state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SnapshotStats returns the current cycle counters.
func (s *Scheduler) SnapshotStats() Stats {
	return Stats{
		Cycles:    s.cycles.Load(),
		Skipped:   s.skipped.Load(),
		Submitted: s.submitted.Load(),
	}
}

// completionGate sits between the backend's async completion path and the
// consumer listener. It drops deliveries after the scheduler stops (the
// backend may still complete in-flight work) and releases an in-flight slot
// each time a completion for a submitted window arrives. The pending counter
// keeps releases matched to submissions even when completions race arrivals.
type completionGate struct {
	mu      sync.Mutex
	inner   classify.Listener
	release func()
	pending int
	closed  bool
}

func newCompletionGate(inner classify.Listener, release func()) *completionGate {
	return &completionGate{inner: inner, release: release}
}

// arm records that a submission is about to be made, so the matching
// completion releases an in-flight slot.
func (g *completionGate) arm() {
	g.mu.Lock()
	g.pending++
	g.mu.Unlock()
}

// disarm undoes an arm whose submission failed before reaching the backend.
func (g *completionGate) disarm() {
	g.mu.Lock()
	if g.pending > 0 {
		g.pending--
	}
	g.mu.Unlock()
}

// settle consumes one pending submission, returning the consumer listener
// and the release func to invoke (both nil when closed or unmatched).
func (g *completionGate) settle() (inner classify.Listener, release func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending > 0 {
		g.pending--
		release = g.release
	}
	if g.closed {
		return nil, release
	}
	return g.inner, release
}

// OnResult forwards a completion to the consumer unless the gate is closed.
func (g *completionGate) OnResult(bundle classify.ResultBundle) {
	inner, release := g.settle()
	if release != nil {
		release()
	}
	if inner != nil {
		inner.OnResult(bundle)
	}
}

// OnError forwards a failure to the consumer unless the gate is closed.
func (g *completionGate) OnError(err error) {
	inner, release := g.settle()
	if release != nil {
		release()
	}
	if inner != nil {
		inner.OnError(err)
	}
}

// deliverError reports a scheduler-originated failure (not a backend
// completion) through the gate, honouring the closed flag but leaving any
// armed release untouched.
func (g *completionGate) deliverError(err error) {
	g.mu.Lock()
	inner := g.inner
	closed := g.closed
	g.mu.Unlock()
	if closed || inner == nil {
		return
	}
	inner.OnError(err)
}

// close drops all future deliveries.
func (g *completionGate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// Ensure completionGate implements classify.Listener at compile time.
var _ classify.Listener = (*completionGate)(nil)
