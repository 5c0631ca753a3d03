package stream

import "errors"

// Sentinel errors for the scheduler's failure taxonomy. Failures during
// streaming never propagate as returns to the scheduler's caller; they are
// converted to listener notifications wrapping one of these sentinels, so
// consumers can branch with errors.Is.
var (
	// ErrBackendInit indicates that initialization failed: the classifier
	// backend could not be constructed (missing model, invalid parameters)
	// or the capture source could not be acquired. Non-fatal: the scheduler
	// stays Idle and can be initialized again.
	ErrBackendInit = errors.New("stream: backend initialization failed")

	// ErrNoResult indicates that a classification attempt produced no
	// result. Callers of ClassifySync must treat a nil return as "already
	// notified via the listener, no result to use".
	ErrNoResult = errors.New("stream: classification produced no result")

	// ErrStopped is returned when an operation is attempted on a scheduler
	// whose backend has been released. A stopped scheduler never silently
	// resumes; call Initialize again to obtain a fresh backend.
	ErrStopped = errors.New("stream: scheduler is stopped")

	// ErrNotInitialized is returned by Start before a successful Initialize.
	ErrNotInitialized = errors.New("stream: scheduler is not initialized")

	// ErrNotStreaming is returned by Start when the scheduler was
	// configured for one-shot classification.
	ErrNotStreaming = errors.New("stream: scheduler is not in streaming mode")
)
