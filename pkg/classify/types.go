package classify

import "time"

// Category is a single (label, score) pair produced by a classifier backend.
type Category struct {
	// Label is the class name (e.g., "Dog", "Speech", "Vehicle horn").
	Label string

	// Score is the classifier's confidence for this label (0.0–1.0).
	Score float64
}

// ResultBundle is the outcome of one classification attempt. Backends return
// the categories that survived their score threshold, ordered by descending
// score and bounded by the configured maximum. A bundle is immutable once
// returned.
type ResultBundle struct {
	// Categories holds the retained (label, score) pairs, highest score first.
	Categories []Category

	// InferenceTime is how long the backend spent on this classification.
	InferenceTime time.Duration

	// Token is the correlation token of the frame this bundle belongs to:
	// the frame's monotonic capture timestamp. Callers use it to order and
	// identify asynchronous completions; it is not wall-clock time.
	Token time.Duration
}
