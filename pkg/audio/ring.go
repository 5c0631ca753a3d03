package audio

import "sync"

// Ring is a fixed-capacity overwrite ring buffer for PCM bytes. Writers
// always succeed: once the buffer is full, the oldest bytes are discarded.
// ReadLatest snapshots the most recent bytes without consuming them, which is
// the access pattern the scheduler needs: every cycle wants the freshest
// window regardless of how much audio arrived since the last cycle.
//
// Safe for concurrent use by one writer (the device callback) and one reader
// (the scheduler).
type Ring struct {
	mu    sync.Mutex
	buf   []byte
	pos   int  // next write offset
	wrap  bool // true once the buffer has been overwritten at least once
	total int  // total bytes ever written, capped at len(buf) for fill checks
}

// NewRing creates a Ring with the given capacity in bytes.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]byte, capacity)}
}

// Capacity returns the ring's capacity in bytes.
func (r *Ring) Capacity() int { return len(r.buf) }

// Write copies p into the ring, overwriting the oldest data if necessary.
// Writes larger than the capacity keep only the trailing bytes.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(p)
	if n >= len(r.buf) {
		copy(r.buf, p[n-len(r.buf):])
		r.pos = 0
		r.wrap = true
		r.total = len(r.buf)
		return n, nil
	}

	if r.total < len(r.buf) {
		r.total += n
		if r.total > len(r.buf) {
			r.total = len(r.buf)
		}
	}

	first := copy(r.buf[r.pos:], p)
	if first < n {
		copy(r.buf, p[first:])
		r.wrap = true
	}
	r.pos = (r.pos + n) % len(r.buf)
	if r.pos == 0 && first == n {
		r.wrap = true
	}
	return n, nil
}

// Filled returns the number of valid bytes currently in the ring.
func (r *Ring) Filled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wrap {
		return len(r.buf)
	}
	return r.total
}

// ReadLatest copies the most recent n bytes into a freshly allocated slice.
// If fewer than n bytes have been written so far, the leading portion of the
// result is zero-filled so the slice always has length n. n larger than the
// capacity is clamped.
func (r *Ring) ReadLatest(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > len(r.buf) {
		n = len(r.buf)
	}
	out := make([]byte, n)

	avail := r.total
	if r.wrap {
		avail = len(r.buf)
	}
	want := n
	if want > avail {
		want = avail
	}
	// Copy the last `want` bytes ending at pos, right-aligned in out.
	dst := n - want
	start := r.pos - want
	if start >= 0 {
		copy(out[dst:], r.buf[start:r.pos])
	} else {
		start += len(r.buf)
		head := copy(out[dst:], r.buf[start:])
		copy(out[dst+head:], r.buf[:r.pos])
	}
	return out
}

// Reset discards all buffered data.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos = 0
	r.wrap = false
	r.total = 0
}
