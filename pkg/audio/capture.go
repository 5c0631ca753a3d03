// Package audio defines the interfaces and types for audio capture and PCM
// format handling within earshot.
//
// The two primary abstractions are:
//
//   - [Opener] opens a capture device and returns a [CaptureSource].
//   - [CaptureSource] is an active capture session whose internal buffer always
//     holds the most recent window of audio, readable at any moment via
//     [CaptureSource.ReadWindow].
//
// Implementations of these interfaces are provided by backend-specific adapter
// packages (e.g., audio/portaudio for live microphones, audio/replay for
// file-driven playback in tests). The interfaces are intentionally narrow to
// keep the scheduler decoupled from device details.
//
// This package lives under pkg/ because external code (third-party capture
// adapters) is expected to implement [Opener] and [CaptureSource].
package audio

// State describes the recording state of a [CaptureSource].
type State int

const (
	// StateStopped means the source exists but is not recording.
	StateStopped State = iota

	// StateRecording means the source is actively filling its buffer.
	StateRecording
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateRecording:
		return "RECORDING"
	default:
		return "UNKNOWN"
	}
}

// CaptureConfig describes the device format and buffer size requested when
// opening a capture source.
type CaptureConfig struct {
	// SampleRate in Hz the device should record at.
	SampleRate int

	// Channels the device should record (1 = mono, 2 = stereo).
	Channels int

	// BufferBytes is the size of the source's internal ring buffer in bytes
	// of PCM16. It must hold at least one full analysis window; callers
	// typically size it to two windows so a complete window is always
	// readable while the recorder keeps writing.
	BufferBytes int
}

// CaptureSource represents an open recording session on a capture device.
//
// A CaptureSource is obtained from [Opener.Open] and remains valid until
// [CaptureSource.Close] is called. Between Start and Stop the source
// continuously overwrites its internal ring buffer with incoming samples;
// ReadWindow snapshots the most recent window without consuming it.
//
// Implementations must be safe for concurrent use: the scheduler reads
// windows from its timer goroutine while the device callback writes.
type CaptureSource interface {
	// Start begins recording. Calling Start while already recording is a
	// no-op. Returns an error if the device cannot be started.
	Start() error

	// Stop halts recording without releasing the device. The buffered audio
	// remains readable. Calling Stop while not recording is a no-op.
	Stop() error

	// RecordingState reports whether the source is currently recording.
	RecordingState() State

	// ReadWindow copies the most recent n bytes of captured PCM16 audio into
	// a freshly allocated slice. If fewer than n bytes have been captured so
	// far, the leading portion is zero-filled so the result always has
	// length n. Returns an error if the source is closed.
	ReadWindow(n int) ([]byte, error)

	// Close stops recording and releases the device. Calling Close more than
	// once is safe and returns nil.
	Close() error
}

// Opener is the entry point for a capture backend. Implementations wrap
// device-specific APIs (PortAudio, file replay, …) and expose a uniform
// [CaptureSource] abstraction.
type Opener interface {
	// Open acquires a capture device with the given format and buffer size.
	// The returned source is stopped; call [CaptureSource.Start] to begin
	// recording.
	//
	// Returns an error if the device cannot be acquired (no hardware,
	// unsupported format, etc.).
	Open(cfg CaptureConfig) (CaptureSource, error)
}
