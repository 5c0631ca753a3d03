package audio

import "time"

// Frame represents one fixed-length window of audio samples flowing through
// the pipeline. Frames are the atomic unit of audio transport: snapshotted
// from a capture source, normalized to the classifier's input format, and
// submitted as a single classification unit.
type Frame struct {
	// PCM audio data, 16-bit signed little-endian.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for YAMNet-style classifiers).
	SampleRate int

	// Channels: 1 for mono (classifier input), 2 for stereo capture devices.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	// It is monotonic and doubles as the correlation token for asynchronous
	// classification: a completion carries the timestamp of the frame it
	// belongs to.
	Timestamp time.Duration
}

// Samples returns the number of PCM samples in the frame across all channels.
func (f Frame) Samples() int {
	return len(f.Data) / 2
}

// Duration returns the play length of the frame, or zero if the frame
// carries no format information.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	return time.Duration(f.Samples()/f.Channels) * time.Second / time.Duration(f.SampleRate)
}
