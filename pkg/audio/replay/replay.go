// Package replay provides a file-driven [audio.CaptureSource] that serves
// windows from a WAV recording as if a microphone were playing it on loop.
//
// The source is clock-driven rather than goroutine-driven: ReadWindow
// computes the current playback offset from elapsed wall time, so no audio
// thread is needed and tests can substitute a fake clock. This makes it the
// standard way to exercise the scheduler without hardware.
package replay

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sonaptic/earshot/pkg/audio"
)

// Opener opens replay capture sources that loop the WAV file at Path.
type Opener struct {
	// Path is the WAV file to replay. 16-bit PCM only; stereo input is
	// downmixed and the sample rate is converted to the requested capture
	// rate at open time.
	Path string
}

// Ensure Opener implements audio.Opener at compile time.
var _ audio.Opener = (*Opener)(nil)

// Open loads and normalizes the WAV file. The returned source is stopped;
// playback time starts accruing at Start.
func (o Opener) Open(cfg audio.CaptureConfig) (audio.CaptureSource, error) {
	if o.Path == "" {
		return nil, errors.New("replay: path must not be empty")
	}
	raw, err := os.ReadFile(o.Path)
	if err != nil {
		return nil, fmt.Errorf("replay: read %q: %w", o.Path, err)
	}
	pcm, format, err := audio.DecodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("replay: decode %q: %w", o.Path, err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("replay: %q contains no audio data", o.Path)
	}

	if cfg.SampleRate <= 0 {
		cfg.SampleRate = format.SampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Channels != 1 {
		return nil, fmt.Errorf("replay: unsupported channel count %d (only mono)", cfg.Channels)
	}

	if format.Channels == 2 {
		pcm = audio.StereoToMono(pcm)
	} else if format.Channels != 1 {
		return nil, fmt.Errorf("replay: unsupported source channel count %d", format.Channels)
	}
	if format.SampleRate != cfg.SampleRate {
		pcm = audio.ResampleMono16(pcm, format.SampleRate, cfg.SampleRate)
	}

	return NewSource(pcm, cfg.SampleRate), nil
}

// Source replays a mono PCM16 buffer on loop. It implements
// audio.CaptureSource.
type Source struct {
	mu sync.Mutex

	pcm        []byte
	sampleRate int
	now        func() time.Time

	recording bool
	closed    bool
	startedAt time.Time
	played    time.Duration // accumulated across Start/Stop pairs
}

// NewSource creates a replay Source over an in-memory mono PCM16 buffer.
// Exported so tests can build sources without a file on disk.
func NewSource(pcm []byte, sampleRate int) *Source {
	return &Source{
		pcm:        pcm,
		sampleRate: sampleRate,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Test hook; call before Start.
func (s *Source) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Start begins (or resumes) playback time. No-op when already recording.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("replay: source is closed")
	}
	if s.recording {
		return nil
	}
	s.recording = true
	s.startedAt = s.now()
	return nil
}

// Stop pauses playback time. No-op when not recording.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.recording {
		return nil
	}
	s.played += s.now().Sub(s.startedAt)
	s.recording = false
	return nil
}

// RecordingState reports whether playback time is accruing.
func (s *Source) RecordingState() audio.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recording {
		return audio.StateRecording
	}
	return audio.StateStopped
}

// ReadWindow returns the n bytes of PCM ending at the current playback
// offset, wrapping around the loop as needed. Before a full window has
// "played", the leading portion is zero-filled, mirroring a real recorder
// whose ring has not filled yet.
func (s *Source) ReadWindow(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("replay: source is closed")
	}

	elapsed := s.played
	if s.recording {
		elapsed += s.now().Sub(s.startedAt)
	}

	byteRate := int64(s.sampleRate) * 2
	playedBytes := elapsed.Nanoseconds() * byteRate / int64(time.Second)
	playedBytes &^= 1 // keep sample alignment

	out := make([]byte, n)
	want := int64(n)
	if playedBytes < want {
		want = playedBytes
	}

	// Copy `want` bytes ending at playedBytes (mod loop length),
	// right-aligned in out.
	end := playedBytes % int64(len(s.pcm))
	dst := n
	for want > 0 {
		if end == 0 {
			end = int64(len(s.pcm))
		}
		chunk := end
		if chunk > want {
			chunk = want
		}
		dst -= int(chunk)
		copy(out[dst:dst+int(chunk)], s.pcm[end-chunk:end])
		want -= chunk
		end -= chunk
	}
	return out, nil
}

// Close releases the source. Calling Close more than once is safe and
// returns nil.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.recording {
		s.played += s.now().Sub(s.startedAt)
		s.recording = false
	}
	s.closed = true
	return nil
}

// Ensure Source implements audio.CaptureSource at compile time.
var _ audio.CaptureSource = (*Source)(nil)
