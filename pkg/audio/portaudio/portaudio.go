//go:build cgo

// Package portaudio provides a live microphone [audio.CaptureSource] backed
// by the PortAudio library.
//
// The source opens the default input device, runs a reader goroutine that
// drains the device into an overwrite ring buffer, and serves ReadWindow
// snapshots from that ring. The PortAudio shared library must be installed on
// the host; builds without cgo exclude this package entirely.
package portaudio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/sonaptic/earshot/pkg/audio"
)

// framesPerBuffer is the device read granularity. 30 ms at 16 kHz; small
// enough that ReadWindow sees fresh audio, large enough to keep callback
// overhead low.
const framesPerBuffer = 480

// Opener opens PortAudio capture sources. The zero value is ready to use.
type Opener struct{}

// Ensure Opener implements audio.Opener at compile time.
var _ audio.Opener = (*Opener)(nil)

// Open initialises PortAudio and acquires the default input device with the
// requested format. Each successfully opened source holds one PortAudio
// initialisation reference, released on Close.
func (Opener) Open(cfg audio.CaptureConfig) (audio.CaptureSource, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("portaudio: invalid sample rate %d", cfg.SampleRate)
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.BufferBytes <= 0 {
		return nil, fmt.Errorf("portaudio: invalid buffer size %d", cfg.BufferBytes)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}

	buf := make([]int16, framesPerBuffer*cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), framesPerBuffer, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("portaudio: open default stream: %w", err)
	}

	return &source{
		stream: stream,
		buf:    buf,
		ring:   audio.NewRing(cfg.BufferBytes),
	}, nil
}

// source is a live PortAudio capture session. It implements
// audio.CaptureSource.
type source struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
	ring   *audio.Ring

	recording bool
	closed    bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// Start begins recording and launches the reader goroutine. Calling Start
// while already recording is a no-op.
func (s *source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("portaudio: source is closed")
	}
	if s.recording {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start stream: %w", err)
	}
	s.recording = true
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.readLoop(s.stopCh)
	return nil
}

// readLoop drains the device into the ring until stopped. Device read errors
// end the loop; the source then reports StateStopped and the scheduler's
// next ReadWindow serves whatever audio was buffered before the failure.
func (s *source) readLoop(stop chan struct{}) {
	defer s.wg.Done()
	var out bytes.Buffer
	out.Grow(len(s.buf) * 2)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if err := s.stream.Read(); err != nil {
			slog.Warn("portaudio: device read failed, capture halted", "err", err)
			s.mu.Lock()
			s.recording = false
			s.mu.Unlock()
			return
		}
		out.Reset()
		if err := binary.Write(&out, binary.LittleEndian, s.buf); err != nil {
			slog.Warn("portaudio: encode captured samples", "err", err)
			continue
		}
		_, _ = s.ring.Write(out.Bytes())
	}
}

// Stop halts recording without releasing the device. Buffered audio remains
// readable. Calling Stop while not recording is a no-op.
func (s *source) Stop() error {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return nil
	}
	s.recording = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("portaudio: stop stream: %w", err)
	}
	return nil
}

// RecordingState reports whether the reader goroutine is active.
func (s *source) RecordingState() audio.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recording {
		return audio.StateRecording
	}
	return audio.StateStopped
}

// ReadWindow snapshots the most recent n bytes from the ring.
func (s *source) ReadWindow(n int) ([]byte, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errors.New("portaudio: source is closed")
	}
	return s.ring.ReadLatest(n), nil
}

// Close stops recording, closes the device stream, and releases the
// PortAudio initialisation reference. Calling Close more than once is safe
// and returns nil.
func (s *source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	wasRecording := s.recording
	s.recording = false
	if wasRecording {
		close(s.stopCh)
	}
	s.mu.Unlock()

	if wasRecording {
		s.wg.Wait()
		_ = s.stream.Stop()
	}
	err := s.stream.Close()
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	if err != nil {
		slog.Warn("portaudio: close", "err", err)
	}
	return nil
}

// Ensure source implements audio.CaptureSource at compile time.
var _ audio.CaptureSource = (*source)(nil)
