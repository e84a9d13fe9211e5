// Package audiocapture records from the default input device and frames
// the captured samples as 16 kHz mono 16-bit PCM WAV.
package audiocapture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// ErrNotCapturing is returned when stopping a capture that never started.
var ErrNotCapturing = errors.New("not capturing audio")

// ErrAlreadyCapturing is returned when starting a capture that is live.
var ErrAlreadyCapturing = errors.New("already capturing audio")

// ErrTooShort is returned by Stop when the recording lasted under the
// minimum duration. Callers swallow it silently.
var ErrTooShort = errors.New("recording too short")

// ErrNoInputDevice is returned when no default input device exists.
var ErrNoInputDevice = errors.New("no input device available")

// minDuration is the only recording-length guard in the pipeline.
const minDuration = 1 * time.Second

const frameSize = 1024

// Capture records from the default input device at its native sample
// rate and channel count. Samples accumulate as float32 until Stop.
type Capture struct {
	mu sync.Mutex

	sampleRate int
	channels   int

	capturing bool
	startTime time.Time
	buffer    []float32

	stream *portaudio.Stream
	input  []float32
	done   chan struct{}
}

// Snapshot is the captured buffer together with the format it was
// recorded in. It is taken once at Stop and immutable afterwards.
type Snapshot struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Open initializes portaudio and binds the default input device at its
// native rate and channel count. Callers must Close when done.
func Open() (*Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
	}

	channels := dev.MaxInputChannels
	if channels > 2 {
		channels = 2
	}
	if channels < 1 {
		portaudio.Terminate()
		return nil, ErrNoInputDevice
	}

	c := &Capture{
		sampleRate: int(dev.DefaultSampleRate),
		channels:   channels,
	}
	slog.Info("audio input device",
		"name", dev.Name,
		"sample_rate", c.sampleRate,
		"channels", c.channels)
	return c, nil
}

// SampleRate returns the device's native sample rate.
func (c *Capture) SampleRate() int { return c.sampleRate }

// Channels returns the opened channel count.
func (c *Capture) Channels() int { return c.channels }

// Start opens the input stream and begins appending samples to the
// internal buffer.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capturing {
		return ErrAlreadyCapturing
	}

	c.input = make([]float32, frameSize*c.channels)
	stream, err := portaudio.OpenDefaultStream(
		c.channels, 0, float64(c.sampleRate), frameSize, c.input)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start input stream: %w", err)
	}

	c.stream = stream
	c.buffer = c.buffer[:0]
	c.capturing = true
	c.startTime = time.Now()
	c.done = make(chan struct{})
	go c.readLoop(stream, c.done)
	return nil
}

// readLoop drains the stream into the buffer until the stream stops.
// It runs on its own goroutine; stream.Read blocks between frames.
func (c *Capture) readLoop(stream *portaudio.Stream, done chan struct{}) {
	defer close(done)
	for {
		if err := stream.Read(); err != nil {
			// Stop tearing down the stream surfaces here; anything
			// else is a device error mid-recording.
			if c.IsActive() {
				slog.Warn("audio stream read", "error", err)
			}
			return
		}
		c.mu.Lock()
		if !c.capturing {
			c.mu.Unlock()
			return
		}
		c.buffer = append(c.buffer, c.input...)
		c.mu.Unlock()
	}
}

// Stop ends the recording and returns the captured buffer. Recordings
// shorter than one second fail with ErrTooShort and produce no snapshot.
func (c *Capture) Stop() (*Snapshot, error) {
	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()
		return nil, ErrNotCapturing
	}
	elapsed := time.Since(c.startTime)
	c.capturing = false
	stream := c.stream
	c.stream = nil
	done := c.done
	c.mu.Unlock()

	if err := stream.Stop(); err != nil {
		slog.Warn("stop input stream", "error", err)
	}
	<-done
	stream.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elapsed < minDuration {
		c.buffer = c.buffer[:0]
		return nil, fmt.Errorf("%w: %.2fs", ErrTooShort, elapsed.Seconds())
	}

	snap := &Snapshot{
		Samples:    make([]float32, len(c.buffer)),
		SampleRate: c.sampleRate,
		Channels:   c.channels,
	}
	copy(snap.Samples, c.buffer)
	c.buffer = c.buffer[:0]
	return snap, nil
}

// Abort drops the stream and buffer without producing a snapshot.
func (c *Capture) Abort() {
	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()
		return
	}
	c.capturing = false
	stream := c.stream
	c.stream = nil
	done := c.done
	c.buffer = c.buffer[:0]
	c.mu.Unlock()

	if err := stream.Stop(); err != nil {
		slog.Warn("abort input stream", "error", err)
	}
	<-done
	stream.Close()
}

// IsActive reports whether a recording is live.
func (c *Capture) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}

// Close releases portaudio. The capture must not be active.
func (c *Capture) Close() error {
	return portaudio.Terminate()
}
