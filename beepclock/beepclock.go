// Package beepclock backs the playback adapter with a real speaker:
// mp3 decode via beep, sample-accurate position and seek.
package beepclock

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
)

var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

// Clock is a playback.Source over one decoded mp3 stream. All stream
// access happens under the speaker lock since the mixer goroutine
// pulls from the same stream.
type Clock struct {
	stream beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl

	mu     sync.Mutex
	closed bool
}

// Open decodes the mp3 at path and attaches it, paused, to the
// process-wide speaker. The speaker is initialized once at the first
// clock's sample rate; later clocks at other rates are resampled.
func Open(path string) (*Clock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio %s: %w", path, err)
	}

	stream, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding mp3 %s: %w", path, err)
	}

	speakerOnce.Do(func() {
		speakerRate = format.SampleRate
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	if speakerErr != nil {
		stream.Close()
		return nil, fmt.Errorf("initializing speaker: %w", speakerErr)
	}

	ctrl := &beep.Ctrl{Streamer: stream, Paused: true}
	var out beep.Streamer = ctrl
	if format.SampleRate != speakerRate {
		out = beep.Resample(4, format.SampleRate, speakerRate, ctrl)
	}
	speaker.Play(out)

	return &Clock{stream: stream, format: format, ctrl: ctrl}, nil
}

func (c *Clock) PositionMs() int64 {
	speaker.Lock()
	pos := c.stream.Position()
	speaker.Unlock()
	return c.format.SampleRate.D(pos).Milliseconds()
}

func (c *Clock) DurationMs() int64 {
	speaker.Lock()
	n := c.stream.Len()
	speaker.Unlock()
	return c.format.SampleRate.D(n).Milliseconds()
}

func (c *Clock) SetPaused(paused bool) {
	speaker.Lock()
	c.ctrl.Paused = paused
	speaker.Unlock()
}

func (c *Clock) SeekMs(ms int64) error {
	n := c.format.SampleRate.N(time.Duration(ms) * time.Millisecond)
	speaker.Lock()
	if last := c.stream.Len() - 1; n > last {
		n = last
	}
	if n < 0 {
		n = 0
	}
	err := c.stream.Seek(n)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("seeking stream to %dms: %w", ms, err)
	}
	return nil
}

func (c *Clock) Err() error {
	speaker.Lock()
	err := c.stream.Err()
	speaker.Unlock()
	return err
}

// Close detaches the stream from the mixer and releases the decoder.
func (c *Clock) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	speaker.Lock()
	c.ctrl.Streamer = nil
	speaker.Unlock()

	if err := c.stream.Close(); err != nil {
		return fmt.Errorf("closing stream: %w", err)
	}
	return nil
}
