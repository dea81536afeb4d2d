package playback

import (
	"fmt"
	"sync"
	"time"
)

const DefaultTickInterval = 50 * time.Millisecond

type (
	// Source is one continuously-advancing audio position source. All
	// positions are milliseconds from the start of the track.
	Source interface {
		PositionMs() int64
		DurationMs() int64
		SetPaused(paused bool)
		SeekMs(ms int64) error
		Err() error
		Close() error
	}

	// Tick carries the playback position delivered to subscribers. Err
	// is set when the underlying source failed asynchronously (load,
	// decode, device); subscribers see it instead of a panic at the
	// call that started loading.
	Tick struct {
		PosMs   int64
		Playing bool
		Err     error
	}

	// State is a read-only snapshot of the clock.
	State struct {
		PosMs      int64
		DurationMs int64
		Playing    bool
	}

	subscriber struct {
		id int
		fn func(Tick)
	}

	// Adapter wraps a Source with play/pause/seek and a bounded-rate
	// subscription feed. One goroutine drives all subscribers; their
	// callbacks run synchronously within a tick, so no two
	// recomputations for the same session overlap.
	Adapter struct {
		interval time.Duration

		mu      sync.Mutex
		src     Source
		playing bool
		closed  bool
		nextID  int
		subs    []subscriber

		stop chan struct{}
		done chan struct{}
	}
)

// PlaybackError wraps an audio source failure so it can be delivered
// asynchronously on the tick feed.
type PlaybackError struct {
	Stage string // "open", "decode", "seek", "stream"
	Err   error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s: %v", e.Stage, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

func NewAdapter(src Source, interval time.Duration) *Adapter {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	a := &Adapter{
		interval: interval,
		src:      src,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Adapter) run() {
	defer close(a.done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.tick()
		}
	}
}

func (a *Adapter) tick() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	t := Tick{
		PosMs:   a.src.PositionMs(),
		Playing: a.playing,
	}
	if err := a.src.Err(); err != nil {
		if _, ok := err.(*PlaybackError); !ok {
			err = &PlaybackError{Stage: "stream", Err: err}
		}
		t.Err = err
	}
	subs := make([]subscriber, len(a.subs))
	copy(subs, a.subs)
	a.mu.Unlock()

	for _, s := range subs {
		s.fn(t)
	}
}

// Play starts advancement. Idempotent.
func (a *Adapter) Play() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.playing {
		return
	}
	a.playing = true
	a.src.SetPaused(false)
}

// Pause stops advancement. Idempotent.
func (a *Adapter) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || !a.playing {
		return
	}
	a.playing = false
	a.src.SetPaused(true)
}

// SeekMs moves the position, clamped to [0, duration]. Legal while
// paused.
func (a *Adapter) SeekMs(ms int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("seeking: adapter closed")
	}
	if ms < 0 {
		ms = 0
	}
	if d := a.src.DurationMs(); ms > d {
		ms = d
	}
	if err := a.src.SeekMs(ms); err != nil {
		return fmt.Errorf("seeking to %dms: %w", ms, err)
	}
	return nil
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return State{
		PosMs:      a.src.PositionMs(),
		DurationMs: a.src.DurationMs(),
		Playing:    a.playing,
	}
}

// Subscribe registers fn on the tick feed and returns its release
// handle. Callers must release on their teardown path.
func (a *Adapter) Subscribe(fn func(Tick)) (unsubscribe func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	id := a.nextID
	a.subs = append(a.subs, subscriber{id: id, fn: fn})
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for n, s := range a.subs {
			if s.id == id {
				a.subs = append(a.subs[:n], a.subs[n+1:]...)
				return
			}
		}
	}
}

// Close stops the tick goroutine, drops all subscribers and closes the
// source. No ticks are delivered after Close returns.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.subs = nil
	a.mu.Unlock()

	close(a.stop)
	<-a.done

	if err := a.src.Close(); err != nil {
		return fmt.Errorf("closing source: %w", err)
	}
	return nil
}
