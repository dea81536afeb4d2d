package playback

import "sync"

// ManualSource is a deterministic Source for tests and dry runs: time
// advances only when told to.
type ManualSource struct {
	mu       sync.Mutex
	pos      int64
	duration int64
	paused   bool
	err      error
	closed   bool
}

func NewManualSource(durationMs int64) *ManualSource {
	return &ManualSource{duration: durationMs, paused: true}
}

func (m *ManualSource) PositionMs() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

func (m *ManualSource) DurationMs() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *ManualSource) SetPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
}

func (m *ManualSource) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *ManualSource) SeekMs(ms int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = ms
	return nil
}

// AdvanceMs moves the position forward as if ms of audio played,
// clamped to the duration.
func (m *ManualSource) AdvanceMs(ms int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos += ms
	if m.pos > m.duration {
		m.pos = m.duration
	}
}

// Fail injects an asynchronous source error, surfaced on the next tick.
func (m *ManualSource) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *ManualSource) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *ManualSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *ManualSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
