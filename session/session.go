// Package session orchestrates one talk playback session: it loads
// talk data, binds the playback clock to the sync state, and swaps
// alignment and text when languages change without ever letting a
// stale fetch overwrite newer state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KCErb/Gospel-Language-Study/align"
	"github.com/KCErb/Gospel-Language-Study/highlight"
	"github.com/KCErb/Gospel-Language-Study/playback"
	"github.com/KCErb/Gospel-Language-Study/talks"
)

type State int

const (
	Idle State = iota
	LoadingTalk
	Ready
	LoadingText
	LoadingAlignment
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingTalk:
		return "loading-talk"
	case Ready:
		return "ready"
	case LoadingText:
		return "loading-text"
	case LoadingAlignment:
		return "loading-alignment"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// SeekPolicy decides what happens to the playback position when the
// audio language changes mid-session.
type SeekPolicy string

const (
	SeekPreserve SeekPolicy = "preserve"
	SeekReset    SeekPolicy = "reset"
)

type (
	source interface {
		Talk(ctx context.Context, id string) (talks.Talk, error)
		Text(ctx context.Context, id string, lang talks.Language) (string, error)
		Alignment(ctx context.Context, id string, lang talks.Language) (*align.Alignment, error)
		AudioRef(ctx context.Context, id string, lang talks.Language) (string, error)
	}

	progressStore interface {
		Get(talkID string, lang talks.Language) (posMs int64, ok bool, err error)
		Put(talkID string, lang talks.Language, posMs, durationMs int64) error
	}

	// Update is what frame observers receive on every clock tick.
	Update struct {
		Frame   highlight.Frame
		PosMs   int64
		Playing bool
		Err     error
	}

	// Options tune session policy. Zero values mean: first available
	// language, preserve position on audio switch, default tick rate,
	// no persisted progress.
	Options struct {
		DefaultLanguage func([]talks.Language) talks.Language
		SeekPolicy      SeekPolicy
		TickInterval    time.Duration
		Progress        progressStore
	}

	// Controller drives the session state machine. All fetches run
	// asynchronously and are guarded by per-slot generation counters:
	// the latest request wins and late results are discarded.
	Controller struct {
		src       source
		openAudio func(ref string) (playback.Source, error)
		opts      Options

		mu        sync.Mutex
		state     State
		failure   string
		talk      talks.Talk
		audioLang talks.Language
		textLang  talks.Language
		text      string
		textErr   error
		audioErr  error
		alignment *align.Alignment // for the audio language; nil = degraded
		resolver  *highlight.Resolver
		presenter *highlight.Presenter
		adapter   *playback.Adapter
		unsub     func()
		closed    bool

		textGen  uint64
		audioGen uint64

		nextObs   int
		observers map[int]func(Update)
	}
)

func New(src source, openAudio func(ref string) (playback.Source, error), opts Options) *Controller {
	return &Controller{
		src:       src,
		openAudio: openAudio,
		opts:      opts,
		state:     Idle,
		resolver:  highlight.NewResolver(nil),
		presenter: highlight.NewPresenter(nil),
		observers: make(map[int]func(Update)),
	}
}

// Enter loads the talk and brings the session to Ready with the
// default audio and text language. Metadata failure is fatal to this
// session: state becomes Failed and nothing partial is kept.
func (c *Controller) Enter(ctx context.Context, talkID string) error {
	c.mu.Lock()
	c.state = LoadingTalk
	c.mu.Unlock()

	talk, err := c.src.Talk(ctx, talkID)
	if err != nil {
		c.mu.Lock()
		c.state = Failed
		c.failure = fmt.Sprintf("could not load talk %q", talkID)
		c.mu.Unlock()
		return fmt.Errorf("entering talk %q: %w", talkID, err)
	}
	if len(talk.Languages) == 0 {
		c.mu.Lock()
		c.state = Failed
		c.failure = fmt.Sprintf("talk %q has no playable language", talkID)
		c.mu.Unlock()
		return fmt.Errorf("entering talk %q: no languages", talkID)
	}

	lang := talk.Languages[0]
	if c.opts.DefaultLanguage != nil {
		lang = c.opts.DefaultLanguage(talk.Languages)
	}

	c.mu.Lock()
	c.talk = talk
	c.audioLang = lang
	c.textLang = lang
	c.state = Ready
	c.mu.Unlock()

	c.loadText(ctx, lang)
	c.loadAudio(ctx, lang, c.restorePosition(talk.ID, lang))
	return nil
}

// SetTextLanguage switches the transcript panel independently of the
// audio. Highlighting is only active when text and audio languages
// match and an alignment exists for that pair.
func (c *Controller) SetTextLanguage(ctx context.Context, lang talks.Language) error {
	c.mu.Lock()
	if c.state == Idle || c.state == Failed {
		c.mu.Unlock()
		return fmt.Errorf("setting text language: no active session")
	}
	if !c.talk.HasLanguage(lang) {
		c.mu.Unlock()
		return fmt.Errorf("setting text language: talk %q has no %q version", c.talk.ID, lang)
	}
	c.textLang = lang
	c.rebindLocked()
	c.mu.Unlock()

	c.loadText(ctx, lang)
	return nil
}

// SetAudioLanguage swaps the audio track and its alignment. The old
// alignment is dropped immediately so a stale highlight can never
// outlive its audio. Position handling follows the configured
// SeekPolicy.
func (c *Controller) SetAudioLanguage(ctx context.Context, lang talks.Language) error {
	c.mu.Lock()
	if c.state == Idle || c.state == Failed {
		c.mu.Unlock()
		return fmt.Errorf("setting audio language: no active session")
	}
	if !c.talk.HasLanguage(lang) {
		c.mu.Unlock()
		return fmt.Errorf("setting audio language: talk %q has no %q version", c.talk.ID, lang)
	}
	var resume int64
	if c.opts.SeekPolicy != SeekReset && c.adapter != nil {
		resume = c.adapter.State().PosMs
	}
	c.audioLang = lang
	c.alignment = nil
	c.rebindLocked()
	c.mu.Unlock()

	c.loadAudio(ctx, lang, resume)
	return nil
}

func (c *Controller) loadText(ctx context.Context, lang talks.Language) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.textGen++
	gen := c.textGen
	c.state = LoadingText
	c.mu.Unlock()

	go func() {
		text, err := c.src.Text(ctx, c.talkID(), lang)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || gen != c.textGen {
			return // a newer request won this slot
		}
		if err != nil {
			// one language's text failing degrades that panel only
			c.text = ""
			c.textErr = fmt.Errorf("fetching %q text: %w", lang, err)
			slog.Warn("text fetch failed", "talk", c.talk.ID, "language", lang, "err", err)
		} else {
			c.text = text
			c.textErr = nil
		}
		if c.state == LoadingText {
			c.state = Ready
		}
	}()
}

// loadAudio resolves the audio reference, opens a fresh clock for it
// and fetches the matching alignment. Alignment absence or failure
// degrades to plain text; only audio resolution failure surfaces.
func (c *Controller) loadAudio(ctx context.Context, lang talks.Language, resumeMs int64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.audioGen++
	gen := c.audioGen
	c.state = LoadingAlignment
	c.mu.Unlock()

	go func() {
		id := c.talkID()
		ref, refErr := c.src.AudioRef(ctx, id, lang)

		var alignment *align.Alignment
		if a, err := c.src.Alignment(ctx, id, lang); err != nil {
			slog.Warn("alignment fetch failed, continuing without highlighting",
				"talk", id, "language", lang, "err", err)
		} else {
			alignment = a
		}

		var adapter *playback.Adapter
		if refErr == nil {
			src, err := c.openAudio(ref)
			if err != nil {
				refErr = err
			} else {
				adapter = playback.NewAdapter(src, c.opts.TickInterval)
			}
		}

		c.mu.Lock()
		if c.closed || gen != c.audioGen {
			c.mu.Unlock()
			if adapter != nil {
				adapter.Close() // loser of the race releases its clock
			}
			return
		}

		old, oldUnsub := c.adapter, c.unsub
		c.alignment = alignment
		if refErr != nil {
			// audio failure never takes the text panel down: surface a
			// PlaybackError to observers and stay usable
			c.adapter, c.unsub = nil, nil
			c.audioErr = &playback.PlaybackError{Stage: "open", Err: refErr}
			if c.state == LoadingAlignment {
				c.state = Ready
			}
			c.rebindLocked()
			obs := observersLocked(c.observers)
			u := Update{Frame: c.presenter.Apply(highlight.None), Err: c.audioErr}
			c.mu.Unlock()
			slog.Error("audio load failed", "talk", id, "language", lang, "err", refErr)
			for _, fn := range obs {
				fn(u)
			}
		} else {
			c.adapter = adapter
			c.unsub = adapter.Subscribe(c.handleTick)
			c.audioErr = nil
			if c.state == LoadingAlignment {
				c.state = Ready
			}
			c.rebindLocked()
			c.mu.Unlock()
			if resumeMs > 0 {
				_ = adapter.SeekMs(resumeMs)
			}
		}

		if oldUnsub != nil {
			oldUnsub()
		}
		if old != nil {
			old.Close()
		}
	}()
}

// rebindLocked points the resolver and presenter at the alignment for
// the current language pair, or nil when highlighting is off. Always a
// wholesale swap, so no stale span survives.
func (c *Controller) rebindLocked() {
	a := c.alignment
	if c.textLang != c.audioLang {
		a = nil
	}
	c.resolver.SetAlignment(a)
	c.presenter.Reset(a)
}

func (c *Controller) handleTick(t playback.Tick) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	span := c.resolver.Resolve(t.PosMs)
	frame := c.presenter.Apply(span)
	obs := observersLocked(c.observers)
	c.mu.Unlock()

	u := Update{Frame: frame, PosMs: t.PosMs, Playing: t.Playing, Err: t.Err}
	for _, fn := range obs {
		fn(u)
	}
}

// OnFrame registers an observer for tick updates and returns its
// release handle.
func (c *Controller) OnFrame(fn func(Update)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextObs++
	id := c.nextObs
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

func (c *Controller) Play() {
	if a := c.currentAdapter(); a != nil {
		a.Play()
	}
}

func (c *Controller) Pause() {
	if a := c.currentAdapter(); a != nil {
		a.Pause()
	}
}

func (c *Controller) SeekMs(ms int64) error {
	a := c.currentAdapter()
	if a == nil {
		return fmt.Errorf("seeking: no audio loaded")
	}
	return a.SeekMs(ms)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Failure() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

func (c *Controller) Talk() talks.Talk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.talk
}

func (c *Controller) Text() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, c.textErr
}

func (c *Controller) AudioLanguage() talks.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioLang
}

func (c *Controller) TextLanguage() talks.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.textLang
}

// Highlighting reports whether synchronized highlighting is currently
// possible: matching languages and a loaded alignment.
func (c *Controller) Highlighting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alignment != nil && c.textLang == c.audioLang
}

// Close tears the session down: listeners released, clock closed,
// position persisted, no background work continues afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	adapter, unsub := c.adapter, c.unsub
	c.adapter, c.unsub = nil, nil
	c.observers = map[int]func(Update){}
	talkID, lang := c.talk.ID, c.audioLang
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if adapter != nil {
		st := adapter.State()
		if c.opts.Progress != nil && talkID != "" {
			if err := c.opts.Progress.Put(talkID, lang, st.PosMs, st.DurationMs); err != nil {
				slog.Warn("saving playback position", "talk", talkID, "err", err)
			}
		}
		if err := adapter.Close(); err != nil {
			return fmt.Errorf("closing session: %w", err)
		}
	}
	return nil
}

// Alignment returns the alignment highlighting currently runs
// against, nil in degraded mode or when languages differ.
func (c *Controller) Alignment() *align.Alignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.textLang != c.audioLang {
		return nil
	}
	return c.alignment
}

// Playback snapshots the clock; zero when no audio is loaded.
func (c *Controller) Playback() playback.State {
	a := c.currentAdapter()
	if a == nil {
		return playback.State{}
	}
	return a.State()
}

// AudioErr returns the last audio load failure, nil when audio is
// healthy.
func (c *Controller) AudioErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioErr
}

func observersLocked(m map[int]func(Update)) []func(Update) {
	obs := make([]func(Update), 0, len(m))
	for _, fn := range m {
		obs = append(obs, fn)
	}
	return obs
}

func (c *Controller) currentAdapter() *playback.Adapter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adapter
}

func (c *Controller) talkID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.talk.ID
}

func (c *Controller) restorePosition(talkID string, lang talks.Language) int64 {
	if c.opts.Progress == nil {
		return 0
	}
	pos, ok, err := c.opts.Progress.Get(talkID, lang)
	if err != nil {
		slog.Warn("loading saved position", "talk", talkID, "err", err)
		return 0
	}
	if !ok {
		return 0
	}
	return pos
}
