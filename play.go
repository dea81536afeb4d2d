package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KCErb/Gospel-Language-Study/beepclock"
	"github.com/KCErb/Gospel-Language-Study/config"
	"github.com/KCErb/Gospel-Language-Study/playback"
	"github.com/KCErb/Gospel-Language-Study/progress"
	"github.com/KCErb/Gospel-Language-Study/session"
	"github.com/KCErb/Gospel-Language-Study/talks"
)

// runPlay plays one talk through the speaker and prints each transcript
// segment as the audio reaches it.
func runPlay(ctx context.Context, cfg *config.Config, db *sql.DB, talkID, audioLang, textLang string) error {
	svc := talks.NewService(talks.NewFSRepo(cfg.TalksDir()))

	opts := session.Options{
		SeekPolicy:   session.SeekPolicy(cfg.SeekPolicy),
		TickInterval: time.Duration(cfg.TickMs) * time.Millisecond,
		Progress:     progress.NewSQLiteStore(db),
	}
	if cfg.DefaultLanguage != "" {
		preferred := talks.Language(cfg.DefaultLanguage)
		opts.DefaultLanguage = func(available []talks.Language) talks.Language {
			for _, l := range available {
				if l == preferred {
					return l
				}
			}
			return available[0]
		}
	}

	c := session.New(svc, func(ref string) (playback.Source, error) {
		return beepclock.Open(ref)
	}, opts)
	defer c.Close()

	if err := c.Enter(ctx, talkID); err != nil {
		return err
	}
	if audioLang != "" {
		lang, err := talks.ParseLanguage(audioLang)
		if err != nil {
			return err
		}
		if err := c.SetAudioLanguage(ctx, lang); err != nil {
			return err
		}
	}
	if textLang != "" {
		lang, err := talks.ParseLanguage(textLang)
		if err != nil {
			return err
		}
		if err := c.SetTextLanguage(ctx, lang); err != nil {
			return err
		}
	}

	if err := waitReady(ctx, c); err != nil {
		return err
	}

	talk := c.Talk()
	fmt.Printf("%s — %s (%s)\n", talk.Title, talk.Speaker, talk.Conference)
	fmt.Printf("audio %s, text %s\n\n", c.AudioLanguage(), c.TextLanguage())

	if !c.Highlighting() {
		// degraded mode: no synchronized transcript, show it whole
		text, err := c.Text()
		if err != nil {
			slog.Warn("text unavailable", "err", err)
		} else {
			fmt.Println(strings.TrimSpace(text))
			fmt.Println()
		}
	}

	finished := make(chan struct{}, 1)
	unsubscribe := c.OnFrame(func(u session.Update) {
		if u.Err != nil {
			slog.Error("playback", "err", u.Err)
			select {
			case finished <- struct{}{}:
			default:
			}
			return
		}
		if u.Frame.Scroll {
			a := c.Alignment()
			if a != nil && u.Frame.Segment < a.Len() {
				fmt.Println(strings.TrimSpace(a.Segment(u.Frame.Segment).Text))
			}
		}
		if st := c.Playback(); st.DurationMs > 0 && u.PosMs >= st.DurationMs {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	c.Play()

	select {
	case <-ctx.Done():
	case <-finished:
	}
	return nil
}

func waitReady(ctx context.Context, c *session.Controller) error {
	for {
		switch c.State() {
		case session.Ready:
			return nil
		case session.Failed:
			return fmt.Errorf("session failed: %s", c.Failure())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}
