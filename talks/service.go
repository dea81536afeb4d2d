package talks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KCErb/Gospel-Language-Study/align"
)

type (
	catalog interface {
		Talks() ([]Talk, error)
		Talk(id string) (Talk, error)
		Version(id string, lang Language) (Version, error)
		AlignmentData(id string, lang Language) ([]byte, error)
	}

	// Service is the data-source surface the playback session and the
	// HTTP layer consume. Alignment absence degrades to (nil, nil);
	// malformed alignment data is logged and reported, never partially
	// trusted.
	Service struct {
		c catalog
	}
)

func NewService(c catalog) Service {
	return Service{c: c}
}

func (s Service) Talks(ctx context.Context) ([]Talk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := s.c.Talks()
	if err != nil {
		return nil, fmt.Errorf("listing talks: %w", err)
	}
	return res, nil
}

func (s Service) Talk(ctx context.Context, id string) (Talk, error) {
	if err := ctx.Err(); err != nil {
		return Talk{}, err
	}
	return s.c.Talk(id)
}

func (s Service) Text(ctx context.Context, id string, lang Language) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := s.c.Version(id, lang)
	if err != nil {
		return "", err
	}
	return v.Text, nil
}

// Alignment returns the parsed alignment for the pair, or (nil, nil)
// when none exists or the stored data is malformed.
func (s Service) Alignment(ctx context.Context, id string, lang Language) (*align.Alignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.c.AlignmentData(id, lang)
	if err != nil {
		return nil, fmt.Errorf("fetching alignment: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	a, err := align.ParseBytes(data)
	if err != nil {
		if errors.Is(err, align.ErrMalformed) {
			slog.Warn("discarding malformed alignment", "talk", id, "language", lang, "err", err)
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// AudioRef resolves the playable audio reference for the pair.
func (s Service) AudioRef(ctx context.Context, id string, lang Language) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := s.c.Version(id, lang)
	if err != nil {
		return "", err
	}
	return v.AudioPath, nil
}
