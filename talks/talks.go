package talks

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

type (
	// Language is an ISO 639-3 code, matching the source website's
	// three-letter convention.
	Language string

	Talk struct {
		ID         string     `json:"id"`
		Title      string     `json:"title"`
		Speaker    string     `json:"speaker"`
		Date       time.Time  `json:"date"`
		Conference string     `json:"conference"`
		Languages  []Language `json:"available_languages"`
	}

	// Version is one language rendition of a talk: its text plus the
	// on-disk audio and optional alignment files.
	Version struct {
		TalkID           string
		Language         Language
		Text             string
		AudioPath        string
		TextPath         string
		AlignmentPath    string // empty when no alignment exists
		AudioFingerprint string // blake3 of the audio file
	}
)

const (
	English             Language = "eng"
	MandarinSimplified  Language = "zhs"
	MandarinTraditional Language = "zht"
	Czech               Language = "ces"
	Spanish             Language = "spa"
	Russian             Language = "rus"
	Portuguese          Language = "por"
	French              Language = "fra"
	German              Language = "deu"
	Korean              Language = "kor"
	Japanese            Language = "jpn"
)

var languages = map[Language]struct{}{
	English: {}, MandarinSimplified: {}, MandarinTraditional: {},
	Czech: {}, Spanish: {}, Russian: {}, Portuguese: {},
	French: {}, German: {}, Korean: {}, Japanese: {},
}

func ParseLanguage(code string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(code)))
	if _, ok := languages[l]; !ok {
		return "", fmt.Errorf("unknown language code %q", code)
	}
	return l, nil
}

func (t Talk) HasLanguage(l Language) bool {
	for _, have := range t.Languages {
		if have == l {
			return true
		}
	}
	return false
}

func (v Version) HasAlignment() bool {
	return v.AlignmentPath != ""
}
