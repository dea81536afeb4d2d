package align

import (
	"errors"
	"fmt"
	"sort"
)

var ErrMalformed = errors.New("malformed alignment")

func errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

type (
	// Word is a word-level timed entry inside a segment. Aligners
	// occasionally emit words without timestamps; those carry
	// Timed == false and are skipped during time resolution.
	Word struct {
		Text       string
		StartMs    int64
		EndMs      int64
		Confidence float64
		Timed      bool
	}

	// Segment is a contiguous span of transcript text covering
	// [StartMs, EndMs] of the audio.
	Segment struct {
		ID      string
		Text    string
		StartMs int64
		EndMs   int64
		Words   []Word
	}

	// Alignment is the full timed mapping between one audio track and
	// its transcript for one (talk, language) pair. Segments are sorted
	// ascending by start and never overlap; gaps between segments are
	// untranscribed silence. Replaced wholesale, never mutated.
	Alignment struct {
		TalkID   string
		Language string
		segments []Segment
	}
)

// New validates segments against the ordering invariant and returns the
// alignment owning them. The slice is kept, not copied.
func New(talkID, language string, segments []Segment) (*Alignment, error) {
	if err := validate(segments); err != nil {
		return nil, err
	}
	return &Alignment{TalkID: talkID, Language: language, segments: segments}, nil
}

func (a *Alignment) Len() int {
	if a == nil {
		return 0
	}
	return len(a.segments)
}

func (a *Alignment) Segment(i int) Segment {
	return a.segments[i]
}

func (a *Alignment) Segments() []Segment {
	if a == nil {
		return nil
	}
	return a.segments
}

// DurationMs is the end of the last segment, 0 when empty.
func (a *Alignment) DurationMs() int64 {
	if a.Len() == 0 {
		return 0
	}
	return a.segments[len(a.segments)-1].EndMs
}

// SegmentAt returns the index of the segment containing ms, or -1 when
// ms falls before the first segment, after the last, or in a gap.
func (a *Alignment) SegmentAt(ms int64) int {
	if a.Len() == 0 {
		return -1
	}
	// greatest i with segments[i].StartMs <= ms
	i := sort.Search(len(a.segments), func(i int) bool {
		return a.segments[i].StartMs > ms
	}) - 1
	if i < 0 || ms > a.segments[i].EndMs {
		return -1
	}
	return i
}

// WordAt returns the index of the timed word in the segment containing
// ms, or -1 when no timed word covers it. Untimed words are skipped;
// the search stays logarithmic in the timed entries.
func (s Segment) WordAt(ms int64) int {
	lo, hi, best := 0, len(s.Words)-1, -1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		// nearest timed word at or below mid
		k := mid
		for k >= lo && !s.Words[k].Timed {
			k--
		}
		if k < lo {
			lo = mid + 1
			continue
		}
		if s.Words[k].StartMs <= ms {
			best = k
			lo = mid + 1
		} else {
			hi = k - 1
		}
	}
	if best < 0 || ms > s.Words[best].EndMs {
		return -1
	}
	return best
}

func validate(segments []Segment) error {
	var prevEnd int64
	for i, s := range segments {
		if s.StartMs < 0 {
			return errorf("segment %d: negative start %d", i, s.StartMs)
		}
		if s.EndMs < s.StartMs {
			return errorf("segment %d: end %d before start %d", i, s.EndMs, s.StartMs)
		}
		if i > 0 && s.StartMs < prevEnd {
			return errorf("segment %d: start %d overlaps previous end %d", i, s.StartMs, prevEnd)
		}
		prevEnd = s.EndMs

		var prevWordStart int64 = -1
		for j, w := range s.Words {
			if !w.Timed {
				continue
			}
			if w.EndMs < w.StartMs {
				return errorf("segment %d word %d: end %d before start %d", i, j, w.EndMs, w.StartMs)
			}
			if w.StartMs < s.StartMs || w.EndMs > s.EndMs {
				return errorf("segment %d word %d: range [%d,%d] escapes segment [%d,%d]",
					i, j, w.StartMs, w.EndMs, s.StartMs, s.EndMs)
			}
			if w.StartMs < prevWordStart {
				return errorf("segment %d word %d: start %d before previous word start %d",
					i, j, w.StartMs, prevWordStart)
			}
			prevWordStart = w.StartMs
		}
	}
	return nil
}
