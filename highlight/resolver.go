// Package highlight resolves a playback position against alignment
// data into the text span to mark, and derives the render-facing
// highlight/scroll state from it.
package highlight

import (
	"github.com/KCErb/Gospel-Language-Study/align"
)

// Span identifies the active segment and word, -1 meaning none. A
// position inside a gap, before the first segment or past the last one
// resolves to None: silence is intentional, not a data error.
type Span struct {
	Segment int
	Word    int
}

var None = Span{Segment: -1, Word: -1}

func (s Span) Active() bool { return s.Segment >= 0 }

// Resolver maps positions to spans for the current alignment. The only
// cross-call state is a last-index hint exploiting forward-playback
// locality; it is never correctness-critical and arbitrary seeks give
// the same answer as in-order resolution.
type Resolver struct {
	alignment *align.Alignment
	hint      int
}

func NewResolver(a *align.Alignment) *Resolver {
	return &Resolver{alignment: a, hint: -1}
}

// SetAlignment swaps the alignment wholesale and drops the hint. A nil
// alignment means no synchronized highlighting: every position
// resolves to None.
func (r *Resolver) SetAlignment(a *align.Alignment) {
	r.alignment = a
	r.hint = -1
}

func (r *Resolver) Alignment() *align.Alignment {
	return r.alignment
}

// Resolve returns the span active at ms.
func (r *Resolver) Resolve(ms int64) Span {
	a := r.alignment
	if a.Len() == 0 {
		return None
	}

	i := r.lookup(ms)
	if i < 0 {
		return None
	}
	r.hint = i

	seg := a.Segment(i)
	return Span{Segment: i, Word: seg.WordAt(ms)}
}

// lookup finds the active segment index, trying the hinted segment and
// its successor before falling back to binary search.
func (r *Resolver) lookup(ms int64) int {
	a := r.alignment
	if h := r.hint; h >= 0 && h < a.Len() {
		if s := a.Segment(h); s.StartMs <= ms && ms <= s.EndMs {
			return h
		}
		if h+1 < a.Len() {
			if s := a.Segment(h + 1); s.StartMs <= ms && ms <= s.EndMs {
				return h + 1
			}
		}
	}
	return a.SegmentAt(ms)
}
