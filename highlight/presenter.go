package highlight

import "github.com/KCErb/Gospel-Language-Study/align"

type (
	// Frame is the read-only state the render layer consumes: which
	// unit to mark and whether to scroll it into view. Scroll is set
	// exactly when the active segment changed to a real segment, never
	// on word-only changes, so word-level granularity cannot jitter
	// the viewport.
	Frame struct {
		SegmentID string
		Segment   int
		Word      int
		Scroll    bool
	}

	// Presenter derives Frames from spans. Repeated spans produce
	// identical frames with no further scroll requests.
	Presenter struct {
		alignment   *align.Alignment
		lastSegment int
	}
)

func NewPresenter(a *align.Alignment) *Presenter {
	return &Presenter{alignment: a, lastSegment: -1}
}

// Reset rebinds the presenter to a new alignment and forgets the last
// segment, so the first active span after a swap scrolls.
func (p *Presenter) Reset(a *align.Alignment) {
	p.alignment = a
	p.lastSegment = -1
}

func (p *Presenter) Apply(span Span) Frame {
	f := Frame{Segment: span.Segment, Word: span.Word}
	if span.Segment >= 0 && span.Segment < p.alignment.Len() {
		f.SegmentID = p.alignment.Segment(span.Segment).ID
	}
	if span.Segment != p.lastSegment {
		f.Scroll = span.Segment >= 0
		p.lastSegment = span.Segment
	}
	return f
}
