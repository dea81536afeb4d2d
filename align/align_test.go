package align

import (
	"errors"
	"strings"
	"testing"
)

func mustNew(t *testing.T, segments []Segment) *Alignment {
	t.Helper()
	a, err := New("talk", "eng", segments)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestSegmentAt(t *testing.T) {
	a := mustNew(t, []Segment{
		{ID: "s0", Text: "A", StartMs: 0, EndMs: 2000},
		{ID: "s1", Text: "B", StartMs: 3000, EndMs: 5000},
	})

	cases := []struct {
		ms   int64
		want int
	}{
		{0, 0},
		{1000, 0},
		{2000, 0},
		{2500, -1}, // gap
		{3000, 1},
		{4000, 1},
		{5000, 1},
		{10000, -1}, // past end
	}
	for _, c := range cases {
		if got := a.SegmentAt(c.ms); got != c.want {
			t.Fatalf("SegmentAt(%d) = %d, want %d", c.ms, got, c.want)
		}
	}
}

func TestSegmentAtBeforeFirst(t *testing.T) {
	a := mustNew(t, []Segment{{ID: "s0", StartMs: 1000, EndMs: 2000}})
	if got := a.SegmentAt(500); got != -1 {
		t.Fatalf("SegmentAt(500) = %d, want -1", got)
	}
}

func TestSegmentAtEmpty(t *testing.T) {
	a := mustNew(t, nil)
	for _, ms := range []int64{0, 100, 99999} {
		if got := a.SegmentAt(ms); got != -1 {
			t.Fatalf("SegmentAt(%d) = %d, want -1", ms, got)
		}
	}
}

func TestSegmentAtSingleFullSpan(t *testing.T) {
	a := mustNew(t, []Segment{{ID: "s0", StartMs: 0, EndMs: 60000}})
	for _, ms := range []int64{0, 1, 30000, 60000} {
		if got := a.SegmentAt(ms); got != 0 {
			t.Fatalf("SegmentAt(%d) = %d, want 0", ms, got)
		}
	}
}

func TestSegmentAtNilAlignment(t *testing.T) {
	var a *Alignment
	if got := a.SegmentAt(100); got != -1 {
		t.Fatalf("SegmentAt on nil = %d, want -1", got)
	}
	if a.Len() != 0 {
		t.Fatalf("Len on nil = %d, want 0", a.Len())
	}
}

func TestWordAt(t *testing.T) {
	s := Segment{
		StartMs: 0,
		EndMs:   3000,
		Words: []Word{
			{Text: "in", StartMs: 0, EndMs: 400, Timed: true},
			{Text: "the", StartMs: 500, EndMs: 800, Timed: true},
			{Text: "uh"}, // untimed filler
			{Text: "beginning", StartMs: 1000, EndMs: 1800, Timed: true},
		},
	}

	cases := []struct {
		ms   int64
		want int
	}{
		{0, 0},
		{400, 0},
		{450, -1}, // between words
		{600, 1},
		{1500, 3},
		{2500, -1},
	}
	for _, c := range cases {
		if got := s.WordAt(c.ms); got != c.want {
			t.Fatalf("WordAt(%d) = %d, want %d", c.ms, got, c.want)
		}
	}
}

func TestWordAtNoTimedWords(t *testing.T) {
	s := Segment{StartMs: 0, EndMs: 1000, Words: []Word{{Text: "a"}, {Text: "b"}}}
	if got := s.WordAt(500); got != -1 {
		t.Fatalf("WordAt = %d, want -1", got)
	}
}

func TestNewRejectsOverlap(t *testing.T) {
	_, err := New("talk", "eng", []Segment{
		{StartMs: 0, EndMs: 2000},
		{StartMs: 1500, EndMs: 3000},
	})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestNewRejectsEndBeforeStart(t *testing.T) {
	_, err := New("talk", "eng", []Segment{{StartMs: 2000, EndMs: 1000}})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestNewRejectsWordEscapingSegment(t *testing.T) {
	_, err := New("talk", "eng", []Segment{{
		StartMs: 1000,
		EndMs:   2000,
		Words:   []Word{{Text: "x", StartMs: 500, EndMs: 1500, Timed: true}},
	}})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestNewAllowsGaps(t *testing.T) {
	_, err := New("talk", "eng", []Segment{
		{StartMs: 0, EndMs: 1000},
		{StartMs: 5000, EndMs: 6000},
	})
	if err != nil {
		t.Fatalf("gaps should be legal: %v", err)
	}
}

func TestNewAllowsTouchingSegments(t *testing.T) {
	_, err := New("talk", "eng", []Segment{
		{StartMs: 0, EndMs: 1000},
		{StartMs: 1000, EndMs: 2000},
	})
	if err != nil {
		t.Fatalf("end[i] == start[i+1] should be legal: %v", err)
	}
}

func TestParse(t *testing.T) {
	data := `{
		"talk_id": "2025-10-58-oaks",
		"language": "eng",
		"version": "1.0",
		"segments": [
			{
				"segment_id": "seg-0",
				"text": "My dear brothers and sisters.",
				"start_time": 0.0,
				"end_time": 2.48,
				"words": [
					{"word": "My", "start_time": 0.0, "end_time": 0.35, "confidence": 0.98},
					{"word": "dear", "start_time": 0.35, "end_time": 0.7}
				]
			},
			{
				"segment_id": "seg-1",
				"text": "I am grateful.",
				"start_time": 3.1,
				"end_time": 4.9,
				"words": []
			}
		]
	}`

	a, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if a.TalkID != "2025-10-58-oaks" || a.Language != "eng" {
		t.Fatalf("unexpected identity: %q %q", a.TalkID, a.Language)
	}
	if a.Len() != 2 {
		t.Fatalf("Len = %d, want 2", a.Len())
	}
	s := a.Segment(0)
	if s.StartMs != 0 || s.EndMs != 2480 {
		t.Fatalf("segment 0 range = [%d,%d], want [0,2480]", s.StartMs, s.EndMs)
	}
	if len(s.Words) != 2 {
		t.Fatalf("segment 0 words = %d, want 2", len(s.Words))
	}
	if w := s.Words[0]; !w.Timed || w.StartMs != 0 || w.EndMs != 350 || w.Confidence != 0.98 {
		t.Fatalf("unexpected word 0: %+v", w)
	}
	if w := s.Words[1]; w.Confidence != 1.0 {
		t.Fatalf("missing confidence should default to 1.0, got %v", w.Confidence)
	}
	if a.DurationMs() != 4900 {
		t.Fatalf("DurationMs = %d, want 4900", a.DurationMs())
	}
}

func TestParseRejectsOverlap(t *testing.T) {
	data := `{"talk_id":"t","language":"eng","segments":[
		{"segment_id":"a","text":"a","start_time":0,"end_time":2.0,"words":[]},
		{"segment_id":"b","text":"b","start_time":1.5,"end_time":3.0,"words":[]}
	]}`
	_, err := Parse(strings.NewReader(data))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseBytes([]byte("not json"))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestParseGeneratesSegmentIDs(t *testing.T) {
	data := `{"talk_id":"t","language":"eng","segments":[
		{"text":"a","start_time":0,"end_time":1.0,"words":[]}
	]}`
	a, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := a.Segment(0).ID; got != "seg-0" {
		t.Fatalf("generated id = %q, want seg-0", got)
	}
}
