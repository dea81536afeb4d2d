package align

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

type (
	rawAlignment struct {
		TalkID   string       `json:"talk_id"`
		Language string       `json:"language"`
		Version  string       `json:"version"`
		Segments []rawSegment `json:"segments"`
	}

	rawSegment struct {
		SegmentID string          `json:"segment_id"`
		Text      string          `json:"text"`
		Start     decimal.Decimal `json:"start_time"`
		End       decimal.Decimal `json:"end_time"`
		Words     []rawWord       `json:"words"`
	}

	rawWord struct {
		Word       string           `json:"word"`
		Start      *decimal.Decimal `json:"start_time"`
		End        *decimal.Decimal `json:"end_time"`
		Confidence *float64         `json:"confidence"`
	}
)

var msFactor = decimal.NewFromInt(1000)

// Parse decodes alignment JSON (float seconds) into millisecond
// segments and validates the ordering invariant. Any violation is
// reported as ErrMalformed; callers degrade to unhighlighted text.
func Parse(r io.Reader) (*Alignment, error) {
	var raw rawAlignment
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding json: %w", ErrMalformed, err)
	}
	return parseRaw(raw)
}

func ParseBytes(data []byte) (*Alignment, error) {
	var raw rawAlignment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding json: %w", ErrMalformed, err)
	}
	return parseRaw(raw)
}

func parseRaw(raw rawAlignment) (*Alignment, error) {
	segments := make([]Segment, len(raw.Segments))
	for n, s := range raw.Segments {
		id := s.SegmentID
		if id == "" {
			id = fmt.Sprintf("seg-%d", n)
		}
		segments[n] = Segment{
			ID:      id,
			Text:    s.Text,
			StartMs: toMs(s.Start),
			EndMs:   toMs(s.End),
			Words:   wordsFromRaw(s.Words),
		}
	}
	return New(raw.TalkID, raw.Language, segments)
}

func wordsFromRaw(words []rawWord) []Word {
	if len(words) == 0 {
		return nil
	}
	res := make([]Word, len(words))
	for n, w := range words {
		confidence := 1.0
		if w.Confidence != nil {
			confidence = *w.Confidence
		}
		res[n] = Word{
			Text:       w.Word,
			Confidence: confidence,
		}
		if w.Start != nil && w.End != nil {
			res[n].StartMs = toMs(*w.Start)
			res[n].EndMs = toMs(*w.End)
			res[n].Timed = true
		}
	}
	return res
}

func toMs(d decimal.Decimal) int64 {
	return d.Mul(msFactor).IntPart()
}
