package vocab

import (
	"time"

	"github.com/google/uuid"

	"github.com/KCErb/Gospel-Language-Study/talks"
)

type (
	// Item is a saved word or phrase pairing source and target
	// language text, optionally anchored to the audio span it was
	// heard in.
	Item struct {
		ID              string         `json:"id"`
		UserID          string         `json:"user_id"`
		SourceLanguage  talks.Language `json:"source_language"`
		TargetLanguage  talks.Language `json:"target_language"`
		SourceText      string         `json:"source_text"`
		TargetText      string         `json:"target_text"`
		ContextSentence string         `json:"context_sentence,omitempty"`
		TalkID          string         `json:"talk_id,omitempty"`
		AudioStartMs    *int64         `json:"audio_start_ms,omitempty"`
		AudioEndMs      *int64         `json:"audio_end_ms,omitempty"`
		CreatedAt       time.Time      `json:"created_at"`
	}
)

// NewItem stamps identity and creation time on a fresh item.
func NewItem(userID string, source, target talks.Language, sourceText, targetText string) Item {
	return Item{
		ID:             uuid.NewString(),
		UserID:         userID,
		SourceLanguage: source,
		TargetLanguage: target,
		SourceText:     sourceText,
		TargetText:     targetText,
		CreatedAt:      time.Now().UTC(),
	}
}
