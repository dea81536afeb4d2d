// Package progress persists playback positions so a listen-through
// session can resume where it stopped.
package progress

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/KCErb/Gospel-Language-Study/talks"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) SQLiteStore {
	return SQLiteStore{db}
}

func Migrate(db *sql.DB) error {
	_, err := db.Exec(`
	create table if not exists playback_progress (
		talk_id text not null,
		language text not null,
		position_ms integer not null,
		duration_ms integer not null,
		updated_at text not null,
		primary key (talk_id, language)
	);`)
	if err != nil {
		return fmt.Errorf("migrating progress schema: %w", err)
	}
	return nil
}

func (s SQLiteStore) Get(talkID string, lang talks.Language) (int64, bool, error) {
	var pos int64
	err := s.db.QueryRow(
		"select position_ms from playback_progress where talk_id = $1 and language = $2",
		talkID, lang,
	).Scan(&pos)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("getting playback position: %w", err)
	}
	return pos, true, nil
}

func (s SQLiteStore) Put(talkID string, lang talks.Language, posMs, durationMs int64) error {
	_, err := s.db.Exec(`
		insert into playback_progress (talk_id, language, position_ms, duration_ms, updated_at)
		values ($1, $2, $3, $4, $5)
		on conflict (talk_id, language) do update set
			position_ms = excluded.position_ms,
			duration_ms = excluded.duration_ms,
			updated_at = excluded.updated_at`,
		talkID, lang, posMs, durationMs, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving playback position: %w", err)
	}
	return nil
}
