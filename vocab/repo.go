package vocab

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/KCErb/Gospel-Language-Study/talks"
)

var ErrNotFound = errors.New("vocabulary item not found")

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) SQLiteRepo {
	return SQLiteRepo{db}
}

func Migrate(db *sql.DB) error {
	_, err := db.Exec(`
	create table if not exists vocab_items (
		id text primary key,
		user_id text not null,
		source_language text not null,
		target_language text not null,
		source_text text not null,
		target_text text not null,
		context_sentence text not null default '',
		talk_id text not null default '',
		audio_start_ms integer,
		audio_end_ms integer,
		created_at text not null
	);
	create index if not exists vocab_items_user on vocab_items (user_id);`)
	if err != nil {
		return fmt.Errorf("migrating vocab schema: %w", err)
	}
	return nil
}

func (r SQLiteRepo) Save(ctx context.Context, item Item) error {
	_, err := r.db.ExecContext(ctx, `
		insert into vocab_items (
			id, user_id, source_language, target_language,
			source_text, target_text, context_sentence, talk_id,
			audio_start_ms, audio_end_ms, created_at
		) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		on conflict (id) do update set
			source_text = excluded.source_text,
			target_text = excluded.target_text,
			context_sentence = excluded.context_sentence`,
		item.ID, item.UserID, item.SourceLanguage, item.TargetLanguage,
		item.SourceText, item.TargetText, item.ContextSentence, item.TalkID,
		item.AudioStartMs, item.AudioEndMs, item.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("persisting vocab item: %w", err)
	}
	return nil
}

func (r SQLiteRepo) ByID(ctx context.Context, id string) (Item, error) {
	row := r.db.QueryRowContext(ctx, `
		select id, user_id, source_language, target_language,
			source_text, target_text, context_sentence, talk_id,
			audio_start_ms, audio_end_ms, created_at
		from vocab_items where id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, fmt.Errorf("vocab item %q: %w", id, ErrNotFound)
		}
		return Item{}, fmt.Errorf("getting vocab item: %w", err)
	}
	return item, nil
}

func (r SQLiteRepo) ByUser(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		select id, user_id, source_language, target_language,
			source_text, target_text, context_sentence, talk_id,
			audio_start_ms, audio_end_ms, created_at
		from vocab_items where user_id = $1
		order by created_at desc`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing vocab items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// Search matches query as a substring of the source or target text,
// optionally restricted to one source language.
func (r SQLiteRepo) Search(ctx context.Context, userID, query string, lang talks.Language) ([]Item, error) {
	pattern := "%" + query + "%"
	q := `
		select id, user_id, source_language, target_language,
			source_text, target_text, context_sentence, talk_id,
			audio_start_ms, audio_end_ms, created_at
		from vocab_items
		where user_id = $1 and (source_text like $2 or target_text like $2)`
	args := []any{userID, pattern}
	if lang != "" {
		q += " and source_language = $3"
		args = append(args, lang)
	}
	q += " order by created_at desc"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("searching vocab items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r SQLiteRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "delete from vocab_items where id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting vocab item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting vocab item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("vocab item %q: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	var created string
	err := row.Scan(
		&item.ID, &item.UserID, &item.SourceLanguage, &item.TargetLanguage,
		&item.SourceText, &item.TargetText, &item.ContextSentence, &item.TalkID,
		&item.AudioStartMs, &item.AudioEndMs, &created,
	)
	if err != nil {
		return Item{}, err
	}
	item.CreatedAt, err = time.Parse(time.RFC3339, created)
	if err != nil {
		return Item{}, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	return item, nil
}

func collectItems(rows *sql.Rows) ([]Item, error) {
	var res []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning vocab item: %w", err)
		}
		res = append(res, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vocab items: %w", err)
	}
	return res, nil
}
