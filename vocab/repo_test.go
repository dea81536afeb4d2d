package vocab

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/KCErb/Gospel-Language-Study/talks"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSaveAndGet(t *testing.T) {
	r := NewSQLiteRepo(testDB(t))
	ctx := context.Background()

	item := NewItem("default-user", talks.MandarinSimplified, talks.English, "信心", "faith")
	item.TalkID = "2025-10-58-oaks"
	start, end := int64(12000), int64(12800)
	item.AudioStartMs, item.AudioEndMs = &start, &end

	if err := r.Save(ctx, item); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := r.ByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if got.SourceText != "信心" || got.TargetText != "faith" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.AudioStartMs == nil || *got.AudioStartMs != 12000 {
		t.Fatalf("audio anchor lost: %+v", got.AudioStartMs)
	}
}

func TestSaveUpdatesExisting(t *testing.T) {
	r := NewSQLiteRepo(testDB(t))
	ctx := context.Background()

	item := NewItem("default-user", talks.Czech, talks.English, "víra", "faith")
	if err := r.Save(ctx, item); err != nil {
		t.Fatalf("Save: %v", err)
	}
	item.TargetText = "faith, belief"
	if err := r.Save(ctx, item); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	all, err := r.ByUser(ctx, "default-user")
	if err != nil {
		t.Fatalf("ByUser: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len = %d, want 1", len(all))
	}
	if all[0].TargetText != "faith, belief" {
		t.Fatalf("TargetText = %q", all[0].TargetText)
	}
}

func TestSearch(t *testing.T) {
	r := NewSQLiteRepo(testDB(t))
	ctx := context.Background()

	a := NewItem("u", talks.MandarinSimplified, talks.English, "信心", "faith")
	b := NewItem("u", talks.Czech, talks.English, "víra", "faith")
	c := NewItem("u", talks.Czech, talks.English, "naděje", "hope")
	for _, item := range []Item{a, b, c} {
		if err := r.Save(ctx, item); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	res, err := r.Search(ctx, "u", "faith", "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("Search(faith) = %d items, want 2", len(res))
	}

	res, err = r.Search(ctx, "u", "faith", talks.Czech)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].SourceText != "víra" {
		t.Fatalf("filtered search = %+v", res)
	}
}

func TestDelete(t *testing.T) {
	r := NewSQLiteRepo(testDB(t))
	ctx := context.Background()

	item := NewItem("u", talks.Korean, talks.English, "믿음", "faith")
	if err := r.Save(ctx, item); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := r.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.ByID(ctx, item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := r.Delete(ctx, item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: %v, want ErrNotFound", err)
	}
}
