package talks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const talkText = `10/22/25, 7:14 PM
Confidence in the Presence of God
Confidence in the Presence of God body text begins here.
`

func writeTalk(t *testing.T, root, id, lang string, withAlignment bool) {
	t.Helper()
	dir := filepath.Join(root, id, lang)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "talk.txt"), []byte(talkText), 0o644); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "talk.mp3"), []byte("mp3-bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if withAlignment {
		alignment := `{"talk_id":"` + id + `","language":"` + lang + `","segments":[
			{"segment_id":"s0","text":"Hello","start_time":0,"end_time":1.5,"words":[]}
		]}`
		if err := os.WriteFile(filepath.Join(dir, "alignment.json"), []byte(alignment), 0o644); err != nil {
			t.Fatalf("write alignment: %v", err)
		}
	}
}

func TestTalkMetadataFromDirName(t *testing.T) {
	root := t.TempDir()
	writeTalk(t, root, "2025-10-58-oaks", "eng", false)

	r := NewFSRepo(root)
	talk, err := r.Talk("2025-10-58-oaks")
	if err != nil {
		t.Fatalf("Talk: %v", err)
	}
	if talk.Speaker != "Oaks" {
		t.Fatalf("Speaker = %q, want Oaks", talk.Speaker)
	}
	if talk.Conference != "October 2025 General Conference" {
		t.Fatalf("Conference = %q", talk.Conference)
	}
	if talk.Title != "Confidence in the Presence of God" {
		t.Fatalf("Title = %q", talk.Title)
	}
	if len(talk.Languages) != 1 || talk.Languages[0] != English {
		t.Fatalf("Languages = %v", talk.Languages)
	}
}

func TestTalkNotFound(t *testing.T) {
	r := NewFSRepo(t.TempDir())
	_, err := r.Talk("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLanguageNeedsTextAndAudio(t *testing.T) {
	root := t.TempDir()
	writeTalk(t, root, "2024-04-12-holland", "eng", false)
	// zhs has text only, so it must not count as available
	dir := filepath.Join(root, "2024-04-12-holland", "zhs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "talk.txt"), []byte("text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewFSRepo(root)
	talk, err := r.Talk("2024-04-12-holland")
	if err != nil {
		t.Fatalf("Talk: %v", err)
	}
	if len(talk.Languages) != 1 || talk.Languages[0] != English {
		t.Fatalf("Languages = %v, want [eng]", talk.Languages)
	}

	if _, err := r.Version("2024-04-12-holland", MandarinSimplified); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Version for incomplete language: %v, want ErrNotFound", err)
	}
}

func TestVersionFingerprint(t *testing.T) {
	root := t.TempDir()
	writeTalk(t, root, "2025-10-58-oaks", "eng", true)

	r := NewFSRepo(root)
	v, err := r.Version("2025-10-58-oaks", English)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v.AudioFingerprint == "" {
		t.Fatal("empty audio fingerprint")
	}
	if !v.HasAlignment() {
		t.Fatal("alignment.json present but HasAlignment is false")
	}
	if v.Text != talkText {
		t.Fatalf("Text = %q", v.Text)
	}
}

func TestTalksSortedNewestFirst(t *testing.T) {
	root := t.TempDir()
	writeTalk(t, root, "2024-04-12-holland", "eng", false)
	writeTalk(t, root, "2025-10-58-oaks", "eng", false)

	r := NewFSRepo(root)
	all, err := r.Talks()
	if err != nil {
		t.Fatalf("Talks: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].ID != "2025-10-58-oaks" {
		t.Fatalf("first talk = %q, want newest", all[0].ID)
	}
}

func TestServiceAlignmentAbsent(t *testing.T) {
	root := t.TempDir()
	writeTalk(t, root, "2025-10-58-oaks", "eng", false)

	s := NewService(NewFSRepo(root))
	a, err := s.Alignment(context.Background(), "2025-10-58-oaks", English)
	if err != nil {
		t.Fatalf("Alignment: %v", err)
	}
	if a != nil {
		t.Fatalf("expected nil alignment, got %d segments", a.Len())
	}
}

func TestServiceAlignmentMalformedDegrades(t *testing.T) {
	root := t.TempDir()
	writeTalk(t, root, "2025-10-58-oaks", "eng", false)
	path := filepath.Join(root, "2025-10-58-oaks", "eng", "alignment.json")
	bad := `{"segments":[{"segment_id":"a","start_time":5,"end_time":1,"words":[]}]}`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewService(NewFSRepo(root))
	a, err := s.Alignment(context.Background(), "2025-10-58-oaks", English)
	if err != nil {
		t.Fatalf("malformed alignment should degrade, got error: %v", err)
	}
	if a != nil {
		t.Fatal("malformed alignment must never be partially trusted")
	}
}

func TestServiceAlignmentParsed(t *testing.T) {
	root := t.TempDir()
	writeTalk(t, root, "2025-10-58-oaks", "eng", true)

	s := NewService(NewFSRepo(root))
	a, err := s.Alignment(context.Background(), "2025-10-58-oaks", English)
	if err != nil {
		t.Fatalf("Alignment: %v", err)
	}
	if a == nil || a.Len() != 1 {
		t.Fatalf("alignment = %+v", a)
	}
	if a.Segment(0).EndMs != 1500 {
		t.Fatalf("EndMs = %d, want 1500", a.Segment(0).EndMs)
	}
}

func TestParseLanguage(t *testing.T) {
	if _, err := ParseLanguage("ENG"); err != nil {
		t.Fatalf("ParseLanguage should be case-insensitive: %v", err)
	}
	if _, err := ParseLanguage("xx"); err == nil {
		t.Fatal("unknown code accepted")
	}
}
