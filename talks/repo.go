package talks

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KCErb/Gospel-Language-Study/b3"
)

// FSRepo reads talk data from the filesystem:
//
//	root/
//	    {talkID}/
//	        {lang}/
//	            *.mp3
//	            *.txt
//	            alignment.json (optional)
//
// A language counts as available only when both text and audio exist.
type FSRepo struct {
	root string
}

func NewFSRepo(root string) FSRepo {
	return FSRepo{root: root}
}

var (
	datePrefixRe = regexp.MustCompile(`^(\d{4})-(\d{2})`)
	speakerSufRe = regexp.MustCompile(`-([a-z]+)$`)
	dateLineRe   = regexp.MustCompile(`^\d+/\d+/\d+`)
	pageNumberRe = regexp.MustCompile(`^\d+/\d+$`)
)

func (r FSRepo) Talks() ([]Talk, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing talks dir: %w", err)
	}

	var res []Talk
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		t, err := r.loadTalk(e.Name())
		if err != nil {
			continue // a broken directory never hides the rest of the catalog
		}
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.After(res[j].Date) })
	return res, nil
}

func (r FSRepo) Talk(id string) (Talk, error) {
	if _, err := os.Stat(filepath.Join(r.root, id)); err != nil {
		return Talk{}, fmt.Errorf("talk %q: %w", id, ErrNotFound)
	}
	t, err := r.loadTalk(id)
	if err != nil {
		return Talk{}, fmt.Errorf("loading talk %q: %w", id, err)
	}
	return t, nil
}

func (r FSRepo) Version(id string, lang Language) (Version, error) {
	dir := filepath.Join(r.root, id, string(lang))
	textPath := findByExt(dir, ".txt")
	audioPath := findByExt(dir, ".mp3")
	if textPath == "" || audioPath == "" {
		return Version{}, fmt.Errorf("talk %q language %q: %w", id, lang, ErrNotFound)
	}

	text, err := os.ReadFile(textPath)
	if err != nil {
		return Version{}, fmt.Errorf("reading text %s: %w", textPath, err)
	}

	fingerprint, err := b3.FingerprintFile(audioPath)
	if err != nil {
		return Version{}, fmt.Errorf("fingerprinting audio: %w", err)
	}

	v := Version{
		TalkID:           id,
		Language:         lang,
		Text:             string(text),
		AudioPath:        audioPath,
		TextPath:         textPath,
		AudioFingerprint: fingerprint,
	}
	alignmentPath := filepath.Join(dir, "alignment.json")
	if _, err := os.Stat(alignmentPath); err == nil {
		v.AlignmentPath = alignmentPath
	}
	return v, nil
}

// AlignmentData returns the raw alignment.json bytes, or (nil, nil)
// when no alignment exists for the pair: absence is a signal, not an
// error.
func (r FSRepo) AlignmentData(id string, lang Language) ([]byte, error) {
	path := filepath.Join(r.root, id, string(lang), "alignment.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading alignment: %w", err)
	}
	return data, nil
}

func (r FSRepo) languages(id string) []Language {
	entries, err := os.ReadDir(filepath.Join(r.root, id))
	if err != nil {
		return nil
	}
	var res []Language
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		lang, err := ParseLanguage(e.Name())
		if err != nil {
			continue
		}
		dir := filepath.Join(r.root, id, e.Name())
		if findByExt(dir, ".txt") == "" || findByExt(dir, ".mp3") == "" {
			continue
		}
		res = append(res, lang)
	}
	return res
}

func (r FSRepo) loadTalk(id string) (Talk, error) {
	available := r.languages(id)
	if len(available) == 0 {
		return Talk{}, fmt.Errorf("talk %q has no complete language version: %w", id, ErrNotFound)
	}

	date, conference := dateFromID(id)
	t := Talk{
		ID:         id,
		Title:      r.titleFromText(id, available[0]),
		Speaker:    speakerFromID(id),
		Date:       date,
		Conference: conference,
		Languages:  available,
	}
	if t.Title == "" {
		t.Title = titleCase(strings.ReplaceAll(id, "-", " "))
	}
	return t, nil
}

// dateFromID parses directory names like "2025-10-58-oaks" into a date
// and a conference name.
func dateFromID(id string) (time.Time, string) {
	m := datePrefixRe.FindStringSubmatch(id)
	if m == nil {
		return time.Now(), "General Conference"
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		month = 1
	}
	date := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	switch month {
	case 4:
		return date, fmt.Sprintf("April %d General Conference", year)
	case 10:
		return date, fmt.Sprintf("October %d General Conference", year)
	}
	return date, fmt.Sprintf("%d General Conference", year)
}

func speakerFromID(id string) string {
	m := speakerSufRe.FindStringSubmatch(id)
	if m == nil {
		return "Unknown Speaker"
	}
	return titleCase(m[1])
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for n, w := range words {
		words[n] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// titleFromText scans the first lines of the primary-language text for
// the first substantial content line, skipping timestamps, URLs and
// page numbers left over from PDF extraction.
func (r FSRepo) titleFromText(id string, lang Language) string {
	path := findByExt(filepath.Join(r.root, id, string(lang)), ".txt")
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	for n, line := range lines {
		if n == 0 || n > 10 {
			continue // first line is a timestamp header
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "http") {
			continue
		}
		if dateLineRe.MatchString(line) || pageNumberRe.MatchString(line) {
			continue
		}
		if len(line) > 5 {
			return line
		}
	}
	return ""
}

func findByExt(dir, ext string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}
