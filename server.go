package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KCErb/Gospel-Language-Study/talks"
	"github.com/KCErb/Gospel-Language-Study/vocab"
)

type server struct {
	repo  talks.FSRepo
	svc   talks.Service
	vocab vocab.SQLiteRepo
}

func newServer(repo talks.FSRepo, vocabRepo vocab.SQLiteRepo) http.Handler {
	s := &server{repo: repo, svc: talks.NewService(repo), vocab: vocabRepo}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/talks", s.handleListTalks)
	mux.HandleFunc("GET /api/talks/{id}", s.handleGetTalk)
	mux.HandleFunc("GET /api/playback/text/{id}/{lang}", s.handleText)
	mux.HandleFunc("GET /api/playback/alignment/{id}/{lang}", s.handleAlignment)
	mux.HandleFunc("GET /api/playback/audio/{id}/{lang}", s.handleAudio)
	mux.HandleFunc("GET /api/vocab", s.handleListVocab)
	mux.HandleFunc("POST /api/vocab", s.handleSaveVocab)
	mux.HandleFunc("GET /api/vocab/search", s.handleSearchVocab)
	mux.HandleFunc("DELETE /api/vocab/{id}", s.handleDeleteVocab)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type talkResponse struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Speaker    string   `json:"speaker"`
	Date       string   `json:"date"`
	Conference string   `json:"conference"`
	Languages  []string `json:"available_languages"`
}

func talkToResponse(t talks.Talk) talkResponse {
	langs := make([]string, len(t.Languages))
	for n, l := range t.Languages {
		langs[n] = string(l)
	}
	return talkResponse{
		ID:         t.ID,
		Title:      t.Title,
		Speaker:    t.Speaker,
		Date:       t.Date.Format(time.RFC3339),
		Conference: t.Conference,
		Languages:  langs,
	}
}

func (s *server) handleListTalks(w http.ResponseWriter, r *http.Request) {
	all, err := s.repo.Talks()
	if err != nil {
		slog.Error("listing talks", "err", err)
		httpError(w, http.StatusInternalServerError, "could not list talks")
		return
	}
	res := make([]talkResponse, len(all))
	for n, t := range all {
		res[n] = talkToResponse(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"talks": res})
}

func (s *server) handleGetTalk(w http.ResponseWriter, r *http.Request) {
	t, err := s.repo.Talk(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, talks.ErrNotFound) {
			httpError(w, http.StatusNotFound, "talk not found")
			return
		}
		slog.Error("getting talk", "id", r.PathValue("id"), "err", err)
		httpError(w, http.StatusInternalServerError, "could not load talk")
		return
	}
	writeJSON(w, http.StatusOK, talkToResponse(t))
}

func (s *server) version(w http.ResponseWriter, r *http.Request) (talks.Version, bool) {
	lang, err := talks.ParseLanguage(r.PathValue("lang"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return talks.Version{}, false
	}
	v, err := s.repo.Version(r.PathValue("id"), lang)
	if err != nil {
		if errors.Is(err, talks.ErrNotFound) {
			httpError(w, http.StatusNotFound,
				fmt.Sprintf("talk %q not found in language %q", r.PathValue("id"), lang))
			return talks.Version{}, false
		}
		slog.Error("loading version", "id", r.PathValue("id"), "lang", lang, "err", err)
		httpError(w, http.StatusInternalServerError, "could not load talk version")
		return talks.Version{}, false
	}
	return v, true
}

func (s *server) handleText(w http.ResponseWriter, r *http.Request) {
	v, ok := s.version(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"talk_id":       v.TalkID,
		"language":      string(v.Language),
		"text_content":  v.Text,
		"has_alignment": v.HasAlignment(),
	})
}

type (
	wordResponse struct {
		Word       string  `json:"word"`
		StartTime  float64 `json:"start_time"`
		EndTime    float64 `json:"end_time"`
		Confidence float64 `json:"confidence"`
	}

	segmentResponse struct {
		SegmentID string         `json:"segment_id"`
		Text      string         `json:"text"`
		StartTime float64        `json:"start_time"`
		EndTime   float64        `json:"end_time"`
		Words     []wordResponse `json:"words"`
	}
)

func (s *server) handleAlignment(w http.ResponseWriter, r *http.Request) {
	lang, err := talks.ParseLanguage(r.PathValue("lang"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	a, err := s.svc.Alignment(r.Context(), id, lang)
	if err != nil {
		slog.Error("loading alignment", "id", id, "lang", lang, "err", err)
		httpError(w, http.StatusInternalServerError, "could not load alignment")
		return
	}
	if a == nil {
		httpError(w, http.StatusNotFound, fmt.Sprintf(
			"alignment not yet generated for %q in %q; playback works without highlighting", id, lang))
		return
	}

	segments := make([]segmentResponse, a.Len())
	for n, seg := range a.Segments() {
		words := make([]wordResponse, 0, len(seg.Words))
		for _, word := range seg.Words {
			if !word.Timed {
				continue
			}
			words = append(words, wordResponse{
				Word:       word.Text,
				StartTime:  seconds(word.StartMs),
				EndTime:    seconds(word.EndMs),
				Confidence: word.Confidence,
			})
		}
		segments[n] = segmentResponse{
			SegmentID: seg.ID,
			Text:      seg.Text,
			StartTime: seconds(seg.StartMs),
			EndTime:   seconds(seg.EndMs),
			Words:     words,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"talk_id":  id,
		"language": string(lang),
		"segments": segments,
	})
}

func (s *server) handleAudio(w http.ResponseWriter, r *http.Request) {
	v, ok := s.version(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("ETag", `"`+v.AudioFingerprint+`"`)
	http.ServeFile(w, r, v.AudioPath)
}

func (s *server) handleListVocab(w http.ResponseWriter, r *http.Request) {
	items, err := s.vocab.ByUser(r.Context(), userID(r))
	if err != nil {
		slog.Error("listing vocab", "err", err)
		httpError(w, http.StatusInternalServerError, "could not list vocabulary")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": emptyNotNil(items)})
}

func (s *server) handleSaveVocab(w http.ResponseWriter, r *http.Request) {
	var item vocab.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		httpError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if item.SourceText == "" || item.TargetText == "" {
		httpError(w, http.StatusBadRequest, "source_text and target_text are required")
		return
	}
	if item.UserID == "" {
		item.UserID = "default-user"
	}
	if item.ID == "" {
		fresh := vocab.NewItem(item.UserID, item.SourceLanguage, item.TargetLanguage,
			item.SourceText, item.TargetText)
		fresh.ContextSentence = item.ContextSentence
		fresh.TalkID = item.TalkID
		fresh.AudioStartMs = item.AudioStartMs
		fresh.AudioEndMs = item.AudioEndMs
		item = fresh
	}
	if err := s.vocab.Save(r.Context(), item); err != nil {
		slog.Error("saving vocab item", "err", err)
		httpError(w, http.StatusInternalServerError, "could not save vocabulary item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *server) handleSearchVocab(w http.ResponseWriter, r *http.Request) {
	var lang talks.Language
	if code := r.URL.Query().Get("lang"); code != "" {
		parsed, err := talks.ParseLanguage(code)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		lang = parsed
	}
	items, err := s.vocab.Search(r.Context(), userID(r), r.URL.Query().Get("q"), lang)
	if err != nil {
		slog.Error("searching vocab", "err", err)
		httpError(w, http.StatusInternalServerError, "could not search vocabulary")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": emptyNotNil(items)})
}

func (s *server) handleDeleteVocab(w http.ResponseWriter, r *http.Request) {
	err := s.vocab.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, vocab.ErrNotFound) {
			httpError(w, http.StatusNotFound, "vocabulary item not found")
			return
		}
		slog.Error("deleting vocab item", "err", err)
		httpError(w, http.StatusInternalServerError, "could not delete vocabulary item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userID(r *http.Request) string {
	if u := r.URL.Query().Get("user"); u != "" {
		return u
	}
	return "default-user"
}

func seconds(ms int64) float64 {
	return float64(ms) / 1000
}

func emptyNotNil(items []vocab.Item) []vocab.Item {
	if items == nil {
		return []vocab.Item{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "err", err)
	}
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"detail": msg})
}
