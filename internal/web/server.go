// Package web serves the archive browsing surface: a capture trigger, the
// list of archived dates, the documents under a date, and the blobs
// themselves. It reads exclusively from the archive store, so it works the
// same over the local and GCS backends.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hmuro/slack-archiver/internal/archive/pipeline"
	"github.com/hmuro/slack-archiver/internal/archive/store"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// CaptureFunc runs one capture and reports its summary.
type CaptureFunc func(ctx context.Context) (pipeline.Summary, error)

type Server struct {
	store   store.Store
	capture CaptureFunc
	users   map[string]string
	logger  *zerolog.Logger

	// busy enforces the single-run discipline: concurrent triggers get a
	// conflict response instead of a second pipeline.
	busy atomic.Bool
}

func NewServer(s store.Store, capture CaptureFunc, users map[string]string, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "web").Logger()

	return &Server{
		store:   s,
		capture: capture,
		users:   users,
		logger:  &l,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if len(s.users) > 0 {
		r.Use(middleware.BasicAuth("archive", s.users))
	}

	r.Get("/capture", s.handleCapture)
	r.Get("/archive", s.handleDates)
	// Documents reference avatars as "../avatars/…", which resolves here.
	r.Get("/archive/avatars/*", s.handleAvatar)
	r.Get("/archive/{date}", s.handleDateIndex)
	r.Get("/archive/{date}/*", s.handleBlob)

	return r
}

// handleCapture triggers one capture run synchronously. The run keeps going
// if the client disconnects; re-runs are cheap thanks to store-level dedup.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if !s.busy.CompareAndSwap(false, true) {
		http.Error(w, "capture already in progress", http.StatusConflict)
		return
	}
	defer s.busy.Store(false)

	summary, err := s.capture(context.WithoutCancel(r.Context()))
	if err != nil {
		s.logger.Error().Err(err).Msg("capture run failed")
		http.Error(w, "capture failed", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	dirs, err := s.store.ListDirs(r.Context(), "")
	if err != nil {
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}

	var dates []string

	for _, dir := range dirs {
		if datePattern.MatchString(dir) {
			dates = append(dates, dir)
		}
	}

	// Newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var sb strings.Builder

	sb.WriteString("<h1>Archive</h1><ul>")

	for _, date := range dates {
		fmt.Fprintf(&sb, `<li><a href="/archive/%s">%s</a></li>`, date, date)
	}

	sb.WriteString("</ul>")

	writeHTML(w, http.StatusOK, sb.String())
}

func (s *Server) handleDateIndex(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if !datePattern.MatchString(date) {
		http.NotFound(w, r)
		return
	}

	keys, err := s.store.ListPrefix(r.Context(), date+"/")
	if err != nil {
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "<h1>%s</h1><ul>", date)

	count := 0

	for _, key := range keys {
		name := strings.TrimPrefix(key, date+"/")
		if !strings.HasSuffix(name, ".html") || strings.Contains(name, "/") {
			continue
		}

		fmt.Fprintf(&sb, `<li><a href="/archive/%s/%s">%s</a></li>`, date, name, name)

		count++
	}

	sb.WriteString("</ul>")

	if count == 0 {
		writeHTML(w, http.StatusNotFound, fmt.Sprintf("<h1>no archive for %s</h1>", date))
		return
	}

	writeHTML(w, http.StatusOK, sb.String())
}

func (s *Server) handleAvatar(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "*")
	if file == "" || strings.Contains(file, "..") || strings.Contains(file, "/") {
		http.NotFound(w, r)
		return
	}

	s.streamBlob(w, r, "avatars/"+file)
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	rest := chi.URLParam(r, "*")

	if rest == "" || !datePattern.MatchString(date) || strings.Contains(rest, "..") {
		http.NotFound(w, r)
		return
	}

	s.streamBlob(w, r, date+"/"+rest)
}

func (s *Server) streamBlob(w http.ResponseWriter, r *http.Request, key string) {
	body, contentType, err := s.store.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}

		http.Error(w, "archive unavailable", http.StatusInternalServerError)

		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)

	if _, err := io.Copy(w, body); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("blob stream interrupted")
	}
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
