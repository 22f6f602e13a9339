// Package download hands merged artifacts to the user.
//
// Store keeps each artifact behind a one-off token URL and releases it after
// a fixed delay, whether or not it was fetched: the server cannot observe
// when the browser has finished consuming it. FileSink writes the artifact
// to disk for the terminal front ends.
package download

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/pdfmerge/internal/merge"
)

// Sink delivers an artifact and returns where it went (URL or path).
type Sink interface {
	Deliver(ctx context.Context, a *merge.Artifact) (string, error)
}

// Hooks observe held artifacts, e.g. for metrics.
type Hooks struct {
	Held     func()
	Released func()
}

type held struct {
	art   *merge.Artifact
	timer *time.Timer
}

// Store is an in-memory Sink serving artifacts over HTTP.
type Store struct {
	mu     sync.Mutex
	items  map[string]*held
	ttl    time.Duration
	prefix string
	hooks  Hooks
	log    zerolog.Logger
}

// NewStore returns a store whose URLs start with prefix (e.g. "/download/")
// and whose artifacts are released ttl after delivery.
func NewStore(prefix string, ttl time.Duration, hooks Hooks, log zerolog.Logger) *Store {
	return &Store{
		items:  make(map[string]*held),
		ttl:    ttl,
		prefix: prefix,
		hooks:  hooks,
		log:    log,
	}
}

// Deliver implements Sink.
func (s *Store) Deliver(_ context.Context, a *merge.Artifact) (string, error) {
	if a == nil {
		return "", fmt.Errorf("nil artifact")
	}
	token := uuid.NewString()

	s.mu.Lock()
	s.items[token] = &held{
		art:   a,
		timer: time.AfterFunc(s.ttl, func() { s.release(token) }),
	}
	s.mu.Unlock()

	if s.hooks.Held != nil {
		s.hooks.Held()
	}
	s.log.Debug().Str("token", token).Int("bytes", len(a.Data)).Dur("ttl", s.ttl).Msg("[download] held")
	return s.prefix + token, nil
}

func (s *Store) release(token string) {
	s.mu.Lock()
	h, ok := s.items[token]
	if ok {
		delete(s.items, token)
		h.timer.Stop()
	}
	s.mu.Unlock()

	if ok {
		if s.hooks.Released != nil {
			s.hooks.Released()
		}
		s.log.Debug().Str("token", token).Msg("[download] released")
	}
}

// Get returns the artifact for token if it has not been released.
func (s *Store) Get(token string) (*merge.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.items[token]
	if !ok {
		return nil, false
	}
	return h.art, true
}

// Len returns the number of held artifacts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// ServeToken writes the artifact for token as an attachment.
func (s *Store) ServeToken(w http.ResponseWriter, r *http.Request, token string) {
	a, ok := s.Get(token)
	if !ok {
		http.Error(w, "download expired or unknown", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", a.MediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(a.Data)
}

// Close releases every held artifact.
func (s *Store) Close() {
	s.mu.Lock()
	tokens := make([]string, 0, len(s.items))
	for t := range s.items {
		tokens = append(tokens, t)
	}
	s.mu.Unlock()
	for _, t := range tokens {
		s.release(t)
	}
}

// FileSink writes artifacts to Path, replacing it atomically.
type FileSink struct {
	Path string
}

// Deliver implements Sink.
func (f FileSink) Deliver(ctx context.Context, a *merge.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".pdfmerge_*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return f.Path, nil
}
