// Package web serves the browser front end: one page, a JSON API over the
// session's file list, the merge trigger and the download URLs.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"example.com/pdfmerge/internal/download"
	"example.com/pdfmerge/internal/merge"
	"example.com/pdfmerge/internal/metrics"
	"example.com/pdfmerge/internal/remote"
	"example.com/pdfmerge/internal/session"
)

const (
	cookieName       = "pdfmerge_session"
	defaultMaxUpload = 256 << 20
	multipartMemory  = 32 << 20
)

// Options wires the server's collaborators. Fetcher, Metrics and
// LibraryRoot are optional.
type Options struct {
	Sessions    *session.Manager
	Downloads   *download.Store
	Fetcher     *remote.Fetcher
	Metrics     *metrics.Metrics
	LibraryRoot string
	MaxScan     int
	MaxUpload   int64
	Log         zerolog.Logger
}

// Server is the HTTP front end.
type Server struct {
	opts   Options
	policy *bluemonday.Policy
	log    zerolog.Logger
	mux    *http.ServeMux
}

// New builds the server and its routes.
func New(opts Options) *Server {
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = defaultMaxUpload
	}
	s := &Server{
		opts:   opts,
		policy: bluemonday.StrictPolicy(),
		log:    opts.Log,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	s.mux.HandleFunc("GET /api/files", s.handleFiles)
	s.mux.HandleFunc("POST /api/files", s.handleUpload)
	s.mux.HandleFunc("POST /api/files/url", s.handleAddURLs)
	s.mux.HandleFunc("POST /api/files/library", s.handleAddLibrary)
	s.mux.HandleFunc("POST /api/files/swap", s.handleSwap)
	s.mux.HandleFunc("POST /api/files/{index}/{dir}", s.handleMove)
	s.mux.HandleFunc("DELETE /api/files/{index}", s.handleRemove)

	s.mux.HandleFunc("POST /api/merge", s.handleMerge)
	s.mux.HandleFunc("GET /api/merge/status", s.handleStatus)

	s.mux.HandleFunc("GET /api/library", s.handleLibrary)
	s.mux.HandleFunc("GET /library/file", s.handleLibraryFile)

	if s.opts.Downloads != nil {
		s.mux.HandleFunc("GET /download/{token}", func(w http.ResponseWriter, r *http.Request) {
			s.opts.Downloads.ServeToken(w, r, r.PathValue("token"))
		})
	}
	if s.opts.Metrics != nil {
		s.mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Str("root", s.opts.LibraryRoot).Msg("[http] listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		ev := s.log.Debug()
		if sw.code >= 500 {
			ev = s.log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.code).
			Dur("took", time.Since(start)).
			Msg("[http] request")
	})
}

// workspace returns the caller's workspace, creating one (and its cookie)
// when the cookie is missing or the session has expired.
func (s *Server) workspace(w http.ResponseWriter, r *http.Request) (*session.Workspace, error) {
	if c, err := r.Cookie(cookieName); err == nil {
		if ws, ok := s.opts.Sessions.Get(c.Value); ok {
			return ws, nil
		}
	}
	ws, err := s.opts.Sessions.Create()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    ws.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return ws, nil
}

// displayName strips markup from a client-supplied file name. The page
// renders names as text, so entities are decoded again.
func (s *Server) displayName(name string) string {
	return html.UnescapeString(s.policy.Sanitize(name))
}

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error string      `json:"error"`
	Stage merge.Stage `json:"stage,omitempty"`
	Index *int        `json:"index,omitempty"`
	File  string      `json:"file,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("[http] write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	body := errorBody{Error: err.Error(), Stage: merge.StageOf(err)}
	if f, ok := merge.FailedFile(err); ok {
		idx := f.Index
		body.Index = &idx
		body.File = s.displayName(f.Name)
	}
	s.writeJSON(w, code, body)
}

// mergeStatusCode maps a merge error to an HTTP status.
func mergeStatusCode(err error) int {
	if errors.Is(err, session.ErrMergeInFlight) {
		return http.StatusConflict
	}
	switch merge.StageOf(err) {
	case merge.StageInput:
		return http.StatusBadRequest
	case merge.StageRead, merge.StageParse, merge.StageCopy:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
