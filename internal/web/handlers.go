package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"example.com/pdfmerge/internal/filelist"
	"example.com/pdfmerge/internal/library"
	"example.com/pdfmerge/internal/session"
	"example.com/pdfmerge/internal/source"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, err := s.workspace(w, r); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := struct {
		Library bool
		Remote  bool
	}{s.opts.LibraryRoot != "", s.opts.Fetcher != nil}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, data); err != nil {
		s.log.Warn().Err(err).Msg("[http] render page")
	}
}

// stateResponse is what every list endpoint returns.
type stateResponse struct {
	session.State
	Skipped []string `json:"skipped,omitempty"`
}

// respondState writes the workspace state and clears the filtered notice,
// which is shown once.
func (s *Server) respondState(w http.ResponseWriter, ws *session.Workspace, skipped []string) {
	st := ws.State()
	ws.ClearNotice()
	rows := make([]filelist.Row, len(st.View.Rows))
	for i, row := range st.View.Rows {
		row.Name = s.displayName(row.Name)
		rows[i] = row
	}
	st.View.Rows = rows
	s.writeJSON(w, http.StatusOK, stateResponse{State: st, Skipped: skipped})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondState(w, ws, nil)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooBig.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad upload: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["files"]
	cands := make([]source.Descriptor, 0, len(parts))
	var skipped []string
	for _, fh := range parts {
		// Only admissible files are worth spooling; the rest still count
		// toward the filtered notice.
		d := source.Descriptor{Name: fh.Filename, Size: fh.Size, MediaType: fh.Header.Get("Content-Type")}
		if d.Admissible() {
			d, err = ws.Spool().AddPart(fh)
			if err != nil {
				s.log.Warn().Err(err).Str("file", fh.Filename).Msg("[skip] upload")
				skipped = append(skipped, s.displayName(fh.Filename))
				continue
			}
		}
		cands = append(cands, d)
	}
	ws.Append(cands)
	s.respondState(w, ws, skipped)
}

func (s *Server) handleAddURLs(w http.ResponseWriter, r *http.Request) {
	if s.opts.Fetcher == nil {
		s.writeError(w, http.StatusNotFound, errors.New("remote sources are disabled"))
		return
	}
	ws, err := s.workspace(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	var in struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("bad request"))
		return
	}
	var (
		cands   []source.Descriptor
		skipped []string
	)
	for _, u := range in.URLs {
		d, err := s.opts.Fetcher.Resolve(r.Context(), u)
		if err != nil {
			s.log.Info().Err(err).Str("url", u).Msg("[skip] remote source")
			skipped = append(skipped, u)
			continue
		}
		cands = append(cands, d)
	}
	ws.Append(cands)
	s.respondState(w, ws, skipped)
}

func (s *Server) handleAddLibrary(w http.ResponseWriter, r *http.Request) {
	if s.opts.LibraryRoot == "" {
		s.writeError(w, http.StatusNotFound, errors.New("no library configured"))
		return
	}
	ws, err := s.workspace(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	var in struct {
		Files []string `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("bad request"))
		return
	}
	cands := make([]source.Descriptor, 0, len(in.Files))
	for _, rel := range in.Files {
		d, err := library.Resolve(s.opts.LibraryRoot, rel)
		switch {
		case errors.Is(err, library.ErrOutsideRoot):
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid path %q", rel))
			return
		case err != nil:
			s.writeError(w, http.StatusNotFound, fmt.Errorf("file not found: %s", rel))
			return
		}
		cands = append(cands, d)
	}
	ws.Append(cands)
	s.respondState(w, ws, nil)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("bad index"))
		return
	}
	switch r.PathValue("dir") {
	case "up":
		ws.List().MoveUp(i)
	case "down":
		ws.List().MoveDown(i)
	default:
		s.writeError(w, http.StatusNotFound, errors.New("unknown move"))
		return
	}
	s.respondState(w, ws, nil)
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	var in struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("bad request"))
		return
	}
	ws.List().Swap(in.A, in.B)
	s.respondState(w, ws, nil)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("bad index"))
		return
	}
	ws.List().Remove(i)
	s.respondState(w, ws, nil)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	// A merge runs to completion even if the client goes away.
	res, err := ws.Merge(context.WithoutCancel(r.Context()))
	if err != nil {
		code := mergeStatusCode(err)
		if code >= 500 {
			s.log.Error().Err(err).Str("session", ws.ID).Msg("[merge] failed")
		}
		s.writeError(w, code, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		OK int `json:"ok"`
		session.Result
	}{1, res})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	st := ws.State()
	st.Progress.Name = s.displayName(st.Progress.Name)
	s.writeJSON(w, http.StatusOK, struct {
		Merging  bool   `json:"merging"`
		Progress any    `json:"progress"`
		Error    string `json:"error,omitempty"`
	}{st.Merging, st.Progress, st.Error})
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	if s.opts.LibraryRoot == "" {
		s.writeJSON(w, http.StatusOK, struct {
			Items []library.Item `json:"items"`
		}{[]library.Item{}})
		return
	}
	items, err := library.Scan(s.opts.LibraryRoot, s.opts.MaxScan)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []library.Item{}
	}
	s.log.Debug().Int("files", len(items)).Str("root", s.opts.LibraryRoot).Msg("[scan] library")
	s.writeJSON(w, http.StatusOK, struct {
		Items []library.Item `json:"items"`
	}{items})
}

// handleLibraryFile serves a library PDF inline for preview.
func (s *Server) handleLibraryFile(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("rel")
	if rel == "" || s.opts.LibraryRoot == "" {
		http.Error(w, "missing rel", http.StatusBadRequest)
		return
	}
	p, err := library.Path(s.opts.LibraryRoot, rel)
	if err != nil {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", source.MediaTypePDF)
	http.ServeFile(w, r, p)
}
