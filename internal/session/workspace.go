// Package session owns per-user workspaces: one ordered file list, its
// uploaded files, and the merge trigger that guards against overlapping
// merges.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"example.com/pdfmerge/internal/download"
	"example.com/pdfmerge/internal/filelist"
	"example.com/pdfmerge/internal/merge"
	"example.com/pdfmerge/internal/source"
)

// ErrMergeInFlight is returned when a merge is triggered while another one
// of the same workspace is still running.
var ErrMergeInFlight = errors.New("a merge is already running")

// AppendObserver is told about every Append outcome.
type AppendObserver interface {
	ObserveAppend(accepted, filtered int)
}

// Deps are the collaborators shared by all workspaces.
type Deps struct {
	Orchestrator *merge.Orchestrator
	Sink         download.Sink
	SpoolParent  string
	Observer     AppendObserver
	Log          zerolog.Logger
}

// Result is a delivered merge.
type Result struct {
	URL      string `json:"download"`
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
	Bytes    int    `json:"bytes"`
}

// Workspace is one session's state. It renders the list into an in-memory
// view that front ends read back.
type Workspace struct {
	ID string

	list    *filelist.List
	spool   *source.Spool
	guard   *semaphore.Weighted
	merging atomic.Bool
	deps    Deps
	log     zerolog.Logger

	mu       sync.Mutex
	view     filelist.View
	version  uint64
	filtered int
	progress merge.Progress
	lastErr  error
	lastUsed time.Time
}

// NewWorkspace creates a workspace with an empty list and its own spool dir.
func NewWorkspace(id string, deps Deps) (*Workspace, error) {
	sp, err := source.NewSpool(deps.SpoolParent)
	if err != nil {
		return nil, err
	}
	w := &Workspace{
		ID:       id,
		spool:    sp,
		guard:    semaphore.NewWeighted(1),
		deps:     deps,
		log:      deps.Log.With().Str("session", id).Logger(),
		lastUsed: time.Now(),
		progress: merge.Progress{Status: merge.StatusPending},
	}
	w.list = filelist.New(filelist.RendererFunc(w.render), filelist.NotifierFunc(w.notice))
	w.list.Refresh()
	return w, nil
}

func (w *Workspace) render(v filelist.View) {
	w.mu.Lock()
	w.view = v
	w.version++
	w.mu.Unlock()
}

func (w *Workspace) notice(n int) {
	w.mu.Lock()
	w.filtered = n
	w.mu.Unlock()
	w.log.Info().Int("filtered", n).Msg("[add] non-PDF files filtered")
}

func (w *Workspace) touch() {
	w.mu.Lock()
	w.lastUsed = time.Now()
	w.mu.Unlock()
}

// List exposes the ordered file list.
func (w *Workspace) List() *filelist.List {
	w.touch()
	return w.list
}

// Spool is where uploads of this workspace are stored.
func (w *Workspace) Spool() *source.Spool { return w.spool }

// Append admits candidates into the list.
func (w *Workspace) Append(cands []source.Descriptor) filelist.AppendResult {
	w.touch()
	res := w.list.Append(cands)
	if w.deps.Observer != nil {
		w.deps.Observer.ObserveAppend(res.Accepted, res.Filtered)
	}
	return res
}

// State is a consistent read of what the view shows.
type State struct {
	View     filelist.View  `json:"view"`
	Version  uint64         `json:"version"`
	Filtered int            `json:"filtered,omitempty"`
	Merging  bool           `json:"merging"`
	Progress merge.Progress `json:"progress"`
	Error    string         `json:"error,omitempty"`
}

// State returns the last rendered view and the merge status.
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := State{
		View:     w.view,
		Version:  w.version,
		Filtered: w.filtered,
		Merging:  w.merging.Load(),
		Progress: w.progress,
	}
	if w.lastErr != nil {
		s.Error = w.lastErr.Error()
	}
	return s
}

// ClearNotice resets the filtered-count notice once a view has shown it.
func (w *Workspace) ClearNotice() {
	w.mu.Lock()
	w.filtered = 0
	w.mu.Unlock()
}

// Merge merges a snapshot of the list and delivers the artifact. Only one
// merge per workspace runs at a time; the trigger is available again after
// every outcome.
func (w *Workspace) Merge(ctx context.Context) (Result, error) {
	if !w.guard.TryAcquire(1) {
		return Result{}, ErrMergeInFlight
	}
	w.merging.Store(true)
	defer func() {
		w.merging.Store(false)
		w.guard.Release(1)
	}()
	w.touch()

	w.setError(nil)
	files := w.list.Snapshot()
	art, err := w.deps.Orchestrator.Merge(ctx, files, merge.ProgressFunc(w.setProgress))
	if err != nil {
		w.setError(err)
		return Result{}, err
	}
	u, err := w.deps.Sink.Deliver(ctx, art)
	if err != nil {
		w.setError(err)
		return Result{}, err
	}
	return Result{URL: u, Filename: art.Filename, Pages: art.Pages, Bytes: len(art.Data)}, nil
}

func (w *Workspace) setProgress(p merge.Progress) {
	w.mu.Lock()
	w.progress = p
	w.mu.Unlock()
}

func (w *Workspace) setError(err error) {
	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()
}

// IdleSince returns the time of the last use.
func (w *Workspace) IdleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// Close empties the list and removes the spooled uploads.
func (w *Workspace) Close() error {
	w.list.Clear()
	return w.spool.Close()
}
