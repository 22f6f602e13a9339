package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"example.com/pdfmerge/internal/download"
	"example.com/pdfmerge/internal/filelist"
	"example.com/pdfmerge/internal/merge"
)

// programRef survives model copies so the merge goroutine can reach the
// running program.
type programRef struct {
	mu      sync.RWMutex
	program *tea.Program
}

func (r *programRef) SetProgram(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

func (r *programRef) Send(msg tea.Msg) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// ProgressMsg carries one merge progress report.
type ProgressMsg merge.Progress

// MergeDoneMsg ends a merge. Where is the delivered path on success.
type MergeDoneMsg struct {
	Where string
	Pages int
	Err   error
}

// progressBridge forwards orchestrator progress to the program.
type progressBridge struct {
	ref *programRef
}

var _ merge.ProgressReporter = (*progressBridge)(nil)

func (b *progressBridge) Report(p merge.Progress) { b.ref.Send(ProgressMsg(p)) }

// mergeCmd runs one merge over files and delivers the artifact to sink.
func mergeCmd(ctx context.Context, ref *programRef, orch *merge.Orchestrator, sink download.Sink, files []filelist.Entry) tea.Cmd {
	return func() tea.Msg {
		art, err := orch.Merge(ctx, files, &progressBridge{ref: ref})
		if err != nil {
			return MergeDoneMsg{Err: err}
		}
		where, err := sink.Deliver(ctx, art)
		if err != nil {
			return MergeDoneMsg{Err: err}
		}
		return MergeDoneMsg{Where: where, Pages: art.Pages}
	}
}
