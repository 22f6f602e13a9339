// Package tui is a terminal front end over the ordered file list: the user
// reorders and prunes the files given on the command line, then merges them
// into the output path.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"example.com/pdfmerge/internal/download"
	"example.com/pdfmerge/internal/filelist"
	"example.com/pdfmerge/internal/merge"
	"example.com/pdfmerge/internal/source"
)

// viewSink receives renders from the list. It is shared by every copy of
// the model.
type viewSink struct {
	view     filelist.View
	filtered int
}

func (s *viewSink) Render(v filelist.View) { s.view = v }
func (s *viewSink) Filtered(n int)         { s.filtered = n }

// Options configure the TUI.
type Options struct {
	Files        []source.Descriptor
	Orchestrator *merge.Orchestrator
	Sink         download.Sink
	Output       string
}

// Model is the bubbletea model of the merge screen.
type Model struct {
	list   *filelist.List
	sink   *viewSink
	cursor int

	keymap  KeyMap
	help    help.Model
	spinner spinner.Model

	merging  bool
	progress merge.Progress
	result   string
	err      error

	ctx    context.Context
	cancel context.CancelFunc
	orch   *merge.Orchestrator
	out    download.Sink
	output string
	ref    *programRef
}

// NewModel builds the model and appends opts.Files to a fresh list.
func NewModel(ctx context.Context, opts Options) Model {
	ctx, cancel := context.WithCancel(ctx)
	vs := &viewSink{}
	l := filelist.New(vs, vs)
	l.Append(opts.Files)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	return Model{
		list:    l,
		sink:    vs,
		keymap:  DefaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		ctx:     ctx,
		cancel:  cancel,
		orch:    opts.Orchestrator,
		out:     opts.Sink,
		output:  opts.Output,
		ref:     &programRef{},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case ProgressMsg:
		m.progress = merge.Progress(msg)
		return m, nil

	case MergeDoneMsg:
		m.merging = false
		m.err = msg.Err
		if msg.Err == nil {
			m.result = fmt.Sprintf("Wrote %s (%d pages)", msg.Where, msg.Pages)
		} else {
			m.result = ""
		}
		return m, nil

	case spinner.TickMsg:
		if !m.merging {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.list.Len()
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keymap.Down):
		if m.cursor < n-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keymap.MoveUp):
		if m.list.MoveUp(m.cursor) {
			m.cursor--
		}

	case key.Matches(msg, m.keymap.MoveDown):
		if m.list.MoveDown(m.cursor) {
			m.cursor++
		}

	case key.Matches(msg, m.keymap.Remove):
		if m.list.Remove(m.cursor) && m.cursor >= m.list.Len() && m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keymap.Merge):
		if m.merging {
			return m, nil
		}
		m.merging = true
		m.err = nil
		m.result = ""
		m.progress = merge.Progress{}
		return m, tea.Batch(m.spinner.Tick, m.startMerge())
	}
	return m, nil
}

func (m Model) startMerge() tea.Cmd {
	return mergeCmd(m.ctx, m.ref, m.orch, m.out, m.list.Snapshot())
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("PDF Merger"))
	b.WriteString("\n")

	b.WriteString(panelStyle.Render(m.rows()))
	b.WriteString("\n")

	if m.sink.filtered > 0 {
		b.WriteString(noticeStyle.Render(fmt.Sprintf("%d non-PDF file(s) were filtered out.", m.sink.filtered)))
		b.WriteString("\n")
	}
	if s := m.status(); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}

func (m Model) rows() string {
	v := m.sink.view
	if v.Empty {
		return placeholderStyle.Render("No files. Pass PDF paths on the command line.")
	}
	lines := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		marker := "  "
		style := rowStyle
		if i == m.cursor {
			marker = "› "
			style = cursorStyle
		}
		lines[i] = marker + style.Render(fmt.Sprintf("%2d. %s", r.Position+1, r.Name)) + "  " + sizeStyle.Render(r.SizeLabel)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) status() string {
	switch {
	case m.merging:
		if m.progress.Total > 0 {
			return fmt.Sprintf("%s Merging (%d/%d): %s", m.spinner.View(), m.progress.Current, m.progress.Total, m.progress.Name)
		}
		return m.spinner.View() + " Merging..."
	case m.err != nil:
		msg := "Merge failed: " + m.err.Error()
		if f, ok := merge.FailedFile(m.err); ok {
			msg = fmt.Sprintf("Merge failed at %q (%s): %v", f.Name, merge.StageOf(m.err), m.err)
		}
		return errorStyle.Render(msg)
	case m.result != "":
		return successStyle.Render(m.result)
	}
	return ""
}

// Err returns the error of the last merge, if any.
func (m Model) Err() error { return m.err }

// Run starts the program and blocks until the user quits. It returns the
// error of the last merge attempt, if the user quit after a failure.
func Run(ctx context.Context, opts Options) error {
	model := NewModel(ctx, opts)
	defer model.cancel()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.ref.SetProgram(p)

	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.Err()
	}
	return nil
}
