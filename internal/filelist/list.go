// Package filelist holds the user's ordered selection of PDF candidates.
//
// The order of the list is the merge order. Every mutation is followed by a
// render notification so the attached view can redraw from state; mutations
// are serialised so one change, including its render, completes before the
// next begins.
package filelist

import (
	"sync"

	"github.com/google/uuid"

	"example.com/pdfmerge/internal/source"
)

// Entry is one admitted file. Its position is never stored on it.
type Entry struct {
	ID string
	source.Descriptor
}

// AppendResult summarises one Append call.
type AppendResult struct {
	Accepted int
	Filtered int
}

// List is the ordered file list. The zero value is not usable; use New.
type List struct {
	mu       sync.Mutex
	entries  []Entry
	renderer Renderer
	notifier Notifier
}

// New returns an empty list bound to a view sink and a notice sink. Either
// may be nil.
func New(r Renderer, n Notifier) *List {
	if r == nil {
		r = RendererFunc(func(View) {})
	}
	if n == nil {
		n = NotifierFunc(func(int) {})
	}
	return &List{renderer: r, notifier: n}
}

// Append admits the PDF candidates, in their relative order, to the end of
// the list. Rejected candidates are reported once as a count. The view is
// rendered exactly once per call.
func (l *List) Append(candidates []source.Descriptor) AppendResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	var res AppendResult
	for _, c := range candidates {
		if !c.Admissible() {
			res.Filtered++
			continue
		}
		l.entries = append(l.entries, Entry{ID: uuid.NewString(), Descriptor: c})
		res.Accepted++
	}
	if res.Filtered > 0 {
		l.notifier.Filtered(res.Filtered)
	}
	l.render()
	return res
}

// MoveUp swaps the entry at i with its predecessor.
func (l *List) MoveUp(i int) bool { return l.Swap(i, i-1) }

// MoveDown swaps the entry at i with its successor.
func (l *List) MoveDown(i int) bool { return l.Swap(i, i+1) }

// Swap exchanges positions a and b. Out-of-range positions and a == b leave
// the list untouched and render nothing.
func (l *List) Swap(a, b int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if a == b || !l.inRange(a) || !l.inRange(b) {
		return false
	}
	l.entries[a], l.entries[b] = l.entries[b], l.entries[a]
	l.render()
	return true
}

// Remove deletes the entry at i, shifting later entries down.
func (l *List) Remove(i int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.inRange(i) {
		return false
	}
	copy(l.entries[i:], l.entries[i+1:])
	l.entries[len(l.entries)-1] = Entry{}
	l.entries = l.entries[:len(l.entries)-1]
	l.render()
	return true
}

// Clear empties the list and renders the empty state.
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.render()
}

// Snapshot returns a copy of the current order. Later mutations do not
// affect it.
func (l *List) Snapshot() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// View returns the current render state without notifying the sink.
func (l *List) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return buildView(l.entries)
}

// Refresh re-renders the current state, e.g. when a new view attaches.
func (l *List) Refresh() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.render()
}

func (l *List) inRange(i int) bool { return i >= 0 && i < len(l.entries) }

// render must be called with mu held.
func (l *List) render() {
	l.renderer.Render(buildView(l.entries))
}
