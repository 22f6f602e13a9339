package filelist

import "strconv"

// Renderer is the list view sink. Render receives a copy of the state and
// must not call back into the list.
type Renderer interface {
	Render(View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View)

func (f RendererFunc) Render(v View) { f(v) }

// Notifier receives the batch notice for candidates rejected by Append.
type Notifier interface {
	Filtered(count int)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(int)

func (f NotifierFunc) Filtered(n int) { f(n) }

// View is the render state of the list. An empty list renders as Empty with
// no rows, which views show as a "no files" placeholder.
type View struct {
	Empty bool  `json:"empty"`
	Rows  []Row `json:"rows"`
}

// Row is one displayed entry.
type Row struct {
	Position    int    `json:"position"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	SizeLabel   string `json:"size_label"`
	CanMoveUp   bool   `json:"can_move_up"`
	CanMoveDown bool   `json:"can_move_down"`
}

// Names lists the row names in order.
func (v View) Names() []string {
	out := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		out[i] = r.Name
	}
	return out
}

func buildView(entries []Entry) View {
	if len(entries) == 0 {
		return View{Empty: true}
	}
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{
			Position:    i,
			ID:          e.ID,
			Name:        e.Name,
			Size:        e.Size,
			SizeLabel:   SizeLabel(e.Size),
			CanMoveUp:   i > 0,
			CanMoveDown: i < len(entries)-1,
		}
	}
	return View{Rows: rows}
}

// SizeLabel formats a byte count as whole kilobytes, rounding down.
func SizeLabel(n int64) string {
	return strconv.FormatInt(n/1024, 10) + " KB"
}
