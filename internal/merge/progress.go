package merge

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of one merge session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Progress is emitted with StatusRunning before each file is processed and
// once more with the terminal status, where Current counts finished files.
type Progress struct {
	SessionID string `json:"session_id"`
	Status    Status `json:"status"`
	Current   int    `json:"current"` // 1-based position of the file being merged
	Total     int    `json:"total"`
	Name      string `json:"name,omitempty"`
}

// ProgressReporter receives merge progress. Reports are delivered
// synchronously on the merging goroutine.
type ProgressReporter interface {
	Report(Progress)
}

// ProgressFunc adapts a function to ProgressReporter.
type ProgressFunc func(Progress)

func (f ProgressFunc) Report(p Progress) { f(p) }

// NopProgress discards progress.
var NopProgress ProgressReporter = ProgressFunc(func(Progress) {})

// Session is the transient state of one Merge call. It is never reused.
type Session struct {
	ID      string
	Status  Status
	Index   int
	Done    int
	Total   int
	Output  Document
	Started time.Time
}

func newSession(total int) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Status:  StatusPending,
		Total:   total,
		Started: time.Now(),
	}
}

func (s *Session) progress(name string) Progress {
	cur := s.Index + 1
	if s.Status != StatusRunning {
		cur = s.Done
	}
	return Progress{
		SessionID: s.ID,
		Status:    s.Status,
		Current:   cur,
		Total:     s.Total,
		Name:      name,
	}
}
