package merge

import (
	"errors"
	"fmt"
)

// Stage names the step of a merge that failed.
type Stage string

const (
	StageInput  Stage = "input"
	StageCreate Stage = "create"
	StageRead   Stage = "read"
	StageParse  Stage = "parse"
	StageCopy   Stage = "copy"
	StageSave   Stage = "save"
)

// EmptyInputError is returned when a merge is requested with no files. No
// engine work or progress happens before it.
type EmptyInputError struct{}

func (EmptyInputError) Error() string { return "no files to merge" }

// EngineUnavailableError means the PDF engine is missing or cannot create an
// output document. It is not retried.
type EngineUnavailableError struct {
	Cause error
}

func (e EngineUnavailableError) Error() string {
	if e.Cause == nil {
		return "pdf engine unavailable"
	}
	return "pdf engine unavailable: " + e.Cause.Error()
}

func (e EngineUnavailableError) Unwrap() error { return e.Cause }

// SourceReadError means the bytes of the file at Index could not be read.
type SourceReadError struct {
	Index int
	Name  string
	Cause error
}

func (e SourceReadError) Error() string {
	return fmt.Sprintf("read file #%d %q: %v", e.Index+1, e.Name, e.Cause)
}

func (e SourceReadError) Unwrap() error { return e.Cause }

// SourceParseError means the file at Index is not a document the engine can
// load.
type SourceParseError struct {
	Index int
	Name  string
	Cause error
}

func (e SourceParseError) Error() string {
	return fmt.Sprintf("parse file #%d %q: %v", e.Index+1, e.Name, e.Cause)
}

func (e SourceParseError) Unwrap() error { return e.Cause }

// PageCopyError means the pages of the file at Index could not be copied
// into the output document.
type PageCopyError struct {
	Index int
	Name  string
	Cause error
}

func (e PageCopyError) Error() string {
	return fmt.Sprintf("copy pages of file #%d %q: %v", e.Index+1, e.Name, e.Cause)
}

func (e PageCopyError) Unwrap() error { return e.Cause }

// SaveError means the output document could not be serialised.
type SaveError struct {
	Cause error
}

func (e SaveError) Error() string { return "save merged document: " + e.Cause.Error() }

func (e SaveError) Unwrap() error { return e.Cause }

// FileFailure identifies the file an error is attributed to.
type FileFailure struct {
	Index int
	Name  string
}

// StageOf reports the failing stage of a merge error, or "" for errors that
// did not come from Merge.
func StageOf(err error) Stage {
	var (
		empty EmptyInputError
		eng   EngineUnavailableError
		rd    SourceReadError
		ps    SourceParseError
		cp    PageCopyError
		sv    SaveError
	)
	switch {
	case errors.As(err, &empty):
		return StageInput
	case errors.As(err, &eng):
		return StageCreate
	case errors.As(err, &rd):
		return StageRead
	case errors.As(err, &ps):
		return StageParse
	case errors.As(err, &cp):
		return StageCopy
	case errors.As(err, &sv):
		return StageSave
	}
	return ""
}

// FailedFile returns the file a merge error is attributed to, if any.
func FailedFile(err error) (FileFailure, bool) {
	var (
		rd SourceReadError
		ps SourceParseError
		cp PageCopyError
	)
	switch {
	case errors.As(err, &rd):
		return FileFailure{rd.Index, rd.Name}, true
	case errors.As(err, &ps):
		return FileFailure{ps.Index, ps.Name}, true
	case errors.As(err, &cp):
		return FileFailure{cp.Index, cp.Name}, true
	}
	return FileFailure{}, false
}
