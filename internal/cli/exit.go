package cli

import (
	"errors"

	"example.com/pdfmerge/internal/config"
	"example.com/pdfmerge/internal/merge"
)

// Exit codes.
const (
	ExitSuccess         = 0 // Indicates successful execution.
	ExitErrorGeneric    = 1 // Indicates a generic error.
	ExitErrorEmptyInput = 2 // Indicates there was nothing to merge.
	ExitErrorSource     = 3 // Indicates an input file could not be read or merged.
	ExitErrorConfig     = 4 // Indicates a configuration error.
)

// InputError is a command-line input that could not be opened or resolved.
type InputError struct {
	Arg   string
	Cause error
}

func (e *InputError) Error() string { return e.Arg + ": " + e.Cause.Error() }

func (e *InputError) Unwrap() error { return e.Cause }

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		cfgErr *config.Error
		inErr  *InputError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitErrorConfig
	case errors.As(err, &inErr):
		return ExitErrorSource
	}
	switch merge.StageOf(err) {
	case merge.StageInput:
		return ExitErrorEmptyInput
	case merge.StageRead, merge.StageParse, merge.StageCopy:
		return ExitErrorSource
	}
	return ExitErrorGeneric
}
