package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/briandowns/spinner"
	"golang.org/x/term"

	"example.com/pdfmerge/internal/merge"
)

const spinnerRefreshRate = 120 * time.Millisecond

// Spinner abstracts the terminal spinner so commands can be tested without
// a terminal.
type Spinner interface {
	Start()
	Stop()
	UpdateSuffix(suffix string)
}

type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }

func (rs *realSpinner) Stop() { rs.s.Stop() }

func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(w io.Writer) Spinner {
	s := spinner.New(spinner.CharSets[11], spinnerRefreshRate, spinner.WithWriter(w))
	return &realSpinner{s}
}

// isTerminal reports whether f is attached to a terminal.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// confirm asks a yes/no question on the terminal.
var confirm = func(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// spinnerProgress shows merge progress in the spinner suffix.
type spinnerProgress struct {
	s Spinner
}

var _ merge.ProgressReporter = spinnerProgress{}

func (p spinnerProgress) Report(pr merge.Progress) {
	if pr.Status != merge.StatusRunning {
		return
	}
	p.s.UpdateSuffix(fmt.Sprintf(" Merging (%d/%d): %s", pr.Current, pr.Total, pr.Name))
}
