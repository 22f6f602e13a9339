package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"example.com/pdfmerge/internal/download"
	"example.com/pdfmerge/internal/filelist"
	"example.com/pdfmerge/internal/merge"
)

// ErrOutputExists is returned when the output file exists and overwriting
// was neither forced nor confirmed.
var ErrOutputExists = errors.New("output file exists (use --force to overwrite)")

var (
	mergeOutput string
	mergeForce  bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge [files or urls...]",
	Short: "Merge PDF files into one, in argument order",
	Long: `Merge PDF files into a single document.

Arguments are local paths or http(s) URLs. A URL may point at a PDF or at a
page linking to one. Files that are not PDFs are skipped with a notice.`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "output path (default from config, merged.pdf)")
	mergeCmd.Flags().BoolVar(&mergeForce, "force", false, "overwrite the output file without asking")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = mergeOutput
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	ctx := cmd.Context()

	cands, err := resolveInputs(ctx, args, newFetcher(cfg, log))
	if err != nil {
		return err
	}
	list := filelist.New(nil, filelist.NotifierFunc(func(n int) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d non-PDF file(s) were filtered out.\n", n)
	}))
	list.Append(cands)
	if list.Len() == 0 {
		return merge.EmptyInputError{}
	}

	if err := checkOverwrite(cfg.Output, mergeForce); err != nil {
		return err
	}

	var progress merge.ProgressReporter = merge.NopProgress
	var sp Spinner
	if isTerminal(os.Stderr) {
		sp = newSpinner(cmd.ErrOrStderr())
		sp.UpdateSuffix(" Merging...")
		sp.Start()
		progress = spinnerProgress{sp}
	}
	art, err := newOrchestrator(cfg, log, nil).Merge(ctx, list.Snapshot(), progress)
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		if f, ok := merge.FailedFile(err); ok {
			return fmt.Errorf("file %d (%s): %w", f.Index+1, f.Name, err)
		}
		return err
	}

	where, err := download.FileSink{Path: cfg.Output}.Deliver(ctx, art)
	if err != nil {
		return err
	}
	cmd.Printf("Merged %d file(s), %d page(s) into %s\n", list.Len(), art.Pages, where)
	return nil
}

// checkOverwrite asks before replacing an existing output file. Without a
// terminal it refuses unless forced.
func checkOverwrite(path string, force bool) error {
	if force {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if !isTerminal(os.Stdin) {
		return ErrOutputExists
	}
	ok, err := confirm(fmt.Sprintf("%s exists. Overwrite?", path))
	if err != nil {
		return err
	}
	if !ok {
		return ErrOutputExists
	}
	return nil
}
