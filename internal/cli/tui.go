package cli

import (
	"github.com/spf13/cobra"

	"example.com/pdfmerge/internal/download"
	"example.com/pdfmerge/internal/tui"
)

var tuiOutput string

var tuiCmd = &cobra.Command{
	Use:   "tui [files or urls...]",
	Short: "Arrange and merge PDF files in the terminal",
	Long: `Launch the terminal UI over the given files.

Controls:
  ↑/k, ↓/j   - Move the cursor
  K, J       - Move the selected file up or down
  x, Delete  - Remove the selected file
  m          - Merge into the output file
  q          - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiOutput, "output", "o", "", "output path (default from config, merged.pdf)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = tuiOutput
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// Logs would tear the alt screen; keep only errors.
	cfg.LogLevel = "error"
	log := newLogger(cmd, cfg)
	ctx := cmd.Context()

	cands, err := resolveInputs(ctx, args, newFetcher(cfg, log))
	if err != nil {
		return err
	}
	return tui.Run(ctx, tui.Options{
		Files:        cands,
		Orchestrator: newOrchestrator(cfg, log, nil),
		Sink:         download.FileSink{Path: cfg.Output},
		Output:       cfg.Output,
	})
}
