// Package cli wires configuration, logging and the merge pipeline into the
// pdfmerge commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"example.com/pdfmerge/internal/config"
	"example.com/pdfmerge/internal/logging"
	"example.com/pdfmerge/internal/merge"
	"example.com/pdfmerge/internal/pdfengine"
	"example.com/pdfmerge/internal/remote"
	"example.com/pdfmerge/internal/source"
)

// version is set at build time with -ldflags.
var version = "dev"

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pdfmerge",
	Short: "Combine PDF files into one, in the order you choose",
	Long: `pdfmerge combines several PDF files into a single document.

Run "pdfmerge serve" for the browser front end, "pdfmerge tui" to arrange
files in the terminal, or "pdfmerge merge" to merge them in one go.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (.toml, .yaml or .yml)")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "log format (console or json)")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return ExitCode(err)
	}
	return ExitSuccess
}

// loadConfig resolves defaults, the config file and the environment, then
// applies the persistent flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) zerolog.Logger {
	return logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
}

func newFetcher(cfg config.Config, log zerolog.Logger) *remote.Fetcher {
	return remote.New(remote.Options{
		Timeout:   cfg.RemoteTimeout,
		UserAgent: cfg.UserAgent,
		Rate:      cfg.RemoteRate,
		Burst:     cfg.RemoteBurst,
		Retries:   cfg.RemoteRetries,
	}, logging.Component(log, "remote"))
}

func newOrchestrator(cfg config.Config, log zerolog.Logger, rec merge.Recorder) *merge.Orchestrator {
	eng := pdfengine.New(pdfengine.Options{Strict: cfg.StrictValidation}, logging.Component(log, "pdfengine"))
	opts := []merge.Option{merge.WithLogger(logging.Component(log, "merge"))}
	if rec != nil {
		opts = append(opts, merge.WithRecorder(rec))
	}
	return merge.New(eng, opts...)
}

func isURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

// resolveInputs turns command-line arguments into candidates: local paths
// are stat'ed, URLs are resolved through the fetcher.
func resolveInputs(ctx context.Context, args []string, fetcher *remote.Fetcher) ([]source.Descriptor, error) {
	out := make([]source.Descriptor, 0, len(args))
	for _, arg := range args {
		var (
			d   source.Descriptor
			err error
		)
		if isURL(arg) {
			d, err = fetcher.Resolve(ctx, arg)
		} else {
			d, err = source.FromFile(arg)
		}
		if err != nil {
			return nil, &InputError{Arg: arg, Cause: err}
		}
		out = append(out, d)
	}
	return out, nil
}
