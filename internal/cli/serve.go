package cli

import (
	"time"

	"github.com/spf13/cobra"

	"example.com/pdfmerge/internal/download"
	"example.com/pdfmerge/internal/logging"
	"example.com/pdfmerge/internal/metrics"
	"example.com/pdfmerge/internal/session"
	"example.com/pdfmerge/internal/web"
)

var (
	serveAddr        string
	serveRoot        string
	serveDownloadTTL time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser front end",
	Long: `Serve the browser front end.

Each browser session gets its own file list. Files can be uploaded, added by
URL or, with --root, picked from a directory of PDFs on the server. Merged
files are offered for download for --download-ttl and then released.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveAddr, "addr", "", "http listen address (default :8080)")
	f.StringVar(&serveRoot, "root", "", "directory of PDFs offered as a library")
	f.DurationVar(&serveDownloadTTL, "download-ttl", 0, "how long a merged file stays downloadable (default 30s)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = serveAddr
	}
	if flags.Changed("root") {
		cfg.LibraryRoot = serveRoot
	}
	if flags.Changed("download-ttl") {
		cfg.DownloadTTL = serveDownloadTTL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	ctx := cmd.Context()

	m := metrics.New()
	store := download.NewStore("/download/", cfg.DownloadTTL, download.Hooks{
		Held:     m.DownloadHeld,
		Released: m.DownloadReleased,
	}, logging.Component(log, "download"))
	defer store.Close()

	sessions := session.NewManager(session.Deps{
		Orchestrator: newOrchestrator(cfg, log, m),
		Sink:         store,
		SpoolParent:  cfg.SpoolDir,
		Observer:     m,
		Log:          logging.Component(log, "session"),
	}, cfg.SessionTTL)
	defer sessions.Close()
	go sessions.Run(ctx)

	srv := web.New(web.Options{
		Sessions:    sessions,
		Downloads:   store,
		Fetcher:     newFetcher(cfg, log),
		Metrics:     m,
		LibraryRoot: cfg.LibraryRoot,
		MaxScan:     cfg.MaxScan,
		MaxUpload:   cfg.MaxUpload,
		Log:         logging.Component(log, "http"),
	})
	return srv.ListenAndServe(ctx, cfg.Addr)
}
