// Package merge turns an ordered snapshot of the file list into one merged
// PDF artifact.
//
// Files are processed strictly one after another: read, parse, copy all
// pages, append. Page order in the output therefore equals the snapshot
// order. Any failure aborts the whole merge and no partial artifact is
// returned; the orchestrator keeps no state between calls, so a failed merge
// does not affect the next one.
package merge

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"example.com/pdfmerge/internal/filelist"
	"example.com/pdfmerge/internal/source"
)

// DefaultFilename is the suggested name of every merged artifact.
const DefaultFilename = "merged.pdf"

// Artifact is the merged output handed to a download sink.
type Artifact struct {
	Data      []byte
	Filename  string
	MediaType string
	Pages     int
}

// Recorder receives the outcome of each merge for metrics.
type Recorder interface {
	ObserveMerge(status Status, files, pages int, d time.Duration)
}

// Orchestrator drives an Engine over an ordered set of files. It is safe to
// reuse across merges but a single Orchestrator expects callers not to run
// two merges at once.
type Orchestrator struct {
	engine   Engine
	log      zerolog.Logger
	recorder Recorder
	tracer   trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// New returns an orchestrator over engine. A nil engine is accepted; every
// merge then fails with EngineUnavailableError.
func New(engine Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine: engine,
		log:    zerolog.Nop(),
		tracer: otel.Tracer("example.com/pdfmerge/internal/merge"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Merge merges files in order. progress may be nil.
func (o *Orchestrator) Merge(ctx context.Context, files []filelist.Entry, progress ProgressReporter) (*Artifact, error) {
	if len(files) == 0 {
		return nil, EmptyInputError{}
	}
	if progress == nil {
		progress = NopProgress
	}

	s := newSession(len(files))
	ctx, span := o.tracer.Start(ctx, "merge", trace.WithAttributes(
		attribute.String("merge.session", s.ID),
		attribute.Int("merge.files", len(files)),
	))
	defer span.End()

	log := o.log.With().Str("session", s.ID).Int("files", len(files)).Logger()
	log.Info().Msg("[merge] start")

	art, err := o.run(ctx, s, files, progress, log)
	if err != nil {
		s.Status = StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Str("stage", string(StageOf(err))).Int("done", s.Done).Msg("[merge] failed")
	} else {
		s.Status = StatusSucceeded
		log.Info().Int("pages", art.Pages).Int("bytes", len(art.Data)).
			Dur("took", time.Since(s.Started)).Msg("[merge] done")
	}
	progress.Report(s.progress(""))
	if o.recorder != nil {
		pages := 0
		if art != nil {
			pages = art.Pages
		}
		o.recorder.ObserveMerge(s.Status, len(files), pages, time.Since(s.Started))
	}
	return art, err
}

func (o *Orchestrator) run(ctx context.Context, s *Session, files []filelist.Entry, progress ProgressReporter, log zerolog.Logger) (*Artifact, error) {
	if o.engine == nil {
		return nil, EngineUnavailableError{}
	}
	out, err := o.engine.CreateDocument()
	if err != nil {
		return nil, EngineUnavailableError{Cause: err}
	}
	s.Output = out
	s.Status = StatusRunning

	for i, f := range files {
		s.Index = i
		progress.Report(s.progress(f.Name))
		if err := o.mergeOne(ctx, s, i, f, log); err != nil {
			return nil, err
		}
		s.Done++
	}

	data, err := o.engine.SaveDocument(ctx, out)
	if err != nil {
		return nil, SaveError{Cause: err}
	}
	return &Artifact{
		Data:      data,
		Filename:  DefaultFilename,
		MediaType: source.MediaTypePDF,
		Pages:     out.PageCount(),
	}, nil
}

func (o *Orchestrator) mergeOne(ctx context.Context, s *Session, i int, f filelist.Entry, log zerolog.Logger) error {
	ctx, span := o.tracer.Start(ctx, "merge.file", trace.WithAttributes(
		attribute.Int("merge.index", i),
		attribute.String("merge.file", f.Name),
	))
	defer span.End()

	data, err := readAll(ctx, f.Content)
	if err != nil {
		return SourceReadError{Index: i, Name: f.Name, Cause: err}
	}
	src, err := o.engine.LoadDocument(ctx, data)
	if err != nil {
		return SourceParseError{Index: i, Name: f.Name, Cause: err}
	}
	pages, err := o.engine.CopyPages(s.Output, src, o.engine.PageIndices(src))
	if err != nil {
		return PageCopyError{Index: i, Name: f.Name, Cause: err}
	}
	if err := o.engine.AppendPages(s.Output, pages); err != nil {
		return PageCopyError{Index: i, Name: f.Name, Cause: err}
	}
	log.Debug().Int("index", i).Str("file", f.Name).Int("pages", len(pages)).Msg("[merge] appended")
	return nil
}

func readAll(ctx context.Context, src source.Source) ([]byte, error) {
	if src == nil {
		return nil, fmt.Errorf("no content")
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
