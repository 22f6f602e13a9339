// Package pdfengine implements the merge engine on top of pdfcpu.
//
// Source documents are parsed and validated when loaded. The output document
// is a page plan: an ordered list of (source, page) references that is only
// turned into bytes on save, where consecutive pages of one source are
// trimmed out together and the parts are merged with pdfcpu.
package pdfengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"example.com/pdfmerge/internal/merge"
)

// ErrNoPages is returned when saving an output document without pages.
var ErrNoPages = errors.New("merged document has no pages")

// ErrForeignHandle is returned for handles not created by this engine.
var ErrForeignHandle = errors.New("document handle not created by this engine")

var _ merge.Engine = (*Engine)(nil)

// Engine is a pdfcpu-backed merge.Engine.
type Engine struct {
	conf *model.Configuration
	log  zerolog.Logger
}

// Options tune the engine.
type Options struct {
	// Strict switches pdfcpu validation from relaxed to strict mode.
	Strict bool
}

func init() {
	// keep pdfcpu from creating a config dir in the user's home
	pdfapi.DisableConfigDir()
}

// New returns an engine.
func New(opts Options, log zerolog.Logger) *Engine {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if opts.Strict {
		conf.ValidationMode = model.ValidationStrict
	}
	return &Engine{conf: conf, log: log}
}

// srcDoc is a loaded input PDF.
type srcDoc struct {
	raw   []byte
	pages int
}

func (s *srcDoc) PageCount() int { return s.pages }

// pageRef is one copied page: 1-based page number within src.
type pageRef struct {
	src *srcDoc
	nr  int
}

// output is the document under construction.
type output struct {
	pages []pageRef
}

func (o *output) PageCount() int { return len(o.pages) }

func (e *Engine) CreateDocument() (merge.Document, error) {
	return &output{}, nil
}

func (e *Engine) LoadDocument(ctx context.Context, data []byte) (merge.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pctx, err := pdfapi.ReadContext(bytes.NewReader(data), e.conf)
	if err != nil {
		return nil, err
	}
	if err := pdfapi.ValidateContext(pctx); err != nil {
		return nil, err
	}
	return &srcDoc{raw: data, pages: pctx.PageCount}, nil
}

func (e *Engine) PageIndices(doc merge.Document) []int {
	idx := make([]int, doc.PageCount())
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func (e *Engine) CopyPages(dst, src merge.Document, indices []int) ([]merge.Page, error) {
	if _, ok := dst.(*output); !ok {
		return nil, ErrForeignHandle
	}
	s, ok := src.(*srcDoc)
	if !ok {
		return nil, ErrForeignHandle
	}
	out := make([]merge.Page, len(indices))
	for i, ix := range indices {
		if ix < 0 || ix >= s.pages {
			return nil, fmt.Errorf("page index %d out of range [0,%d)", ix, s.pages)
		}
		out[i] = pageRef{src: s, nr: ix + 1}
	}
	return out, nil
}

func (e *Engine) AppendPages(dst merge.Document, pages []merge.Page) error {
	o, ok := dst.(*output)
	if !ok {
		return ErrForeignHandle
	}
	refs := make([]pageRef, len(pages))
	for i, p := range pages {
		ref, ok := p.(pageRef)
		if !ok {
			return ErrForeignHandle
		}
		refs[i] = ref
	}
	o.pages = append(o.pages, refs...)
	return nil
}

func (e *Engine) SaveDocument(ctx context.Context, dst merge.Document) ([]byte, error) {
	o, ok := dst.(*output)
	if !ok {
		return nil, ErrForeignHandle
	}
	if len(o.pages) == 0 {
		return nil, ErrNoPages
	}

	var parts [][]byte
	for _, r := range runs(o.pages) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := e.extract(r)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}

	rsc := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		rsc[i] = bytes.NewReader(p)
	}
	var buf bytes.Buffer
	if err := pdfapi.MergeRaw(rsc, &buf, false, e.conf); err != nil {
		return nil, err
	}
	e.log.Debug().Int("parts", len(parts)).Int("pages", len(o.pages)).Int("bytes", buf.Len()).Msg("[pdfcpu] merged")
	return buf.Bytes(), nil
}

// run is a stretch of strictly increasing pages from one source.
type run struct {
	src   *srcDoc
	pages []int
}

func runs(refs []pageRef) []run {
	var out []run
	for _, ref := range refs {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.src == ref.src && last.pages[len(last.pages)-1] < ref.nr {
				last.pages = append(last.pages, ref.nr)
				continue
			}
		}
		out = append(out, run{src: ref.src, pages: []int{ref.nr}})
	}
	return out
}

// extract returns a standalone PDF holding the run's pages.
func (e *Engine) extract(r run) ([]byte, error) {
	if len(r.pages) == r.src.pages {
		return r.src.raw, nil
	}
	sel := make([]string, len(r.pages))
	for i, p := range r.pages {
		sel[i] = strconv.Itoa(p)
	}
	var buf bytes.Buffer
	if err := pdfapi.Trim(bytes.NewReader(r.src.raw), &buf, sel, e.conf); err != nil {
		return nil, fmt.Errorf("trim pages %v: %w", r.pages, err)
	}
	return buf.Bytes(), nil
}
