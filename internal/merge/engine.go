package merge

import "context"

// Document is a handle to a PDF held by an Engine, either a loaded source
// document or an output document under construction.
type Document interface {
	PageCount() int
}

// Page is an engine-specific handle to a copied page.
type Page any

// Engine is the PDF byte-level capability the orchestrator drives. All
// handles passed to an Engine must have been produced by the same Engine.
type Engine interface {
	// CreateDocument returns an empty output document.
	CreateDocument() (Document, error)
	// LoadDocument parses the bytes of one source PDF.
	LoadDocument(ctx context.Context, data []byte) (Document, error)
	// PageIndices returns the zero-based page indices of doc in order.
	PageIndices(doc Document) []int
	// CopyPages prepares the given pages of src for insertion into dst,
	// in the order of indices.
	CopyPages(dst, src Document, indices []int) ([]Page, error)
	// AppendPages adds pages after all pages already in dst.
	AppendPages(dst Document, pages []Page) error
	// SaveDocument serialises dst.
	SaveDocument(ctx context.Context, dst Document) ([]byte, error)
}
