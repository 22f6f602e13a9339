package source

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
)

// Spool keeps uploaded files on disk for the lifetime of a session so the
// file list only holds references, not materialised bytes.
type Spool struct {
	dir string
	seq atomic.Int64
}

// NewSpool creates a fresh spool directory under parent (os.TempDir when empty).
func NewSpool(parent string) (*Spool, error) {
	dir, err := os.MkdirTemp(parent, "pdfmerge_spool_*")
	if err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Spool{dir: dir}, nil
}

// Dir returns the spool directory.
func (s *Spool) Dir() string { return s.dir }

// Add copies r into the spool and returns a descriptor that reads it back.
// The client-declared name and media type are kept as-is for admission.
func (s *Spool) Add(name, mediaType string, r io.Reader) (Descriptor, error) {
	p := filepath.Join(s.dir, "f_"+strconv.FormatInt(s.seq.Add(1), 10)+".bin")
	f, err := os.Create(p)
	if err != nil {
		return Descriptor{}, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(p)
		return Descriptor{}, fmt.Errorf("spool %s: %w", name, err)
	}
	return Descriptor{
		Name:      name,
		Size:      n,
		MediaType: mediaType,
		Content:   FileSource{Path: p},
	}, nil
}

// AddPart spools one multipart file header.
func (s *Spool) AddPart(fh *multipart.FileHeader) (Descriptor, error) {
	f, err := fh.Open()
	if err != nil {
		return Descriptor{}, err
	}
	defer f.Close()
	return s.Add(fh.Filename, fh.Header.Get("Content-Type"), f)
}

// Close removes every spooled file.
func (s *Spool) Close() error {
	return os.RemoveAll(s.dir)
}
