// Package source describes the raw files a user offers for merging: their
// display metadata, the PDF admission check and lazily opened content.
package source

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	MediaTypePDF = "application/pdf"
	ExtPDF       = ".pdf"
)

// Source yields the raw bytes of one file. Open is called once per merge, at
// the moment the file's turn comes.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Descriptor is a candidate file as seen by the input surface.
type Descriptor struct {
	Name      string
	Size      int64
	MediaType string
	Content   Source
}

// IsPDF is the admission check: the media type is the PDF media type or the
// name ends with ".pdf" in any case.
func IsPDF(name, mediaType string) bool {
	return mediaType == MediaTypePDF || strings.HasSuffix(strings.ToLower(name), ExtPDF)
}

// Admissible reports whether d passes IsPDF.
func (d Descriptor) Admissible() bool { return IsPDF(d.Name, d.MediaType) }

// FileSource reads a file on local disk.
type FileSource struct {
	Path string
}

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(s.Path)
}

// BytesSource serves an in-memory buffer.
type BytesSource []byte

func (s BytesSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(s)), nil
}

// FromBytes builds a descriptor over an in-memory buffer.
func FromBytes(name, mediaType string, data []byte) Descriptor {
	return Descriptor{
		Name:      name,
		Size:      int64(len(data)),
		MediaType: mediaType,
		Content:   BytesSource(data),
	}
}

// FromFile stats path and sniffs its media type from the leading bytes.
func FromFile(path string) (Descriptor, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Name:      filepath.Base(path),
		Size:      st.Size(),
		MediaType: sniff(path),
		Content:   FileSource{Path: path},
	}, nil
}

func sniff(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if n == 0 {
		return ""
	}
	ct := http.DetectContentType(head[:n])
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}
