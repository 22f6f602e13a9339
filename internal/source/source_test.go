package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPDF(t *testing.T) {
	cases := []struct {
		name, mediaType string
		want            bool
	}{
		{"a.pdf", "", true},
		{"REPORT.PDF", "", true},
		{"scan.Pdf", "application/octet-stream", true},
		{"noext", MediaTypePDF, true},
		{"notes.txt", "text/plain", false},
		{"pdf", "", false},
		{"archive.pdf.zip", "application/zip", false},
		{"", "", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsPDF(c.name, c.mediaType), "%q %q", c.name, c.mediaType)
	}
}

func TestFromBytes(t *testing.T) {
	d := FromBytes("a.pdf", MediaTypePDF, []byte("%PDF-1.4"))
	assert.Equal(t, int64(8), d.Size)
	assert.True(t, d.Admissible())

	rc, err := d.Content.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(b))
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "doc.bin")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"), 0o644))

	d, err := FromFile(p)
	require.NoError(t, err)
	assert.Equal(t, "doc.bin", d.Name)
	assert.Equal(t, MediaTypePDF, d.MediaType)
	assert.True(t, d.Admissible())

	_, err = FromFile(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestOpenHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BytesSource("x").Open(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpool(t *testing.T) {
	sp, err := NewSpool(t.TempDir())
	require.NoError(t, err)

	d, err := sp.Add("up.pdf", MediaTypePDF, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), d.Size)
	assert.Equal(t, "up.pdf", d.Name)

	rc, err := d.Content.Open(context.Background())
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "hello", string(b))

	require.NoError(t, sp.Close())
	_, err = os.Stat(sp.Dir())
	assert.True(t, os.IsNotExist(err))
}
