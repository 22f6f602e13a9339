package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/pdfmerge/internal/merge"
)

func artifact() *merge.Artifact {
	return &merge.Artifact{Data: []byte("%PDF-merged"), Filename: "merged.pdf", MediaType: "application/pdf", Pages: 1}
}

func TestStoreServesThenReleases(t *testing.T) {
	var held, released atomic.Int32
	s := NewStore("/download/", 50*time.Millisecond, Hooks{
		Held:     func() { held.Add(1) },
		Released: func() { released.Add(1) },
	}, zerolog.Nop())

	u, err := s.Deliver(context.Background(), artifact())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, "/download/"))
	token := strings.TrimPrefix(u, "/download/")

	rec := httptest.NewRecorder()
	s.ServeToken(rec, httptest.NewRequest("GET", u, nil), token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=merged.pdf`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-merged", rec.Body.String())
	assert.Equal(t, int32(1), held.Load())

	assert.Eventually(t, func() bool { return s.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), released.Load())

	rec = httptest.NewRecorder()
	s.ServeToken(rec, httptest.NewRequest("GET", u, nil), token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStoreClose(t *testing.T) {
	var released atomic.Int32
	s := NewStore("/d/", time.Hour, Hooks{Released: func() { released.Add(1) }}, zerolog.Nop())
	for i := 0; i < 3; i++ {
		_, err := s.Deliver(context.Background(), artifact())
		require.NoError(t, err)
	}
	require.Equal(t, 3, s.Len())

	s.Close()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int32(3), released.Load())
}

func TestStoreRejectsNil(t *testing.T) {
	s := NewStore("/d/", time.Second, Hooks{}, zerolog.Nop())
	_, err := s.Deliver(context.Background(), nil)
	assert.Error(t, err)
}

func TestFileSink(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "merged.pdf")
	got, err := FileSink{Path: p}.Deliver(context.Background(), artifact())
	require.NoError(t, err)
	assert.Equal(t, p, got)

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-merged", string(b))

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
