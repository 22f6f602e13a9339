package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/pdfmerge/internal/source"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files/sheet.pdf", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.UserAgent())
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, "%PDF-sheet")
	})
	mux.HandleFunc("/blob", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		io.WriteString(w, "%PDF-blob")
	})
	mux.HandleFunc("/worksheet/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, `<html><body>
			<a href="/about">About</a>
			<a href="/get?id=7">Download</a>
			<a href="../files/sheet.pdf">Sheet</a>
		</body></html>`)
	})
	mux.HandleFunc("/textual", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<a href="/blob">Get the PDF</a>`)
	})
	mux.HandleFunc("/nolink", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<a href="/about">About</a>`)
	})
	mux.HandleFunc("/image", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFetcher() *Fetcher {
	return New(Options{UserAgent: "test-agent", Rate: 1000, Burst: 10}, zerolog.Nop())
}

func readAll(t *testing.T, d source.Descriptor) string {
	t.Helper()
	rc, err := d.Content.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestResolveDirectPDF(t *testing.T) {
	srv := newServer(t)
	d, err := newFetcher().Resolve(context.Background(), srv.URL+"/files/sheet.pdf")
	require.NoError(t, err)
	assert.Equal(t, "sheet.pdf", d.Name)
	assert.Equal(t, source.MediaTypePDF, d.MediaType)
	assert.True(t, d.Admissible())
	assert.Equal(t, "%PDF-sheet", readAll(t, d))
}

func TestResolveFollowsPreferredHTMLLink(t *testing.T) {
	srv := newServer(t)
	d, err := newFetcher().Resolve(context.Background(), srv.URL+"/worksheet/page")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/files/sheet.pdf", d.Content.(*Source).URL)
	assert.Equal(t, "%PDF-sheet", readAll(t, d))
}

func TestResolveTextualLinkAndOctetStream(t *testing.T) {
	srv := newServer(t)
	d, err := newFetcher().Resolve(context.Background(), srv.URL+"/textual")
	require.NoError(t, err)
	assert.Equal(t, "blob.pdf", d.Name)
	assert.Equal(t, "%PDF-blob", readAll(t, d))
}

func TestResolveErrors(t *testing.T) {
	srv := newServer(t)
	f := newFetcher()

	_, err := f.Resolve(context.Background(), srv.URL+"/nolink")
	assert.ErrorIs(t, err, ErrNoPDFLink)

	_, err = f.Resolve(context.Background(), srv.URL+"/image")
	assert.ErrorContains(t, err, "unsupported content-type")

	_, err = f.Resolve(context.Background(), srv.URL+"/gone")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusGone, se.Code)
}

func TestFindPDFLink(t *testing.T) {
	got, err := findPDFLink(strings.NewReader(`<a href="x.PDF">x</a>`), "https://example.com/a/b")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a/x.PDF", got)
}

func TestNameFromURL(t *testing.T) {
	assert.Equal(t, "my file.pdf", nameFromURL("https://h/x/my%20file.pdf"))
	assert.Equal(t, "report.pdf", nameFromURL("https://h/report"))
	assert.Equal(t, "download.pdf", nameFromURL("https://h/"))
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky.pdf":
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-flaky"))
		default:
			calls.Add(1)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(Options{Rate: 1000, Burst: 10, Retries: 2, Backoff: time.Millisecond}, zerolog.Nop())
	d, err := f.Resolve(context.Background(), srv.URL+"/flaky.pdf")
	require.NoError(t, err)
	assert.Equal(t, "flaky.pdf", d.Name)
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(0)
	_, err = f.Resolve(context.Background(), srv.URL+"/gone.pdf")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), calls.Load(), "4xx is not retried")
}
