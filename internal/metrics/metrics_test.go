package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/pdfmerge/internal/merge"
)

func TestObserveMerge(t *testing.T) {
	m := New()
	m.ObserveMerge(merge.StatusSucceeded, 3, 7, time.Second)
	m.ObserveMerge(merge.StatusFailed, 2, 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.merges.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.merges.WithLabelValues("failed")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.mergedPages))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.mergedFiles))
}

func TestObserveAppendAndDownloads(t *testing.T) {
	m := New()
	m.ObserveAppend(3, 2)
	m.DownloadHeld()
	m.DownloadHeld()
	m.DownloadReleased()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.admitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.filtered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downloads))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveAppend(1, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pdfmerge_files_admitted_total 1")
}
