// Package remote adds PDFs by URL. A URL may point at the PDF itself or at an
// HTML page that links to it; in the latter case the page is parsed and the
// most likely PDF link is followed. The PDF bytes are only downloaded when
// the merge reaches the entry.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"example.com/pdfmerge/internal/source"
)

// maxHops bounds how many HTML pages are followed to reach a PDF.
const maxHops = 3

// ErrNoPDFLink is returned when an HTML page links to no PDF.
var ErrNoPDFLink = errors.New("no PDF link found in page")

// StatusError is an HTTP status >= 400.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string { return "http " + strconv.Itoa(e.Code) + " for " + e.URL }

// Options configure a Fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Rate      float64 // requests per second
	Burst     int
	Retries   int           // extra attempts after a network error or a 5xx/429 response
	Backoff   time.Duration // pause between attempts
}

// Fetcher performs throttled HTTP requests.
type Fetcher struct {
	client  *http.Client
	ua      string
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	log     zerolog.Logger
}

// New returns a Fetcher.
func New(opts Options, log zerolog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	lim := rate.NewLimiter(rate.Inf, opts.Burst)
	if opts.Rate > 0 {
		lim = rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst)
	}
	return &Fetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		ua:      opts.UserAgent,
		limiter: lim,
		retries: max(opts.Retries, 0),
		backoff: opts.Backoff,
		log:     log,
	}
}

// get performs a throttled GET, retrying transient failures.
func (f *Fetcher) get(ctx context.Context, u string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			f.log.Debug().Err(lastErr).Str("url", u).Int("attempt", attempt+1).Msg("[remote] retrying")
			t := time.NewTimer(f.backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
		resp, err := f.getOnce(ctx, u)
		if err == nil {
			return resp, nil
		}
		if !retryable(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (f *Fetcher) getOnce(ctx context.Context, u string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if f.ua != "" {
		req.Header.Set("User-Agent", f.ua)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &transportError{err}
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, &StatusError{URL: u, Code: resp.StatusCode}
	}
	return resp, nil
}

type transportError struct{ error }

func (e *transportError) Unwrap() error { return e.error }

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	var te *transportError
	return errors.As(err, &te)
}

// Resolve follows u to a PDF and returns a descriptor whose content is
// fetched lazily. HTML pages are searched for a PDF link.
func (f *Fetcher) Resolve(ctx context.Context, u string) (source.Descriptor, error) {
	cur := u
	for hop := 0; hop <= maxHops; hop++ {
		resp, err := f.get(ctx, cur)
		if err != nil {
			return source.Descriptor{}, err
		}
		ct := strings.ToLower(resp.Header.Get("Content-Type"))

		if isPDFResponse(ct, cur) {
			resp.Body.Close()
			f.log.Debug().Str("url", cur).Msg("[remote] resolved")
			return source.Descriptor{
				Name:      nameFromURL(cur),
				Size:      max(resp.ContentLength, 0),
				MediaType: source.MediaTypePDF,
				Content:   &Source{URL: cur, fetcher: f},
			}, nil
		}
		if !strings.Contains(ct, "text/html") {
			resp.Body.Close()
			return source.Descriptor{}, fmt.Errorf("unsupported content-type %q for %s", ct, cur)
		}

		next, err := findPDFLink(resp.Body, cur)
		resp.Body.Close()
		if err != nil {
			return source.Descriptor{}, err
		}
		f.log.Debug().Str("page", cur).Str("link", next).Msg("[remote] following link")
		cur = next
	}
	return source.Descriptor{}, fmt.Errorf("too many html hops resolving %s", u)
}

func isPDFResponse(ct, u string) bool {
	return strings.Contains(ct, "pdf") ||
		ct == "application/octet-stream" ||
		strings.HasSuffix(strings.ToLower(urlPath(u)), source.ExtPDF)
}

// findPDFLink prefers anchors ending in .pdf, then anchors whose text
// mentions "download" or "pdf".
func findPDFLink(body io.Reader, base string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", err
	}
	var direct, textual []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := absURL(base, href)
		txt := strings.ToLower(strings.TrimSpace(a.Text()))
		switch {
		case strings.HasSuffix(strings.ToLower(urlPath(abs)), source.ExtPDF):
			direct = append(direct, abs)
		case strings.Contains(txt, "download") || strings.Contains(txt, "pdf"):
			textual = append(textual, abs)
		}
	})
	if len(direct) > 0 {
		return direct[0], nil
	}
	if len(textual) > 0 {
		return textual[0], nil
	}
	return "", ErrNoPDFLink
}

func absURL(base, href string) string {
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	hu, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return bu.ResolveReference(hu).String()
}

func urlPath(u string) string {
	pu, err := url.Parse(u)
	if err != nil {
		return u
	}
	return pu.Path
}

func nameFromURL(u string) string {
	base := path.Base(urlPath(u))
	if base == "." || base == "/" || base == "" {
		return "download.pdf"
	}
	if un, err := url.PathUnescape(base); err == nil {
		base = un
	}
	if !strings.HasSuffix(strings.ToLower(base), source.ExtPDF) {
		base += source.ExtPDF
	}
	return base
}

// Source downloads a resolved PDF URL when opened.
type Source struct {
	URL     string
	fetcher *Fetcher
}

func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.fetcher.get(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
