// Package fetcher retrieves raw page markup over HTTP.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v2"
	"github.com/go-pkgz/requester"
	"github.com/go-pkgz/requester/middleware"
	"golang.org/x/exp/slog"
	"golang.org/x/net/html/charset"

	"github.com/Semior001/blogbook/pkg/logx"
)

// DefaultUserAgent mimics a desktop browser, the blog serves reduced
// markup to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// DefaultMaxPageSize bounds the size of a single page.
const DefaultMaxPageSize = 16 << 20

// FetchError is returned when the page could not be retrieved.
type FetchError struct {
	URL string
	// StatusCode is set when the server responded with a non-2xx status.
	StatusCode int
	Err        error
}

// Error implements error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: bad status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }

// Options defines parameters of the Fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// CacheSize is the number of pages kept in memory during a run,
	// zero disables caching.
	CacheSize int
	// MaxPageSize is the largest accepted response body in bytes,
	// DefaultMaxPageSize if zero.
	MaxPageSize int64
	Logger      *slog.Logger
}

// Fetcher downloads pages, one request per call.
type Fetcher struct {
	log     *slog.Logger
	rq      *requester.Requester
	cache   cache.Cache[string, []byte]
	maxSize int64
}

// New creates new Fetcher.
func New(opts Options) *Fetcher {
	if opts.Logger == nil {
		opts.Logger = slog.New(logx.NoOp())
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultMaxPageSize
	}

	f := &Fetcher{
		log:     opts.Logger,
		maxSize: opts.MaxPageSize,
		// the last middleware wraps the others, headers must be set
		// before the logger sees the request
		rq: requester.New(
			http.Client{Timeout: opts.Timeout},
			logx.LoggingRoundTripper(opts.Logger, logx.RoundTripperOpts{
				Level:         slog.LevelDebug,
				SecretHeaders: []string{"Set-Cookie", "Cookie"},
				BodyLimit:     256,
			}),
			middleware.Header("User-Agent", opts.UserAgent),
		),
	}

	if opts.CacheSize > 0 {
		f.cache = cache.NewCache[string, []byte]().WithLRU().WithMaxKeys(opts.CacheSize)
	}

	return f
}

// CacheStat returns page cache stats.
func (f *Fetcher) CacheStat() cache.Stats {
	if f.cache == nil {
		return cache.Stats{}
	}
	return f.cache.Stat()
}

// Fetch returns the markup of the page at the given URL, decoded to UTF-8.
// Any failure is reported as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, u string) ([]byte, error) {
	if f.cache != nil {
		if page, ok := f.cache.Get(u); ok {
			f.log.DebugCtx(ctx, "page taken from cache", slog.String("url", u))
			return page, nil
		}
	}

	f.log.DebugCtx(ctx, "fetching page", slog.String("url", u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: u, Err: fmt.Errorf("build request: %w", err)}
	}

	resp, err := f.rq.Do(req)
	if err != nil {
		return nil, &FetchError{URL: u, Err: fmt.Errorf("do request: %w", err)}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.log.WarnCtx(ctx, "failed to close response body", slog.Any("err", err))
		}
	}()

	ok := resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
	if !ok {
		return nil, &FetchError{URL: u, StatusCode: resp.StatusCode, Err: fmt.Errorf("status %s", resp.Status)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, &FetchError{URL: u, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(raw)) > f.maxSize {
		return nil, &FetchError{URL: u, Err: fmt.Errorf("page exceeds %d bytes", f.maxSize)}
	}

	rd, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{URL: u, Err: fmt.Errorf("detect charset: %w", err)}
	}

	page, err := io.ReadAll(rd)
	if err != nil {
		return nil, &FetchError{URL: u, Err: fmt.Errorf("decode body: %w", err)}
	}

	if f.cache != nil {
		f.cache.Set(u, page, 0)
	}

	return page, nil
}
