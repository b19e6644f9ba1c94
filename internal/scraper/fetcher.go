package scraper

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Request describes one upstream call built by a Source
type Request struct {
	Method  string // defaults to GET
	URL     string
	Headers map[string]string
	Body    []byte

	// Hints for rendering transports; the direct HTTP fetcher ignores them
	RenderJS bool
	WaitFor  string // CSS selector to wait for
	WaitMS   int    // fixed delay after load
}

// Fetcher retrieves the raw payload for a request
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, req Request) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// HTTPFetcher issues direct HTTP requests with browser-like headers
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *HostLimiter
}

// NewHTTPFetcher creates a direct fetcher. limiter may be nil.
func NewHTTPFetcher(timeout time.Duration, limiter *HostLimiter) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
		limiter:   limiter,
	}
}

// Fetch performs the request; non-2xx responses and transport errors wrap ErrUpstreamUnavailable
func (f *HTTPFetcher) Fetch(ctx context.Context, r Request) ([]byte, error) {
	if err := f.limiter.Wait(ctx, r.URL); err != nil {
		return nil, unavailable(err)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-AE,en;q=0.9,ar;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, unavailable(fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gr.Close()
		reader = gr
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, unavailable(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: r.URL, StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
	}

	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
