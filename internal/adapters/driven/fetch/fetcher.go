// Package fetch downloads source documents.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// Ensure HTTPFetcher implements DocumentFetcher
var _ driven.DocumentFetcher = (*HTTPFetcher)(nil)

const (
	defaultTimeout = 30 * time.Second

	// DefaultMaxBytes bounds a downloaded document
	DefaultMaxBytes int64 = 64 << 20
)

// HTTPFetcher downloads documents over HTTP(S). file:// locators are read
// from local disk, which the CLI uses for documents on hand.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher. Non-positive arguments take defaults.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch returns the raw bytes behind locator. Every failure wraps domain.ErrFetch.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid locator: %v", domain.ErrFetch, err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.get(ctx, locator)
	case "file":
		return f.readFile(u.Path)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrFetch, u.Scheme)
	}
}

func (f *HTTPFetcher) get(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrFetch, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: server returned status %d", domain.ErrFetch, resp.StatusCode)
	}

	return f.readAll(resp.Body)
}

func (f *HTTPFetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	defer file.Close()

	return f.readAll(file)
}

// readAll reads r up to maxBytes and fails on anything larger
func (f *HTTPFetcher) readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", domain.ErrFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", domain.ErrFetch, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrFetch)
	}
	return data, nil
}
