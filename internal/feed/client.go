// Package feed retrieves IOC records from the upstream feed.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
)

// Fetcher retrieves the full current IOC list in one call.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.IOC, error)
}

// DefaultMaxBytes bounds the size of a feed response body.
const DefaultMaxBytes = 32 << 20

// HTTPFetcher reads the feed with a single unauthenticated GET.
type HTTPFetcher struct {
	url      string
	format   Format
	client   *http.Client
	maxBytes int64
}

// Ensure HTTPFetcher implements Fetcher.
var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher for url. A zero timeout disables the
// client timeout; the caller's context still applies.
func NewHTTPFetcher(url string, format Format, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		url:      url,
		format:   format,
		client:   &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxBytes,
	}
}

// Name returns the feed URL.
func (f *HTTPFetcher) Name() string {
	return f.url
}

// Fetch downloads and decodes the feed.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]domain.IOC, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", domain.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", domain.ErrFetchFailed, resp.StatusCode, f.url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrFetchFailed, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", domain.ErrFetchFailed, f.maxBytes)
	}

	format := f.format
	if format == FormatAuto || format == "" {
		format = FormatFor(resp.Header.Get("Content-Type"), req.URL.Path)
	}
	records, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	slog.Debug("feed fetched", "url", f.url, "records", len(records), "bytes", len(data))
	return records, nil
}
