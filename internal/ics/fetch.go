package ics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/hostcal/internal/apperr"
)

// DefaultTimeout bounds a feed fetch when the caller supplies none.
const DefaultTimeout = 30 * time.Second

// maxFeedBytes caps the body we are willing to buffer.
const maxFeedBytes = 16 << 20

// Fetcher retrieves raw calendar feeds over HTTP. It never retries; a failed
// fetch aborts the sync that asked for it.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher whose requests are bounded by timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the feed body at url. Network failures, timeouts and non-2xx
// responses are reported as transport errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, apperr.Transport("feed url is not configured", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Transport("build feed request", err)
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.Transport(fmt.Sprintf("fetch feed %s", RedactURL(url)), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Transport(fmt.Sprintf("feed returned status %d", resp.StatusCode), nil).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, apperr.Transport("read feed body", err)
	}
	return body, nil
}

// RedactURL keeps only scheme and host; feed paths carry private tokens.
func RedactURL(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + "/...(redacted)"
}
