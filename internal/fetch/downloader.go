// Package fetch retrieves dataset artifacts over HTTP and unpacks recognized
// archive kinds next to the download. Transfer and extraction are separate
// collaborators so pipeline tests can substitute fakes for either.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// Downloader fetches a URL to a local file and reports the bytes written.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) (int64, error)
}

// DownloadError reports a failed transfer. StatusCode is zero when the
// request never produced a response.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// =============================================================================
// HTTP DOWNLOADER
// =============================================================================

// DownloaderConfig configures the HTTP downloader behavior.
type DownloaderConfig struct {
	// Timeout for the whole transfer. Zero means no client-side limit; the
	// transport's defaults apply.
	Timeout time.Duration

	// MaxAttempts per Download call (default: 1, no automatic retry).
	MaxAttempts int

	// RateLimit requests per second (default: 10).
	RateLimit float64

	// RateBurst maximum burst size (default: 5).
	RateBurst int

	// UserAgent string (default: "gaiaCore/1.0").
	UserAgent string

	// Transport allows injecting a custom HTTP transport (for tests/stubs).
	Transport http.RoundTripper
}

// DefaultDownloaderConfig returns a downloader config with sensible defaults.
func DefaultDownloaderConfig() *DownloaderConfig {
	return &DownloaderConfig{
		MaxAttempts: 1,
		RateLimit:   10.0,
		RateBurst:   5,
		UserAgent:   "gaiaCore/1.0",
	}
}

// HTTPDownloader is a rate-limited Downloader over plain HTTP GET. Redirects
// follow the default client policy.
type HTTPDownloader struct {
	config      *DownloaderConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

var _ Downloader = (*HTTPDownloader)(nil)

// NewHTTPDownloader creates a downloader with the given configuration.
func NewHTTPDownloader(config *DownloaderConfig) *HTTPDownloader {
	if config == nil {
		config = DefaultDownloaderConfig()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10.0
	}
	if config.RateBurst == 0 {
		config.RateBurst = 5
	}
	if config.UserAgent == "" {
		config.UserAgent = "gaiaCore/1.0"
	}

	return &HTTPDownloader{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}
}

// Download GETs url into destPath, overwriting any existing file.
func (d *HTTPDownloader) Download(ctx context.Context, url, destPath string) (int64, error) {
	if err := d.rateLimiter.Wait(ctx); err != nil {
		return 0, &DownloadError{URL: url, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	var lastErr *DownloadError
	for attempt := 0; attempt < d.config.MaxAttempts; attempt++ {
		written, err := d.downloadOnce(ctx, url, destPath)
		if err == nil {
			return written, nil
		}
		lastErr = err
		if !retryableStatus(err.StatusCode) {
			return 0, err
		}

		backoff := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
		select {
		case <-ctx.Done():
			return 0, &DownloadError{URL: url, Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}
	return 0, lastErr
}

func (d *HTTPDownloader) downloadOnce(ctx context.Context, url, destPath string) (int64, *DownloadError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &DownloadError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", d.config.UserAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &DownloadError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, &DownloadError{URL: url, Err: fmt.Errorf("create %s: %w", destPath, err)}
	}
	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, &DownloadError{URL: url, Err: fmt.Errorf("write %s: %w", destPath, err)}
	}
	return written, nil
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
