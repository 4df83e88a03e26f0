// Package downloader materializes remote files on local disk with
// bounded retry and a free-space guard.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/iconidentify/vidbridge/internal/domain"
)

// Downloader fetches a remote file to a local path.
type Downloader interface {
	// DownloadToFile fetches url and writes it to destPath, returning
	// the number of bytes written. A partial file may remain on error.
	DownloadToFile(ctx context.Context, url, destPath string) (int64, error)
}

// HTTPDownloader implements Downloader using plain HTTP requests.
type HTTPDownloader struct {
	client       *http.Client
	minFreeBytes int64
	retry        RetryConfig
}

// Config holds downloader configuration.
type Config struct {
	Timeout      time.Duration
	MinFreeBytes int64
	Retry        RetryConfig
}

// NewHTTPDownloader creates a new HTTP file downloader.
func NewHTTPDownloader(cfg Config) *HTTPDownloader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	return &HTTPDownloader{
		client:       &http.Client{Timeout: cfg.Timeout},
		minFreeBytes: cfg.MinFreeBytes,
		retry:        cfg.Retry,
	}
}

// DownloadToFile fetches url and writes it to destPath.
func (d *HTTPDownloader) DownloadToFile(ctx context.Context, url, destPath string) (int64, error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, &domain.DownloadError{Path: destPath, Err: err}
	}

	if d.minFreeBytes > 0 {
		if free := freeDiskSpace(dir); free > 0 && free < d.minFreeBytes {
			return 0, &domain.DownloadError{Path: destPath, Err: domain.ErrStorageFull}
		}
	}

	n, err := Retry(ctx, d.retry, isRetryable, func() (int64, error) {
		return d.downloadOnce(ctx, url, destPath)
	})
	if err != nil {
		return n, &domain.DownloadError{Path: destPath, Err: err}
	}
	return n, nil
}

func (d *HTTPDownloader) downloadOnce(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, domain.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Write to a temp file first, then rename, so destPath never holds
	// a half-written download.
	tmp := destPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if err != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("write file: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("close file: %w", closeErr)
	}

	if err := os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("move file: %w", err)
	}
	return n, nil
}

func isRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case err == domain.ErrStorageFull:
		return false
	case err == context.Canceled || err == context.DeadlineExceeded:
		return false
	}
	// Rate limits and other network-level failures are retryable.
	return true
}
