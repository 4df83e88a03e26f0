// Package uploader pushes local media files to the hosting platform
// over the resumable chunk protocol, with bounded exponential-backoff
// retry and skip-vs-fail classification.
package uploader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iconidentify/vidbridge/internal/domain"
	"github.com/iconidentify/vidbridge/internal/notify"
	"github.com/iconidentify/vidbridge/internal/telemetry"
	"github.com/iconidentify/vidbridge/pkg/hosting"
)

// Uploader transfers one local file to the hosting platform. An empty
// id with a nil error means the file was deliberately skipped
// (unsupported or rejected media); errors are reserved for failures.
type Uploader interface {
	Upload(ctx context.Context, path, title, description, privacy string) (string, error)
}

// SupportedExtensions are the media types the platform accepts.
var SupportedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// Config holds uploader tuning.
type Config struct {
	MaxTitleLength int
	ChunkSize      int64
	MaxRetries     int
	// BackoffUnit is the base of the 2^attempt backoff; one second in
	// production, shrunk in tests.
	BackoffUnit time.Duration
}

// HostingUploader implements Uploader against the hosting API client.
type HostingUploader struct {
	client   *hosting.Client
	notifier notify.Notifier
	logger   *slog.Logger
	cfg      Config
}

// New creates a hosting-backed uploader.
func New(client *hosting.Client, notifier notify.Notifier, cfg Config, logger *slog.Logger) *HostingUploader {
	if cfg.MaxTitleLength <= 0 {
		cfg.MaxTitleLength = 100
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 256 * 1024
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = time.Second
	}
	return &HostingUploader{
		client:   client,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
}

// Upload transfers the file at path. Each call is independent and safe
// to run concurrently with other calls.
func (u *HostingUploader) Upload(ctx context.Context, path, title, description, privacy string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !SupportedExtensions[ext] {
		u.logger.Warn("unsupported media type, skipping", "path", path)
		return "", nil
	}

	title = domain.Truncate(title, u.cfg.MaxTitleLength)

	f, err := os.Open(path)
	if err != nil {
		return "", &domain.UploadError{Fatal: true, Err: fmt.Errorf("open file: %w", err)}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &domain.UploadError{Fatal: true, Err: fmt.Errorf("stat file: %w", err)}
	}
	size := info.Size()
	if size == 0 {
		// A zero-byte chunk has no valid Content-Range; the platform
		// would reject it on every retry.
		u.logger.Warn("empty file, skipping", "path", path)
		return "", nil
	}

	meta := hosting.UploadMetadata{
		Title:       title,
		Description: description,
		Privacy:     privacy,
		ContentType: contentTypeFor(ext),
	}

	start := time.Now()
	id, err := u.transfer(ctx, f, size, meta, title, path)
	if err == nil && id != "" {
		telemetry.UploadDuration.Observe(time.Since(start).Seconds())
	}
	return id, err
}

// transfer runs the resumable session. Progress survives retries: a
// failed chunk is re-sent from the last committed offset, the session
// itself is only opened once.
func (u *HostingUploader) transfer(ctx context.Context, f *os.File, size int64, meta hosting.UploadMetadata, title, path string) (string, error) {
	var sess *hosting.Session
	var offset int64
	retries := 0

	for {
		res, err := u.advance(ctx, &sess, f, offset, size, meta)
		if err == nil {
			if res.Done {
				return res.VideoID, nil
			}
			if res.Committed > offset {
				offset = res.Committed
			}
			continue
		}

		if hosting.IsMediaRejected(err) {
			u.logger.Warn("media type rejected by platform", "path", path, "error", err)
			u.notifier.Send(ctx, fmt.Sprintf("Skipped unsupported file: %s", path))
			return "", nil
		}

		retries++
		telemetry.UploadRetries.Inc()
		u.logger.Error("upload attempt failed", "title", title, "attempt", retries, "error", err)
		u.notifier.Send(ctx, fmt.Sprintf("Upload error for %q: %v", title, err))

		if retries > u.cfg.MaxRetries {
			u.notifier.Send(ctx, fmt.Sprintf("Upload of %q abandoned after %d attempts", title, retries))
			return "", &domain.UploadError{Attempts: retries, Fatal: true, Err: err}
		}

		delay := u.cfg.BackoffUnit * (1 << retries)
		u.logger.Info("retrying upload", "delay", delay, "attempt", retries, "max_retries", u.cfg.MaxRetries)
		select {
		case <-ctx.Done():
			return "", &domain.UploadError{Attempts: retries, Fatal: true, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
}

// advance performs one network call: opening the session if needed,
// otherwise sending the next chunk.
func (u *HostingUploader) advance(ctx context.Context, sess **hosting.Session, f *os.File, offset, size int64, meta hosting.UploadMetadata) (hosting.ChunkResult, error) {
	if *sess == nil {
		s, err := u.client.StartUpload(ctx, meta, size)
		if err != nil {
			return hosting.ChunkResult{}, err
		}
		*sess = s
		return hosting.ChunkResult{Committed: 0}, nil
	}

	chunk := make([]byte, u.cfg.ChunkSize)
	n, err := f.ReadAt(chunk, offset)
	if err != nil && err != io.EOF {
		return hosting.ChunkResult{}, fmt.Errorf("read chunk: %w", err)
	}
	return (*sess).PutChunk(ctx, chunk[:n], offset, size)
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
