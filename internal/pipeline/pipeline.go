// Package pipeline orchestrates one inbound item through dedup check,
// download, upload, ledger write and cleanup, in that order. Each step's
// precondition is the previous step's postcondition: the ledger is only
// written after a confirmed remote id, and the local file is only
// deleted after the ledger write succeeded.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/iconidentify/vidbridge/internal/domain"
	"github.com/iconidentify/vidbridge/internal/ledger"
	"github.com/iconidentify/vidbridge/internal/notify"
	"github.com/iconidentify/vidbridge/internal/queue"
	"github.com/iconidentify/vidbridge/internal/source"
	"github.com/iconidentify/vidbridge/internal/telemetry"
	"github.com/iconidentify/vidbridge/internal/uploader"
)

// Config holds pipeline configuration.
type Config struct {
	DownloadDir    string
	MaxTitleLength int
	UploadPrivacy  string
}

// Pipeline wires the ledger, source, uploader and notifier together.
type Pipeline struct {
	cfg      Config
	ledger   ledger.Ledger
	src      source.Source
	uploader uploader.Uploader
	notifier notify.Notifier
	jobs     queue.JobQueue
	logger   *slog.Logger
}

// New creates a pipeline. All collaborators are injected; the pipeline
// holds no global state.
func New(
	cfg Config,
	led ledger.Ledger,
	src source.Source,
	up uploader.Uploader,
	notifier notify.Notifier,
	jobs queue.JobQueue,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		ledger:   led,
		src:      src,
		uploader: up,
		notifier: notifier,
		jobs:     jobs,
		logger:   logger,
	}
}

// HandleItem is the inbound event entry point. It runs the cheap,
// sequential stages (dedup check, video filter, download) inline and
// enqueues the blocking upload onto the worker pool so the event loop
// stays responsive.
func (p *Pipeline) HandleItem(ctx context.Context, item domain.Item) {
	telemetry.ItemsReceived.Inc()
	logger := p.logger.With("item", item.Key())

	// Dedup short-circuit runs before any download or upload work.
	handled, err := p.ledger.IsHandled(ctx, item.MessageID, item.ChatID)
	if err != nil {
		// A failing ledger must not be read as "not yet uploaded".
		telemetry.ItemsFailed.Inc()
		logger.Error("ledger check failed", "error", err)
		p.notifier.Send(ctx, fmt.Sprintf("Ledger unavailable, cannot process message %d in chat %d: %v", item.MessageID, item.ChatID, err))
		return
	}
	if handled {
		telemetry.ItemsSkipped.Inc()
		logger.Info("already processed, skipping")
		return
	}

	if item.VideoAttachment() == nil {
		telemetry.ItemsSkipped.Inc()
		logger.Info("ignored, not a video")
		return
	}

	destPath := filepath.Join(p.cfg.DownloadDir, item.LocalFileName())
	if err := p.src.Download(ctx, item, destPath); err != nil {
		telemetry.ItemsFailed.Inc()
		logger.Error("download failed", "error", err)
		p.notifier.Send(ctx, fmt.Sprintf("Found new video %s\nDownload failed: %v", item.LocalFileName(), err))
		return
	}

	job := domain.NewJob(domain.JobID("job_"+uuid.New().String()[:8]), item, destPath)
	if err := p.jobs.Enqueue(ctx, job); err != nil {
		telemetry.ItemsFailed.Inc()
		logger.Error("enqueue failed", "error", err)
		p.notifier.Send(ctx, fmt.Sprintf("Found new video %s\nCould not queue upload: %v", item.LocalFileName(), err))
		return
	}
	logger.Info("upload queued", "job_id", job.ID, "path", destPath)
}

// ProcessJob runs the upload half of the pipeline for one downloaded
// item. Called from the worker pool.
func (p *Pipeline) ProcessJob(ctx context.Context, job *domain.Job) {
	logger := p.logger.With("item", job.Item.Key(), "job_id", job.ID)

	outcome := p.uploadAndRecord(ctx, job, logger)
	name := job.Item.LocalFileName()

	switch outcome.Status {
	case domain.OutcomeSkipped:
		telemetry.ItemsSkipped.Inc()
		job.MarkSkipped()
		logger.Info("upload skipped", "reason", outcome.Reason)
		p.notifier.Send(ctx, fmt.Sprintf("Found new video %s\nUpload skipped: %s", name, outcome.Reason))

	case domain.OutcomeUploaded:
		telemetry.UploadsSucceeded.Inc()
		job.MarkCompleted()
		logger.Info("upload completed", "video_id", outcome.VideoID)
		p.notifier.Send(ctx, fmt.Sprintf("Found new video %s\nUploaded, video id %s\nLocal copy removed", name, outcome.VideoID))

	case domain.OutcomeFailed:
		telemetry.ItemsFailed.Inc()
		job.MarkFailed(outcome.Err.Error())
		logger.Error("upload failed", "error", outcome.Err)
		p.notifier.Send(ctx, fmt.Sprintf("Found new video %s\nUpload failed: %v\nLocal file kept for retry", name, outcome.Err))
	}

	if err := p.jobs.Update(ctx, job); err != nil {
		logger.Error("job status update failed", "error", err)
	}
}

// uploadAndRecord performs upload, ledger write and cleanup in strict
// order and reports the result as an explicit outcome value.
func (p *Pipeline) uploadAndRecord(ctx context.Context, job *domain.Job, logger *slog.Logger) domain.Outcome {
	item := job.Item
	title := item.Title(p.cfg.MaxTitleLength)

	videoID, err := p.uploader.Upload(ctx, job.LocalPath, title, item.Text, p.cfg.UploadPrivacy)
	if err != nil {
		// Local file kept so a future run or operator can retry.
		return domain.Failed(err)
	}
	if videoID == "" {
		return domain.Skipped("hosting platform declined the media")
	}

	// Ledger write strictly before cleanup. If the write fails the
	// remote video already exists with no local record; surface it
	// loudly rather than swallowing it.
	rec := domain.UploadRecord{
		SourceMessageID: item.MessageID,
		SourceChatID:    item.ChatID,
		SourceText:      item.Text,
		LocalPath:       job.LocalPath,
		RemoteVideoID:   videoID,
	}
	if _, err := p.ledger.Upsert(ctx, rec); err != nil {
		logger.Error("uploaded but ledger write failed, remote video has no local record",
			"video_id", videoID, "error", err)
		return domain.Failed(fmt.Errorf("uploaded as %s but ledger write failed: %w", videoID, err))
	}

	// Cleanup only after a durable record. Deletion failure is
	// non-fatal; the file is merely orphaned.
	if err := os.Remove(job.LocalPath); err != nil {
		logger.Warn("could not delete local file", "path", job.LocalPath, "error", err)
		p.notifier.Send(ctx, fmt.Sprintf("Could not delete local file %s: %v", job.LocalPath, err))
	}

	return domain.Uploaded(videoID)
}
