package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iconidentify/vidbridge/internal/domain"
	"github.com/iconidentify/vidbridge/internal/downloader"
	"github.com/iconidentify/vidbridge/pkg/telegram"
)

// TelegramSource delivers items from watched Telegram chats via Bot API
// long polling.
type TelegramSource struct {
	client      *telegram.Client
	dl          downloader.Downloader
	chats       map[int64]bool
	pollTimeout time.Duration
	retryPause  time.Duration
	logger      *slog.Logger

	offset int64
}

// NewTelegramSource creates a source watching the given chat ids.
func NewTelegramSource(client *telegram.Client, dl downloader.Downloader, chatIDs []int64, pollTimeout time.Duration, logger *slog.Logger) *TelegramSource {
	chats := make(map[int64]bool, len(chatIDs))
	for _, id := range chatIDs {
		chats[id] = true
	}
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &TelegramSource{
		client:      client,
		dl:          dl,
		chats:       chats,
		pollTimeout: pollTimeout,
		retryPause:  5 * time.Second,
		logger:      logger,
	}
}

// Run long-polls for updates and dispatches items one at a time. Poll
// errors are logged and retried after a short pause; only context
// cancellation stops the loop.
func (s *TelegramSource) Run(ctx context.Context, handler Handler) error {
	username, err := s.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("connect to Telegram: %w", err)
	}
	s.logger.Info("telegram source connected", "bot", username, "chats", len(s.chats))

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := s.client.GetUpdates(ctx, s.offset, s.pollTimeout)
		if err != nil {
			// HTTP client timeouts wrap context.DeadlineExceeded even
			// while the run context is alive, so only the context decides
			// shutdown. Everything else is a transient poll failure.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("poll failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryPause):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= s.offset {
				s.offset = upd.UpdateID + 1
			}
			msg := upd.Post()
			if msg == nil || !s.chats[msg.Chat.ID] {
				continue
			}
			handler(ctx, itemFromMessage(msg))
		}
	}
}

// Download materializes the item's video attachment at destPath.
func (s *TelegramSource) Download(ctx context.Context, item domain.Item, destPath string) error {
	att := item.VideoAttachment()
	if att == nil {
		return &domain.DownloadError{Path: destPath, Err: fmt.Errorf("item %s has no video attachment", item.Key())}
	}

	url, err := s.client.FileURL(ctx, att.FileID)
	if err != nil {
		return &domain.DownloadError{Path: destPath, Err: err}
	}

	n, err := s.dl.DownloadToFile(ctx, url, destPath)
	if err != nil {
		return err
	}
	s.logger.Info("attachment downloaded", "item", item.Key(), "path", destPath, "bytes", n)
	return nil
}

func itemFromMessage(msg *telegram.Message) domain.Item {
	text := msg.Caption
	if text == "" {
		text = msg.Text
	}
	item := domain.Item{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		Text:      text,
	}
	if msg.Video != nil {
		item.Video = attachment(msg.Video)
	}
	if msg.Document != nil {
		item.Document = attachment(msg.Document)
	}
	return item
}

func attachment(f *telegram.FileRef) *domain.Attachment {
	return &domain.Attachment{
		FileID:   f.FileID,
		FileName: f.FileName,
		MimeType: f.MimeType,
		Size:     f.FileSize,
		Duration: f.Duration,
	}
}
