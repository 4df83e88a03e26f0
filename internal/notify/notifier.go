// Package notify delivers best-effort status messages to an operational
// channel. Delivery lives in its own failure domain: a failed send is
// logged and dropped, never surfaced to the pipeline.
package notify

import (
	"context"
	"log/slog"

	"github.com/iconidentify/vidbridge/internal/domain"
	"github.com/iconidentify/vidbridge/pkg/telegram"
)

// MaxMessageLength is the Telegram sendMessage text limit.
const MaxMessageLength = 4000

// Notifier sends fire-and-forget status text. Implementations never
// return errors and never retry.
type Notifier interface {
	Send(ctx context.Context, text string)
}

// TelegramNotifier delivers status messages to a Telegram chat.
type TelegramNotifier struct {
	client *telegram.Client
	chatID string
	logger *slog.Logger
}

// NewTelegramNotifier creates a notifier posting to chatID.
func NewTelegramNotifier(client *telegram.Client, chatID string, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		client: client,
		chatID: chatID,
		logger: logger,
	}
}

// Send posts text to the configured chat, truncated to the channel
// limit. Failures are logged at debug and discarded.
func (n *TelegramNotifier) Send(ctx context.Context, text string) {
	text = domain.Truncate(text, MaxMessageLength)
	if err := n.client.SendMessage(ctx, n.chatID, text); err != nil {
		n.logger.Debug("notification delivery failed", "error", err)
	}
}

// NopNotifier discards all messages. Used when no notify chat is
// configured.
type NopNotifier struct{}

func (NopNotifier) Send(ctx context.Context, text string) {}
