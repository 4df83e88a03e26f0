// Package source adapts the messaging platform into the pipeline's
// inbound item model.
package source

import (
	"context"

	"github.com/iconidentify/vidbridge/internal/domain"
)

// Handler processes one inbound item. Invocations are sequential; the
// handler is expected to offload long work and return quickly.
type Handler func(ctx context.Context, item domain.Item)

// Source delivers inbound items and materializes their attachments.
type Source interface {
	// Run blocks, delivering items to handler until ctx is done.
	Run(ctx context.Context, handler Handler) error

	// Download materializes the item's video attachment at destPath.
	Download(ctx context.Context, item domain.Item, destPath string) error
}
