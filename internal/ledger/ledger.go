// Package ledger is the durable dedup and audit store. One row exists
// per source item, written only after the hosting platform confirmed an
// upload, which is what makes reprocessing the same inbound event a
// no-op.
package ledger

import (
	"context"

	"github.com/iconidentify/vidbridge/internal/domain"
)

// Ledger records confirmed uploads keyed by source item identity.
type Ledger interface {
	// IsHandled reports whether a record exists for the source item.
	// A store failure is returned as a *domain.StorageError and must
	// not be read as "not handled".
	IsHandled(ctx context.Context, messageID, chatID int64) (bool, error)

	// Upsert inserts a record, or updates the remote video id, local
	// path and text of the existing row for the same source item.
	// Atomic with respect to the (message, chat) uniqueness constraint.
	Upsert(ctx context.Context, rec domain.UploadRecord) (domain.UploadRecord, error)

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.UploadRecord, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}
