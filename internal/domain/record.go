package domain

import (
	"time"
)

// UploadRecord is one row of the dedup/audit ledger. At most one record
// exists per (SourceMessageID, SourceChatID); a record is only ever
// written after the hosting platform confirmed a video id.
type UploadRecord struct {
	ID              int64
	SourceMessageID int64
	SourceChatID    int64
	SourceText      string
	LocalPath       string
	RemoteVideoID   string
	CreatedAt       time.Time
}
