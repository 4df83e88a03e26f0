package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/iconidentify/vidbridge/internal/domain"
)

// SQLiteLedger implements Ledger on a local SQLite database.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the ledger database at path and
// ensures the schema exists. Safe to call on every process start.
func OpenSQLite(path string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY from concurrent upload workers.
	db.SetMaxOpenConns(1)

	l := &SQLiteLedger{db: db}
	if err := l.init(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) init() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS upload_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_message_id INTEGER NOT NULL,
			source_chat_id INTEGER NOT NULL,
			source_text TEXT,
			local_path TEXT NOT NULL,
			remote_video_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(source_message_id, source_chat_id)
		);
		CREATE INDEX IF NOT EXISTS idx_upload_records_created ON upload_records(created_at);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// IsHandled reports whether a record exists for the source item.
func (l *SQLiteLedger) IsHandled(ctx context.Context, messageID, chatID int64) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM upload_records WHERE source_message_id = ? AND source_chat_id = ?`,
		messageID, chatID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, domain.NewStorageError("lookup", err)
	}
	return true, nil
}

// Upsert inserts or updates the record for the source item. Concurrent
// calls for the same key resolve last-writer-wins on the unique pair.
func (l *SQLiteLedger) Upsert(ctx context.Context, rec domain.UploadRecord) (domain.UploadRecord, error) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO upload_records (source_message_id, source_chat_id, source_text, local_path, remote_video_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_message_id, source_chat_id) DO UPDATE SET
			source_text = excluded.source_text,
			local_path = excluded.local_path,
			remote_video_id = excluded.remote_video_id`,
		rec.SourceMessageID, rec.SourceChatID, rec.SourceText, rec.LocalPath, nullable(rec.RemoteVideoID),
	)
	if err != nil {
		return domain.UploadRecord{}, domain.NewStorageError("upsert", err)
	}
	return l.get(ctx, rec.SourceMessageID, rec.SourceChatID)
}

func (l *SQLiteLedger) get(ctx context.Context, messageID, chatID int64) (domain.UploadRecord, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, source_message_id, source_chat_id, COALESCE(source_text, ''), local_path, COALESCE(remote_video_id, ''), created_at
		FROM upload_records WHERE source_message_id = ? AND source_chat_id = ?`,
		messageID, chatID,
	)
	var rec domain.UploadRecord
	err := row.Scan(&rec.ID, &rec.SourceMessageID, &rec.SourceChatID, &rec.SourceText, &rec.LocalPath, &rec.RemoteVideoID, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.UploadRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.UploadRecord{}, domain.NewStorageError("get", err)
	}
	return rec, nil
}

// Recent returns up to limit records, newest first.
func (l *SQLiteLedger) Recent(ctx context.Context, limit int) ([]domain.UploadRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, source_message_id, source_chat_id, COALESCE(source_text, ''), local_path, COALESCE(remote_video_id, ''), created_at
		FROM upload_records ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, domain.NewStorageError("list", err)
	}
	defer rows.Close()

	var recs []domain.UploadRecord
	for rows.Next() {
		var rec domain.UploadRecord
		if err := rows.Scan(&rec.ID, &rec.SourceMessageID, &rec.SourceChatID, &rec.SourceText, &rec.LocalPath, &rec.RemoteVideoID, &rec.CreatedAt); err != nil {
			return nil, domain.NewStorageError("scan", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list", err)
	}
	return recs, nil
}

// Ping verifies the database is reachable.
func (l *SQLiteLedger) Ping(ctx context.Context) error {
	if err := l.db.PingContext(ctx); err != nil {
		return domain.NewStorageError("ping", err)
	}
	return nil
}

// Close closes the database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
