package domain

import (
	"fmt"
	"strings"
)

// Attachment describes a media payload carried by an inbound message.
type Attachment struct {
	FileID   string
	FileName string
	MimeType string
	Size     int64
	Duration int
}

// Item is one inbound unit of work from the messaging source.
type Item struct {
	MessageID int64
	ChatID    int64
	Text      string

	// Video is set when the message carries a first-class video attachment.
	Video *Attachment

	// Document is set when the message carries a generic document
	// attachment. Some channels post videos disguised as documents.
	Document *Attachment
}

// Key returns the dedup identity of the item.
func (it Item) Key() string {
	return fmt.Sprintf("%d:%d", it.ChatID, it.MessageID)
}

// VideoAttachment returns the attachment to treat as a video, or nil if
// the item carries no recognizable video payload. A document counts when
// it is tagged with a video mime type or a video file extension.
func (it Item) VideoAttachment() *Attachment {
	if it.Video != nil {
		return it.Video
	}
	if it.Document != nil && it.Document.IsVideo() {
		return it.Document
	}
	return nil
}

// IsVideo reports whether the attachment looks like a video payload.
func (a *Attachment) IsVideo() bool {
	if a == nil {
		return false
	}
	if strings.HasPrefix(strings.ToLower(a.MimeType), "video/") {
		return true
	}
	name := strings.ToLower(a.FileName)
	for _, ext := range []string{".mp4", ".mov", ".avi", ".mkv", ".webm"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// LocalFileName returns the deterministic download filename for the item.
func (it Item) LocalFileName() string {
	return fmt.Sprintf("tg_%d.mp4", it.MessageID)
}

// Title derives the upload title: first line of the caption, else a
// fallback built from the message id. The result is truncated to maxLen.
func (it Item) Title(maxLen int) string {
	title := ""
	if it.Text != "" {
		title = strings.SplitN(it.Text, "\n", 2)[0]
	}
	if title == "" {
		title = fmt.Sprintf("Telegram post %d", it.MessageID)
	}
	return Truncate(title, maxLen)
}

// Truncate shortens s to at most n characters (runes, so multi-byte
// captions never get cut mid-character).
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
