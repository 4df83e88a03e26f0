// Package telegram is a minimal Telegram Bot API client covering what
// the bridge needs: long-polled updates, file resolution and plain text
// messages.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the Telegram Bot API.
type Client struct {
	token       string
	baseURL     string
	fileBaseURL string
	hc          *http.Client
}

// ClientConfig configures the Bot API client.
type ClientConfig struct {
	Token       string
	BaseURL     string
	FileBaseURL string
	HTTPTimeout time.Duration
}

// NewClient creates a Bot API client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	if cfg.FileBaseURL == "" {
		cfg.FileBaseURL = "https://api.telegram.org/file"
	}
	if cfg.HTTPTimeout == 0 {
		// Long polling holds the request open up to the poll timeout,
		// so the client timeout must exceed it.
		cfg.HTTPTimeout = 65 * time.Second
	}
	return &Client{
		token:       cfg.Token,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		fileBaseURL: strings.TrimRight(cfg.FileBaseURL, "/"),
		hc:          &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Chat identifies a Telegram chat or channel.
type Chat struct {
	ID    int64  `json:"id"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"`
}

// FileRef describes a file attached to a message.
type FileRef struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	Duration     int    `json:"duration,omitempty"`
}

// Message is an inbound Bot API message.
type Message struct {
	MessageID int64    `json:"message_id"`
	Chat      Chat     `json:"chat"`
	Text      string   `json:"text,omitempty"`
	Caption   string   `json:"caption,omitempty"`
	Video     *FileRef `json:"video,omitempty"`
	Document  *FileRef `json:"document,omitempty"`
}

// Update is one entry from getUpdates.
type Update struct {
	UpdateID    int64    `json:"update_id"`
	Message     *Message `json:"message,omitempty"`
	ChannelPost *Message `json:"channel_post,omitempty"`
}

// Post returns whichever message the update carries, if any.
func (u Update) Post() *Message {
	if u.ChannelPost != nil {
		return u.ChannelPost
	}
	return u.Message
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	var body io.Reader
	if params != nil {
		payload, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !api.OK {
		return fmt.Errorf("telegram API error %d: %s", api.ErrorCode, api.Description)
	}
	if result != nil {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// GetUpdates long-polls for new updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "channel_post"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage posts a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	return c.call(ctx, "sendMessage", params, nil)
}

// FileURL resolves a file id to a direct download URL.
func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	var file struct {
		FilePath string `json:"file_path"`
	}
	params := map[string]any{"file_id": fileID}
	if err := c.call(ctx, "getFile", params, &file); err != nil {
		return "", err
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("getFile returned no file_path for %s", fileID)
	}
	return fmt.Sprintf("%s/bot%s/%s", c.fileBaseURL, c.token, file.FilePath), nil
}

// Me returns the bot's username, primarily as a connectivity check.
func (c *Client) Me(ctx context.Context) (string, error) {
	var me struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	}
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return "", err
	}
	if me.Username != "" {
		return me.Username, nil
	}
	return me.FirstName, nil
}
