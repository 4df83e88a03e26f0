// Package hosting is a thin client for the video platform's resumable
// upload protocol: one metadata POST opens a session, then the media
// bytes go up in Content-Range chunks that can be retried individually.
package hosting

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

// DefaultBaseURL is the resumable video insert endpoint.
const DefaultBaseURL = "https://www.googleapis.com/upload/youtube/v3"

// Client talks to the hosting platform API.
type Client struct {
	baseURL string
	tokens  TokenSource
	hc      *http.Client
}

// ClientConfig configures the hosting client.
type ClientConfig struct {
	BaseURL     string
	Tokens      TokenSource
	HTTPTimeout time.Duration
}

// NewClient creates a hosting API client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 5 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		tokens:  cfg.Tokens,
		hc:      &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// UploadMetadata is the request body for opening an upload session.
type UploadMetadata struct {
	Title       string
	Description string
	Privacy     string
	ContentType string
}

type insertBody struct {
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
	} `json:"status"`
}

// Session is an open resumable upload session.
type Session struct {
	uri    string
	client *Client
}

// ChunkResult reports the effect of one chunk transfer.
type ChunkResult struct {
	// Done is true when the platform confirmed the full upload.
	Done bool

	// VideoID is the created resource id, set only when Done.
	VideoID string

	// Committed is the number of bytes the platform has acknowledged.
	Committed int64
}

// APIError is a structured platform error response.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("hosting API error %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("hosting API error %d: %s", e.StatusCode, e.Message)
}

// IsMediaRejected reports whether the platform refused the media type
// of the upload. This is terminal for the file but not for the process.
func IsMediaRejected(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	if apiErr.Reason == "invalidMediaType" || apiErr.Reason == "uploadMediaTypeRejected" {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "media type")
}

// StartUpload opens a resumable upload session for a video of the given
// size. The session URI comes back in the Location header.
func (c *Client) StartUpload(ctx context.Context, meta UploadMetadata, size int64) (*Session, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	var body insertBody
	body.Snippet.Title = meta.Title
	body.Snippet.Description = meta.Description
	body.Status.PrivacyStatus = meta.Privacy

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	url := c.baseURL + "/videos?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", size))
	if meta.ContentType != "" {
		req.Header.Set("X-Upload-Content-Type", meta.ContentType)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	loc := resp.Header.Get("Location")
	if loc == "" {
		return nil, fmt.Errorf("session response missing Location header")
	}

	return &Session{uri: loc, client: c}, nil
}

// PutChunk uploads one chunk at the given offset of a total-sized file.
// A 308 response is partial progress; a 2xx response carries the final
// resource JSON.
func (s *Session) PutChunk(ctx context.Context, chunk []byte, offset, total int64) (ChunkResult, error) {
	token, err := s.client.tokens.Token(ctx)
	if err != nil {
		return ChunkResult{}, fmt.Errorf("acquire token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.uri, bytes.NewReader(chunk))
	if err != nil {
		return ChunkResult{}, fmt.Errorf("create request: %w", err)
	}
	end := offset + int64(len(chunk)) - 1
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, end, total))
	req.ContentLength = int64(len(chunk))

	resp, err := s.client.hc.Do(req)
	if err != nil {
		return ChunkResult{}, fmt.Errorf("send chunk: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPermanentRedirect: // 308 Resume Incomplete
		committed := end + 1
		if r := resp.Header.Get("Range"); r != "" {
			committed = parseRangeEnd(r) + 1
		}
		return ChunkResult{Committed: committed}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var created struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return ChunkResult{}, fmt.Errorf("decode upload response: %w", err)
		}
		if created.ID == "" {
			return ChunkResult{}, fmt.Errorf("upload response missing resource id")
		}
		return ChunkResult{Done: true, VideoID: created.ID, Committed: total}, nil

	default:
		return ChunkResult{}, s.client.parseError(resp)
	}
}

// parseRangeEnd extracts the last byte index from "bytes=0-12345".
func parseRangeEnd(r string) int64 {
	idx := strings.LastIndex(r, "-")
	if idx < 0 {
		return -1
	}
	var end int64
	if _, err := fmt.Sscanf(r[idx+1:], "%d", &end); err != nil {
		return -1
	}
	return end
}

func (c *Client) parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		apiErr.Message = resp.Status
		return apiErr
	}

	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &parsed) == nil && parsed.Error.Message != "" {
		apiErr.Message = parsed.Error.Message
		if len(parsed.Error.Errors) > 0 {
			apiErr.Reason = parsed.Error.Errors[0].Reason
		}
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(data))
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}
