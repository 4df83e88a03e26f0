package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/iconidentify/vidbridge/pkg/cryptofile"
)

// TokenSource provides bearer tokens for API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) error
}

// StaticTokenSource uses a fixed bearer token (no refresh).
type StaticTokenSource struct {
	TokenValue string
}

func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	if strings.TrimSpace(s.TokenValue) == "" {
		return "", fmt.Errorf("token is empty")
	}
	return s.TokenValue, nil
}

func (s *StaticTokenSource) ForceRefresh(ctx context.Context) error { return nil }

// FileTokenSourceConfig configures a file-persisted refresh token source.
type FileTokenSourceConfig struct {
	// TokenPath is where the token JSON lives; refreshed tokens are
	// written back so they survive process restarts.
	TokenPath string

	// ClientSecretsPath points at the OAuth client secrets JSON
	// ({"installed":{"client_id":...,"client_secret":...,"token_uri":...}}).
	ClientSecretsPath string

	// Passphrase, when set, encrypts the token file at rest.
	Passphrase string

	// TokenURL overrides the token endpoint from the secrets file.
	TokenURL string

	HTTPTimeout time.Duration
	// RefreshSkew is subtracted from expiry when deciding whether the
	// cached access token is still usable.
	RefreshSkew time.Duration
}

// storedToken is the on-disk token format.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

type clientSecrets struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		TokenURI     string `json:"token_uri"`
	} `json:"installed"`
}

// FileTokenSource refreshes access tokens via the refresh_token grant
// and persists them at TokenPath. The refresh token itself must be
// obtained out-of-band (one-time consent flow). Single-writer: refresh
// races are resolved under the internal mutex.
type FileTokenSource struct {
	cfg FileTokenSourceConfig
	hc  *http.Client

	mu    sync.Mutex
	token storedToken

	clientID     string
	clientSecret string
	tokenURL     string
	loaded       bool
}

// NewFileTokenSource creates a token source backed by TokenPath.
func NewFileTokenSource(cfg FileTokenSourceConfig) *FileTokenSource {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	if cfg.RefreshSkew == 0 {
		cfg.RefreshSkew = 30 * time.Second
	}
	return &FileTokenSource{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Token returns a valid access token, refreshing and persisting it
// first if the cached one is missing or about to expire.
func (s *FileTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.loadLocked(); err != nil {
			return "", err
		}
	}

	if s.token.AccessToken != "" {
		if s.token.Expiry.IsZero() || time.Until(s.token.Expiry) > s.cfg.RefreshSkew {
			return s.token.AccessToken, nil
		}
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.token.AccessToken, nil
}

// ForceRefresh refreshes the access token regardless of expiry.
func (s *FileTokenSource) ForceRefresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.loadLocked(); err != nil {
			return err
		}
	}
	return s.refreshLocked(ctx)
}

func (s *FileTokenSource) loadLocked() error {
	data, err := os.ReadFile(s.cfg.TokenPath)
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	if cryptofile.IsEncrypted(data) {
		if s.cfg.Passphrase == "" {
			return fmt.Errorf("token file is encrypted but no passphrase configured")
		}
		data, err = cryptofile.Decrypt(data, s.cfg.Passphrase)
		if err != nil {
			return fmt.Errorf("decrypt token file: %w", err)
		}
	}
	if err := json.Unmarshal(data, &s.token); err != nil {
		return fmt.Errorf("parse token file: %w", err)
	}
	if strings.TrimSpace(s.token.RefreshToken) == "" {
		return fmt.Errorf("token file has no refresh_token")
	}

	secrets, err := os.ReadFile(s.cfg.ClientSecretsPath)
	if err != nil {
		return fmt.Errorf("read client secrets: %w", err)
	}
	var cs clientSecrets
	if err := json.Unmarshal(secrets, &cs); err != nil {
		return fmt.Errorf("parse client secrets: %w", err)
	}
	if cs.Installed.ClientID == "" {
		return fmt.Errorf("client secrets missing client_id")
	}

	s.clientID = cs.Installed.ClientID
	s.clientSecret = cs.Installed.ClientSecret
	s.tokenURL = s.cfg.TokenURL
	if s.tokenURL == "" {
		s.tokenURL = cs.Installed.TokenURI
	}
	if s.tokenURL == "" {
		s.tokenURL = "https://oauth2.googleapis.com/token"
	}
	s.loaded = true
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

func (s *FileTokenSource) refreshLocked(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.token.RefreshToken)
	form.Set("client_id", s.clientID)
	if s.clientSecret != "" {
		form.Set("client_secret", s.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("token endpoint error: %s", resp.Status)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return fmt.Errorf("token response missing access_token")
	}

	s.token.AccessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		s.token.RefreshToken = tr.RefreshToken
	}
	if tr.TokenType != "" {
		s.token.TokenType = tr.TokenType
	}
	if tr.ExpiresIn > 0 {
		s.token.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else {
		s.token.Expiry = time.Time{}
	}

	return s.persistLocked()
}

func (s *FileTokenSource) persistLocked() error {
	data, err := json.MarshalIndent(s.token, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	if dir := filepath.Dir(s.cfg.TokenPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create token directory: %w", err)
		}
	}

	if s.cfg.Passphrase != "" {
		return cryptofile.WriteFile(s.cfg.TokenPath, data, s.cfg.Passphrase)
	}
	if err := os.WriteFile(s.cfg.TokenPath, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
