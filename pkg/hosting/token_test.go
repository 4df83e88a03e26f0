package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iconidentify/vidbridge/pkg/cryptofile"
)

func writeSecrets(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "client_secrets.json")
	data := `{"installed": {"client_id": "cid", "client_secret": "csecret", "token_uri": ""}}`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}
	return path
}

func writeToken(t *testing.T, dir string, tok storedToken) string {
	t.Helper()
	path := filepath.Join(dir, "token.json")
	data, err := json.Marshal(tok)
	if err != nil {
		t.Fatalf("marshal token: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write token: %v", err)
	}
	return path
}

func TestFileTokenSource_UsesCachedToken(t *testing.T) {
	dir := t.TempDir()
	tokenPath := writeToken(t, dir, storedToken{
		AccessToken:  "cached",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	})

	s := NewFileTokenSource(FileTokenSourceConfig{
		TokenPath:         tokenPath,
		ClientSecretsPath: writeSecrets(t, dir),
		TokenURL:          "http://invalid.invalid/token", // must not be hit
	})

	got, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if got != "cached" {
		t.Errorf("token = %q, want cached", got)
	}
}

func TestFileTokenSource_RefreshesExpiredToken(t *testing.T) {
	var refreshes atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		if r.Form.Get("refresh_token") != "refresh" {
			t.Errorf("refresh_token = %q", r.Form.Get("refresh_token"))
		}
		if r.Form.Get("client_id") != "cid" || r.Form.Get("client_secret") != "csecret" {
			t.Errorf("client credentials missing: %v", r.Form)
		}
		fmt.Fprint(w, `{"access_token": "fresh", "expires_in": 3600, "token_type": "Bearer"}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	tokenPath := writeToken(t, dir, storedToken{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	})

	s := NewFileTokenSource(FileTokenSourceConfig{
		TokenPath:         tokenPath,
		ClientSecretsPath: writeSecrets(t, dir),
		TokenURL:          srv.URL,
	})

	got, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if got != "fresh" {
		t.Errorf("token = %q, want fresh", got)
	}
	if refreshes.Load() != 1 {
		t.Errorf("refreshes = %d, want 1", refreshes.Load())
	}

	// Refreshed token is persisted for the next process run.
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		t.Fatalf("read persisted token: %v", err)
	}
	var persisted storedToken
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("parse persisted token: %v", err)
	}
	if persisted.AccessToken != "fresh" {
		t.Errorf("persisted access_token = %q", persisted.AccessToken)
	}
	if persisted.RefreshToken != "refresh" {
		t.Errorf("persisted refresh_token = %q", persisted.RefreshToken)
	}

	// Second call within expiry uses the cache.
	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("second Token failed: %v", err)
	}
	if refreshes.Load() != 1 {
		t.Errorf("cached token should not trigger another refresh")
	}
}

func TestFileTokenSource_ForceRefresh(t *testing.T) {
	var refreshes atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		fmt.Fprint(w, `{"access_token": "forced", "expires_in": 3600}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	tokenPath := writeToken(t, dir, storedToken{
		AccessToken:  "valid",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	})

	s := NewFileTokenSource(FileTokenSourceConfig{
		TokenPath:         tokenPath,
		ClientSecretsPath: writeSecrets(t, dir),
		TokenURL:          srv.URL,
	})

	if err := s.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh failed: %v", err)
	}
	if refreshes.Load() != 1 {
		t.Errorf("refreshes = %d, want 1", refreshes.Load())
	}
	got, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if got != "forced" {
		t.Errorf("token = %q, want forced", got)
	}
}

func TestFileTokenSource_EncryptedAtRest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token": "fresh", "expires_in": 3600}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.enc")
	plain, _ := json.Marshal(storedToken{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	})
	if err := cryptofile.WriteFile(tokenPath, plain, "hunter2"); err != nil {
		t.Fatalf("write encrypted token: %v", err)
	}

	s := NewFileTokenSource(FileTokenSourceConfig{
		TokenPath:         tokenPath,
		ClientSecretsPath: writeSecrets(t, dir),
		Passphrase:        "hunter2",
		TokenURL:          srv.URL,
	})

	got, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if got != "fresh" {
		t.Errorf("token = %q, want fresh", got)
	}

	// The refreshed token must be re-encrypted on disk.
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		t.Fatalf("read token file: %v", err)
	}
	if !cryptofile.IsEncrypted(data) {
		t.Error("persisted token should stay encrypted")
	}
}

func TestFileTokenSource_EncryptedWithoutPassphrase(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.enc")
	if err := cryptofile.WriteFile(tokenPath, []byte(`{}`), "hunter2"); err != nil {
		t.Fatalf("write encrypted token: %v", err)
	}

	s := NewFileTokenSource(FileTokenSourceConfig{
		TokenPath:         tokenPath,
		ClientSecretsPath: writeSecrets(t, dir),
	})

	if _, err := s.Token(context.Background()); err == nil {
		t.Fatal("expected error for encrypted token without passphrase")
	}
}

func TestFileTokenSource_MissingRefreshToken(t *testing.T) {
	dir := t.TempDir()
	tokenPath := writeToken(t, dir, storedToken{AccessToken: "only-access"})

	s := NewFileTokenSource(FileTokenSourceConfig{
		TokenPath:         tokenPath,
		ClientSecretsPath: writeSecrets(t, dir),
	})

	if _, err := s.Token(context.Background()); err == nil {
		t.Fatal("expected error for token file without refresh_token")
	}
}

func TestStaticTokenSource(t *testing.T) {
	s := &StaticTokenSource{TokenValue: "abc"}
	got, err := s.Token(context.Background())
	if err != nil || got != "abc" {
		t.Errorf("Token = %q, %v", got, err)
	}

	empty := &StaticTokenSource{}
	if _, err := empty.Token(context.Background()); err == nil {
		t.Error("empty static token should error")
	}
}
