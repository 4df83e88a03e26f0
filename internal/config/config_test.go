package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.BotToken = "123:token"
	cfg.Telegram.SourceChats = "-1001234, -1005678"
	cfg.Hosting.UploadPrivacy = "private"
	cfg.Hosting.MaxTitleLength = 100
	cfg.Storage.DownloadDir = "./data/downloads"
	cfg.Storage.DBPath = "./data/db.sqlite3"
	return cfg
}

func TestConfig_Validate_Success(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() should pass, got %v", err)
	}
}

func TestConfig_Validate_MissingBotToken(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.BotToken = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing TELEGRAM_BOT_TOKEN")
	}
}

func TestConfig_Validate_MissingChats(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.SourceChats = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing SOURCE_CHAT_IDS")
	}
}

func TestConfig_Validate_BadPrivacy(t *testing.T) {
	cfg := validConfig()
	cfg.Hosting.UploadPrivacy = "secret"

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for invalid UPLOAD_PRIVACY")
	}
}

func TestConfig_SourceChatIDs(t *testing.T) {
	cfg := validConfig()

	ids, err := cfg.SourceChatIDs()
	if err != nil {
		t.Fatalf("SourceChatIDs() failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 chat ids, got %d", len(ids))
	}
	if ids[0] != -1001234 || ids[1] != -1005678 {
		t.Errorf("SourceChatIDs() = %v", ids)
	}
}

func TestConfig_SourceChatIDs_Invalid(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.SourceChats = "abc"

	if _, err := cfg.SourceChatIDs(); err == nil {
		t.Error("SourceChatIDs() should fail for non-numeric chat id")
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
telegram:
  bot_token: "123:token"
  source_chats: "-100999"
notify:
  bot_token: "456:notify"
  chat_id: "-100111"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Telegram.BotToken != "123:token" {
		t.Errorf("BotToken = %q, want file value", cfg.Telegram.BotToken)
	}
	if cfg.Notify.ChatID != "-100111" {
		t.Errorf("Notify.ChatID = %q, want file value", cfg.Notify.ChatID)
	}
	// Defaults apply to everything the file leaves unset
	if cfg.Hosting.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want default 5", cfg.Hosting.MaxRetries)
	}
	if cfg.Hosting.MaxTitleLength != 100 {
		t.Errorf("MaxTitleLength = %d, want default 100", cfg.Hosting.MaxTitleLength)
	}
	if cfg.Worker.Count != 2 {
		t.Errorf("Worker.Count = %d, want default 2", cfg.Worker.Count)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
telegram:
  bot_token: "123:token"
  source_chats: "-100999"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("UPLOAD_PRIVACY", "public")
	t.Setenv("MAX_TITLE_LENGTH", "55")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Hosting.UploadPrivacy != "public" {
		t.Errorf("UploadPrivacy = %q, want env override %q", cfg.Hosting.UploadPrivacy, "public")
	}
	if cfg.Hosting.MaxTitleLength != 55 {
		t.Errorf("MaxTitleLength = %d, want env override 55", cfg.Hosting.MaxTitleLength)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() should fail for missing config file")
	}
}
