package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram Telegram `yaml:"telegram"`
	Notify   Notify   `yaml:"notify"`
	Storage  Storage  `yaml:"storage"`
	Hosting  Hosting  `yaml:"hosting"`
	Worker   Worker   `yaml:"worker"`
	Server   Server   `yaml:"server"`
}

// Telegram holds messaging-source configuration.
type Telegram struct {
	BotToken string `yaml:"bot_token" envconfig:"TELEGRAM_BOT_TOKEN"`
	// SourceChats is a comma-separated list of chat ids to watch.
	SourceChats string        `yaml:"source_chats" envconfig:"SOURCE_CHAT_IDS"`
	PollTimeout time.Duration `yaml:"poll_timeout" envconfig:"TELEGRAM_POLL_TIMEOUT" default:"30s"`
	APIBaseURL  string        `yaml:"api_base_url" envconfig:"TELEGRAM_API_BASE_URL" default:"https://api.telegram.org"`
	FileBaseURL string        `yaml:"file_base_url" envconfig:"TELEGRAM_FILE_BASE_URL" default:"https://api.telegram.org/file"`
	HTTPTimeout time.Duration `yaml:"http_timeout" envconfig:"TELEGRAM_HTTP_TIMEOUT" default:"65s"`
}

// Notify holds operational notification channel configuration.
type Notify struct {
	BotToken string `yaml:"bot_token" envconfig:"NOTIFY_BOT_TOKEN"`
	ChatID   string `yaml:"chat_id" envconfig:"NOTIFY_CHAT_ID"`
}

// Storage holds filesystem and ledger configuration.
type Storage struct {
	DownloadDir  string `yaml:"download_dir" envconfig:"DOWNLOAD_DIR" default:"./data/downloads"`
	DBPath       string `yaml:"db_path" envconfig:"DB_PATH" default:"./data/vidbridge.sqlite3"`
	LogPath      string `yaml:"log_path" envconfig:"LOG_PATH" default:"./data/vidbridge.log"`
	MinFreeBytes int64  `yaml:"min_free_bytes" envconfig:"MIN_FREE_BYTES" default:"1073741824"` // 1GB
}

// Hosting holds video-hosting platform configuration.
type Hosting struct {
	ClientSecrets   string        `yaml:"client_secrets" envconfig:"HOSTING_CLIENT_SECRETS" default:"./client_secrets.json"`
	TokenPath       string        `yaml:"token_path" envconfig:"HOSTING_TOKEN_PATH" default:"./data/tokens/token.json"`
	TokenPassphrase string        `yaml:"token_passphrase" envconfig:"HOSTING_TOKEN_PASSPHRASE"`
	UploadPrivacy   string        `yaml:"upload_privacy" envconfig:"UPLOAD_PRIVACY" default:"private"`
	MaxTitleLength  int           `yaml:"max_title_length" envconfig:"MAX_TITLE_LENGTH" default:"100"`
	ChunkSize       int64         `yaml:"chunk_size" envconfig:"UPLOAD_CHUNK_SIZE" default:"262144"` // 256KiB
	MaxRetries      int           `yaml:"max_retries" envconfig:"UPLOAD_MAX_RETRIES" default:"5"`
	BackoffUnit     time.Duration `yaml:"backoff_unit" envconfig:"UPLOAD_BACKOFF_UNIT" default:"1s"`
	HTTPTimeout     time.Duration `yaml:"http_timeout" envconfig:"HOSTING_HTTP_TIMEOUT" default:"5m"`
}

// Worker holds upload worker pool configuration.
type Worker struct {
	Count        int           `yaml:"count" envconfig:"WORKER_COUNT" default:"2"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"WORKER_POLL_INTERVAL" default:"1s"`
}

// Server holds the status HTTP server configuration.
type Server struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"9848"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Telegram.SourceChats == "" {
		return fmt.Errorf("SOURCE_CHAT_IDS is required")
	}
	if _, err := c.SourceChatIDs(); err != nil {
		return err
	}
	switch c.Hosting.UploadPrivacy {
	case "private", "unlisted", "public":
	default:
		return fmt.Errorf("UPLOAD_PRIVACY must be private, unlisted or public, got %q", c.Hosting.UploadPrivacy)
	}
	if c.Hosting.MaxTitleLength <= 0 {
		return fmt.Errorf("MAX_TITLE_LENGTH must be positive")
	}
	if c.Storage.DownloadDir == "" {
		return fmt.Errorf("DOWNLOAD_DIR is required")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	return nil
}

// SourceChatIDs parses the configured chat list into ids.
func (c *Config) SourceChatIDs() ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(c.Telegram.SourceChats, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("SOURCE_CHAT_IDS: invalid chat id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("SOURCE_CHAT_IDS: no chat ids configured")
	}
	return ids, nil
}

// Address returns the server address in host:port format.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
