package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iconidentify/vidbridge/internal/api"
	"github.com/iconidentify/vidbridge/internal/api/handler"
	"github.com/iconidentify/vidbridge/internal/config"
	"github.com/iconidentify/vidbridge/internal/downloader"
	"github.com/iconidentify/vidbridge/internal/ledger"
	"github.com/iconidentify/vidbridge/internal/notify"
	"github.com/iconidentify/vidbridge/internal/pipeline"
	"github.com/iconidentify/vidbridge/internal/queue"
	"github.com/iconidentify/vidbridge/internal/source"
	"github.com/iconidentify/vidbridge/internal/uploader"
	"github.com/iconidentify/vidbridge/internal/worker"
	"github.com/iconidentify/vidbridge/pkg/hosting"
	"github.com/iconidentify/vidbridge/pkg/telegram"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vidbridge %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logClose, err := setupLogger(cfg.Storage.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logClose()
	slog.SetDefault(logger)

	logger.Info("starting vidbridge", "version", Version, "build_time", BuildTime)

	if err := os.MkdirAll(cfg.Storage.DownloadDir, 0755); err != nil {
		logger.Error("failed to create download directory", "error", err)
		os.Exit(1)
	}

	led, err := ledger.OpenSQLite(cfg.Storage.DBPath)
	if err != nil {
		logger.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}
	defer led.Close()
	logger.Info("ledger initialized", "path", cfg.Storage.DBPath)

	chatIDs, err := cfg.SourceChatIDs()
	if err != nil {
		logger.Error("invalid source chat list", "error", err)
		os.Exit(1)
	}

	tgClient := telegram.NewClient(telegram.ClientConfig{
		Token:       cfg.Telegram.BotToken,
		BaseURL:     cfg.Telegram.APIBaseURL,
		FileBaseURL: cfg.Telegram.FileBaseURL,
		HTTPTimeout: cfg.Telegram.HTTPTimeout,
	})

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.BotToken != "" && cfg.Notify.ChatID != "" {
		notifyClient := telegram.NewClient(telegram.ClientConfig{
			Token:   cfg.Notify.BotToken,
			BaseURL: cfg.Telegram.APIBaseURL,
		})
		notifier = notify.NewTelegramNotifier(notifyClient, cfg.Notify.ChatID, logger)
	} else {
		logger.Warn("NOTIFY_BOT_TOKEN or NOTIFY_CHAT_ID not set, notifications disabled")
	}

	tokens := hosting.NewFileTokenSource(hosting.FileTokenSourceConfig{
		TokenPath:         cfg.Hosting.TokenPath,
		ClientSecretsPath: cfg.Hosting.ClientSecrets,
		Passphrase:        cfg.Hosting.TokenPassphrase,
	})
	hostClient := hosting.NewClient(hosting.ClientConfig{
		Tokens:      tokens,
		HTTPTimeout: cfg.Hosting.HTTPTimeout,
	})

	up := uploader.New(hostClient, notifier, uploader.Config{
		MaxTitleLength: cfg.Hosting.MaxTitleLength,
		ChunkSize:      cfg.Hosting.ChunkSize,
		MaxRetries:     cfg.Hosting.MaxRetries,
		BackoffUnit:    cfg.Hosting.BackoffUnit,
	}, logger)

	dl := downloader.NewHTTPDownloader(downloader.Config{
		MinFreeBytes: cfg.Storage.MinFreeBytes,
	})
	src := source.NewTelegramSource(tgClient, dl, chatIDs, cfg.Telegram.PollTimeout, logger)

	jobs := queue.NewInMemoryQueue()
	pipe := pipeline.New(pipeline.Config{
		DownloadDir:    cfg.Storage.DownloadDir,
		MaxTitleLength: cfg.Hosting.MaxTitleLength,
		UploadPrivacy:  cfg.Hosting.UploadPrivacy,
	}, led, src, up, notifier, jobs, logger)

	pool := worker.NewPool(worker.Config{
		Workers:      cfg.Worker.Count,
		PollInterval: cfg.Worker.PollInterval,
	}, jobs, pipe, logger)
	pool.Start()

	router := api.NewRouter(
		logger,
		handler.NewHealthHandler(led, jobs),
		handler.NewRecordsHandler(led),
	)
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("starting status HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Source loop stops when the context is cancelled; in-flight
	// uploads that haven't reached the ledger simply reprocess on the
	// next run.
	runCtx, cancel := context.WithCancel(context.Background())
	srcDone := make(chan error, 1)
	go func() {
		srcDone <- src.Run(runCtx, pipe.HandleItem)
	}()

	notifier.Send(runCtx, fmt.Sprintf("vidbridge started, watching %d chats", len(chatIDs)))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-srcDone:
		// The source loop only returns on context cancellation, which
		// has not happened yet here. Anything on this channel is an
		// abnormal exit.
		logger.Error("source loop exited without shutdown signal", "error", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := pool.Stop(25 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	logger.Info("shutting down")
}

// setupLogger writes JSON logs to stdout and, when a log path is
// configured, to a file as well.
func setupLogger(logPath string) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stdout
	closeFn := func() {}

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
		closeFn = func() { f.Close() }
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return logger, closeFn, nil
}
