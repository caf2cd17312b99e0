package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vitos/crypto_signal_relay/internal/config"
	"github.com/vitos/crypto_signal_relay/internal/infrastructure/exchange"
	"github.com/vitos/crypto_signal_relay/internal/infrastructure/logger"
	"github.com/vitos/crypto_signal_relay/internal/infrastructure/notify"
	"github.com/vitos/crypto_signal_relay/internal/infrastructure/storage"
	"github.com/vitos/crypto_signal_relay/internal/mail"
	"github.com/vitos/crypto_signal_relay/internal/usecase"
	"github.com/vitos/crypto_signal_relay/internal/web"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	templateDir := flag.String("templates", "internal/web/templates", "path to dashboard templates")
	flag.Parse()

	// Secrets may come from a .env file; a missing file is fine
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	secrets, err := config.LoadSecrets()
	if err != nil {
		fmt.Printf("Failed to load secrets: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewFileLogger(filepath.Join(cfg.Logging.Dir, "relay.log"), cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	registry := exchange.FromSecrets(secrets, log)

	var notifier usecase.Notifier
	if secrets.DiscordWebhook != "" {
		notifier = notify.NewDiscordClient(secrets.DiscordWebhook, log)
	}

	validator := usecase.NewValidator(registry, secrets.WebhookPIN)
	engine := usecase.NewExecutionEngine(registry, log)
	processor := usecase.NewSignalProcessor(validator, engine, store, notifier, log)
	portfolio := usecase.NewPortfolioService(registry, cfg.Relay.BaseCurrency, log)
	mutations := usecase.NewMutationService(registry, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Email ingestion path
	if cfg.Relay.Mode == config.ModeEmail || cfg.Relay.Mode == config.ModeBoth {
		if secrets.IMAPEmail == "" || secrets.IMAPPassword == "" {
			log.Warn("Email mode requested but IMAP credentials are missing; skipping mail poller")
		} else {
			mailLog, err := logger.NewFileLogger(filepath.Join(cfg.Logging.Dir, "mail.log"), cfg.Logging.Level)
			if err != nil {
				log.Error("Failed to init mail logger, using default", zap.Error(err))
				mailLog = log
			}

			fetcher := mail.NewIMAPFetcher(mail.IMAPConfig{
				Server:   cfg.Mail.Server,
				Port:     cfg.Mail.Port,
				UseSSL:   cfg.Mail.UseSSL,
				Email:    secrets.IMAPEmail,
				Password: secrets.IMAPPassword,
			})
			poller := mail.NewPoller(fetcher, processor,
				time.Duration(cfg.Mail.CheckIntervalMs)*time.Millisecond, mailLog)
			go poller.Run(ctx)
		}
	}

	// Web server: dashboard always serves; the webhook route only in
	// webhook/both modes
	if err := web.InitTemplates(*templateDir); err != nil {
		log.Fatal("Failed to initialize templates", zap.Error(err))
	}

	auth := web.NewAuth(secrets.DashboardPassword, secrets.SessionSecret,
		time.Duration(cfg.Dashboard.SessionTTLMins)*time.Minute)
	webhookEnabled := cfg.Relay.Mode == config.ModeWebhook || cfg.Relay.Mode == config.ModeBoth

	server := web.NewServer(
		cfg.Server.Port,
		processor,
		portfolio,
		mutations,
		store,
		auth,
		secrets.WebhookPIN,
		webhookEnabled,
		time.Duration(cfg.Dashboard.RefreshMs)*time.Millisecond,
		log,
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
