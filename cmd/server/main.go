// Package main is the entry point for the RouterVault server.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/routervault/routervault/internal/config"
	"github.com/routervault/routervault/internal/database"
	"github.com/routervault/routervault/internal/logs"
	"github.com/routervault/routervault/internal/mikrotik"
	"github.com/routervault/routervault/internal/notify"
	"github.com/routervault/routervault/internal/router"
	"github.com/routervault/routervault/internal/services"
	"github.com/routervault/routervault/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("RouterVault %s\n", version.Version)
		fmt.Printf("Build Time: %s\n", version.BuildTime)
		fmt.Printf("Git Commit: %s\n", version.GitCommit)
		os.Exit(0)
	}

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config from %s: %v\n", *configPath, err)
		fmt.Fprintln(os.Stderr, "Using default configuration...")
		cfg, _ = config.Load("")
	}

	logs.Init(logs.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		logs.Logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logs.Logger.Errorf("Error closing database: %v", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logs.Logger.Fatalf("Failed to run migrations: %v", err)
	}

	if cfg.Security.EncryptionKey == "" {
		logs.Logger.Fatal("security.encryption_key is required (generate with: openssl rand -hex 32)")
	}
	key, err := hex.DecodeString(cfg.Security.EncryptionKey)
	if err != nil || len(key) != 32 {
		logs.Logger.Fatal("security.encryption_key must be 64 hex characters (32 bytes)")
	}
	crypto, err := services.NewCryptoService(key)
	if err != nil {
		logs.Logger.Fatalf("Failed to initialize crypto service: %v", err)
	}

	var clients mikrotik.Factory = mikrotik.NewClient
	var notifier notify.Notifier = notify.NewTelegram(cfg.Telegram.Token)
	if cfg.Scheduler.MockMode {
		logs.Logger.Warn("Mock mode enabled: all device I/O is simulated")
		clients = mikrotik.NewMockClient
		notifier = notify.Noop{}
	}

	clock := services.RealClock{}
	store := services.NewArtifactStore(cfg.Storage.Path)
	deviceService := services.NewDeviceService(db, crypto)
	backupService := services.NewBackupService(db, store)
	settingsService := services.NewSettingsService(db)
	alertService := services.NewAlertService(db, settingsService, notifier, clock, cfg.Scheduler.GetAlertDedupeWindow())
	executor := services.NewBackupExecutor(db, deviceService, backupService, settingsService,
		alertService, store, services.NewDefaultClassifier(), clients, clock)
	scheduler := services.NewScheduler(deviceService, settingsService, alertService,
		executor, clock, cfg.Scheduler.GetTickInterval())

	scheduler.Start()
	defer scheduler.Stop()

	r := router.New(cfg, deviceService, backupService, alertService, settingsService, scheduler, clients)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("RouterVault %s listening on %s", version.Version, addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	logs.Logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("HTTP shutdown: %v", err)
	}
}
