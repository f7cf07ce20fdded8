package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/cnecrea/hidropanel/internal/adapter/driven/hidroelectrica"
	sqliteadapter "github.com/cnecrea/hidropanel/internal/adapter/driven/sqlite"
	httphandler "github.com/cnecrea/hidropanel/internal/adapter/driving/http"
	"github.com/cnecrea/hidropanel/internal/application"
	"github.com/cnecrea/hidropanel/internal/config"
	"github.com/cnecrea/hidropanel/internal/domain/model"
	"github.com/cnecrea/hidropanel/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"refresh_interval", cfg.RefreshInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	client := hidroelectrica.NewClient(cfg.BaseURL, cfg.HTTPTimeout)

	// 6. Resolve credentials: stored credentials take priority over env vars.
	// A missing encryption key just means nothing was ever persisted.
	seed := model.Seed{Username: cfg.Username, Password: cfg.Password}
	if stored, err := credentialStore.Get(ctx, "username"); err == nil && stored != "" {
		seed.Username = stored
	} else if err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		slog.Warn("could not read stored username", "error", err)
	}
	if stored, err := credentialStore.Get(ctx, "password"); err == nil && stored != "" {
		seed.Password = stored
	} else if err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		slog.Warn("could not read stored password", "error", err)
	}
	if !seed.IsComplete() {
		slog.Info("no credentials configured, refreshing disabled until credentials are provided via API")
	}

	// 7. Create and start the refresh service.
	seeds := application.NewSeedProvider(seed)
	sessions := application.NewSessionManager(client, seeds)
	board := application.NewSnapshotBoard()
	refreshSvc := application.NewRefreshService(client, sessions, board, cfg.RefreshInterval)
	go refreshSvc.Start(ctx)

	// 8. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(board, refreshSvc, seeds, sessions, credentialStore, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("hidropanel started",
		"listen_addr", cfg.ListenAddr,
		"refresh_interval", cfg.RefreshInterval,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
