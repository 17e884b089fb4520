package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"yomiage/internal/audio"
	"yomiage/internal/config"
	"yomiage/internal/database"
	"yomiage/internal/deck"
	"yomiage/internal/handlers"
	"yomiage/internal/repository"
	"yomiage/internal/security"
	"yomiage/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The database only backs the persistent audio cache
	var store audio.Store
	if strings.EqualFold(cfg.AudioCache, "database") {
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer db.Close()

		logger.Info("database connection established", "type", cfg.DatabaseType)

		if err := db.RunMigrations(ctx, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		store = repository.NewAudioRepository(db)
	}

	synth, err := audio.NewSynthesizer(ctx, cfg, store, logger)
	if err != nil {
		return fmt.Errorf("initialize speech synthesis: %w", err)
	}

	notifier, err := service.NewNotifyService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.NotifyEmailTo, logger)
	if err != nil {
		return fmt.Errorf("initialize notifications: %w", err)
	}

	loader := deck.Loader{
		Sheet:        cfg.DeckSheet,
		IDColumn:     cfg.DeckIDColumn,
		FirstColumn:  cfg.DeckFirstColumn,
		SecondColumn: cfg.DeckSecondColumn,
	}
	reader := service.NewReaderService(loader, synth, service.ReaderOptions{
		DefaultDeck: cfg.DeckPath,
		Language:    cfg.TTSLanguage,
		Seed:        cfg.SelectorSeed,
		Notifier:    notifier,
		Logger:      logger,
	})

	// A missing default deck is not fatal; the page shows the error and offers upload
	if err := reader.LoadDefault(ctx); err != nil {
		logger.Warn("default deck not loaded, waiting for upload", "path", cfg.DeckPath)
	}

	tokens, err := security.NewFormTokens(cfg.FormTokenSecret)
	if err != nil {
		return err
	}

	templates, err := handlers.LoadTemplates()
	if err != nil {
		return err
	}

	var replayLimiter *security.RateLimiter
	if cfg.ReplayRateLimit > 0 {
		replayLimiter = security.NewRateLimiter(cfg.ReplayRateLimit, time.Minute)
		go replayLimiter.Cleanup(ctx, 10*time.Minute)
	}

	readerHandler := handlers.NewReaderHandler(reader, tokens, templates, cfg.UploadMaxSize, logger)

	// Wrap with logging middleware
	handler := handlers.Logging(logger, readerHandler.Routes(replayLimiter))

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + 4*cfg.TTSTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "url", "http://"+cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
