package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"yomiage/internal/audio"
	"yomiage/internal/config"
	"yomiage/internal/database"
	"yomiage/internal/deck"
	"yomiage/internal/repository"
)

func main() {
	// Define subcommands
	warmCmd := flag.NewFlagSet("warm", flag.ExitOnError)
	purgeCmd := flag.NewFlagSet("purge", flag.ExitOnError)
	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)

	// Warm flags
	warmDeck := warmCmd.String("deck", "", "Deck file to synthesize (default: DECK_PATH)")

	// Purge flags
	purgeOlderThan := purgeCmd.Duration("older-than", 0, "Only delete clips older than this (default: all clips)")
	purgeYes := purgeCmd.Bool("yes", false, "Skip the confirmation prompt")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fatal(slog.Default(), "Failed to load configuration", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	ctx := context.Background()

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		fatal(logger, "Failed to initialize database", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx, logger); err != nil {
		fatal(logger, "Failed to run migrations", err)
	}

	repo := repository.NewAudioRepository(db)

	switch os.Args[1] {
	case "warm":
		warmCmd.Parse(os.Args[2:])
		path := *warmDeck
		if path == "" {
			path = cfg.DeckPath
		}
		handleWarm(ctx, cfg, repo, logger, path)

	case "purge":
		purgeCmd.Parse(os.Args[2:])
		handlePurge(ctx, repo, logger, *purgeOlderThan, *purgeYes)

	case "stats":
		statsCmd.Parse(os.Args[2:])
		handleStats(ctx, repo, logger)

	default:
		printUsage()
		os.Exit(1)
	}
}

// handleWarm synthesizes every first phrase of a deck into the database cache
// so the reader never waits on the provider for it.
func handleWarm(ctx context.Context, cfg *config.Config, repo *repository.AudioRepository, logger *slog.Logger, path string) {
	loader := deck.Loader{
		Sheet:        cfg.DeckSheet,
		IDColumn:     cfg.DeckIDColumn,
		FirstColumn:  cfg.DeckFirstColumn,
		SecondColumn: cfg.DeckSecondColumn,
	}
	d, err := loader.Load(deck.FromPath(path))
	if err != nil {
		fatal(logger, "Failed to load deck", err)
	}

	warmCfg := *cfg
	warmCfg.AudioCache = "database"
	synth, err := audio.NewSynthesizer(ctx, &warmCfg, repo, logger)
	if err != nil {
		fatal(logger, "Failed to initialize speech synthesis", err)
	}

	before, err := repo.Count(ctx)
	if err != nil {
		fatal(logger, "Failed to count clips", err)
	}

	logger.Info("warming audio cache", "deck", d.Name(), "cards", len(d.Cards()))
	failed := 0
	for _, card := range d.Cards() {
		if _, err := synth.Synthesize(ctx, card.FirstPhrase, cfg.TTSLanguage); err != nil {
			failed++
			logger.Warn("synthesis failed", "card", card.ID, "error", err)
		}
	}

	after, err := repo.Count(ctx)
	if err != nil {
		fatal(logger, "Failed to count clips", err)
	}
	logger.Info("warm complete", "added", after-before, "failed", failed, "total", after)
	if failed > 0 {
		os.Exit(1)
	}
}

func handlePurge(ctx context.Context, repo *repository.AudioRepository, logger *slog.Logger, olderThan time.Duration, skipConfirm bool) {
	var before time.Time
	if olderThan > 0 {
		before = time.Now().Add(-olderThan)
	}

	if !skipConfirm {
		if before.IsZero() {
			fmt.Print("WARNING: This will delete every cached clip. Type 'yes' to confirm: ")
		} else {
			fmt.Printf("WARNING: This will delete clips cached before %s. Type 'yes' to confirm: ", before.Format(time.RFC3339))
		}
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			logger.Info("purge cancelled")
			return
		}
	}

	n, err := repo.Purge(ctx, before)
	if err != nil {
		fatal(logger, "Purge failed", err)
	}
	logger.Info("purge complete", "deleted", n)
}

func handleStats(ctx context.Context, repo *repository.AudioRepository, logger *slog.Logger) {
	stats, err := repo.Stats(ctx)
	if err != nil {
		fatal(logger, "Failed to read cache stats", err)
	}
	fmt.Printf("clips: %d\n", stats.Clips)
	fmt.Printf("size:  %.2f MB\n", float64(stats.Bytes)/1024/1024)
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("yomiage audio cache tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  audiocache warm [options]     Synthesize a deck's first phrases into the cache")
	fmt.Println("  audiocache purge [options]    Delete cached clips")
	fmt.Println("  audiocache stats              Show cache size")
	fmt.Println()
	fmt.Println("Warm Options:")
	fmt.Println("  -deck <file>          Deck file (.xlsx or .csv, default: DECK_PATH)")
	fmt.Println()
	fmt.Println("Purge Options:")
	fmt.Println("  -older-than <dur>     Only delete clips older than this, e.g. 720h")
	fmt.Println("  -yes                  Skip the confirmation prompt")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE         Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH         SQLite database path (default: ./yomiage.db)")
	fmt.Println("  DATABASE_URL    PostgreSQL or MySQL connection URL")
	fmt.Println("  TTS_PROVIDER    Speech provider used by warm: google or polly")
}
