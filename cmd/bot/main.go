package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"archivio/bot/internal/archive"
	"archivio/bot/internal/bot"
	"archivio/bot/internal/config"
	"archivio/bot/internal/intake"
	"archivio/bot/internal/publish"
	"archivio/bot/internal/search"
	"archivio/bot/internal/staging"
	"archivio/bot/internal/store"

	"github.com/bwmarrin/discordgo"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if strings.TrimSpace(cfg.DiscordToken) == "" {
		log.Fatal("DISCORD_TOKEN is required")
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	dataStore := store.NewPostgresStore(db)

	stagingStore, cleanup, err := newStagingStore(cfg)
	if err != nil {
		log.Fatalf("staging store init failed: %v", err)
	}
	defer cleanup()

	pgfts := search.NewPgFTS(dataStore.DB())
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	defer searchService.Close()

	var archiver intake.Archiver
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		a, err := archive.New(ctx, archive.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("archive storage init failed: %v", err)
		}
		log.Printf("Archiving committed documents to bucket %q", cfg.MinioBucket)
		archiver = a
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("discord session init failed: %v", err)
	}

	publisher := publish.NewDiscordPublisher(session)
	coordinator := intake.NewCoordinator(publisher, dataStore, searchService, archiver)
	manager := intake.NewManager(stagingStore, coordinator, cfg.SessionTTL)
	defer manager.Close()

	b := bot.New(session, manager, dataStore, searchService, cfg.GuildID)
	if err := b.Start(); err != nil {
		log.Fatalf("bot start failed: %v", err)
	}
	defer b.Close()

	// Rebuild the search index from the store so restarts do not leave the
	// index stale.
	if docs, err := dataStore.ListDocuments(ctx); err != nil {
		log.Printf("WARNING: reindex bootstrap error (will retry on next restart): %v", err)
	} else {
		searchService.ReindexAll(docs)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutting down")
}

// newStagingStore picks the staging backend: Redis when configured, then the
// filesystem, then process memory. The durable backends survive restarts.
func newStagingStore(cfg config.Config) (staging.Store, func(), error) {
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for document staging")
		rs, err := staging.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil
	}
	if strings.TrimSpace(cfg.StagingDir) != "" {
		log.Printf("Using filesystem for document staging at %s", cfg.StagingDir)
		fs, err := staging.NewFileStore(cfg.StagingDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
	log.Printf("Using in-memory document staging")
	return staging.NewMemoryStore(), func() {}, nil
}
