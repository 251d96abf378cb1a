package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"promptdeck/api/internal/app"
	"promptdeck/api/internal/blob"
	"promptdeck/api/internal/composer"
	"promptdeck/api/internal/config"
	"promptdeck/api/internal/export"
	"promptdeck/api/internal/relay"
	"promptdeck/api/internal/search"
	"promptdeck/api/internal/session"
	"promptdeck/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Category catalog: loaded from Postgres when configured, otherwise
	// the built-in set.
	var categories []composer.Category
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		log.Printf("Loading category catalog from PostgreSQL")
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}

		catalogStore := store.NewCatalogStore(db)
		if err := catalogStore.SeedCatalog(ctx, store.DefaultCatalog()); err != nil {
			log.Fatalf("catalog seed failed: %v", err)
		}
		rows, err := catalogStore.ListCategories(ctx)
		if err != nil {
			log.Fatalf("catalog load failed: %v", err)
		}
		for _, row := range rows {
			categories = append(categories, composer.Category{ID: row.ID, Label: row.Label})
		}
	} else {
		log.Printf("Using built-in category catalog")
		for _, row := range store.DefaultCatalog() {
			categories = append(categories, composer.Category{ID: row.ID, Label: row.Label})
		}
	}
	catalog := composer.NewCatalog(categories)

	// Session registry: Redis when configured, in-memory otherwise.
	var registry session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for session registry")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		registry = redisStore
	} else {
		log.Printf("Using in-memory session registry")
		registry = session.NewMemoryStore()
	}
	defer registry.Close()

	// Attachment store: MinIO when configured, in-memory otherwise.
	var blobs blob.Store
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		log.Printf("Using MinIO for attachment storage")
		minioStore, err := blob.NewMinioStore(blob.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("minio connection failed: %v", err)
		}
		blobs = minioStore
	} else {
		log.Printf("Using in-memory attachment storage")
		blobs = blob.NewMemoryStore()
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, search.NewMemoryIndex())
	defer searchService.Close()

	relayClient := relay.New(cfg.WebhookURL)
	exporter := export.NewService()

	service := app.NewService(cfg, catalog, registry, blobs, relayClient, searchService, exporter)

	// Expired sessions are dropped in the background so their attachments
	// and search entries do not outlive the registry entry.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				service.Sweep(sweepCtx)
			}
		}
	}()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Send holds the response open for as long as the webhook takes,
		// so writes must not time out.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Promptdeck API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
