package main

import (
	"context"
	"log"
	"time"

	"github.com/bppowerplay/portal/internal/cache"
	"github.com/bppowerplay/portal/internal/config"
)

// warmcache runs the cache install step standalone so a generation can be
// populated before the gateway rolls over to a new version.
func main() {
	cfg := config.Load()

	store, err := cache.NewMinIOStore(cache.MinIOConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Prefix:    cfg.Cache.BucketPrefix,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to MinIO: %v", err)
	}
	log.Println("✅ Connected to MinIO")

	generation := cache.GenerationName(cfg.Cache.BucketPrefix, cfg.Cache.Version)
	controller, err := cache.NewController(store, nil, cache.ControllerConfig{
		Generation: generation,
		OriginURL:  cfg.Origin.BaseURL,
		Manifest:   cfg.Cache.Manifest,
		FreshPath:  cfg.Cache.FreshPath,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create cache controller: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Printf("🌱 Warming cache generation %s from %s...", generation, cfg.Origin.BaseURL)
	if err := controller.Install(ctx); err != nil {
		log.Fatalf("❌ Install failed: %v", err)
	}
	log.Printf("✅ Generation %s populated (%d entries)", generation, len(cfg.Cache.Manifest))
}
