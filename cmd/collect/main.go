package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/smukkama/traffic-monitor/internal/collector"
	"github.com/smukkama/traffic-monitor/internal/congestion"
	"github.com/smukkama/traffic-monitor/internal/database"
	"github.com/smukkama/traffic-monitor/internal/upstream"
	"github.com/smukkama/traffic-monitor/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Upstream.APIKey == "" {
		log.Fatal("TOMTOM_API_KEY is not set")
	}

	points, err := config.LoadPoints(cfg.Collector.PointsFile)
	if err != nil {
		log.Fatalf("Failed to load monitor points: %v", err)
	}

	fmt.Println("Starting collection...")

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	cache := congestion.NewCache(newSnapshot(cfg))
	client := upstream.NewClient(cfg.Upstream)
	resolver := congestion.NewResolver(cache, client)
	c := collector.New(resolver, client, db, cfg.Collector)

	// Cancelling mid-run stops between points, never mid-sample.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary := c.CollectOnce(ctx, points)

	if err := cache.Flush(); err != nil {
		fmt.Printf("Failed to flush congestion cache: %v\n", err)
	}

	stats := resolver.Stats()
	fmt.Printf("Run %s: %d/%d points, %.2fs, cache hits %d, upstream calls %d\n",
		summary.RunID, summary.Succeeded, summary.Total, summary.Duration.Seconds(),
		stats.CacheHits, stats.UpstreamCalls)
}

// newSnapshot picks the cache snapshot backend from configuration. A Redis
// connection failure degrades to the file backend rather than losing the
// run.
func newSnapshot(cfg *config.Config) congestion.Snapshot {
	if cfg.Cache.Backend != "redis" {
		return congestion.NewFileSnapshot(cfg.Cache.SnapshotPath)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		fmt.Printf("Redis unavailable, falling back to file snapshot: %v\n", err)
		return congestion.NewFileSnapshot(cfg.Cache.SnapshotPath)
	}
	return congestion.NewRedisSnapshot(client, cfg.Cache.TTL)
}
