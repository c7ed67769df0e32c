package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/smukkama/traffic-monitor/internal/congestion"
	"github.com/smukkama/traffic-monitor/internal/gtfs"
	"github.com/smukkama/traffic-monitor/internal/routing"
	"github.com/smukkama/traffic-monitor/internal/upstream"
	"github.com/smukkama/traffic-monitor/pkg/config"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "Usage: findroute <source stop name> <destination stop name>")
		os.Exit(2)
	}
	source, dest := os.Args[1], os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Upstream.APIKey == "" {
		log.Fatal("TOMTOM_API_KEY is not set")
	}

	store := gtfs.NewStore()
	if err := gtfs.NewLoader(cfg.GTFS.Dir, store).Load(); err != nil {
		log.Fatalf("Failed to load schedule data: %v", err)
	}

	cache := congestion.NewCache(newSnapshot(cfg))
	resolver := congestion.NewResolver(cache, upstream.NewClient(cfg.Upstream))
	evaluator := routing.NewEvaluator(store, resolver)

	tripIDs := evaluator.FindTrips(source, dest)
	if len(tripIDs) == 0 {
		fmt.Printf("No trips found from %q to %q\n", source, dest)
		return
	}

	results := evaluator.Evaluate(context.Background(), tripIDs)
	if len(results) == 0 {
		fmt.Printf("No congestion data available for trips from %q to %q\n", source, dest)
		return
	}

	fmt.Printf("Found %d trip(s) from %q to %q, best first:\n\n", len(results), source, dest)
	for i, eval := range results {
		fmt.Printf("%d. Trip %s (%s): %d stops, avg congestion %.1f, est delay %.2f min\n",
			i+1, eval.TripID, eval.RouteName, eval.StopCount, eval.AvgCongestion, eval.EstDelayMinutes)
		for _, stop := range eval.PerStopETA {
			name := stop.StopName
			if name == "" {
				name = stop.StopID
			}
			fmt.Printf("     %-30s ETA %s\n", name, stop.Display())
		}
		fmt.Println()
	}

	if err := cache.Flush(); err != nil {
		fmt.Printf("Failed to flush congestion cache: %v\n", err)
	}

	stats := resolver.Stats()
	fmt.Printf("Lookups: %d cache hits, %d upstream calls, %d failures\n",
		stats.CacheHits, stats.UpstreamCalls, stats.Failures)
}

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
