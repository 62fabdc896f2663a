// holiday-destination-finder worker — search job orchestrator.
//
// Consumes the Redis-backed job queue one job at a time: expands the origin,
// picks the provider path (discovery vs catalog), fans destination searches
// out across bounded worker pools, scores and ranks the results, and
// mirrors finished jobs into PostgreSQL with a sliding retention window.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ShowzZzie/holiday-destination-finder/internal/archive"
	"github.com/ShowzZzie/holiday-destination-finder/internal/catalog"
	"github.com/ShowzZzie/holiday-destination-finder/internal/config"
	"github.com/ShowzZzie/holiday-destination-finder/internal/db"
	"github.com/ShowzZzie/holiday-destination-finder/internal/provider"
	"github.com/ShowzZzie/holiday-destination-finder/internal/queue"
	"github.com/ShowzZzie/holiday-destination-finder/internal/retention"
	"github.com/ShowzZzie/holiday-destination-finder/internal/worker"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[worker] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[worker] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[worker] PostgreSQL: %v", err)
	}
	defer pool.Close()

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[worker] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[worker] Redis: %v", err)
	}
	defer rdb.Close()

	// ── Stores and providers ─────────────────────────────────────────────────
	store := queue.NewStore(rdb, time.Duration(cfg.JobTTLMinutes)*time.Minute)
	arch := archive.NewStore(pool, time.Duration(cfg.ArchiveTTLDays)*24*time.Hour)

	dests, err := catalog.Destinations()
	if err != nil {
		log.Fatalf("[worker] Destination catalog: %v", err)
	}

	flights := map[string]provider.FlightProvider{
		"ryanair": provider.NewRyanair(),
	}
	if cfg.AmadeusAPIKey != "" && cfg.AmadeusAPISecret != "" {
		flights["amadeus"] = provider.NewAmadeus(cfg.AmadeusAPIKey, cfg.AmadeusAPISecret)
	} else {
		log.Println("[worker] AMADEUS_API_KEY / AMADEUS_API_SECRET not set — amadeus provider disabled")
	}

	var discovery provider.DiscoveryProvider
	if cfg.SerpAPIKey != "" {
		discovery = provider.NewExplore(cfg.SerpAPIKey, cfg.DiscoveryHorizonMonths, nil)
	} else {
		log.Println("[worker] SERPAPI_API_KEY not set — discovery mode disabled")
	}

	w := worker.New(store, arch, flights, discovery, provider.NewOpenMeteo(), dests,
		cfg.DestinationPoolSize, cfg.ProviderPoolSize, cfg.DiscoveryHorizonMonths)

	// ── Retention sweep ──────────────────────────────────────────────────────
	sweeper := retention.New(arch, cfg.CleanupIntervalHours)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("[worker] Retention: %v", err)
	}
	defer sweeper.Stop()

	// ── Consumer loop ────────────────────────────────────────────────────────
	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("[worker] Consumer loop: %v", err)
		}
	}()

	// ── Health endpoint ──────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[worker] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[worker] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[worker] Shutting down…")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[worker] Shutdown error: %v", err)
	}
	log.Println("[worker] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "holiday-destination-finder",
		"version": version,
	})
}
