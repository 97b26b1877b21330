// Worker purges expired action tokens and sessions every HOUSEKEEPING_INTERVAL. Token validity
// never depends on it; it only keeps the tables small.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	actiontokenrepo "volunteer-platform/backend/internal/actiontoken/repository"
	actiontokenservice "volunteer-platform/backend/internal/actiontoken/service"
	"volunteer-platform/backend/internal/clock"
	"volunteer-platform/backend/internal/config"
	"volunteer-platform/backend/internal/db"
	sessionrepo "volunteer-platform/backend/internal/session/repository"
	sessionservice "volunteer-platform/backend/internal/session/service"
)

type purger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("worker: db: %v", err)
	}
	defer conn.Close()

	clk := clock.Real()
	tokens := actiontokenservice.NewStore(actiontokenrepo.NewPostgresRepository(conn), actiontokenservice.Config{
		ActivationTTL:     cfg.ActivationTTL(),
		PasswordChangeTTL: cfg.PasswordResetTTL(),
	}, clk, nil)

	var sessionRepo sessionservice.Repository = sessionrepo.NewPostgresRepository(conn)
	if cfg.SessionBackend == "redis" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("worker: redis: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		sessionRepo = sessionrepo.NewRedisRepository(rdb)
	}
	sessions := sessionservice.NewStore(sessionRepo, nil, nil, sessionservice.Config{TTL: cfg.SessionTTL()}, clk, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	every := cfg.HousekeepingEvery()
	log.Printf("worker: purging expired credentials every %s", every)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		purge(ctx, clk.Now(), map[string]purger{"action tokens": tokens, "sessions": sessions})
		select {
		case <-ctx.Done():
			log.Println("worker: stopped")
			return
		case <-ticker.C:
		}
	}
}

func purge(ctx context.Context, now time.Time, targets map[string]purger) {
	for name, p := range targets {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		n, err := p.PurgeExpired(runCtx, now)
		cancel()
		if err != nil {
			log.Printf("worker: purge %s: %v", name, err)
			continue
		}
		if n > 0 {
			log.Printf("worker: purged %d expired %s", n, name)
		}
	}
}
