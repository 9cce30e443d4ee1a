package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"learnhub-checkout/internal/config"
	"learnhub-checkout/internal/infra/api/apiv1"
	"learnhub-checkout/internal/infra/db/postgres"
	"learnhub-checkout/internal/infra/redis"
)

// This script prepares a clean, predictable local state for manual
// end-to-end checkout testing and prints a bearer token for a learner.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	userID := flag.String("user", "learner-e2e", "learner id to mint a token for")
	wipe := flag.Bool("wipe", true, "truncate checkout tables before the run")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// --- Connect to Postgres ---
	pool, err := postgres.Connect(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	log.Println("[1/3] Applying migrations...")
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if *wipe {
		log.Println("[2/3] Wiping checkout ledger and receipts...")
		if _, err := pool.Exec(ctx, `TRUNCATE checkout_transitions, checkout_sessions, receipts;`); err != nil {
			log.Fatalf("failed to truncate tables: %v", err)
		}
		// the per-user rate limit window would otherwise carry over between runs
		if err := redisClient.Del(ctx, redis.UserActionKey(*userID, "checkout")); err != nil {
			log.Fatalf("failed to reset rate limit: %v", err)
		}
	} else {
		log.Println("[2/3] Keeping existing data")
	}

	log.Println("[3/3] Minting learner token...")
	tok, err := apiv1.NewAuthManager(cfg.Auth.JWTSecret, *ttl).Mint(*userID)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}

	log.Println("--- E2E Environment Setup Complete ---")
	fmt.Printf("Authorization: Bearer %s\n", tok)
}
