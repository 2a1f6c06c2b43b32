package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lingwo/essayd/internal/adapter/llm"
	"github.com/lingwo/essayd/internal/auth"
	"github.com/lingwo/essayd/internal/config"
	"github.com/lingwo/essayd/internal/kvstore"
	"github.com/lingwo/essayd/internal/ratelimit"
	"github.com/lingwo/essayd/internal/repository"
	"github.com/lingwo/essayd/internal/scoring"
	"github.com/lingwo/essayd/internal/service"
	"github.com/lingwo/essayd/internal/topics"
	transport "github.com/lingwo/essayd/internal/transport/http"
	"github.com/lingwo/essayd/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting essayd...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Redis: %s", cfg.RedisAddr)
	log.Printf("Model URL: %s", cfg.ModelURL)

	// Initialize durable store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize ephemeral store. The service cannot run without it, so an
	// unreachable Redis is fatal at startup rather than on first request.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	kv := kvstore.NewWithClient(rdb)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := kv.Ping(pingCtx); err != nil {
		cancelPing()
		log.Fatalf("Failed to reach redis: %v", err)
	}
	cancelPing()
	defer kv.Close()

	// Initialize model client, scorer and topic provider
	generator := llm.NewGenerator(cfg.ModelURL)
	scorer := scoring.NewScorer(generator)
	topicProvider := topics.NewProvider(cfg.TopicServiceURL, cfg.TopicsPath)

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize rate limiter and token verifier
	limiter := ratelimit.New(rdb, cfg.ModelRateLimitPerMinute)
	verifier := auth.NewVerifier(cfg.JWKSURL)

	// Initialize service and HTTP server
	svc := service.New(db, kv, scorer, topicProvider)
	server := transport.NewServer(svc, verifier, policyEngine, limiter)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down essayd...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	// Let in-flight scoring jobs write their results before exiting.
	svc.WaitScoring()

	log.Println("essayd stopped")
}
