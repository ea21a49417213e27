// Command simtrackd runs the Sims Challenge Tracker backend.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simtrack/simtrack/provider"
	"github.com/simtrack/simtrack/server"
	"github.com/simtrack/simtrack/store"
)

func main() {
	cfg := server.ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	limits, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("rate limit store: %v", err)
	}
	defer limits.Close()

	client := provider.NewClient(provider.ClientConfig{
		BaseURL: cfg.ProviderBaseURL,
		APIKey:  cfg.ProviderAPIKey,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(cfg, client, client, limits).Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	case sig := <-stop:
		log.Printf("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}

func buildStore(cfg server.Config) (store.Store, error) {
	if cfg.RedisURL == "" {
		return store.NewMemory(cfg.RateLimitCapacity), nil
	}
	return store.NewRedis(store.RedisConfig{
		URL:      cfg.RedisURL,
		Password: cfg.RedisPassword,
	})
}
