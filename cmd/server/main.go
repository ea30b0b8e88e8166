// Package main is the entry point for the smart lock service.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/smart-lock-service/backend/internal/access"
	"github.com/smart-lock-service/backend/internal/api"
	"github.com/smart-lock-service/backend/internal/storage"
	"github.com/smart-lock-service/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	addr := flag.String("addr", ":8080", "HTTP server address")
	dataDir := flag.String("data", "./data", "Data directory for SQLite database")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// Health check mode for container HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(*addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	ttl := 24 * time.Hour
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("Invalid TOKEN_TTL %q: %v", v, err)
		}
		ttl = parsed
	}

	log.Printf("Starting smart lock service (version: %s)...", version)

	db, err := storage.NewDB(*dataDir + "/smart-lock-service.db")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	// WebSocket hub for dashboard events
	hub := websocket.NewHub()
	go hub.Run()

	// Repositories
	userRepo := storage.NewUserRepository(db)
	lockRepo := storage.NewLockRepository(db)

	// Core: lock registry plus the relock/OTP reconciliation sweep
	registry := access.NewRegistry(lockRepo, websocket.NewEventBroadcaster(hub))
	reconciler := access.NewReconciler(lockRepo, registry)
	reconciler.Start()

	router := api.NewRouter(api.Config{
		DB:        db,
		Users:     userRepo,
		Registry:  registry,
		Hub:       hub,
		JWTSecret: jwtSecret,
		TokenTTL:  ttl,
	})

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	reconciler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
