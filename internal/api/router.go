// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"time"

	"github.com/gorilla/mux"

	"github.com/smart-lock-service/backend/internal/access"
	"github.com/smart-lock-service/backend/internal/api/handlers"
	"github.com/smart-lock-service/backend/internal/api/middleware"
	"github.com/smart-lock-service/backend/internal/storage"
	"github.com/smart-lock-service/backend/internal/websocket"
)

// Config carries the router's dependencies.
type Config struct {
	DB        *storage.DB
	Users     *storage.UserRepository
	Registry  *access.Registry
	Hub       *websocket.Hub
	JWTSecret string
	TokenTTL  time.Duration
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(cfg Config) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	api := r.PathPrefix("/api").Subrouter()

	// Unauthenticated endpoints
	api.HandleFunc("/health", handlers.HealthCheck(cfg.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(cfg.DB, cfg.Hub)).Methods("GET")
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(cfg.Hub)).Methods("GET")
	api.HandleFunc("/auth/signup", handlers.Signup(cfg.Users, cfg.JWTSecret, cfg.TokenTTL)).Methods("POST")
	api.HandleFunc("/auth/login", handlers.Login(cfg.Users, cfg.JWTSecret, cfg.TokenTTL)).Methods("POST")

	// Device verification: authenticated by lock id + code knowledge only.
	api.HandleFunc("/verify", handlers.VerifyCode(cfg.Registry)).Methods("POST")

	// Owner endpoints: bearer token plus per-lock ownership checks.
	owner := api.PathPrefix("").Subrouter()
	owner.Use(middleware.Auth(cfg.JWTSecret))

	owner.HandleFunc("/user/whatsapp", handlers.UpdateWhatsApp(cfg.Users)).Methods("PUT")

	owner.HandleFunc("/locks", handlers.ListLocks(cfg.Registry)).Methods("GET")
	owner.HandleFunc("/locks", handlers.CreateLock(cfg.Registry)).Methods("POST")
	owner.HandleFunc("/locks/{id}", handlers.GetLock(cfg.Registry)).Methods("GET")
	owner.HandleFunc("/locks/{id}", handlers.RenameLock(cfg.Registry)).Methods("PUT")
	owner.HandleFunc("/locks/{id}", handlers.DeleteLock(cfg.Registry)).Methods("DELETE")
	owner.HandleFunc("/locks/{id}/pins", handlers.SetPIN(cfg.Registry)).Methods("PUT")
	owner.HandleFunc("/locks/{id}/otp", handlers.IssueOTP(cfg.Registry, cfg.Users)).Methods("POST")
	owner.HandleFunc("/locks/{id}/permanent-lock", handlers.SetPermanentLock(cfg.Registry)).Methods("POST")
	owner.HandleFunc("/locks/{id}/permanent-unlock", handlers.ClearPermanentLock(cfg.Registry)).Methods("POST")
	owner.HandleFunc("/locks/{id}/notify", handlers.NotifyEvent(cfg.Registry)).Methods("POST")

	return r
}
