// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/smart-lock-service/backend/internal/api/middleware"
	"github.com/smart-lock-service/backend/internal/auth"
	"github.com/smart-lock-service/backend/internal/storage"
	"github.com/smart-lock-service/backend/internal/storage/models"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Signup creates a new account and returns a bearer token for it.
func Signup(users *storage.UserRepository, jwtSecret string, tokenTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if _, err := mail.ParseAddress(req.Email); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Invalid email address")
			return
		}
		if len(req.Password) < 8 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Password must be at least 8 characters")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create account")
			return
		}

		user := &models.User{Email: req.Email, PasswordHash: hash}
		if err := users.Create(r.Context(), user); err != nil {
			if errors.Is(err, storage.ErrEmailTaken) {
				middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Email already exists")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create account")
			return
		}

		token, err := auth.GenerateToken(user.ID, jwtSecret, tokenTTL)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to issue token")
			return
		}

		writeJSON(w, http.StatusCreated, authResponse{
			User:  userResponse{ID: user.ID, Email: user.Email},
			Token: token,
		})
	}
}

// Login authenticates an account by email and password.
func Login(users *storage.UserRepository, jwtSecret string, tokenTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		user, err := users.GetByEmail(r.Context(), req.Email)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to look up account")
			return
		}
		if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Invalid credentials")
			return
		}

		token, err := auth.GenerateToken(user.ID, jwtSecret, tokenTTL)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to issue token")
			return
		}

		writeJSON(w, http.StatusOK, authResponse{
			User:  userResponse{ID: user.ID, Email: user.Email},
			Token: token,
		})
	}
}

// UpdateWhatsApp stores the WhatsApp delivery number for the caller's account.
func UpdateWhatsApp(users *storage.UserRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			WhatsAppNumber string `json:"whatsapp_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		userID := middleware.UserID(r.Context())
		if err := users.UpdateWhatsAppNumber(r.Context(), userID, req.WhatsAppNumber); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "User not found")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update WhatsApp number")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"whatsapp_number": req.WhatsAppNumber})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
