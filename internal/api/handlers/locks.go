package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/smart-lock-service/backend/internal/access"
	"github.com/smart-lock-service/backend/internal/api/middleware"
	"github.com/smart-lock-service/backend/internal/notify"
	"github.com/smart-lock-service/backend/internal/storage"
	"github.com/smart-lock-service/backend/internal/storage/models"
)

// LockResponse represents a lock in API responses. Credential material is
// never included.
type LockResponse struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"`
	Status                  string     `json:"status"`
	FailedAttempts          int        `json:"failed_attempts"`
	CooldownUntil           *time.Time `json:"cooldown_until,omitempty"`
	PermanentlyLocked       bool       `json:"permanently_locked"`
	LastFailedAttempt       *time.Time `json:"last_failed_attempt,omitempty"`
	LastUnauthorizedAttempt *time.Time `json:"last_unauthorized_attempt,omitempty"`
	LastUpdated             time.Time  `json:"last_updated"`
	CreatedAt               time.Time  `json:"created_at"`
}

func lockResponse(l models.Lock) LockResponse {
	return LockResponse{
		ID:                      l.ID,
		Name:                    l.Name,
		Status:                  string(l.Status),
		FailedAttempts:          l.FailedAttempts,
		CooldownUntil:           l.CooldownUntil,
		PermanentlyLocked:       l.PermanentlyLocked,
		LastFailedAttempt:       l.LastFailedAttempt,
		LastUnauthorizedAttempt: l.LastUnauthorizedAttempt,
		LastUpdated:             l.LastUpdated,
		CreatedAt:               l.CreatedAt,
	}
}

// ownedController resolves {id} to a controller and enforces ownership.
// Non-owned locks look identical to missing ones.
func ownedController(w http.ResponseWriter, r *http.Request, registry *access.Registry) (*access.Controller, bool) {
	id := mux.Vars(r)["id"]

	ctrl, err := registry.Get(r.Context(), id)
	if errors.Is(err, access.ErrLockNotFound) {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Lock not found")
		return nil, false
	}
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load lock")
		return nil, false
	}

	if ctrl.OwnerID() != middleware.UserID(r.Context()) {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Lock not found")
		return nil, false
	}

	return ctrl, true
}

// CreateLock creates a new lock for the caller: locked, no codes.
func CreateLock(registry *access.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Lock name is required")
			return
		}

		ctrl, err := registry.Create(r.Context(), middleware.UserID(r.Context()), strings.TrimSpace(req.Name))
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create lock")
			return
		}

		writeJSON(w, http.StatusCreated, lockResponse(ctrl.Snapshot()))
	}
}

// ListLocks returns all locks owned by the caller.
func ListLocks(registry *access.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locks, err := registry.ListByOwner(r.Context(), middleware.UserID(r.Context()))
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query locks")
			return
		}

		responses := make([]LockResponse, 0, len(locks))
		for _, l := range locks {
			responses = append(responses, lockResponse(l))
		}

		writeJSON(w, http.StatusOK, responses)
	}
}

// GetLock returns the current state of one lock.
func GetLock(registry *access.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := ownedController(w, r, registry)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, lockResponse(ctrl.Snapshot()))
	}
}

// RenameLock updates a lock's display name.
func RenameLock(registry *access.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := ownedController(w, r, registry)
		if !ok {
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Lock name is required")
			return
		}

		if err := ctrl.Rename(r.Context(), strings.TrimSpace(req.Name)); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to rename lock")
			return
		}

		writeJSON(w, http.StatusOK, lockResponse(ctrl.Snapshot()))
	}
}

// DeleteLock removes a lock.
func DeleteLock(registry *access.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := ownedController(w, r, registry)
		if !ok {
			return
		}

		if err := registry.Delete(r.Context(), ctrl.ID()); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete lock")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// SetPIN stores a persistent 6-digit code in one of the four slots.
func SetPIN(registry *access.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := ownedController(w, r, registry)
		if !ok {
			return
		}

		var req struct {
			Slot int    `json:"slot"`
			PIN  string `json:"pin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		err := ctrl.SetPIN(r.Context(), req.Slot, req.PIN)
		switch {
		case errors.Is(err, access.ErrInvalidPINFormat):
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "PIN must be exactly 6 digits")
		case errors.Is(err, access.ErrSlotOutOfRange):
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Slot must be between 1 and 4")
		case err != nil:
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update PIN")
		default:
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		}
	}
}

// IssueOTP generates a one-time code and returns it with the composed
// WhatsApp message and the owner's delivery number.
func IssueOTP(registry *access.Registry, users *storage.UserRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := ownedController(w, r, registry)
		if !ok {
			return
		}

		code, expiresAt, err := ctrl.IssueOTP(r.Context())
		if errors.Is(err, access.ErrPermanentlyLocked) {
			middleware.WriteError(w, http.StatusForbidden, middleware.ErrForbidden, "Lock is permanently locked")
			return
		}
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to generate OTP")
			return
		}

		var whatsapp string
		if user, err := users.GetByID(r.Context(), middleware.UserID(r.Context())); err == nil && user != nil {
			whatsapp = user.WhatsAppNumber
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"otp":              code,
			"otp_expires_at":   expiresAt,
			"whatsapp_message": notify.OTPMessage(ctrl.Snapshot().Name, code, access.OTPTTL),
			"user_whatsapp":    whatsapp,
		})
	}
}

// SetPermanentLock enables the permanent-lock override.
func SetPermanentLock(registry *access.Registry) http.HandlerFunc {
	return permanentLock(registry, true)
}

// ClearPermanentLock disables the override and grants full amnesty.
func ClearPermanentLock(registry *access.Registry) http.HandlerFunc {
	return permanentLock(registry, false)
}

func permanentLock(registry *access.Registry, on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := ownedController(w, r, registry)
		if !ok {
			return
		}

		if err := ctrl.SetPermanentLock(r.Context(), on); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update permanent lock")
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// NotifyEvent records an out-of-band event reported for a lock. Only the
// unauthorized_attempt tag carries state today; others are acknowledged.
func NotifyEvent(registry *access.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := ownedController(w, r, registry)
		if !ok {
			return
		}

		var req struct {
			Event string `json:"event"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.Event == "unauthorized_attempt" {
			if err := ctrl.RecordUnauthorizedAttempt(r.Context()); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to record event")
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
