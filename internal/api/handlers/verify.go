package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smart-lock-service/backend/internal/access"
	"github.com/smart-lock-service/backend/internal/api/middleware"
)

// VerifyCode is the device-facing verification endpoint. It carries no
// bearer auth: knowledge of the lock id and a valid code is the credential.
func VerifyCode(registry *access.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			LockID string `json:"lock_id"`
			Code   string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		ctrl, err := registry.Get(r.Context(), req.LockID)
		if errors.Is(err, access.ErrLockNotFound) {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Lock not found")
			return
		}
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load lock")
			return
		}

		err = ctrl.Verify(r.Context(), req.Code)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
			return
		}

		var rateLimited *access.RateLimitedError
		var invalidCode *access.InvalidCodeError
		switch {
		case errors.Is(err, access.ErrPermanentlyLocked):
			middleware.WriteError(w, http.StatusForbidden, middleware.ErrForbidden, "Lock is permanently locked")

		case errors.As(err, &rateLimited):
			middleware.WriteErrorWithDetails(w, http.StatusTooManyRequests, middleware.ErrRateLimited,
				"Too many attempts", map[string]int{
					"cooldown_remaining": rateLimited.RemainingSeconds(),
				})

		case errors.As(err, &invalidCode):
			middleware.WriteErrorWithDetails(w, http.StatusUnauthorized, middleware.ErrInvalidCode,
				"Invalid code", map[string]any{
					"attempts":           invalidCode.Attempts,
					"cooldown_until":     invalidCode.CooldownUntil,
					"permanently_locked": invalidCode.PermanentlyLocked,
				})

		default:
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Verification unavailable")
		}
	}
}
