package handlers

import (
	"net/http"

	"github.com/smart-lock-service/backend/internal/storage"
	"github.com/smart-lock-service/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil

		status := "healthy"
		httpStatus := http.StatusOK
		if !dbConnected {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		writeJSON(w, httpStatus, HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	UsersCount        int `json:"users_count"`
	LocksCount        int `json:"locks_count"`
	UnlockedCount     int `json:"unlocked_count"`
	PermanentlyLocked int `json:"permanently_locked_count"`
	WSClients         int `json:"ws_clients"`
}

// Status returns a handler that provides system status information.
func Status(db *storage.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var response StatusResponse
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&response.UsersCount)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM locks").Scan(&response.LocksCount)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM locks WHERE status = 'unlocked'").Scan(&response.UnlockedCount)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM locks WHERE permanently_locked = 1").Scan(&response.PermanentlyLocked)
		response.WSClients = hub.ClientCount()

		writeJSON(w, http.StatusOK, response)
	}
}
