package websocket

import (
	"log"
	"time"

	"github.com/smart-lock-service/backend/internal/access"
	"github.com/smart-lock-service/backend/internal/storage/models"
)

// EventBroadcaster translates controller state changes into WebSocket
// messages for the dashboard. It satisfies access.Events; all methods are
// non-blocking because Hub.Broadcast drops on backpressure.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// LockStatusChanged sends a lock.status_changed event (unlock or relock).
func (b *EventBroadcaster) LockStatusChanged(lock *models.Lock) {
	b.broadcast(NewMessage(TypeLockStatusChanged, LockStatusPayload{
		LockID: lock.ID,
		Name:   lock.Name,
		Status: string(lock.Status),
	}))
}

// VerifyFailed sends a lock.verify_failed event with the resulting penalty.
func (b *EventBroadcaster) VerifyFailed(lock *models.Lock, penalty access.Penalty) {
	b.broadcast(NewMessage(TypeVerifyFailed, VerifyFailedPayload{
		LockID:            lock.ID,
		Name:              lock.Name,
		FailedAttempts:    lock.FailedAttempts,
		Penalty:           penalty.String(),
		CooldownUntil:     lock.CooldownUntil,
		PermanentlyLocked: lock.PermanentlyLocked,
	}))
}

// PermanentLockChanged sends a lock.permanent_lock_changed event.
func (b *EventBroadcaster) PermanentLockChanged(lock *models.Lock) {
	b.broadcast(NewMessage(TypePermanentLockChanged, PermanentLockPayload{
		LockID:            lock.ID,
		Name:              lock.Name,
		PermanentlyLocked: lock.PermanentlyLocked,
	}))
}

// UnauthorizedAttempt sends a lock.unauthorized_attempt event.
func (b *EventBroadcaster) UnauthorizedAttempt(lock *models.Lock) {
	detectedAt := time.Now().UTC()
	if lock.LastUnauthorizedAttempt != nil {
		detectedAt = *lock.LastUnauthorizedAttempt
	}
	b.broadcast(NewMessage(TypeUnauthorizedAttempt, UnauthorizedAttemptPayload{
		LockID:     lock.ID,
		Name:       lock.Name,
		DetectedAt: detectedAt,
	}))
}

func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}
	b.hub.Broadcast(data)
}
