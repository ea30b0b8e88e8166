package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeLockStatusChanged    MessageType = "lock.status_changed"
	TypeVerifyFailed         MessageType = "lock.verify_failed"
	TypePermanentLockChanged MessageType = "lock.permanent_lock_changed"
	TypeUnauthorizedAttempt  MessageType = "lock.unauthorized_attempt"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// LockStatusPayload is the payload for lock.status_changed events.
type LockStatusPayload struct {
	LockID string `json:"lock_id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// VerifyFailedPayload is the payload for lock.verify_failed events.
type VerifyFailedPayload struct {
	LockID            string     `json:"lock_id"`
	Name              string     `json:"name"`
	FailedAttempts    int        `json:"failed_attempts"`
	Penalty           string     `json:"penalty"`
	CooldownUntil     *time.Time `json:"cooldown_until,omitempty"`
	PermanentlyLocked bool       `json:"permanently_locked"`
}

// PermanentLockPayload is the payload for lock.permanent_lock_changed events.
type PermanentLockPayload struct {
	LockID            string `json:"lock_id"`
	Name              string `json:"name"`
	PermanentlyLocked bool   `json:"permanently_locked"`
}

// UnauthorizedAttemptPayload is the payload for lock.unauthorized_attempt events.
type UnauthorizedAttemptPayload struct {
	LockID     string    `json:"lock_id"`
	Name       string    `json:"name"`
	DetectedAt time.Time `json:"detected_at"`
}
