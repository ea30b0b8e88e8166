// Package models contains the domain models for the application.
package models

import "time"

// LockStatus mirrors the last known physical state of a lock device.
type LockStatus string

const (
	StatusLocked   LockStatus = "locked"
	StatusUnlocked LockStatus = "unlocked"
)

// PinSlotCount is the number of persistent PIN slots every lock carries.
const PinSlotCount = 4

// Lock represents one physical lock device and its access-control state.
// Credential material (PIN hashes, live OTP) is never serialized to JSON.
type Lock struct {
	ID      string     `json:"id"`
	OwnerID string     `json:"owner_id"`
	Name    string     `json:"name"`
	Status  LockStatus `json:"status"`

	// PinSlots holds a bcrypt hash per slot; nil means the slot is empty.
	// Slots are addressed 1-based at the API, 0-based here.
	PinSlots [PinSlotCount]*string `json:"-"`

	// OTP is the live one-time code in clear, with its absolute expiry.
	// At most one is live; issuing a new one replaces the prior.
	OTP          *string    `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`

	FailedAttempts          int        `json:"failed_attempts"`
	LastFailedAttempt       *time.Time `json:"last_failed_attempt,omitempty"`
	LastUnauthorizedAttempt *time.Time `json:"last_unauthorized_attempt,omitempty"`
	CooldownUntil           *time.Time `json:"cooldown_until,omitempty"`
	PermanentlyLocked       bool       `json:"permanently_locked"`

	LastUpdated time.Time `json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clone returns a shallow copy of the lock. Pointer fields are shared, but
// mutators replace pointers rather than writing through them, so a clone is
// safe to stage changes on before committing.
func (l *Lock) Clone() *Lock {
	c := *l
	return &c
}

// HasActiveOTP reports whether a one-time code is live at the given instant.
func (l *Lock) HasActiveOTP(now time.Time) bool {
	return l.OTP != nil && l.OTPExpiresAt != nil && !now.After(*l.OTPExpiresAt)
}
