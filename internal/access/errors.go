package access

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLockNotFound is returned when a lock id resolves to nothing.
	ErrLockNotFound = errors.New("lock not found")

	// ErrPermanentlyLocked is returned when an operation is refused because
	// the lock is under the permanent-lock override.
	ErrPermanentlyLocked = errors.New("lock is permanently locked")

	// ErrSlotOutOfRange is returned for a PIN slot outside 1..4.
	ErrSlotOutOfRange = errors.New("pin slot out of range")

	// ErrInvalidPINFormat is returned when a PIN is not exactly 6 digits.
	ErrInvalidPINFormat = errors.New("pin must be exactly 6 digits")
)

// RateLimitedError is returned by Verify while the lock is in cooldown.
type RateLimitedError struct {
	Remaining time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %ds", e.RemainingSeconds())
}

// RemainingSeconds returns the cooldown remainder rounded up to whole seconds.
func (e *RateLimitedError) RemainingSeconds() int {
	return int((e.Remaining + time.Second - 1) / time.Second)
}

// InvalidCodeError is returned by Verify when the candidate matched neither
// the live OTP nor any PIN slot. It carries the state after the failure was
// counted, but never which comparison failed.
type InvalidCodeError struct {
	Attempts          int
	CooldownUntil     *time.Time
	PermanentlyLocked bool
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid code (attempt %d)", e.Attempts)
}

// StorageError wraps a persistence failure. It is never a verification
// outcome: a failed write does not count as a failed attempt.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
