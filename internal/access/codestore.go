package access

import (
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/smart-lock-service/backend/internal/storage/models"
)

var pinPattern = regexp.MustCompile(`^\d{6}$`)

// CodeStore reads and writes the credential fields of one lock record. It
// holds no policy: admissibility checks and counters are the controller's.
//
// PIN slots store bcrypt hashes so a stolen record does not yield usable
// codes. The OTP is kept in clear: it is short-lived, and it has to be
// returned in cleartext at issuance for out-of-band delivery anyway.
type CodeStore struct {
	lock *models.Lock
}

// NewCodeStore wraps the credential fields of the given lock.
func NewCodeStore(lock *models.Lock) *CodeStore {
	return &CodeStore{lock: lock}
}

// SetSlot hashes code and stores it in the given 1-based slot, overwriting
// any previous value.
func (s *CodeStore) SetSlot(slot int, code string) error {
	if slot < 1 || slot > models.PinSlotCount {
		return fmt.Errorf("slot %d: %w", slot, ErrSlotOutOfRange)
	}
	if !pinPattern.MatchString(code) {
		return ErrInvalidPINFormat
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing pin: %w", err)
	}

	h := string(hash)
	s.lock.PinSlots[slot-1] = &h
	return nil
}

// MatchesAny reports whether the candidate matches any occupied PIN slot,
// checked in slot order.
func (s *CodeStore) MatchesAny(candidate string) bool {
	for _, hash := range s.lock.PinSlots {
		if hash == nil {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(*hash), []byte(candidate)) == nil {
			return true
		}
	}
	return false
}

// SetOTP installs a one-time code with its absolute expiry, replacing any
// prior one.
func (s *CodeStore) SetOTP(code string, expiresAt time.Time) {
	s.lock.OTP = &code
	s.lock.OTPExpiresAt = &expiresAt
}

// ConsumeOTPIfValid reports whether the candidate equals the live, unexpired
// OTP. On a match the code and its expiry are cleared in the same step, so a
// consumed OTP can never match again.
func (s *CodeStore) ConsumeOTPIfValid(candidate string, now time.Time) bool {
	if !s.lock.HasActiveOTP(now) {
		return false
	}
	if *s.lock.OTP != candidate {
		return false
	}

	s.lock.OTP = nil
	s.lock.OTPExpiresAt = nil
	return true
}

// ClearExpiredOTP drops the OTP if its expiry has passed. Returns true if
// anything was cleared.
func (s *CodeStore) ClearExpiredOTP(now time.Time) bool {
	if s.lock.OTPExpiresAt == nil || !now.After(*s.lock.OTPExpiresAt) {
		return false
	}
	s.lock.OTP = nil
	s.lock.OTPExpiresAt = nil
	return true
}
