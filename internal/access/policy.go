// Package access implements the per-lock verification and lockout state
// machine: code storage, penalty policy, the lock controller and its
// registry, and the reconciliation sweep that backstops the relock timers.
package access

import "time"

// Penalty thresholds. Counting starts at zero; the third failure opens the
// first cooldown window and the sixth locks the device out permanently.
const (
	cooldownThreshold  = 3
	permanentThreshold = 6

	// CooldownDuration is the rejection window opened by a qualifying
	// failure. Each new failure in the cooldown band opens a fresh window.
	CooldownDuration = 60 * time.Second
)

// Penalty is the outcome of the lockout policy after a failed verification.
type Penalty int

const (
	PenaltyNone Penalty = iota
	PenaltyCooldown
	PenaltyPermanent
)

func (p Penalty) String() string {
	switch p {
	case PenaltyCooldown:
		return "cooldown"
	case PenaltyPermanent:
		return "permanent"
	default:
		return "none"
	}
}

// NextPenalty maps a cumulative failed-attempt count to the penalty in force
// after the most recent failure. It is a pure function: no clock, no state.
func NextPenalty(failedAttempts int) Penalty {
	switch {
	case failedAttempts >= permanentThreshold:
		return PenaltyPermanent
	case failedAttempts >= cooldownThreshold:
		return PenaltyCooldown
	default:
		return PenaltyNone
	}
}
