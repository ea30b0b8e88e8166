package access

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/smart-lock-service/backend/internal/storage/models"
)

const (
	// OTPTTL is how long an issued one-time code stays redeemable.
	OTPTTL = 5 * time.Minute

	// RelockDelay is how long a lock stays unlocked after a successful
	// verification before the deferred relock fires.
	RelockDelay = 5 * time.Second
)

// LockStore is the persistence surface the controller needs. A write failure
// surfaces as a StorageError and leaves the in-memory state untouched.
type LockStore interface {
	Update(ctx context.Context, lock *models.Lock) error
}

// Events receives state-change notifications from a controller. Methods are
// called with the controller's mutex held and must not block.
type Events interface {
	LockStatusChanged(lock *models.Lock)
	VerifyFailed(lock *models.Lock, penalty Penalty)
	PermanentLockChanged(lock *models.Lock)
	UnauthorizedAttempt(lock *models.Lock)
}

// Controller owns the mutable state of one lock and serializes every
// mutation behind a single mutex, so concurrent verifications and
// administrative calls cannot lose updates. Controllers for different locks
// are independent.
type Controller struct {
	mu    sync.Mutex
	lock  *models.Lock
	store LockStore

	events Events

	// relockEpoch invalidates stale relock timers: each successful unlock
	// bumps it, and a timer only acts if its captured epoch is still current.
	relockEpoch uint64

	now      func() time.Time
	schedule func(d time.Duration, fn func())
}

// NewController creates a controller over an already-loaded lock record.
func NewController(lock *models.Lock, store LockStore, events Events) *Controller {
	return &Controller{
		lock:   lock,
		store:  store,
		events: events,
		now:    time.Now,
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// ID returns the lock's identifier.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lock.ID
}

// OwnerID returns the owning account's identifier.
func (c *Controller) OwnerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lock.OwnerID
}

// Snapshot returns a copy of the lock's current state.
func (c *Controller) Snapshot() models.Lock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.lock
}

// IssueOTP generates a fresh 6-digit one-time code valid for OTPTTL,
// replacing any prior code, and returns it for out-of-band delivery.
// Refused while the lock is permanently locked.
func (c *Controller) IssueOTP(ctx context.Context) (code string, expiresAt time.Time, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lock.PermanentlyLocked {
		return "", time.Time{}, ErrPermanentlyLocked
	}

	code, err = randomCode()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generating otp: %w", err)
	}

	now := c.now()
	expiresAt = now.Add(OTPTTL)

	staged := c.lock.Clone()
	NewCodeStore(staged).SetOTP(code, expiresAt)
	staged.LastUpdated = now

	if err := c.persist(ctx, staged); err != nil {
		return "", time.Time{}, err
	}

	return code, expiresAt, nil
}

// SetPIN stores the 6-digit code's hash in the given slot (1-based). This is
// an administrative action and is allowed regardless of lock state.
func (c *Controller) SetPIN(ctx context.Context, slot int, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	staged := c.lock.Clone()
	if err := NewCodeStore(staged).SetSlot(slot, code); err != nil {
		return err
	}
	staged.LastUpdated = c.now()

	return c.persist(ctx, staged)
}

// Rename updates the lock's display name.
func (c *Controller) Rename(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	staged := c.lock.Clone()
	staged.Name = name
	staged.LastUpdated = c.now()

	return c.persist(ctx, staged)
}

// Verify checks a candidate code submitted by the device and runs the full
// admissibility chain: permanent lock, cooldown, OTP, PIN slots. A nil return
// means the lock is now unlocked and a relock has been scheduled.
func (c *Controller) Verify(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if c.lock.PermanentlyLocked {
		return ErrPermanentlyLocked
	}
	if c.lock.CooldownUntil != nil && now.Before(*c.lock.CooldownUntil) {
		return &RateLimitedError{Remaining: c.lock.CooldownUntil.Sub(now)}
	}

	staged := c.lock.Clone()
	codes := NewCodeStore(staged)

	matched := codes.ConsumeOTPIfValid(code, now)
	if !matched {
		matched = codes.MatchesAny(code)
	}

	if !matched {
		return c.recordFailure(ctx, staged, now)
	}

	staged.FailedAttempts = 0
	staged.CooldownUntil = nil
	staged.Status = models.StatusUnlocked
	staged.LastUpdated = now

	if err := c.persist(ctx, staged); err != nil {
		return err
	}

	c.relockEpoch++
	epoch := c.relockEpoch
	c.schedule(RelockDelay, func() { c.relock(epoch) })

	if c.events != nil {
		c.events.LockStatusChanged(c.lock)
	}

	return nil
}

// recordFailure counts a failed verification and applies the lockout policy.
// Called with the mutex held.
func (c *Controller) recordFailure(ctx context.Context, staged *models.Lock, now time.Time) error {
	staged.FailedAttempts++
	failedAt := now
	staged.LastFailedAttempt = &failedAt

	penalty := NextPenalty(staged.FailedAttempts)
	switch penalty {
	case PenaltyPermanent:
		staged.PermanentlyLocked = true
		staged.CooldownUntil = nil
	case PenaltyCooldown:
		until := now.Add(CooldownDuration)
		staged.CooldownUntil = &until
	}
	staged.LastUpdated = now

	if err := c.persist(ctx, staged); err != nil {
		return err
	}

	if c.events != nil {
		c.events.VerifyFailed(c.lock, penalty)
	}

	return &InvalidCodeError{
		Attempts:          c.lock.FailedAttempts,
		CooldownUntil:     c.lock.CooldownUntil,
		PermanentlyLocked: c.lock.PermanentlyLocked,
	}
}

// SetPermanentLock turns the permanent-lock override on or off. Turning it
// off is a full amnesty: the attempt counter and any cooldown are cleared.
func (c *Controller) SetPermanentLock(ctx context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	staged := c.lock.Clone()
	staged.PermanentlyLocked = on
	if !on {
		staged.FailedAttempts = 0
		staged.CooldownUntil = nil
	}
	staged.LastUpdated = c.now()

	if err := c.persist(ctx, staged); err != nil {
		return err
	}

	if c.events != nil {
		c.events.PermanentLockChanged(c.lock)
	}

	return nil
}

// RecordUnauthorizedAttempt stamps a tamper event reported out of band by
// the device. Purely informational: counters and penalty state are untouched.
func (c *Controller) RecordUnauthorizedAttempt(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	staged := c.lock.Clone()
	staged.LastUnauthorizedAttempt = &now
	staged.LastUpdated = now

	if err := c.persist(ctx, staged); err != nil {
		return err
	}

	if c.events != nil {
		c.events.UnauthorizedAttempt(c.lock)
	}

	return nil
}

// RelockIfOverdue returns the lock to Locked if it has been left Unlocked
// past the relock deadline. Used by the reconciliation sweep when an
// in-process timer was lost to a crash or a failed write.
func (c *Controller) RelockIfOverdue(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lock.Status != models.StatusUnlocked {
		return nil
	}
	if c.now().Sub(c.lock.LastUpdated) < RelockDelay {
		return nil
	}

	return c.applyRelock(ctx)
}

// ClearExpiredOTP drops a one-time code whose expiry has passed, so stale
// secrets do not linger in storage. No-op when nothing is expired.
func (c *Controller) ClearExpiredOTP(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	staged := c.lock.Clone()
	if !NewCodeStore(staged).ClearExpiredOTP(c.now()) {
		return nil
	}
	staged.LastUpdated = c.now()

	return c.persist(ctx, staged)
}

// relock is the deferred auto-relock. A timer only acts if its epoch is
// still current, so an earlier unlock's timer can never relock a device that
// a newer unlock just opened.
func (c *Controller) relock(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.relockEpoch || c.lock.Status != models.StatusUnlocked {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.applyRelock(ctx); err != nil {
		// The reconciliation sweep will retry from persisted state.
		log.Printf("Relock failed for lock %s: %v", c.lock.ID, err)
	}
}

// applyRelock sets the lock back to Locked. Called with the mutex held.
func (c *Controller) applyRelock(ctx context.Context) error {
	staged := c.lock.Clone()
	staged.Status = models.StatusLocked
	staged.LastUpdated = c.now()

	if err := c.persist(ctx, staged); err != nil {
		return err
	}

	if c.events != nil {
		c.events.LockStatusChanged(c.lock)
	}

	return nil
}

// persist writes the staged record and commits it in memory only on success,
// so storage failures never leave half-applied state behind.
func (c *Controller) persist(ctx context.Context, staged *models.Lock) error {
	if err := c.store.Update(ctx, staged); err != nil {
		return &StorageError{Op: "update lock " + staged.ID, Err: err}
	}
	c.lock = staged
	return nil
}

// randomCode draws a uniform 6-digit code from the full 000000-999999 space.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
