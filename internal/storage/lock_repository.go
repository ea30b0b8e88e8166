package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smart-lock-service/backend/internal/storage/models"
)

const lockColumns = `id, owner_id, name, status,
	pin_slot_1, pin_slot_2, pin_slot_3, pin_slot_4,
	otp, otp_expires_at,
	failed_attempts, last_failed_attempt, last_unauthorized_attempt,
	cooldown_until, permanently_locked, last_updated, created_at`

// LockRepository provides data access for lock records.
type LockRepository struct {
	BaseRepository
}

// NewLockRepository creates a new lock repository.
func NewLockRepository(db *DB) *LockRepository {
	return &LockRepository{BaseRepository: NewBaseRepository(db)}
}

// Create inserts a new lock record. The ID and timestamps are assigned here.
func (r *LockRepository) Create(ctx context.Context, lock *models.Lock) error {
	lock.ID = GenerateID()
	lock.CreatedAt = r.Now()
	lock.LastUpdated = lock.CreatedAt
	if lock.Status == "" {
		lock.Status = models.StatusLocked
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO locks (`+lockColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		lock.ID, lock.OwnerID, lock.Name, lock.Status,
		lock.PinSlots[0], lock.PinSlots[1], lock.PinSlots[2], lock.PinSlots[3],
		lock.OTP, lock.OTPExpiresAt,
		lock.FailedAttempts, lock.LastFailedAttempt, lock.LastUnauthorizedAttempt,
		lock.CooldownUntil, lock.PermanentlyLocked, lock.LastUpdated, lock.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting lock: %w", err)
	}

	return nil
}

// GetByID retrieves a lock by ID. Returns (nil, nil) when no lock exists.
func (r *LockRepository) GetByID(ctx context.Context, id string) (*models.Lock, error) {
	row := r.DB().QueryRowContext(ctx, "SELECT "+lockColumns+" FROM locks WHERE id = ?", id)

	lock, err := scanLock(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying lock: %w", err)
	}

	return lock, nil
}

// ListByOwner retrieves all locks belonging to an account, ordered by name.
func (r *LockRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Lock, error) {
	return r.list(ctx, "SELECT "+lockColumns+" FROM locks WHERE owner_id = ? ORDER BY name", ownerID)
}

// List retrieves every lock record. Used by the reconciliation sweep.
func (r *LockRepository) List(ctx context.Context) ([]models.Lock, error) {
	return r.list(ctx, "SELECT "+lockColumns+" FROM locks ORDER BY name")
}

func (r *LockRepository) list(ctx context.Context, query string, args ...any) ([]models.Lock, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying locks: %w", err)
	}
	defer rows.Close()

	var locks []models.Lock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lock: %w", err)
		}
		locks = append(locks, *lock)
	}

	return locks, rows.Err()
}

// Update persists the full mutable state of a lock.
func (r *LockRepository) Update(ctx context.Context, lock *models.Lock) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE locks SET
			name = ?, status = ?,
			pin_slot_1 = ?, pin_slot_2 = ?, pin_slot_3 = ?, pin_slot_4 = ?,
			otp = ?, otp_expires_at = ?,
			failed_attempts = ?, last_failed_attempt = ?, last_unauthorized_attempt = ?,
			cooldown_until = ?, permanently_locked = ?, last_updated = ?
		WHERE id = ?
	`,
		lock.Name, lock.Status,
		lock.PinSlots[0], lock.PinSlots[1], lock.PinSlots[2], lock.PinSlots[3],
		lock.OTP, lock.OTPExpiresAt,
		lock.FailedAttempts, lock.LastFailedAttempt, lock.LastUnauthorizedAttempt,
		lock.CooldownUntil, lock.PermanentlyLocked, lock.LastUpdated,
		lock.ID,
	)

	if err != nil {
		return fmt.Errorf("updating lock: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("lock %s: %w", lock.ID, ErrNotFound)
	}

	return nil
}

// Delete removes a lock by ID.
func (r *LockRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM locks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting lock: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("lock %s: %w", id, ErrNotFound)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLock(s scanner) (*models.Lock, error) {
	lock := &models.Lock{}
	err := s.Scan(
		&lock.ID, &lock.OwnerID, &lock.Name, &lock.Status,
		&lock.PinSlots[0], &lock.PinSlots[1], &lock.PinSlots[2], &lock.PinSlots[3],
		&lock.OTP, &lock.OTPExpiresAt,
		&lock.FailedAttempts, &lock.LastFailedAttempt, &lock.LastUnauthorizedAttempt,
		&lock.CooldownUntil, &lock.PermanentlyLocked, &lock.LastUpdated, &lock.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return lock, nil
}
