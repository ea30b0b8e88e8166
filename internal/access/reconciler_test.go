package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-lock-service/backend/internal/storage/models"
)

func TestSweepRelocksOverdueLock(t *testing.T) {
	store := newMemStore()
	registry := NewRegistry(store, nil)
	ctx := context.Background()

	// Simulate a crash after an unlock: the record is Unlocked in storage
	// but no relock timer exists in this process.
	lock := &models.Lock{OwnerID: "owner-1", Name: "Front Door", Status: models.StatusUnlocked}
	require.NoError(t, store.Create(ctx, lock))
	stale := lock.Clone()
	stale.LastUpdated = time.Now().Add(-time.Minute)
	require.NoError(t, store.Update(ctx, stale))

	reconciler := NewReconciler(store, registry)
	reconciler.Sweep(ctx)

	persisted, err := store.GetByID(ctx, lock.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLocked, persisted.Status)
}

func TestSweepLeavesFreshUnlockAlone(t *testing.T) {
	store := newMemStore()
	registry := NewRegistry(store, nil)
	ctx := context.Background()

	ctrl, err := registry.Create(ctx, "owner-1", "Front Door")
	require.NoError(t, err)
	require.NoError(t, ctrl.SetPIN(ctx, 1, "123456"))
	require.NoError(t, ctrl.Verify(ctx, "123456"))

	NewReconciler(store, registry).Sweep(ctx)

	assert.Equal(t, models.StatusUnlocked, ctrl.Snapshot().Status,
		"a just-unlocked lock belongs to its own timer, not the sweep")
}

func TestSweepClearsExpiredOTP(t *testing.T) {
	store := newMemStore()
	registry := NewRegistry(store, nil)
	ctx := context.Background()

	lock := &models.Lock{OwnerID: "owner-1", Name: "Front Door", Status: models.StatusLocked}
	require.NoError(t, store.Create(ctx, lock))

	code := "123123"
	expired := time.Now().Add(-time.Minute)
	withOTP := lock.Clone()
	withOTP.OTP = &code
	withOTP.OTPExpiresAt = &expired
	require.NoError(t, store.Update(ctx, withOTP))

	NewReconciler(store, registry).Sweep(ctx)

	persisted, err := store.GetByID(ctx, lock.ID)
	require.NoError(t, err)
	assert.Nil(t, persisted.OTP)
	assert.Nil(t, persisted.OTPExpiresAt)
}
