package access

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-lock-service/backend/internal/storage/models"
)

// memStore is an in-memory Store used by registry and reconciler tests.
type memStore struct {
	mu    sync.Mutex
	locks map[string]models.Lock
	next  int
}

func newMemStore() *memStore {
	return &memStore{locks: make(map[string]models.Lock)}
}

func (s *memStore) Create(_ context.Context, lock *models.Lock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	lock.ID = fmt.Sprintf("lock-%d", s.next)
	lock.CreatedAt = time.Now().UTC()
	lock.LastUpdated = lock.CreatedAt
	s.locks[lock.ID] = *lock
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*models.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		return nil, nil
	}
	return &lock, nil
}

func (s *memStore) ListByOwner(_ context.Context, ownerID string) ([]models.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Lock
	for _, lock := range s.locks {
		if lock.OwnerID == ownerID {
			out = append(out, lock)
		}
	}
	return out, nil
}

func (s *memStore) List(_ context.Context) ([]models.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Lock
	for _, lock := range s.locks {
		out = append(out, lock)
	}
	return out, nil
}

func (s *memStore) Update(_ context.Context, lock *models.Lock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[lock.ID]; !ok {
		return fmt.Errorf("lock %s does not exist", lock.ID)
	}
	s.locks[lock.ID] = *lock
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[id]; !ok {
		return fmt.Errorf("lock %s does not exist", id)
	}
	delete(s.locks, id)
	return nil
}

func TestRegistryCreateAndGet(t *testing.T) {
	registry := NewRegistry(newMemStore(), nil)
	ctx := context.Background()

	ctrl, err := registry.Create(ctx, "owner-1", "Front Door")
	require.NoError(t, err)

	snap := ctrl.Snapshot()
	assert.Equal(t, "owner-1", snap.OwnerID)
	assert.Equal(t, "Front Door", snap.Name)
	assert.Equal(t, models.StatusLocked, snap.Status)
	assert.Equal(t, 0, snap.FailedAttempts)

	got, err := registry.Get(ctx, ctrl.ID())
	require.NoError(t, err)
	assert.Same(t, ctrl, got, "one controller per lock")
}

func TestRegistryGetUnknown(t *testing.T) {
	registry := NewRegistry(newMemStore(), nil)

	_, err := registry.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrLockNotFound)
}

func TestRegistryLoadsFromStore(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	lock := &models.Lock{OwnerID: "owner-1", Name: "Garage", Status: models.StatusLocked}
	require.NoError(t, store.Create(ctx, lock))

	// A fresh registry (new process) resolves persisted locks lazily.
	registry := NewRegistry(store, nil)
	ctrl, err := registry.Get(ctx, lock.ID)
	require.NoError(t, err)
	assert.Equal(t, "Garage", ctrl.Snapshot().Name)

	again, err := registry.Get(ctx, lock.ID)
	require.NoError(t, err)
	assert.Same(t, ctrl, again)
}

func TestRegistryListByOwner(t *testing.T) {
	registry := NewRegistry(newMemStore(), nil)
	ctx := context.Background()

	_, err := registry.Create(ctx, "owner-1", "Front Door")
	require.NoError(t, err)
	_, err = registry.Create(ctx, "owner-1", "Back Door")
	require.NoError(t, err)
	_, err = registry.Create(ctx, "owner-2", "Office")
	require.NoError(t, err)

	locks, err := registry.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, locks, 2)
}

func TestRegistryDelete(t *testing.T) {
	registry := NewRegistry(newMemStore(), nil)
	ctx := context.Background()

	ctrl, err := registry.Create(ctx, "owner-1", "Front Door")
	require.NoError(t, err)

	require.NoError(t, registry.Delete(ctx, ctrl.ID()))

	_, err = registry.Get(ctx, ctrl.ID())
	assert.ErrorIs(t, err, ErrLockNotFound)

	assert.ErrorIs(t, registry.Delete(ctx, ctrl.ID()), ErrLockNotFound)
}

func TestRegistryMutationsWriteThrough(t *testing.T) {
	store := newMemStore()
	registry := NewRegistry(store, nil)
	ctx := context.Background()

	ctrl, err := registry.Create(ctx, "owner-1", "Front Door")
	require.NoError(t, err)
	require.NoError(t, ctrl.SetPermanentLock(ctx, true))

	persisted, err := store.GetByID(ctx, ctrl.ID())
	require.NoError(t, err)
	assert.True(t, persisted.PermanentlyLocked)
}
