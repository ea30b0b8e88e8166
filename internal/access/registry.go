package access

import (
	"context"
	"sync"

	"github.com/smart-lock-service/backend/internal/storage/models"
)

// Store is the persistence surface the registry needs on top of LockStore.
type Store interface {
	LockStore
	Create(ctx context.Context, lock *models.Lock) error
	GetByID(ctx context.Context, id string) (*models.Lock, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Lock, error)
	Delete(ctx context.Context, id string) error
}

// Registry maps lock ids to their controllers. Controllers are created
// lazily from storage and cached, so each lock has exactly one serialization
// point in the process while different locks proceed in parallel.
type Registry struct {
	mu          sync.Mutex
	controllers map[string]*Controller
	store       Store
	events      Events
}

// NewRegistry creates an empty registry over the given store.
func NewRegistry(store Store, events Events) *Registry {
	return &Registry{
		controllers: make(map[string]*Controller),
		store:       store,
		events:      events,
	}
}

// Create makes a new lock for an owner: Locked, no codes, zero failures.
func (r *Registry) Create(ctx context.Context, ownerID, name string) (*Controller, error) {
	lock := &models.Lock{
		OwnerID: ownerID,
		Name:    name,
		Status:  models.StatusLocked,
	}

	if err := r.store.Create(ctx, lock); err != nil {
		return nil, &StorageError{Op: "create lock", Err: err}
	}

	ctrl := NewController(lock, r.store, r.events)
	r.mu.Lock()
	r.controllers[lock.ID] = ctrl
	r.mu.Unlock()

	return ctrl, nil
}

// Get resolves a lock id to its controller, loading the record from storage
// on first use. Returns ErrLockNotFound for an unknown id.
func (r *Registry) Get(ctx context.Context, id string) (*Controller, error) {
	r.mu.Lock()
	if ctrl, ok := r.controllers[id]; ok {
		r.mu.Unlock()
		return ctrl, nil
	}
	r.mu.Unlock()

	lock, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, &StorageError{Op: "load lock " + id, Err: err}
	}
	if lock == nil {
		return nil, ErrLockNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have loaded the same lock while we read storage;
	// theirs wins so there is a single controller per lock.
	if ctrl, ok := r.controllers[id]; ok {
		return ctrl, nil
	}

	ctrl := NewController(lock, r.store, r.events)
	r.controllers[id] = ctrl
	return ctrl, nil
}

// ListByOwner returns all lock records belonging to an account. Reads come
// straight from storage, which every controller mutation writes through to.
func (r *Registry) ListByOwner(ctx context.Context, ownerID string) ([]models.Lock, error) {
	locks, err := r.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, &StorageError{Op: "list locks", Err: err}
	}
	return locks, nil
}

// Delete removes a lock and drops its controller.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	if err := r.store.Delete(ctx, id); err != nil {
		return &StorageError{Op: "delete lock " + id, Err: err}
	}

	r.mu.Lock()
	delete(r.controllers, id)
	r.mu.Unlock()

	return nil
}
