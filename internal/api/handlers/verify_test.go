package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-lock-service/backend/internal/access"
	"github.com/smart-lock-service/backend/internal/storage/models"
)

// memStore is an in-memory access.Store for handler tests.
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

func (s *memStore) Update(_ context.Context, lock *models.Lock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[lock.ID] = *lock
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, id)
	return nil
}

func postVerify(t *testing.T, handler http.HandlerFunc, lockID, code string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]string{"lock_id": lockID, "code": code})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/verify", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestVerifyCodeSuccess(t *testing.T) {
	registry := access.NewRegistry(newMemStore(), nil)
	ctx := context.Background()

	ctrl, err := registry.Create(ctx, "owner-1", "Front Door")
	require.NoError(t, err)
	require.NoError(t, ctrl.SetPIN(ctx, 1, "123456"))

	rec := postVerify(t, VerifyCode(registry), ctrl.ID(), "123456")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true}`, rec.Body.String())
}

func TestVerifyCodeUnknownLock(t *testing.T) {
	registry := access.NewRegistry(newMemStore(), nil)

	rec := postVerify(t, VerifyCode(registry), "missing", "123456")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyCodeInvalid(t *testing.T) {
	registry := access.NewRegistry(newMemStore(), nil)
	ctx := context.Background()

	ctrl, err := registry.Create(ctx, "owner-1", "Front Door")
	require.NoError(t, err)

	rec := postVerify(t, VerifyCode(registry), ctrl.ID(), "000000")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp struct {
		Error   string `json:"error"`
		Details struct {
			Attempts          int  `json:"attempts"`
			PermanentlyLocked bool `json:"permanently_locked"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_code", resp.Error)
	assert.Equal(t, 1, resp.Details.Attempts)
	assert.False(t, resp.Details.PermanentlyLocked)
}

func TestVerifyCodeRateLimited(t *testing.T) {
	registry := access.NewRegistry(newMemStore(), nil)
	ctx := context.Background()

	ctrl, err := registry.Create(ctx, "owner-1", "Front Door")
	require.NoError(t, err)

	handler := VerifyCode(registry)
	for i := 0; i < 3; i++ {
		rec := postVerify(t, handler, ctrl.ID(), "000000")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := postVerify(t, handler, ctrl.ID(), "000000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp struct {
		Details struct {
			CooldownRemaining int `json:"cooldown_remaining"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Greater(t, resp.Details.CooldownRemaining, 0)
	assert.Equal(t, 3, ctrl.Snapshot().FailedAttempts, "rate-limited attempts must not count")
}

func TestVerifyCodePermanentlyLocked(t *testing.T) {
	registry := access.NewRegistry(newMemStore(), nil)
	ctx := context.Background()

	ctrl, err := registry.Create(ctx, "owner-1", "Front Door")
	require.NoError(t, err)
	require.NoError(t, ctrl.SetPIN(ctx, 1, "123456"))
	require.NoError(t, ctrl.SetPermanentLock(ctx, true))

	rec := postVerify(t, VerifyCode(registry), ctrl.ID(), "123456")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, ctrl.Snapshot().FailedAttempts)
}

func TestVerifyCodeBadBody(t *testing.T) {
	registry := access.NewRegistry(newMemStore(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/verify", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	VerifyCode(registry)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
