package access

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/smart-lock-service/backend/internal/storage/models"
)

// ReconcileStore lists persisted lock records for the sweep.
type ReconcileStore interface {
	List(ctx context.Context) ([]models.Lock, error)
}

// Reconciler periodically repairs state the in-process timers may have
// missed: locks left Unlocked past the relock deadline (crash, failed write)
// and one-time codes that expired without being consumed. Repairs go through
// the controllers, so they take the same per-lock serialization as everything
// else.
type Reconciler struct {
	cron     *cron.Cron
	store    ReconcileStore
	registry *Registry
	now      func() time.Time
}

// NewReconciler creates a reconciler over the given store and registry.
func NewReconciler(store ReconcileStore, registry *Registry) *Reconciler {
	return &Reconciler{
		cron:     cron.New(),
		store:    store,
		registry: registry,
		now:      time.Now,
	}
}

// Start begins the periodic sweep.
func (r *Reconciler) Start() {
	r.cron.AddFunc("@every 30s", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		r.Sweep(ctx)
	})
	r.cron.Start()
	log.Println("Relock reconciler started")
}

// Stop shuts the sweep down, waiting for an in-flight run to finish.
func (r *Reconciler) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	log.Println("Relock reconciler stopped")
}

// Sweep runs one reconciliation pass.
func (r *Reconciler) Sweep(ctx context.Context) {
	locks, err := r.store.List(ctx)
	if err != nil {
		log.Printf("Reconcile sweep failed to list locks: %v", err)
		return
	}

	now := r.now()
	for i := range locks {
		l := &locks[i]

		overdueRelock := l.Status == models.StatusUnlocked && now.Sub(l.LastUpdated) >= RelockDelay
		expiredOTP := l.OTPExpiresAt != nil && now.After(*l.OTPExpiresAt)
		if !overdueRelock && !expiredOTP {
			continue
		}

		ctrl, err := r.registry.Get(ctx, l.ID)
		if err != nil {
			log.Printf("Reconcile sweep cannot resolve lock %s: %v", l.ID, err)
			continue
		}

		if overdueRelock {
			if err := ctrl.RelockIfOverdue(ctx); err != nil {
				log.Printf("Reconcile relock failed for lock %s: %v", l.ID, err)
			}
		}
		if expiredOTP {
			if err := ctrl.ClearExpiredOTP(ctx); err != nil {
				log.Printf("Reconcile otp cleanup failed for lock %s: %v", l.ID, err)
			}
		}
	}
}
