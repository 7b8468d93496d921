package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rosterlab/perfect-roster/internal/domain/jobscheduler"
)

// JobDispatchRepository folds dispatch events by dispatch id, so memory
// deployments keep the same one-row-per-delivery audit trail as postgres.
type JobDispatchRepository struct {
	mu     sync.RWMutex
	events map[string]jobscheduler.DispatchEvent
	orders []string
}

func NewJobDispatchRepository() *JobDispatchRepository {
	return &JobDispatchRepository{
		events: make(map[string]jobscheduler.DispatchEvent),
	}
}

func (r *JobDispatchRepository) UpsertEvent(_ context.Context, event jobscheduler.DispatchEvent) error {
	dispatchID := strings.TrimSpace(event.DispatchID)
	if dispatchID == "" {
		return fmt.Errorf("dispatch id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[dispatchID]; !exists {
		r.orders = append(r.orders, dispatchID)
	}
	event.DispatchID = dispatchID
	r.events[dispatchID] = event
	return nil
}

// ListEvents returns the folded events in first-dispatch order.
func (r *JobDispatchRepository) ListEvents(_ context.Context) ([]jobscheduler.DispatchEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]jobscheduler.DispatchEvent, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, r.events[id])
	}
	return out, nil
}
