package memory

import (
	"context"
	"sync"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
)

type ChallengeRepository struct {
	mu     sync.RWMutex
	items  map[string]challenge.Challenge
	orders []string
}

func NewChallengeRepository(challenges []challenge.Challenge) *ChallengeRepository {
	items := make(map[string]challenge.Challenge, len(challenges))
	orders := make([]string, 0, len(challenges))

	for _, c := range challenges {
		items[c.ID] = c
		orders = append(orders, c.ID)
	}

	return &ChallengeRepository{
		items:  items,
		orders: orders,
	}
}

func (r *ChallengeRepository) List(_ context.Context) ([]challenge.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]challenge.Challenge, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, r.items[id])
	}

	return out, nil
}

func (r *ChallengeRepository) GetByID(_ context.Context, challengeID string) (challenge.Challenge, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[challengeID]
	if !ok {
		return challenge.Challenge{}, false, nil
	}

	return c, true, nil
}

func (r *ChallengeRepository) Upsert(_ context.Context, item challenge.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; !exists {
		r.orders = append(r.orders, item.ID)
	}
	r.items[item.ID] = item
	return nil
}
