package memory

import (
	"context"
	"sync"

	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
)

type LineupRepository struct {
	mu               sync.RWMutex
	items            map[string]lineup.Lineup
	ordersByChallenge map[string][]string
}

func NewLineupRepository() *LineupRepository {
	return &LineupRepository{
		items:            make(map[string]lineup.Lineup),
		ordersByChallenge: make(map[string][]string),
	}
}

func (r *LineupRepository) GetByUserAndChallenge(_ context.Context, userID, challengeID string) (lineup.Lineup, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[lineupKey(userID, challengeID)]
	if !ok {
		return lineup.Lineup{}, false, nil
	}

	return item.Clone(), true, nil
}

// ListByChallenge returns entries in first-write order so leaderboard tie
// blocks keep a stable display order across recomputes.
func (r *LineupRepository) ListByChallenge(_ context.Context, challengeID string) ([]lineup.Lineup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := r.ordersByChallenge[challengeID]
	out := make([]lineup.Lineup, 0, len(keys))
	for _, key := range keys {
		out = append(out, r.items[key].Clone())
	}

	return out, nil
}

func (r *LineupRepository) Upsert(_ context.Context, item lineup.Lineup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := lineupKey(item.UserID, item.ChallengeID)
	if _, exists := r.items[key]; !exists {
		r.ordersByChallenge[item.ChallengeID] = append(r.ordersByChallenge[item.ChallengeID], key)
	}
	r.items[key] = item.Clone()
	return nil
}

func lineupKey(userID, challengeID string) string {
	return userID + "::" + challengeID
}
