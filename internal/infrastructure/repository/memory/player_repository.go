package memory

import (
	"context"
	"sync"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
)

type PlayerRepository struct {
	mu          sync.RWMutex
	ordersBySet map[int][]string
	indexBySet  map[int]map[string]player.Player
}

func NewPlayerRepository(players []player.Player) *PlayerRepository {
	r := &PlayerRepository{
		ordersBySet: make(map[int][]string),
		indexBySet:  make(map[int]map[string]player.Player),
	}
	for _, p := range players {
		r.upsertLocked(p)
	}
	return r
}

func (r *PlayerRepository) ListBySet(_ context.Context, set int) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index := r.indexBySet[set]
	out := make([]player.Player, 0, len(r.ordersBySet[set]))
	for _, id := range r.ordersBySet[set] {
		out = append(out, clonePlayer(index[id]))
	}

	return out, nil
}

func (r *PlayerRepository) GetByID(_ context.Context, set int, playerID string) (player.Player, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.indexBySet[set][playerID]
	if !ok {
		return player.Player{}, false, nil
	}

	return clonePlayer(p), true, nil
}

func (r *PlayerRepository) Upsert(_ context.Context, item player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsertLocked(item)
	return nil
}

func (r *PlayerRepository) upsertLocked(item player.Player) {
	index, ok := r.indexBySet[item.Set]
	if !ok {
		index = make(map[string]player.Player)
		r.indexBySet[item.Set] = index
	}
	if _, exists := index[item.ID]; !exists {
		r.ordersBySet[item.Set] = append(r.ordersBySet[item.Set], item.ID)
	}
	index[item.ID] = clonePlayer(item)
}

func clonePlayer(item player.Player) player.Player {
	copied := item
	if item.Scores != nil {
		copied.Scores = make(map[challenge.CupKey]float64, len(item.Scores))
		for cup, points := range item.Scores {
			copied.Scores[cup] = points
		}
	}
	if item.Regionals != nil {
		regionals := *item.Regionals
		if item.Regionals.Placement != nil {
			placement := *item.Regionals.Placement
			regionals.Placement = &placement
		}
		copied.Regionals = &regionals
	}
	return copied
}
