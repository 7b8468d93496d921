package cache

import (
	"context"
	"strconv"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
	basecache "github.com/rosterlab/perfect-roster/internal/platform/cache"
)

type ChallengeRepository struct {
	next  challenge.Repository
	cache *basecache.Store
}

func NewChallengeRepository(next challenge.Repository, cache *basecache.Store) *ChallengeRepository {
	return &ChallengeRepository{next: next, cache: cache}
}

func (r *ChallengeRepository) List(ctx context.Context) ([]challenge.Challenge, error) {
	v, err := r.cache.GetOrLoad(ctx, "challenge:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]challenge.Challenge(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]challenge.Challenge)
	return append([]challenge.Challenge(nil), items...), nil
}

func (r *ChallengeRepository) GetByID(ctx context.Context, challengeID string) (challenge.Challenge, bool, error) {
	key := "challenge:id:" + challengeID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, challengeID)
		if err != nil {
			return nil, err
		}
		return cachedChallengeByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return challenge.Challenge{}, false, err
	}

	cached, _ := v.(cachedChallengeByID)
	return cached.value, cached.exists, nil
}

func (r *ChallengeRepository) Upsert(ctx context.Context, item challenge.Challenge) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.Delete(ctx, "challenge:list")
	r.cache.Delete(ctx, "challenge:id:"+item.ID)
	return nil
}

type cachedChallengeByID struct {
	value  challenge.Challenge
	exists bool
}

type PlayerRepository struct {
	next  player.Repository
	cache *basecache.Store
}

func NewPlayerRepository(next player.Repository, cache *basecache.Store) *PlayerRepository {
	return &PlayerRepository{next: next, cache: cache}
}

func (r *PlayerRepository) ListBySet(ctx context.Context, set int) ([]player.Player, error) {
	key := "player:list:set:" + strconv.Itoa(set)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListBySet(ctx, set)
		if err != nil {
			return nil, err
		}
		out := make([]player.Player, 0, len(items))
		for _, item := range items {
			out = append(out, clonePlayer(item))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]player.Player)
	out := make([]player.Player, 0, len(items))
	for _, item := range items {
		out = append(out, clonePlayer(item))
	}
	return out, nil
}

func (r *PlayerRepository) GetByID(ctx context.Context, set int, playerID string) (player.Player, bool, error) {
	key := playerKey(set, playerID)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, set, playerID)
		if err != nil {
			return nil, err
		}
		return cachedPlayerByID{value: clonePlayer(item), exists: exists}, nil
	})
	if err != nil {
		return player.Player{}, false, err
	}

	cached, _ := v.(cachedPlayerByID)
	return clonePlayer(cached.value), cached.exists, nil
}

func (r *PlayerRepository) Upsert(ctx context.Context, item player.Player) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.Delete(ctx, "player:list:set:"+strconv.Itoa(item.Set))
	r.cache.Delete(ctx, playerKey(item.Set, item.ID))
	return nil
}

type cachedPlayerByID struct {
	value  player.Player
	exists bool
}

func clonePlayer(item player.Player) player.Player {
	out := item
	if item.Scores != nil {
		out.Scores = make(map[challenge.CupKey]float64, len(item.Scores))
		for cup, points := range item.Scores {
			out.Scores[cup] = points
		}
	}
	if item.Regionals != nil {
		regionals := *item.Regionals
		if item.Regionals.Placement != nil {
			placement := *item.Regionals.Placement
			regionals.Placement = &placement
		}
		out.Regionals = &regionals
	}
	return out
}

func playerKey(set int, playerID string) string {
	return "player:id:set:" + strconv.Itoa(set) + ":" + playerID
}

type LineupRepository struct {
	next  lineup.Repository
	cache *basecache.Store
}

func NewLineupRepository(next lineup.Repository, cache *basecache.Store) *LineupRepository {
	return &LineupRepository{next: next, cache: cache}
}

func (r *LineupRepository) GetByUserAndChallenge(ctx context.Context, userID, challengeID string) (lineup.Lineup, bool, error) {
	key := lineupKey(userID, challengeID)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByUserAndChallenge(ctx, userID, challengeID)
		if err != nil {
			return nil, err
		}
		return cachedLineupByUserChallenge{
			value:  item.Clone(),
			exists: exists,
		}, nil
	})
	if err != nil {
		return lineup.Lineup{}, false, err
	}

	cached, _ := v.(cachedLineupByUserChallenge)
	return cached.value.Clone(), cached.exists, nil
}

func (r *LineupRepository) ListByChallenge(ctx context.Context, challengeID string) ([]lineup.Lineup, error) {
	key := "lineup:list:challenge:" + challengeID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByChallenge(ctx, challengeID)
		if err != nil {
			return nil, err
		}
		out := make([]lineup.Lineup, 0, len(items))
		for _, item := range items {
			out = append(out, item.Clone())
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]lineup.Lineup)
	out := make([]lineup.Lineup, 0, len(items))
	for _, item := range items {
		out = append(out, item.Clone())
	}
	return out, nil
}

func (r *LineupRepository) Upsert(ctx context.Context, item lineup.Lineup) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.Delete(ctx, lineupKey(item.UserID, item.ChallengeID))
	r.cache.Delete(ctx, "lineup:list:challenge:"+item.ChallengeID)
	return nil
}

type cachedLineupByUserChallenge struct {
	value  lineup.Lineup
	exists bool
}

func lineupKey(userID, challengeID string) string {
	return "lineup:user:" + userID + ":challenge:" + challengeID
}
