package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
)

// PlaceInput puts one pool player into one open slot.
type PlaceInput struct {
	UserID      string
	UserName    string
	ChallengeID string
	Category    string
	SlotIndex   int
	PlayerID    string
}

// MoveInput drags an already-available player onto a target slot. When the
// target is occupied and the dragged player currently holds a slot, the
// occupant swaps back into that slot.
type MoveInput struct {
	UserID      string
	UserName    string
	ChallengeID string
	PlayerID    string
	Category    string
	SlotIndex   int
}

// RemoveInput clears one slot.
type RemoveInput struct {
	UserID      string
	ChallengeID string
	Category    string
	SlotIndex   int
}

// LineupService owns every lineup mutation. Each edit is applied to a fresh
// copy of the stored lineup and persisted only when the whole edit succeeds,
// so a rejected edit never leaves a partial write behind. One edit per user
// and challenge runs at a time; overlapping edits are rejected rather than
// queued.
type LineupService struct {
	challengeRepo challenge.Repository
	playerRepo    player.Repository
	lineupRepo    lineup.Repository
	now           func() time.Time

	editMu        sync.Mutex
	editsInFlight map[string]struct{}
}

func NewLineupService(
	challengeRepo challenge.Repository,
	playerRepo player.Repository,
	lineupRepo lineup.Repository,
) *LineupService {
	return &LineupService{
		challengeRepo: challengeRepo,
		playerRepo:    playerRepo,
		lineupRepo:    lineupRepo,
		now:           time.Now,
		editsInFlight: make(map[string]struct{}),
	}
}

// Get returns the user's lineup for a challenge. Users without a stored
// lineup get an empty one shaped by the challenge's slot settings; it is not
// persisted until the first successful edit.
func (s *LineupService) Get(ctx context.Context, userID, userName, challengeID string) (lineup.Lineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.Get")
	defer span.End()

	userID = strings.TrimSpace(userID)
	challengeID = strings.TrimSpace(challengeID)
	if userID == "" || challengeID == "" {
		return lineup.Lineup{}, fmt.Errorf("%w: user id and challenge id are required", ErrInvalidInput)
	}

	item, err := loadChallenge(ctx, s.challengeRepo, challengeID)
	if err != nil {
		return lineup.Lineup{}, err
	}

	current, exists, err := s.lineupRepo.GetByUserAndChallenge(ctx, userID, challengeID)
	if err != nil {
		return lineup.Lineup{}, fmt.Errorf("get lineup by user and challenge: %w", err)
	}
	if !exists {
		return lineup.NewEmpty(userID, strings.TrimSpace(userName), challengeID, item.Settings), nil
	}
	return current, nil
}

// Place puts a pool player into an open slot.
func (s *LineupService) Place(ctx context.Context, input PlaceInput) (lineup.Lineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.Place")
	defer span.End()

	playerID := strings.TrimSpace(input.PlayerID)
	if playerID == "" {
		return lineup.Lineup{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	return s.mutate(ctx, input.UserID, input.UserName, input.ChallengeID,
		func(current lineup.Lineup, pool map[string]player.Player) (lineup.Lineup, error) {
			p, ok := pool[playerID]
			if !ok {
				return lineup.Lineup{}, fmt.Errorf("%w: player %s is not in the challenge pool", lineup.ErrMissingReference, playerID)
			}
			return lineup.Place(current, lineup.Category(strings.TrimSpace(input.Category)), input.SlotIndex, p)
		})
}

// Move drags a player onto a target slot, swapping with an eligible occupant
// when both sides allow it.
func (s *LineupService) Move(ctx context.Context, input MoveInput) (lineup.Lineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.Move")
	defer span.End()

	playerID := strings.TrimSpace(input.PlayerID)
	if playerID == "" {
		return lineup.Lineup{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	return s.mutate(ctx, input.UserID, input.UserName, input.ChallengeID,
		func(current lineup.Lineup, pool map[string]player.Player) (lineup.Lineup, error) {
			p, ok := pool[playerID]
			if !ok {
				return lineup.Lineup{}, fmt.Errorf("%w: player %s is not in the challenge pool", lineup.ErrMissingReference, playerID)
			}
			return lineup.Move(current, p, lineup.Category(strings.TrimSpace(input.Category)), input.SlotIndex, pool)
		})
}

// Remove clears one slot. Clearing an already-empty slot succeeds.
func (s *LineupService) Remove(ctx context.Context, input RemoveInput) (lineup.Lineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.Remove")
	defer span.End()

	return s.mutate(ctx, input.UserID, "", input.ChallengeID,
		func(current lineup.Lineup, _ map[string]player.Player) (lineup.Lineup, error) {
			return lineup.Remove(current, lineup.Category(strings.TrimSpace(input.Category)), input.SlotIndex)
		})
}

// Lock seals the lineup against further edits. Locking an already-locked
// lineup succeeds; locking after the challenge deadline fails like any other
// edit.
func (s *LineupService) Lock(ctx context.Context, userID, userName, challengeID string) (lineup.Lineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.Lock")
	defer span.End()

	return s.mutate(ctx, userID, userName, challengeID,
		func(current lineup.Lineup, _ map[string]player.Player) (lineup.Lineup, error) {
			next := current.Clone()
			next.Locked = true
			return next, nil
		})
}

// mutate runs one guarded edit: reject overlapping edits for the same user
// and challenge, refuse edits after the challenge deadline, apply the edit
// to a copy, refresh the cached score, and persist. The stored lineup is
// untouched unless every step succeeds.
func (s *LineupService) mutate(
	ctx context.Context,
	userID, userName, challengeID string,
	apply func(current lineup.Lineup, pool map[string]player.Player) (lineup.Lineup, error),
) (lineup.Lineup, error) {
	userID = strings.TrimSpace(userID)
	userName = strings.TrimSpace(userName)
	challengeID = strings.TrimSpace(challengeID)
	if userID == "" || challengeID == "" {
		return lineup.Lineup{}, fmt.Errorf("%w: user id and challenge id are required", ErrInvalidInput)
	}

	key := userID + "::" + challengeID
	if !s.beginEdit(key) {
		return lineup.Lineup{}, fmt.Errorf("%w: lineup edit for user %s on challenge %s", ErrEditInFlight, userID, challengeID)
	}
	defer s.endEdit(key)

	item, err := loadChallenge(ctx, s.challengeRepo, challengeID)
	if err != nil {
		return lineup.Lineup{}, err
	}

	now := s.now().UTC()
	if !item.OpenAt(now) {
		return lineup.Lineup{}, fmt.Errorf("%w: challenge %s closed at %s", lineup.ErrLockedLineup, challengeID, item.EndDate.UTC().Format(time.RFC3339))
	}

	players, err := s.playerRepo.ListBySet(ctx, item.Set)
	if err != nil {
		return lineup.Lineup{}, fmt.Errorf("list players for lineup edit: %w", err)
	}
	pool := playersByID(players)

	current, exists, err := s.lineupRepo.GetByUserAndChallenge(ctx, userID, challengeID)
	if err != nil {
		return lineup.Lineup{}, fmt.Errorf("get lineup by user and challenge: %w", err)
	}
	if !exists {
		current = lineup.NewEmpty(userID, userName, challengeID, item.Settings)
	}

	next, err := apply(current, pool)
	if err != nil {
		return lineup.Lineup{}, err
	}

	next.UpdatedAt = now
	total := scoreLineup(next, pool, item.Type, item.CurrentCup).Total
	next.CachedScore = &total

	if err := s.lineupRepo.Upsert(ctx, next); err != nil {
		return lineup.Lineup{}, fmt.Errorf("%w: save lineup for user %s on challenge %s: %v", ErrPersistenceFailure, userID, challengeID, err)
	}
	return next, nil
}

func (s *LineupService) beginEdit(key string) bool {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	if s.editsInFlight == nil {
		s.editsInFlight = make(map[string]struct{})
	}
	if _, busy := s.editsInFlight[key]; busy {
		return false
	}
	s.editsInFlight[key] = struct{}{}
	return true
}

func (s *LineupService) endEdit(key string) {
	s.editMu.Lock()
	delete(s.editsInFlight, key)
	s.editMu.Unlock()
}
