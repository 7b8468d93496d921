package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
)

// ListPlayersInput narrows the browse list. Region and Search are optional;
// the list is never narrowed by slot eligibility, every pool player is
// placeable somewhere via the flex slots.
type ListPlayersInput struct {
	ChallengeID string
	Region      string
	Search      string
}

type PlayerService struct {
	challengeRepo challenge.Repository
	playerRepo    player.Repository
}

func NewPlayerService(challengeRepo challenge.Repository, playerRepo player.Repository) *PlayerService {
	return &PlayerService{
		challengeRepo: challengeRepo,
		playerRepo:    playerRepo,
	}
}

// ListChallengePlayers returns the full player pool of the challenge's set,
// optionally narrowed by region or a case-insensitive name match.
func (s *PlayerService) ListChallengePlayers(ctx context.Context, input ListPlayersInput) ([]player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.ListChallengePlayers")
	defer span.End()

	challengeID := strings.TrimSpace(input.ChallengeID)
	if challengeID == "" {
		return nil, fmt.Errorf("%w: challenge id is required", ErrInvalidInput)
	}

	item, exists, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: challenge=%s", ErrNotFound, challengeID)
	}

	var region player.Region
	if raw := strings.TrimSpace(input.Region); raw != "" {
		region, err = player.ParseRegion(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	search := strings.ToLower(strings.TrimSpace(input.Search))

	players, err := s.playerRepo.ListBySet(ctx, item.Set)
	if err != nil {
		return nil, fmt.Errorf("list players by set: %w", err)
	}
	if region == "" && search == "" {
		return players, nil
	}

	filtered := make([]player.Player, 0, len(players))
	for _, p := range players {
		if region != "" && p.Region != region {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		filtered = append(filtered, p)
	}

	return filtered, nil
}

// GetChallengePlayer resolves one player inside the challenge's pool.
func (s *PlayerService) GetChallengePlayer(ctx context.Context, challengeID, playerID string) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.GetChallengePlayer")
	defer span.End()

	challengeID = strings.TrimSpace(challengeID)
	playerID = strings.TrimSpace(playerID)
	if challengeID == "" {
		return player.Player{}, fmt.Errorf("%w: challenge id is required", ErrInvalidInput)
	}
	if playerID == "" {
		return player.Player{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	item, exists, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return player.Player{}, fmt.Errorf("get challenge: %w", err)
	}
	if !exists {
		return player.Player{}, fmt.Errorf("%w: challenge=%s", ErrNotFound, challengeID)
	}

	p, exists, err := s.playerRepo.GetByID(ctx, item.Set, playerID)
	if err != nil {
		return player.Player{}, fmt.Errorf("get player by id: %w", err)
	}
	if !exists {
		return player.Player{}, fmt.Errorf("%w: player=%s challenge=%s", ErrNotFound, playerID, challengeID)
	}

	return p, nil
}
