package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
)

type ChallengeService struct {
	challengeRepo challenge.Repository
}

func NewChallengeService(challengeRepo challenge.Repository) *ChallengeService {
	return &ChallengeService{
		challengeRepo: challengeRepo,
	}
}

func (s *ChallengeService) ListChallenges(ctx context.Context) ([]challenge.Challenge, error) {
	items, err := s.challengeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}

	return items, nil
}

func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID string) (challenge.Challenge, error) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return challenge.Challenge{}, fmt.Errorf("%w: challenge id is required", ErrInvalidInput)
	}

	item, exists, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("get challenge: %w", err)
	}
	if !exists {
		return challenge.Challenge{}, fmt.Errorf("%w: challenge=%s", ErrNotFound, challengeID)
	}

	return item, nil
}
