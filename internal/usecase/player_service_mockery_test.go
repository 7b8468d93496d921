package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
	challengemock "github.com/rosterlab/perfect-roster/internal/mocks/domain/challenge"
	playermock "github.com/rosterlab/perfect-roster/internal/mocks/domain/player"
	"github.com/stretchr/testify/mock"
)

func TestPlayerService_ListChallengePlayers_SuccessUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	challengeRepo := challengemock.NewRepository(t)
	playerRepo := playermock.NewRepository(t)

	service := NewPlayerService(challengeRepo, playerRepo)
	challengeID := "set15-opening-clash"
	expectedPlayers := []player.Player{
		{ID: "na-skyline", Name: "Skyline", Region: player.RegionNA, Set: 15},
		{ID: "br-maraca", Name: "Maraca", Region: player.RegionBR, Set: 15},
	}

	// The service opens a span, so the repos see a derived context.
	challengeRepo.
		On("GetByID", mock.Anything, challengeID).
		Return(challenge.Challenge{ID: challengeID, Set: 15}, true, nil).
		Once()
	playerRepo.
		On("ListBySet", mock.Anything, 15).
		Return(expectedPlayers, nil).
		Once()

	got, err := service.ListChallengePlayers(ctx, ListPlayersInput{ChallengeID: challengeID})
	if err != nil {
		t.Fatalf("list challenge players: %v", err)
	}
	if len(got) != len(expectedPlayers) {
		t.Fatalf("unexpected player count: got=%d want=%d", len(got), len(expectedPlayers))
	}
	if got[0].ID != expectedPlayers[0].ID {
		t.Fatalf("unexpected player id: got=%s want=%s", got[0].ID, expectedPlayers[0].ID)
	}
}

func TestPlayerService_GetChallengePlayer_NotFoundUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	challengeRepo := challengemock.NewRepository(t)
	playerRepo := playermock.NewRepository(t)

	service := NewPlayerService(challengeRepo, playerRepo)
	challengeID := "set15-opening-clash"

	challengeRepo.
		On("GetByID", mock.Anything, challengeID).
		Return(challenge.Challenge{ID: challengeID, Set: 15}, true, nil).
		Once()
	playerRepo.
		On("GetByID", mock.Anything, 15, "missing-player").
		Return(player.Player{}, false, nil).
		Once()

	_, err := service.GetChallengePlayer(ctx, challengeID, "missing-player")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
