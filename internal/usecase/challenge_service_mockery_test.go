package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	challengemock "github.com/rosterlab/perfect-roster/internal/mocks/domain/challenge"
	"github.com/stretchr/testify/mock"
)

func TestChallengeService_ListChallenges_SuccessUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), "trace_id", "trace-456")
	challengeRepo := challengemock.NewRepository(t)

	service := NewChallengeService(challengeRepo)
	expectedChallenges := []challenge.Challenge{
		{
			ID:         "set15-opening-clash",
			Name:       "Opening Clash",
			Season:     "Set 15",
			Type:       challenge.TypeStandard,
			Set:        15,
			CurrentCup: challenge.Cup1,
			EndDate:    time.Date(2027, 3, 10, 18, 0, 0, 0, time.UTC),
		},
	}

	challengeRepo.
		On("List", mock.MatchedBy(func(v context.Context) bool { return v == ctx })).
		Return(expectedChallenges, nil).
		Once()

	got, err := service.ListChallenges(ctx)
	if err != nil {
		t.Fatalf("list challenges: %v", err)
	}
	if len(got) != len(expectedChallenges) {
		t.Fatalf("unexpected challenge count: got=%d want=%d", len(got), len(expectedChallenges))
	}
	if got[0].ID != expectedChallenges[0].ID {
		t.Fatalf("unexpected challenge id: got=%s want=%s", got[0].ID, expectedChallenges[0].ID)
	}
}

func TestChallengeService_GetChallenge_NotFoundUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	challengeRepo := challengemock.NewRepository(t)

	service := NewChallengeService(challengeRepo)
	challengeID := "missing-challenge"

	challengeRepo.
		On("GetByID", mock.MatchedBy(func(v context.Context) bool { return v == ctx }), challengeID).
		Return(challenge.Challenge{}, false, nil).
		Once()

	_, err := service.GetChallenge(ctx, challengeID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChallengeService_GetChallenge_RepositoryErrorUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	challengeRepo := challengemock.NewRepository(t)

	service := NewChallengeService(challengeRepo)
	repoErr := errors.New("connection refused")

	challengeRepo.
		On("GetByID", mock.MatchedBy(func(v context.Context) bool { return v == ctx }), "set15-opening-clash").
		Return(challenge.Challenge{}, false, repoErr).
		Once()

	_, err := service.GetChallenge(ctx, "set15-opening-clash")
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}
