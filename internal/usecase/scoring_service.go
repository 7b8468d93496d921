package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
	"github.com/rosterlab/perfect-roster/internal/domain/scoring"
)

// PlayerContribution is one occupied slot's share of a lineup total.
type PlayerContribution struct {
	PlayerID   string
	PlayerName string
	Region     player.Region
	Category   lineup.Category
	IsCaptain  bool
	BasePoints float64
	Points     float64
}

// LineupScore is one entry's computed total with the per-player breakdown
// sorted by counted points, highest first.
type LineupScore struct {
	UserID        string
	UserName      string
	ChallengeID   string
	Total         float64
	Contributions []PlayerContribution
}

type ScoringService struct {
	challengeRepo challenge.Repository
	playerRepo    player.Repository
	lineupRepo    lineup.Repository
	logger        *slog.Logger
}

func NewScoringService(
	challengeRepo challenge.Repository,
	playerRepo player.Repository,
	lineupRepo lineup.Repository,
	logger *slog.Logger,
) *ScoringService {
	if logger == nil {
		logger = slog.Default()
	}

	return &ScoringService{
		challengeRepo: challengeRepo,
		playerRepo:    playerRepo,
		lineupRepo:    lineupRepo,
		logger:        logger,
	}
}

// UserScore computes the caller's current total and breakdown for one
// challenge. Users without an entry get a zero score, not an error, so the
// score panel always renders.
func (s *ScoringService) UserScore(ctx context.Context, challengeID, userID string) (LineupScore, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.UserScore")
	defer span.End()

	challengeID = strings.TrimSpace(challengeID)
	userID = strings.TrimSpace(userID)
	if challengeID == "" || userID == "" {
		return LineupScore{}, fmt.Errorf("%w: challenge_id and user_id are required", ErrInvalidInput)
	}

	item, err := loadChallenge(ctx, s.challengeRepo, challengeID)
	if err != nil {
		return LineupScore{}, err
	}

	entry, exists, err := s.lineupRepo.GetByUserAndChallenge(ctx, userID, challengeID)
	if err != nil {
		return LineupScore{}, fmt.Errorf("get lineup for scoring: %w", err)
	}
	if !exists {
		return LineupScore{UserID: userID, ChallengeID: challengeID}, nil
	}

	players, err := s.playerRepo.ListBySet(ctx, item.Set)
	if err != nil {
		return LineupScore{}, fmt.Errorf("list players for scoring: %w", err)
	}

	pool := playersByID(players)
	if missing := missingReferences(entry, pool); len(missing) > 0 {
		s.logger.WarnContext(ctx, "lineup references players missing from pool",
			"challenge_id", challengeID,
			"user_id", userID,
			"player_ids", strings.Join(missing, ","),
		)
	}

	return scoreLineup(entry, pool, item.Type, item.CurrentCup), nil
}

// loadChallenge fetches one challenge and rejects misconfigured records.
// An invalid type or cup is a configuration error surfaced to the caller,
// never silently corrected to a default.
func loadChallenge(ctx context.Context, repo challenge.Repository, challengeID string) (challenge.Challenge, error) {
	item, exists, err := repo.GetByID(ctx, challengeID)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("get challenge: %w", err)
	}
	if !exists {
		return challenge.Challenge{}, fmt.Errorf("%w: challenge %s", ErrNotFound, challengeID)
	}
	if err := item.Validate(); err != nil {
		return challenge.Challenge{}, fmt.Errorf("challenge %s config: %w", challengeID, err)
	}

	return item, nil
}

func playersByID(players []player.Player) map[string]player.Player {
	pool := make(map[string]player.Player, len(players))
	for _, p := range players {
		pool[p.ID] = p
	}
	return pool
}

// scoreLineup walks the four slot sequences in canonical order, resolves
// each occupied slot's point value, and applies the captain multiplier to
// captain slots only. Dangling player ids contribute zero; the function is
// total and never fails.
func scoreLineup(l lineup.Lineup, pool map[string]player.Player, challengeType challenge.Type, cup challenge.CupKey) LineupScore {
	score := LineupScore{
		UserID:      l.UserID,
		UserName:    l.UserName,
		ChallengeID: l.ChallengeID,
	}

	for _, category := range lineup.Categories {
		for _, playerID := range l.Slots(category) {
			if playerID == "" {
				continue
			}
			p, known := pool[playerID]
			if !known {
				continue
			}

			base := scoring.PointValue(p, challengeType, cup)
			counted := base
			isCaptain := category == lineup.CategoryCaptain
			if isCaptain {
				counted = scoring.ApplyCaptainMultiplier(base)
			}

			score.Total += counted
			score.Contributions = append(score.Contributions, PlayerContribution{
				PlayerID:   p.ID,
				PlayerName: p.Name,
				Region:     p.Region,
				Category:   category,
				IsCaptain:  isCaptain,
				BasePoints: base,
				Points:     counted,
			})
		}
	}

	sort.SliceStable(score.Contributions, func(i, j int) bool {
		if score.Contributions[i].Points != score.Contributions[j].Points {
			return score.Contributions[i].Points > score.Contributions[j].Points
		}
		return score.Contributions[i].PlayerID < score.Contributions[j].PlayerID
	})

	return score
}

// missingReferences lists occupied slot ids that resolve to no player in
// the pool. They score zero; callers report them instead of failing.
func missingReferences(l lineup.Lineup, pool map[string]player.Player) []string {
	var missing []string
	for _, playerID := range l.PlayerIDs() {
		if _, known := pool[playerID]; !known {
			missing = append(missing, playerID)
		}
	}
	return missing
}
