package usecase

import (
	"fmt"
	"sort"

	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
)

// Standing is one ranked leaderboard row.
type Standing struct {
	UserID   string
	UserName string
	Score    float64
	Rank     int
}

// Leaderboard is the ranked entry list for one challenge. PositionLabel is
// set only when the requested user holds an entry.
type Leaderboard struct {
	ChallengeID   string
	EntryCount    int
	Standings     []Standing
	PositionLabel string
}

// rankScored sorts descending by score, keeping input order inside tie
// blocks, and assigns standard competition ranks: tied entries share a
// rank and the next distinct score resumes at one past the tie block.
func rankScored(entries []lineup.Lineup, scores []float64) []Standing {
	standings := make([]Standing, 0, len(entries))
	for idx, entry := range entries {
		standings = append(standings, Standing{
			UserID:   entry.UserID,
			UserName: entry.UserName,
			Score:    scores[idx],
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})

	for idx := range standings {
		if idx > 0 && standings[idx].Score == standings[idx-1].Score {
			standings[idx].Rank = standings[idx-1].Rank
			continue
		}
		standings[idx].Rank = idx + 1
	}

	return standings
}

// positionLabel renders "<rank> of <total>" for the given user, empty when
// the user has no entry.
func positionLabel(standings []Standing, userID string) string {
	if userID == "" {
		return ""
	}
	for _, standing := range standings {
		if standing.UserID == userID {
			return fmt.Sprintf("%d of %d", standing.Rank, len(standings))
		}
	}
	return ""
}
