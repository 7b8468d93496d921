package lineup

import "context"

// Repository exposes lineup persistence operations. ListByChallenge must
// return entries in a stable order so tie blocks in the leaderboard keep a
// deterministic display order.
type Repository interface {
	GetByUserAndChallenge(ctx context.Context, userID, challengeID string) (Lineup, bool, error)
	ListByChallenge(ctx context.Context, challengeID string) ([]Lineup, error)
	Upsert(ctx context.Context, item Lineup) error
}
