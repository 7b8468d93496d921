package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
	qb "github.com/rosterlab/perfect-roster/internal/platform/querybuilder"
)

type LineupRepository struct {
	db *sqlx.DB
}

func NewLineupRepository(db *sqlx.DB) *LineupRepository {
	return &LineupRepository{db: db}
}

func (r *LineupRepository) GetByUserAndChallenge(ctx context.Context, userID, challengeID string) (lineup.Lineup, bool, error) {
	query, args, err := lineupBaseSelectBuilder().
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("challenge_public_id", challengeID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return lineup.Lineup{}, false, fmt.Errorf("build get lineup query: %w", err)
	}

	var row lineupTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err) {
			return r.getByUserAndChallengeSingleParam(ctx, userID, challengeID)
		}
		if isNotFound(err) {
			return lineup.Lineup{}, false, nil
		}
		return lineup.Lineup{}, false, fmt.Errorf("get lineup: %w", err)
	}

	return lineupFromRow(row), true, nil
}

// ListByChallenge orders by insert id so tie blocks on the leaderboard keep
// the first-entry-first display order across recomputes.
func (r *LineupRepository) ListByChallenge(ctx context.Context, challengeID string) ([]lineup.Lineup, error) {
	query, args, err := lineupBaseSelectBuilder().
		Where(
			qb.Eq("challenge_public_id", challengeID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list lineups by challenge query: %w", err)
	}

	var rows []lineupTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list lineups by challenge: %w", err)
	}

	out := make([]lineup.Lineup, 0, len(rows))
	for _, row := range rows {
		out = append(out, lineupFromRow(row))
	}
	return out, nil
}

func (r *LineupRepository) getByUserAndChallengeSingleParam(ctx context.Context, userID, challengeID string) (lineup.Lineup, bool, error) {
	query, _, err := lineupBaseSelectBuilder().
		Where(
			qb.Expr("user_id = ($1::text[])[1]"),
			qb.Expr("challenge_public_id = ($1::text[])[2]"),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return lineup.Lineup{}, false, fmt.Errorf("build get lineup single param fallback query: %w", err)
	}

	var row lineupTableModel
	if err := r.db.GetContext(ctx, &row, query, pq.Array([]string{userID, challengeID})); err != nil {
		if isUnnamedPreparedStatementMissing(err) {
			return r.getByUserAndChallengeLiteral(ctx, userID, challengeID)
		}
		if isNotFound(err) {
			return lineup.Lineup{}, false, nil
		}
		return lineup.Lineup{}, false, fmt.Errorf("get lineup fallback: %w", err)
	}

	return lineupFromRow(row), true, nil
}

func (r *LineupRepository) getByUserAndChallengeLiteral(ctx context.Context, userID, challengeID string) (lineup.Lineup, bool, error) {
	query, args, err := lineupBaseSelectBuilder().
		Where(
			qb.EqLiteral("user_id", userID),
			qb.EqLiteral("challenge_public_id", challengeID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return lineup.Lineup{}, false, fmt.Errorf("build get lineup literal fallback query: %w", err)
	}

	var row lineupTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return lineup.Lineup{}, false, nil
		}
		return lineup.Lineup{}, false, fmt.Errorf("get lineup literal fallback: %w", err)
	}

	return lineupFromRow(row), true, nil
}

func (r *LineupRepository) Upsert(ctx context.Context, item lineup.Lineup) error {
	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	insertModel := lineupInsertModel{
		UserID:      item.UserID,
		UserName:    item.UserName,
		ChallengeID: item.ChallengeID,
		CaptainIDs:  pq.StringArray(item.Captains),
		NAIDs:       pq.StringArray(item.NASlots),
		BRLatamIDs:  pq.StringArray(item.BRLatamSlots),
		FlexIDs:     pq.StringArray(item.FlexSlots),
		Locked:      item.Locked,
		CachedScore: nullableFloat(item.CachedScore),
		UpdatedAt:   updatedAt.UTC(),
	}

	query, args, err := qb.InsertModel("lineups", insertModel, `ON CONFLICT (user_id, challenge_public_id) WHERE deleted_at IS NULL
DO UPDATE SET
    user_name = EXCLUDED.user_name,
    captain_player_ids = EXCLUDED.captain_player_ids,
    na_player_ids = EXCLUDED.na_player_ids,
    br_latam_player_ids = EXCLUDED.br_latam_player_ids,
    flex_player_ids = EXCLUDED.flex_player_ids,
    locked = EXCLUDED.locked,
    cached_score = EXCLUDED.cached_score,
    updated_at = EXCLUDED.updated_at,
    deleted_at = NULL
RETURNING updated_at`)
	if err != nil {
		return fmt.Errorf("build lineup upsert query: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert lineup: %w", err)
	}
	defer rows.Close()

	var persistedAt time.Time
	if rows.Next() {
		if err := rows.Scan(&persistedAt); err != nil {
			return fmt.Errorf("scan lineup updated_at: %w", err)
		}
		return nil
	}

	return fmt.Errorf("upsert lineup: no row returned")
}

func lineupFromRow(row lineupTableModel) lineup.Lineup {
	item := lineup.Lineup{
		UserID:       row.UserID,
		UserName:     row.UserName,
		ChallengeID:  row.ChallengeID,
		Captains:     append([]string(nil), row.CaptainIDs...),
		NASlots:      append([]string(nil), row.NAIDs...),
		BRLatamSlots: append([]string(nil), row.BRLatamIDs...),
		FlexSlots:    append([]string(nil), row.FlexIDs...),
		Locked:       row.Locked,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.CachedScore.Valid {
		score := row.CachedScore.Float64
		item.CachedScore = &score
	}
	return item
}

func lineupBaseSelectBuilder() *qb.SelectBuilder {
	return qb.Select("*").From("lineups")
}
