package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
	qb "github.com/rosterlab/perfect-roster/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

// cup_scores is jsonb; selecting it as text keeps the row scan on plain
// string columns.
var playerSelectColumns = []string{
	"id",
	"public_id",
	"set_number",
	"name",
	"region",
	"cup_scores::text AS cup_scores",
	"regionals_qualified",
	"regionals_placement",
	"created_at",
	"updated_at",
	"deleted_at",
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) ListBySet(ctx context.Context, set int) ([]player.Player, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(
			qb.Eq("set_number", set),
			qb.IsNull("deleted_at"),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by set query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players by set: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		item, err := playerFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *PlayerRepository) GetByID(ctx context.Context, set int, playerID string) (player.Player, bool, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(
			qb.Eq("set_number", set),
			qb.Eq("public_id", playerID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build get player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get player: %w", err)
	}

	item, err := playerFromRow(row)
	if err != nil {
		return player.Player{}, false, err
	}
	return item, true, nil
}

func (r *PlayerRepository) Upsert(ctx context.Context, item player.Player) error {
	scores, err := encodeCupScores(item.Scores)
	if err != nil {
		return fmt.Errorf("encode cup scores for player %s: %w", item.ID, err)
	}

	insertModel := playerInsertModel{
		PublicID:  item.ID,
		SetNumber: item.Set,
		Name:      item.Name,
		Region:    string(item.Region),
		CupScores: scores,
	}
	if item.Regionals != nil {
		insertModel.RegionalsQualified = sql.NullBool{Bool: item.Regionals.Qualified, Valid: true}
		insertModel.RegionalsPlacement = nullableInt(item.Regionals.Placement)
	}

	query, args, err := qb.InsertModel("players", insertModel, `ON CONFLICT (set_number, public_id)
DO UPDATE SET
    name = EXCLUDED.name,
    region = EXCLUDED.region,
    cup_scores = EXCLUDED.cup_scores,
    regionals_qualified = EXCLUDED.regionals_qualified,
    regionals_placement = EXCLUDED.regionals_placement,
    updated_at = NOW(),
    deleted_at = NULL`)
	if err != nil {
		return fmt.Errorf("build player upsert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert player %s: %w", item.ID, err)
	}
	return nil
}

func playerFromRow(row playerTableModel) (player.Player, error) {
	scores, err := decodeCupScores(row.CupScores)
	if err != nil {
		return player.Player{}, fmt.Errorf("decode cup scores for player %s: %w", row.PublicID, err)
	}

	item := player.Player{
		ID:     row.PublicID,
		Name:   row.Name,
		Region: player.Region(row.Region),
		Set:    row.SetNumber,
		Scores: scores,
	}

	if row.RegionalsQualified.Valid {
		result := player.RegionalsResult{Qualified: row.RegionalsQualified.Bool}
		if row.RegionalsPlacement.Valid {
			placement := int(row.RegionalsPlacement.Int64)
			result.Placement = &placement
		}
		item.Regionals = &result
	}

	return item, nil
}

func encodeCupScores(scores map[challenge.CupKey]float64) (string, error) {
	if len(scores) == 0 {
		return "{}", nil
	}
	encoded, err := sonic.Marshal(scores)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeCupScores(raw string) (map[challenge.CupKey]float64, error) {
	scores := make(map[challenge.CupKey]float64)
	if raw == "" {
		return scores, nil
	}
	if err := sonic.Unmarshal([]byte(raw), &scores); err != nil {
		return nil, err
	}
	return scores, nil
}
