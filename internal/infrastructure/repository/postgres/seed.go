package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rosterlab/perfect-roster/internal/infrastructure/repository/memory"
)

// BootstrapSeed loads the demo challenges and player pool into an empty
// database. A database that already has challenges is left untouched.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM challenges WHERE deleted_at IS NULL`); err != nil {
		return fmt.Errorf("count challenges for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, c := range memory.SeedChallenges() {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO challenges (public_id, name, season, challenge_type, set_number, current_cup, end_date, captain_slots, na_slots, br_latam_slots, flex_slots)
VALUES (:public_id, :name, :season, :challenge_type, :set_number, :current_cup, :end_date, :captain_slots, :na_slots, :br_latam_slots, :flex_slots)
ON CONFLICT (public_id) DO NOTHING`, map[string]any{
			"public_id":      c.ID,
			"name":           c.Name,
			"season":         c.Season,
			"challenge_type": string(c.Type),
			"set_number":     c.Set,
			"current_cup":    string(c.CurrentCup),
			"end_date":       c.EndDate.UTC(),
			"captain_slots":  c.Settings.CaptainSlots,
			"na_slots":       c.Settings.NASlots,
			"br_latam_slots": c.Settings.BRLatamSlots,
			"flex_slots":     c.Settings.FlexSlots,
		})
		if err != nil {
			return fmt.Errorf("bind seed challenge %s query: %w", c.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed challenge %s: %w", c.ID, err)
		}
	}

	for _, p := range memory.SeedPlayers() {
		scores, err := encodeCupScores(p.Scores)
		if err != nil {
			return fmt.Errorf("encode seed cup scores for player %s: %w", p.ID, err)
		}

		qualified := sql.NullBool{}
		placement := sql.NullInt64{}
		if p.Regionals != nil {
			qualified = sql.NullBool{Bool: p.Regionals.Qualified, Valid: true}
			placement = nullableInt(p.Regionals.Placement)
		}

		sqlQuery, args, err := sqlx.Named(`
INSERT INTO players (public_id, set_number, name, region, cup_scores, regionals_qualified, regionals_placement)
VALUES (:public_id, :set_number, :name, :region, :cup_scores, :regionals_qualified, :regionals_placement)
ON CONFLICT (set_number, public_id) DO NOTHING`, map[string]any{
			"public_id":           p.ID,
			"set_number":          p.Set,
			"name":                p.Name,
			"region":              string(p.Region),
			"cup_scores":          scores,
			"regionals_qualified": qualified,
			"regionals_placement": placement,
		})
		if err != nil {
			return fmt.Errorf("bind seed player %s query: %w", p.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed player %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}
