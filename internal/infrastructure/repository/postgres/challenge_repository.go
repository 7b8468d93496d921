package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	qb "github.com/rosterlab/perfect-roster/internal/platform/querybuilder"
)

type ChallengeRepository struct {
	db *sqlx.DB
}

func NewChallengeRepository(db *sqlx.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

func (r *ChallengeRepository) List(ctx context.Context) ([]challenge.Challenge, error) {
	query, args, err := challengeBaseSelectBuilder().
		Where(qb.IsNull("deleted_at")).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list challenges query: %w", err)
	}

	var rows []challengeTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}

	out := make([]challenge.Challenge, 0, len(rows))
	for _, row := range rows {
		out = append(out, challengeFromRow(row))
	}
	return out, nil
}

func (r *ChallengeRepository) GetByID(ctx context.Context, challengeID string) (challenge.Challenge, bool, error) {
	query, args, err := challengeBaseSelectBuilder().
		Where(
			qb.Eq("public_id", challengeID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return challenge.Challenge{}, false, fmt.Errorf("build get challenge query: %w", err)
	}

	var row challengeTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isUnnamedPreparedStatementMissing(err) {
			return r.getByIDLiteral(ctx, challengeID)
		}
		if isNotFound(err) {
			return challenge.Challenge{}, false, nil
		}
		return challenge.Challenge{}, false, fmt.Errorf("get challenge: %w", err)
	}

	return challengeFromRow(row), true, nil
}

func (r *ChallengeRepository) getByIDLiteral(ctx context.Context, challengeID string) (challenge.Challenge, bool, error) {
	query, args, err := challengeBaseSelectBuilder().
		Where(
			qb.EqLiteral("public_id", challengeID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return challenge.Challenge{}, false, fmt.Errorf("build get challenge literal fallback query: %w", err)
	}

	var row challengeTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return challenge.Challenge{}, false, nil
		}
		return challenge.Challenge{}, false, fmt.Errorf("get challenge literal fallback: %w", err)
	}

	return challengeFromRow(row), true, nil
}

func (r *ChallengeRepository) Upsert(ctx context.Context, item challenge.Challenge) error {
	insertModel := challengeInsertModel{
		PublicID:     item.ID,
		Name:         item.Name,
		Season:       item.Season,
		Type:         string(item.Type),
		SetNumber:    item.Set,
		CurrentCup:   string(item.CurrentCup),
		EndDate:      item.EndDate.UTC(),
		CaptainSlots: item.Settings.CaptainSlots,
		NASlots:      item.Settings.NASlots,
		BRLatamSlots: item.Settings.BRLatamSlots,
		FlexSlots:    item.Settings.FlexSlots,
	}

	query, args, err := qb.InsertModel("challenges", insertModel, `ON CONFLICT (public_id)
DO UPDATE SET
    name = EXCLUDED.name,
    season = EXCLUDED.season,
    challenge_type = EXCLUDED.challenge_type,
    set_number = EXCLUDED.set_number,
    current_cup = EXCLUDED.current_cup,
    end_date = EXCLUDED.end_date,
    captain_slots = EXCLUDED.captain_slots,
    na_slots = EXCLUDED.na_slots,
    br_latam_slots = EXCLUDED.br_latam_slots,
    flex_slots = EXCLUDED.flex_slots,
    updated_at = NOW(),
    deleted_at = NULL`)
	if err != nil {
		return fmt.Errorf("build challenge upsert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert challenge %s: %w", item.ID, err)
	}
	return nil
}

func challengeFromRow(row challengeTableModel) challenge.Challenge {
	return challenge.Challenge{
		ID:         row.PublicID,
		Name:       row.Name,
		Season:     row.Season,
		Type:       challenge.Type(row.Type),
		Set:        row.SetNumber,
		CurrentCup: challenge.CupKey(row.CurrentCup),
		EndDate:    row.EndDate,
		Settings: challenge.SlotSettings{
			CaptainSlots: row.CaptainSlots,
			NASlots:      row.NASlots,
			BRLatamSlots: row.BRLatamSlots,
			FlexSlots:    row.FlexSlots,
		},
	}
}

func challengeBaseSelectBuilder() *qb.SelectBuilder {
	return qb.Select("*").From("challenges")
}
