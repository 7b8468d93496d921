package postgres

import (
	"database/sql"
	"time"
)

type playerTableModel struct {
	ID                 int64         `db:"id"`
	PublicID           string        `db:"public_id"`
	SetNumber          int           `db:"set_number"`
	Name               string        `db:"name"`
	Region             string        `db:"region"`
	CupScores          string        `db:"cup_scores"`
	RegionalsQualified sql.NullBool  `db:"regionals_qualified"`
	RegionalsPlacement sql.NullInt64 `db:"regionals_placement"`
	CreatedAt          time.Time     `db:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"`
	DeletedAt          *time.Time    `db:"deleted_at"`
}

type playerInsertModel struct {
	PublicID           string        `db:"public_id"`
	SetNumber          int           `db:"set_number"`
	Name               string        `db:"name"`
	Region             string        `db:"region"`
	CupScores          string        `db:"cup_scores"`
	RegionalsQualified sql.NullBool  `db:"regionals_qualified"`
	RegionalsPlacement sql.NullInt64 `db:"regionals_placement"`
}
