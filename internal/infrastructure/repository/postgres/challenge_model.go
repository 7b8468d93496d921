package postgres

import (
	"time"
)

type challengeTableModel struct {
	ID           int64      `db:"id"`
	PublicID     string     `db:"public_id"`
	Name         string     `db:"name"`
	Season       string     `db:"season"`
	Type         string     `db:"challenge_type"`
	SetNumber    int        `db:"set_number"`
	CurrentCup   string     `db:"current_cup"`
	EndDate      time.Time  `db:"end_date"`
	CaptainSlots int        `db:"captain_slots"`
	NASlots      int        `db:"na_slots"`
	BRLatamSlots int        `db:"br_latam_slots"`
	FlexSlots    int        `db:"flex_slots"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

type challengeInsertModel struct {
	PublicID     string    `db:"public_id"`
	Name         string    `db:"name"`
	Season       string    `db:"season"`
	Type         string    `db:"challenge_type"`
	SetNumber    int       `db:"set_number"`
	CurrentCup   string    `db:"current_cup"`
	EndDate      time.Time `db:"end_date"`
	CaptainSlots int       `db:"captain_slots"`
	NASlots      int       `db:"na_slots"`
	BRLatamSlots int       `db:"br_latam_slots"`
	FlexSlots    int       `db:"flex_slots"`
}
