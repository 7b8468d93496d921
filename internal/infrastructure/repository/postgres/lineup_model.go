package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type lineupTableModel struct {
	ID          int64           `db:"id"`
	UserID      string          `db:"user_id"`
	UserName    string          `db:"user_name"`
	ChallengeID string          `db:"challenge_public_id"`
	CaptainIDs  pq.StringArray  `db:"captain_player_ids"`
	NAIDs       pq.StringArray  `db:"na_player_ids"`
	BRLatamIDs  pq.StringArray  `db:"br_latam_player_ids"`
	FlexIDs     pq.StringArray  `db:"flex_player_ids"`
	Locked      bool            `db:"locked"`
	CachedScore sql.NullFloat64 `db:"cached_score"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	DeletedAt   *time.Time      `db:"deleted_at"`
}

type lineupInsertModel struct {
	UserID      string          `db:"user_id"`
	UserName    string          `db:"user_name"`
	ChallengeID string          `db:"challenge_public_id"`
	CaptainIDs  pq.StringArray  `db:"captain_player_ids"`
	NAIDs       pq.StringArray  `db:"na_player_ids"`
	BRLatamIDs  pq.StringArray  `db:"br_latam_player_ids"`
	FlexIDs     pq.StringArray  `db:"flex_player_ids"`
	Locked      bool            `db:"locked"`
	CachedScore sql.NullFloat64 `db:"cached_score"`
	UpdatedAt   time.Time       `db:"updated_at"`
}
