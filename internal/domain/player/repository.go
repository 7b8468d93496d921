package player

import "context"

// Repository describes player persistence needs from use cases.
type Repository interface {
	ListBySet(ctx context.Context, set int) ([]Player, error)
	GetByID(ctx context.Context, set int, playerID string) (Player, bool, error)
	Upsert(ctx context.Context, item Player) error
}
