package jobscheduler

import "context"

// Repository persists dispatch events keyed by dispatch id. Upserting the
// same dispatch id folds send, completion, and failure into one row.
type Repository interface {
	UpsertEvent(ctx context.Context, event DispatchEvent) error
}
