package jobscheduler

import "time"

type DispatchStatus string

// Lifecycle of one queue delivery: sent when the publish is accepted,
// completed when the handler finished its work and re-armed the chain,
// failed when the delivery errored and the queue will retry it.
const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusFailed    DispatchStatus = "failed"
)

// DispatchEvent records one state transition of a queued background job.
// Events sharing a DispatchID describe the same delivery and fold into one
// audit row. ChallengeID is empty for jobs that span every challenge.
type DispatchEvent struct {
	DispatchID   string
	JobName      string
	JobPath      string
	ChallengeID  string
	Status       DispatchStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
