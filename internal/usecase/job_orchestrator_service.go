package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/jobscheduler"
	"github.com/rosterlab/perfect-roster/internal/platform/logging"
)

const (
	jobNameChallengeSync = "challenge-sync"
	jobNameRecompute     = "recompute"

	jobPathChallengeSync = "/internal/jobs/challenge-sync"
	jobPathRecompute     = "/internal/jobs/recompute"
)

// JobQueue hands a job to an external delivery service. The deduplication id
// collapses retries and overlapping schedulers into one delivery.
type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

type JobOrchestratorConfig struct {
	// SyncEnabled mirrors the roster sync switch; without an upstream
	// provider there is no point queueing sync jobs that will only 503.
	SyncEnabled       bool
	SyncInterval      time.Duration
	RecomputeInterval time.Duration
	PreDeadlineLead   time.Duration
}

// JobScheduleResult reports what one scheduling pass queued.
type JobScheduleResult struct {
	Mode               string
	ChallengeCount     int
	OpenChallengeCount int
	QueuedCount        int
	QueuedOperations   []string
}

// JobOrchestratorService keeps the background job chain alive. Every pass
// inspects the challenge deadlines and queues the next sync and recompute
// deliveries; each delivered job calls back in, so the chain re-arms itself
// for as long as deliveries keep flowing. Deduplication ids are bucketed by
// interval, which lets bootstrap, sync, and recompute passes all queue the
// same next link without producing duplicate deliveries.
type JobOrchestratorService struct {
	challengeRepo challenge.Repository
	queue         JobQueue
	dispatchRepo  jobscheduler.Repository
	cfg           JobOrchestratorConfig
	logger        *logging.Logger
	now           func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewJobOrchestratorService(
	challengeRepo challenge.Repository,
	queue JobQueue,
	dispatchRepo jobscheduler.Repository,
	cfg JobOrchestratorConfig,
	logger *logging.Logger,
) *JobOrchestratorService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 15 * time.Minute
	}
	if cfg.RecomputeInterval <= 0 {
		cfg.RecomputeInterval = 5 * time.Minute
	}
	if cfg.PreDeadlineLead <= 0 {
		cfg.PreDeadlineLead = 15 * time.Minute
	}

	return &JobOrchestratorService{
		challengeRepo: challengeRepo,
		queue:         queue,
		dispatchRepo:  dispatchRepo,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// Bootstrap queues the first links of the chain with no delay. Called once
// at startup; dedup ids keep restarts from stacking deliveries.
func (s *JobOrchestratorService) Bootstrap(ctx context.Context) (JobScheduleResult, error) {
	return s.schedule(ctx, "bootstrap", true)
}

// ScheduleAfterSync re-arms the chain after a sync job ran.
func (s *JobOrchestratorService) ScheduleAfterSync(ctx context.Context) (JobScheduleResult, error) {
	return s.schedule(ctx, "sync", false)
}

// ScheduleAfterRecompute re-arms the chain after a recompute job ran.
func (s *JobOrchestratorService) ScheduleAfterRecompute(ctx context.Context) (JobScheduleResult, error) {
	return s.schedule(ctx, "recompute", false)
}

func (s *JobOrchestratorService) schedule(ctx context.Context, mode string, force bool) (JobScheduleResult, error) {
	items, err := s.challengeRepo.List(ctx)
	if err != nil {
		return JobScheduleResult{}, fmt.Errorf("list challenges for jobs: %w", err)
	}

	now := s.now().UTC()
	result := JobScheduleResult{
		Mode:             mode,
		ChallengeCount:   len(items),
		QueuedOperations: make([]string, 0, len(items)+2),
	}

	hasOpen, nearestDeadline := analyzeChallenges(items, now)

	for _, item := range items {
		if item.EndDate.IsZero() || !item.OpenAt(now) {
			continue
		}
		result.OpenChallengeCount++

		delay := s.cfg.RecomputeInterval
		if remaining := item.EndDate.Sub(now); remaining < delay {
			// The next refresh lands on the deadline itself so the final
			// standings settle the moment entries lock.
			delay = remaining
		}
		if force {
			delay = 0
		}
		if err := s.enqueueRecompute(ctx, item.ID, delay, now); err != nil {
			return JobScheduleResult{}, err
		}
		result.QueuedCount++
		result.QueuedOperations = append(result.QueuedOperations, jobNameRecompute+":"+item.ID)
	}

	if result.OpenChallengeCount == 0 {
		// Everything is past its deadline. Keep a slow global pulse alive
		// for late upstream score corrections.
		delay := maxDuration(s.cfg.SyncInterval, 6*time.Hour)
		if force {
			delay = 0
		}
		if err := s.enqueueRecompute(ctx, "", delay, now); err != nil {
			return JobScheduleResult{}, err
		}
		result.QueuedCount++
		result.QueuedOperations = append(result.QueuedOperations, jobNameRecompute+":all")
	}

	if s.cfg.SyncEnabled {
		delay := s.nextSyncDelay(now, hasOpen, nearestDeadline)
		if force {
			delay = 0
		}
		if err := s.enqueueSync(ctx, delay, now); err != nil {
			return JobScheduleResult{}, err
		}
		result.QueuedCount++
		result.QueuedOperations = append(result.QueuedOperations, jobNameChallengeSync+":all")
	}

	return result, nil
}

func (s *JobOrchestratorService) enqueueSync(ctx context.Context, delay time.Duration, now time.Time) error {
	dedupID := dedupKey(jobNameChallengeSync, "all", now.Add(delay), s.cfg.SyncInterval)
	payload := map[string]any{
		"dispatch_id": dedupID,
	}
	if err := s.queue.Enqueue(ctx, jobPathChallengeSync, payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
			DispatchID:   dedupID,
			JobName:      jobNameChallengeSync,
			JobPath:      jobPathChallengeSync,
			Status:       jobscheduler.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now.UTC(),
		})
		return fmt.Errorf("enqueue challenge-sync: %w", err)
	}
	s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
		DispatchID: dedupID,
		JobName:    jobNameChallengeSync,
		JobPath:    jobPathChallengeSync,
		Status:     jobscheduler.StatusSent,
		Payload:    payload,
		OccurredAt: now.UTC(),
	})
	return nil
}

func (s *JobOrchestratorService) enqueueRecompute(ctx context.Context, challengeID string, delay time.Duration, now time.Time) error {
	segment := strings.TrimSpace(challengeID)
	if segment == "" {
		segment = "all"
	}
	dedupID := dedupKey(jobNameRecompute, segment, now.Add(delay), s.cfg.RecomputeInterval)
	payload := map[string]any{
		"dispatch_id": dedupID,
	}
	if strings.TrimSpace(challengeID) != "" {
		payload["challenge_id"] = challengeID
	}
	if err := s.queue.Enqueue(ctx, jobPathRecompute, payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
			DispatchID:   dedupID,
			JobName:      jobNameRecompute,
			JobPath:      jobPathRecompute,
			ChallengeID:  challengeID,
			Status:       jobscheduler.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now.UTC(),
		})
		return fmt.Errorf("enqueue recompute challenge=%s: %w", segment, err)
	}
	s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
		DispatchID:  dedupID,
		JobName:     jobNameRecompute,
		JobPath:     jobPathRecompute,
		ChallengeID: challengeID,
		Status:      jobscheduler.StatusSent,
		Payload:     payload,
		OccurredAt:  now.UTC(),
	})
	return nil
}

// nextSyncDelay picks the upstream poll cadence. Scores move constantly
// while a challenge is open and matter most right before entries lock, so
// the cadence tightens inside the pre-deadline window and falls back to a
// slow idle pulse once every challenge has ended.
func (s *JobOrchestratorService) nextSyncDelay(now time.Time, hasOpen bool, nearestDeadline *time.Time) time.Duration {
	minDelay := time.Minute
	if !hasOpen {
		return maxDuration(s.cfg.SyncInterval, 6*time.Hour)
	}

	if nearestDeadline != nil && nearestDeadline.Sub(now) <= s.cfg.PreDeadlineLead {
		return maxDuration(s.cfg.RecomputeInterval, minDelay)
	}

	return maxDuration(s.cfg.SyncInterval, minDelay)
}

// dedupKey buckets the target instant by the job interval so every scheduler
// that aims at the same slot produces the same id.
func dedupKey(prefix, segment string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	prefix = sanitizeDedupSegment(prefix)
	segment = sanitizeDedupSegment(segment)
	return prefix + "-" + segment + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func (s *JobOrchestratorService) recordDispatchEvent(ctx context.Context, event jobscheduler.DispatchEvent) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}

// analyzeChallenges reports whether any challenge is still open and the
// soonest deadline among the open ones.
func analyzeChallenges(items []challenge.Challenge, now time.Time) (bool, *time.Time) {
	var nearestDeadline *time.Time
	hasOpen := false
	for _, item := range items {
		if item.EndDate.IsZero() || !item.OpenAt(now) {
			continue
		}
		hasOpen = true
		if nearestDeadline == nil || item.EndDate.Before(*nearestDeadline) {
			next := item.EndDate
			nearestDeadline = &next
		}
	}

	return hasOpen, nearestDeadline
}

func maxDuration(left, right time.Duration) time.Duration {
	if left > right {
		return left
	}
	return right
}
