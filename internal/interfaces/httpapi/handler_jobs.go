package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"

	"github.com/rosterlab/perfect-roster/internal/domain/jobscheduler"
	"github.com/rosterlab/perfect-roster/internal/usecase"
)

var jobDispatchUnsafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func (h *Handler) RunChallengeSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunChallengeSyncJob")
	defer span.End()

	if h.syncService == nil {
		writeError(ctx, w, fmt.Errorf("%w: challenge sync service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeChallengeSyncJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	report, err := h.syncService.Run(ctx)
	if err == nil && h.jobScheduler != nil {
		err = h.rearmJobChain(ctx, "challenge-sync", h.jobScheduler.ScheduleAfterSync)
	}
	if err != nil {
		h.recordJobDispatch(ctx, req.DispatchID, jobscheduler.DispatchEvent{
			JobName:      "challenge-sync",
			JobPath:      "/internal/jobs/challenge-sync",
			Status:       jobscheduler.StatusFailed,
			Payload:      buildChallengeSyncJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run challenge sync job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	h.recordJobDispatch(ctx, req.DispatchID, jobscheduler.DispatchEvent{
		JobName:    "challenge-sync",
		JobPath:    "/internal/jobs/challenge-sync",
		Status:     jobscheduler.StatusCompleted,
		Payload:    buildChallengeSyncJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, syncReportToDTO(ctx, report))
}

func (h *Handler) RunRecomputeJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRecomputeJob")
	defer span.End()

	if h.viewsService == nil {
		writeError(ctx, w, fmt.Errorf("%w: derived views service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeRecomputeJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var report usecase.RecomputeReport
	if challengeID := strings.TrimSpace(req.ChallengeID); challengeID != "" {
		report, err = h.viewsService.RecomputeOne(ctx, challengeID)
	} else {
		report, err = h.viewsService.RecomputeAll(ctx)
	}
	if err == nil && h.jobScheduler != nil {
		err = h.rearmJobChain(ctx, "recompute", h.jobScheduler.ScheduleAfterRecompute)
	}
	if err != nil {
		h.recordJobDispatch(ctx, req.DispatchID, jobscheduler.DispatchEvent{
			JobName:      "recompute",
			JobPath:      "/internal/jobs/recompute",
			ChallengeID:  req.ChallengeID,
			Status:       jobscheduler.StatusFailed,
			Payload:      buildRecomputeJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run recompute job failed", "challenge_id", req.ChallengeID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.recordJobDispatch(ctx, req.DispatchID, jobscheduler.DispatchEvent{
		JobName:     "recompute",
		JobPath:     "/internal/jobs/recompute",
		ChallengeID: req.ChallengeID,
		Status:      jobscheduler.StatusCompleted,
		Payload:     buildRecomputeJobPayload(req),
		OccurredAt:  time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, recomputeReportToDTO(ctx, report))
}

// rearmJobChain queues the next chain links after the delivered job did its
// work. A scheduling failure fails the whole delivery: the queue retries it,
// and the work itself is idempotent, so a rerun only costs a second pass.
func (h *Handler) rearmJobChain(ctx context.Context, jobName string, schedule func(context.Context) (usecase.JobScheduleResult, error)) error {
	result, err := schedule(ctx)
	if err != nil {
		return fmt.Errorf("schedule follow-up jobs: %w", err)
	}

	h.logger.InfoContext(ctx, "job chain re-armed",
		"job_name", jobName,
		"mode", result.Mode,
		"queued", result.QueuedCount,
		"open_challenges", result.OpenChallengeCount,
	)
	return nil
}

func decodeChallengeSyncJobRequest(r *http.Request) (challengeSyncJobRequest, error) {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req challengeSyncJobRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return challengeSyncJobRequest{}, nil
		}
		return challengeSyncJobRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}

// decodeRecomputeJobRequest tolerates an empty body; the job recomputes
// every challenge unless one is named.
func decodeRecomputeJobRequest(r *http.Request) (recomputeJobRequest, error) {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req recomputeJobRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return recomputeJobRequest{}, nil
		}
		return recomputeJobRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}

// recordJobDispatch folds the delivered run into the dispatch audit row. The
// dispatch id from the queue payload matches the row written at enqueue time;
// hand-triggered runs carry none and get a manual id instead.
func (h *Handler) recordJobDispatch(ctx context.Context, requestDispatchID string, event jobscheduler.DispatchEvent) {
	if h.jobDispatchRepo == nil {
		return
	}

	dispatchID := strings.TrimSpace(requestDispatchID)
	if dispatchID == "" {
		dispatchID = buildManualDispatchID(event.JobName, event.ChallengeID, event.OccurredAt)
	}
	event.DispatchID = dispatchID

	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID

	if err := h.jobDispatchRepo.UpsertEvent(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "record job dispatch failed",
			"dispatch_id", event.DispatchID,
			"job_name", event.JobName,
			"status", event.Status,
			"error", err,
		)
	}
}

func buildChallengeSyncJobPayload(req challengeSyncJobRequest) map[string]any {
	payload := map[string]any{}
	if strings.TrimSpace(req.DispatchID) != "" {
		payload["dispatch_id"] = req.DispatchID
	}
	return payload
}

func buildRecomputeJobPayload(req recomputeJobRequest) map[string]any {
	payload := map[string]any{}
	if strings.TrimSpace(req.ChallengeID) != "" {
		payload["challenge_id"] = req.ChallengeID
	}
	if strings.TrimSpace(req.DispatchID) != "" {
		payload["dispatch_id"] = req.DispatchID
	}
	return payload
}

func buildManualDispatchID(jobName, challengeID string, now time.Time) string {
	jobName = sanitizeDispatchPart(jobName)
	challengeID = sanitizeDispatchPart(challengeID)
	ts := now.UTC().Format("20060102T150405.000000000Z")
	return "manual-" + jobName + "-" + challengeID + "-" + ts
}

func sanitizeDispatchPart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return jobDispatchUnsafeRegex.ReplaceAllString(value, "-")
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
