package httpapi

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rosterlab/perfect-roster/internal/domain/jobscheduler"
	"github.com/rosterlab/perfect-roster/internal/platform/logging"
	"github.com/rosterlab/perfect-roster/internal/usecase"
)

// ReadinessCheck probes one dependency for the readiness endpoint. The probe
// returns nil when the dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// JobScheduler re-arms the background job chain after a delivered job ran.
type JobScheduler interface {
	ScheduleAfterSync(ctx context.Context) (usecase.JobScheduleResult, error)
	ScheduleAfterRecompute(ctx context.Context) (usecase.JobScheduleResult, error)
}

type Handler struct {
	challengeService *usecase.ChallengeService
	playerService    *usecase.PlayerService
	lineupService    *usecase.LineupService
	scoringService   *usecase.ScoringService
	viewsService     *usecase.DerivedViewsService
	syncService      *usecase.ChallengeSyncService
	jobScheduler     JobScheduler
	jobDispatchRepo  jobscheduler.Repository
	readiness        []ReadinessCheck
	logger           *logging.Logger
	validator        *validator.Validate
}

func NewHandler(
	challengeService *usecase.ChallengeService,
	playerService *usecase.PlayerService,
	lineupService *usecase.LineupService,
	scoringService *usecase.ScoringService,
	viewsService *usecase.DerivedViewsService,
	syncService *usecase.ChallengeSyncService,
	readiness []ReadinessCheck,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		challengeService: challengeService,
		playerService:    playerService,
		lineupService:    lineupService,
		scoringService:   scoringService,
		viewsService:     viewsService,
		syncService:      syncService,
		readiness:        readiness,
		logger:           logger,
		validator:        validator.New(),
	}
}

// SetJobScheduler wires the scheduler that keeps the job chain alive. Left
// unset, delivered jobs still run but queue no follow-up links.
func (h *Handler) SetJobScheduler(scheduler JobScheduler) {
	h.jobScheduler = scheduler
}

// SetJobDispatchRepository wires the audit store for delivered job runs.
func (h *Handler) SetJobDispatchRepository(repo jobscheduler.Repository) {
	h.jobDispatchRepo = repo
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
