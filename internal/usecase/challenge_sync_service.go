package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
	idgen "github.com/rosterlab/perfect-roster/internal/platform/id"
	"github.com/rosterlab/perfect-roster/internal/platform/logging"
)

// ChallengeDataProvider fetches the upstream challenge documents. The
// documents arrive as loosely typed wire shapes; mapping and validation
// happen here, not in the transport client.
type ChallengeDataProvider interface {
	FetchChallengeBundle(ctx context.Context) (ExternalChallengeBundle, error)
}

// ExternalChallengeBundle is one upstream snapshot of every challenge and
// its player pool. Revision identifies the upstream document version.
type ExternalChallengeBundle struct {
	Challenges []ExternalChallenge
	Players    []ExternalPlayer
	Revision   string
}

type ExternalChallenge struct {
	ID           string
	Name         string
	Season       string
	Type         string
	Set          int
	CurrentCup   string
	EndDate      time.Time
	CaptainSlots int
	NASlots      int
	BRLatamSlots int
	FlexSlots    int
}

type ExternalPlayer struct {
	ID        string
	Name      string
	Region    string
	Set       int
	CupScores map[string]float64
	Regionals *ExternalRegionalsResult
}

type ExternalRegionalsResult struct {
	Qualified bool
	Placement *int
}

type ChallengeSyncConfig struct {
	Enabled bool
}

// ChallengeSyncReport summarizes one sync run. Invalid rows are skipped and
// counted, never silently coerced; a challenge document with an unknown cup
// or type stays out of the store entirely.
type ChallengeSyncReport struct {
	RunID             string
	Revision          string
	Challenges        int
	Players           int
	InvalidChallenges int
	InvalidPlayers    int
	FailedUpserts     int
	DurationMs        int64
}

type challengeViewsRefresher interface {
	InvalidateChallenge(ctx context.Context, challengeID string)
}

// ChallengeSyncService ingests upstream challenge and player documents into
// the local store. Backs the internal challenge-sync job.
type ChallengeSyncService struct {
	provider      ChallengeDataProvider
	challengeRepo challenge.Repository
	playerRepo    player.Repository
	idGen         idgen.Generator
	refresher     challengeViewsRefresher
	cfg           ChallengeSyncConfig
	logger        *logging.Logger
}

func NewChallengeSyncService(
	provider ChallengeDataProvider,
	challengeRepo challenge.Repository,
	playerRepo player.Repository,
	idGen idgen.Generator,
	cfg ChallengeSyncConfig,
	logger *logging.Logger,
) *ChallengeSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChallengeSyncService{
		provider:      provider,
		challengeRepo: challengeRepo,
		playerRepo:    playerRepo,
		idGen:         idGen,
		cfg:           cfg,
		logger:        logger,
	}
}

// SetViewsRefresher lets a sync run drop stale derived views for the
// challenges it touched.
func (s *ChallengeSyncService) SetViewsRefresher(refresher challengeViewsRefresher) {
	s.refresher = refresher
}

// Run fetches one upstream bundle and upserts every valid document.
// Challenges are few and are written sequentially; player upserts fan out on
// a worker pool.
func (s *ChallengeSyncService) Run(ctx context.Context) (ChallengeSyncReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ChallengeSyncService.Run")
	defer span.End()

	if !s.cfg.Enabled {
		s.logger.WarnContext(ctx, "skip challenge sync: sync is disabled")
		return ChallengeSyncReport{}, fmt.Errorf("%w: challenge sync is disabled (ROSTER_SYNC_ENABLED=false)", ErrDependencyUnavailable)
	}
	if s.provider == nil {
		s.logger.WarnContext(ctx, "skip challenge sync: upstream provider is not configured")
		return ChallengeSyncReport{}, fmt.Errorf("%w: challenge data provider is not configured", ErrDependencyUnavailable)
	}

	runID, err := s.idGen.NewID()
	if err != nil {
		return ChallengeSyncReport{}, fmt.Errorf("generate sync run id: %w", err)
	}
	start := time.Now()

	bundle, err := s.provider.FetchChallengeBundle(ctx)
	if err != nil {
		return ChallengeSyncReport{}, fmt.Errorf("fetch challenge bundle run_id=%s: %w", runID, err)
	}

	report := ChallengeSyncReport{RunID: runID, Revision: bundle.Revision}

	syncedChallenges := make([]string, 0, len(bundle.Challenges))
	for _, doc := range bundle.Challenges {
		item, mapErr := mapExternalChallenge(doc)
		if mapErr != nil {
			report.InvalidChallenges++
			s.logger.WarnContext(ctx, "skip invalid challenge document",
				"run_id", runID,
				"challenge_id", doc.ID,
				"error", mapErr.Error(),
			)
			continue
		}
		if upsertErr := s.challengeRepo.Upsert(ctx, item); upsertErr != nil {
			return report, fmt.Errorf("upsert challenge %s run_id=%s: %w", item.ID, runID, upsertErr)
		}
		report.Challenges++
		syncedChallenges = append(syncedChallenges, item.ID)
	}

	invalidPlayers, failedUpserts, syncedPlayers, err := s.syncPlayers(ctx, runID, bundle.Players)
	if err != nil {
		return report, err
	}
	report.InvalidPlayers = invalidPlayers
	report.FailedUpserts = failedUpserts
	report.Players = syncedPlayers

	if s.refresher != nil {
		for _, challengeID := range syncedChallenges {
			s.refresher.InvalidateChallenge(ctx, challengeID)
		}
	}

	report.DurationMs = time.Since(start).Milliseconds()
	s.logger.InfoContext(ctx, "challenge sync finished",
		"run_id", runID,
		"revision", report.Revision,
		"challenges", report.Challenges,
		"players", report.Players,
		"invalid_challenges", report.InvalidChallenges,
		"invalid_players", report.InvalidPlayers,
		"failed_upserts", report.FailedUpserts,
		"duration_ms", report.DurationMs,
	)
	return report, nil
}

func (s *ChallengeSyncService) syncPlayers(ctx context.Context, runID string, docs []ExternalPlayer) (invalid int, failed int, synced int, err error) {
	if len(docs) == 0 {
		return 0, 0, 0, nil
	}

	players := make([]player.Player, 0, len(docs))
	for _, doc := range docs {
		item, mapErr := mapExternalPlayer(doc)
		if mapErr != nil {
			invalid++
			s.logger.WarnContext(ctx, "skip invalid player document",
				"run_id", runID,
				"player_id", doc.ID,
				"error", mapErr.Error(),
			)
			continue
		}
		players = append(players, item)
	}
	if len(players) == 0 {
		return invalid, 0, 0, nil
	}

	pool, err := ants.NewPool(normalizeScoringWorkerCount(len(players)))
	if err != nil {
		return invalid, 0, 0, fmt.Errorf("create sync worker pool: %w", err)
	}
	defer pool.Release()

	var failedCount atomic.Int32
	var syncedCount atomic.Int32

	var workers sync.WaitGroup
	for _, item := range players {
		item := item
		workers.Add(1)
		if submitErr := pool.Submit(func() {
			defer workers.Done()
			if upsertErr := s.playerRepo.Upsert(ctx, item); upsertErr != nil {
				failedCount.Add(1)
				s.logger.ErrorContext(ctx, "upsert player document",
					"run_id", runID,
					"player_id", item.ID,
					"error", upsertErr.Error(),
				)
				return
			}
			syncedCount.Add(1)
		}); submitErr != nil {
			workers.Done()
			return invalid, int(failedCount.Load()), int(syncedCount.Load()), fmt.Errorf("submit player upsert: %w", submitErr)
		}
	}
	workers.Wait()

	return invalid, int(failedCount.Load()), int(syncedCount.Load()), nil
}

// mapExternalChallenge validates one upstream challenge document. Unknown
// type or cup values reject the document; there is no fallback cup.
func mapExternalChallenge(doc ExternalChallenge) (challenge.Challenge, error) {
	parsedType, err := challenge.ParseType(strings.TrimSpace(doc.Type))
	if err != nil {
		return challenge.Challenge{}, err
	}
	cup, err := challenge.ParseCup(strings.TrimSpace(doc.CurrentCup))
	if err != nil {
		return challenge.Challenge{}, err
	}

	item := challenge.Challenge{
		ID:         strings.TrimSpace(doc.ID),
		Name:       strings.TrimSpace(doc.Name),
		Season:     strings.TrimSpace(doc.Season),
		Type:       parsedType,
		Set:        doc.Set,
		CurrentCup: cup,
		EndDate:    doc.EndDate.UTC(),
		Settings: challenge.SlotSettings{
			CaptainSlots: doc.CaptainSlots,
			NASlots:      doc.NASlots,
			BRLatamSlots: doc.BRLatamSlots,
			FlexSlots:    doc.FlexSlots,
		},
	}
	if err := item.Validate(); err != nil {
		return challenge.Challenge{}, err
	}
	return item, nil
}

func mapExternalPlayer(doc ExternalPlayer) (player.Player, error) {
	region, err := player.ParseRegion(strings.TrimSpace(doc.Region))
	if err != nil {
		return player.Player{}, err
	}

	var scores map[challenge.CupKey]float64
	if len(doc.CupScores) > 0 {
		scores = make(map[challenge.CupKey]float64, len(doc.CupScores))
		for rawCup, points := range doc.CupScores {
			cup, cupErr := challenge.ParseCup(strings.TrimSpace(rawCup))
			if cupErr != nil {
				return player.Player{}, cupErr
			}
			scores[cup] = points
		}
	}

	var regionals *player.RegionalsResult
	if doc.Regionals != nil {
		regionals = &player.RegionalsResult{Qualified: doc.Regionals.Qualified}
		if doc.Regionals.Placement != nil {
			placement := *doc.Regionals.Placement
			regionals.Placement = &placement
		}
	}

	item := player.Player{
		ID:        strings.TrimSpace(doc.ID),
		Name:      strings.TrimSpace(doc.Name),
		Region:    region,
		Set:       doc.Set,
		Scores:    scores,
		Regionals: regionals,
	}
	if err := item.Validate(); err != nil {
		return player.Player{}, err
	}
	return item, nil
}
