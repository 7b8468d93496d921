package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
	"github.com/rosterlab/perfect-roster/internal/platform/cache"
	"github.com/rosterlab/perfect-roster/internal/platform/logging"
	"github.com/rosterlab/perfect-roster/internal/platform/resilience"
)

const (
	defaultDerivedEnsureInterval = 30 * time.Second
	defaultDerivedViewsTTL       = 5 * time.Minute

	// Entry scoring fans out on a worker pool once a snapshot carries at
	// least this many entries.
	derivedParallelThreshold = 64
	maxDerivedScoringWorkers = 8
)

const (
	recomputeStatusSuccess = "success"
	recomputeStatusFailed  = "failed"
)

// Snapshot is a point-in-time copy of the inputs the derived views are
// computed from. Recompute reads nothing outside the snapshot, so the same
// snapshot always yields the same views.
type Snapshot struct {
	Challenge challenge.Challenge
	Players   []player.Player
	Entries   []lineup.Lineup
}

// NewSnapshot validates the challenge configuration before anything is
// computed from it. A snapshot that exists is always safe to recompute.
func NewSnapshot(item challenge.Challenge, players []player.Player, entries []lineup.Lineup) (Snapshot, error) {
	if err := item.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("challenge %s config: %w", item.ID, err)
	}
	return Snapshot{Challenge: item, Players: players, Entries: entries}, nil
}

// DerivedViews bundles every display-ready view computed from one snapshot.
type DerivedViews struct {
	ChallengeID string
	EntryCount  int
	Standings   []Standing
	Perfect     OptimalLineup
	Popular     PopularLineup
	ComputedAt  time.Time
}

// EntryChange signals that stored entries or player data for a challenge
// moved upstream.
type EntryChange struct {
	ChallengeID string
}

// EntryFeed is a long-lived subscription to entry change notifications.
type EntryFeed interface {
	Changes(ctx context.Context) (<-chan EntryChange, error)
}

// RecomputeRow reports the outcome of one challenge inside a bulk recompute.
type RecomputeRow struct {
	ChallengeID string
	EntryCount  int
	Status      string
	Message     string
	DurationMs  int64
}

// RecomputeReport summarizes a bulk recompute run.
type RecomputeReport struct {
	Challenges int
	Succeeded  int
	Failed     int
	Rows       []RecomputeRow
}

// DerivedViewsService keeps per-challenge leaderboards, perfect rosters, and
// popularity aggregates warm. Reads go through an in-process cache; refreshes
// collapse through a singleflight group and are throttled per challenge.
type DerivedViewsService struct {
	challengeRepo challenge.Repository
	playerRepo    player.Repository
	lineupRepo    lineup.Repository
	views         *cache.Store
	logger        *logging.Logger
	now           func() time.Time

	refreshFlight  resilience.SingleFlight
	ensureMu       sync.Mutex
	lastEnsureAt   map[string]time.Time
	ensureInterval time.Duration
}

func NewDerivedViewsService(
	challengeRepo challenge.Repository,
	playerRepo player.Repository,
	lineupRepo lineup.Repository,
	logger *logging.Logger,
) *DerivedViewsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &DerivedViewsService{
		challengeRepo:  challengeRepo,
		playerRepo:     playerRepo,
		lineupRepo:     lineupRepo,
		views:          cache.NewStore(defaultDerivedViewsTTL),
		logger:         logger,
		now:            time.Now,
		lastEnsureAt:   make(map[string]time.Time),
		ensureInterval: defaultDerivedEnsureInterval,
	}
}

// Recompute rebuilds all derived views from the snapshot. It is a pure
// function: no repositories, no clock. ComputedAt is stamped by whoever
// stores the result.
func Recompute(snap Snapshot) DerivedViews {
	pool := playersByID(snap.Players)
	scores := scoreSnapshotEntries(snap, pool)
	return DerivedViews{
		ChallengeID: snap.Challenge.ID,
		EntryCount:  len(snap.Entries),
		Standings:   rankScored(snap.Entries, scores),
		Perfect:     deriveOptimalLineup(snap.Players, snap.Challenge.Settings, snap.Challenge.Type, snap.Challenge.CurrentCup),
		Popular:     aggregatePopularity(snap.Entries, pool, snap.Challenge.Settings),
	}
}

// Leaderboard serves the ranked standings for a challenge, refreshing the
// cached views first when they are cold or stale. The position label is
// personalized per caller and never cached.
func (s *DerivedViewsService) Leaderboard(ctx context.Context, challengeID, targetUserID string) (Leaderboard, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DerivedViewsService.Leaderboard")
	defer span.End()

	views, err := s.challengeViews(ctx, challengeID)
	if err != nil {
		return Leaderboard{}, err
	}
	return Leaderboard{
		ChallengeID:   views.ChallengeID,
		EntryCount:    views.EntryCount,
		Standings:     views.Standings,
		PositionLabel: positionLabel(views.Standings, strings.TrimSpace(targetUserID)),
	}, nil
}

// PerfectRoster serves the highest-scoring roster buildable from the full
// player pool under the challenge's slot settings.
func (s *DerivedViewsService) PerfectRoster(ctx context.Context, challengeID string) (OptimalLineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DerivedViewsService.PerfectRoster")
	defer span.End()

	views, err := s.challengeViews(ctx, challengeID)
	if err != nil {
		return OptimalLineup{}, err
	}
	return views.Perfect, nil
}

// PopularRoster serves pick and captain rates aggregated across all entries.
func (s *DerivedViewsService) PopularRoster(ctx context.Context, challengeID string) (PopularLineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DerivedViewsService.PopularRoster")
	defer span.End()

	views, err := s.challengeViews(ctx, challengeID)
	if err != nil {
		return PopularLineup{}, err
	}
	return views.Popular, nil
}

// EnsureChallengeUpToDate recomputes and caches the views for one challenge.
// Repeated calls inside the ensure interval are no-ops unless force is set;
// concurrent refreshes for the same challenge collapse into one snapshot
// build.
func (s *DerivedViewsService) EnsureChallengeUpToDate(ctx context.Context, challengeID string, force bool) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.DerivedViewsService.EnsureChallengeUpToDate")
	defer span.End()

	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return fmt.Errorf("%w: challenge id is required", ErrInvalidInput)
	}
	if !force && s.shouldSkipEnsure(challengeID, s.now().UTC()) {
		return nil
	}
	_, err := s.refreshShared(ctx, challengeID)
	return err
}

// InvalidateChallenge drops the cached views and the ensure timestamp so the
// next read recomputes from a fresh snapshot.
func (s *DerivedViewsService) InvalidateChallenge(ctx context.Context, challengeID string) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return
	}
	s.views.Delete(ctx, derivedViewsKey(challengeID))
	s.refreshFlight.Forget(derivedRefreshKey(challengeID))
	s.ensureMu.Lock()
	delete(s.lastEnsureAt, challengeID)
	s.ensureMu.Unlock()
}

// RecomputeAll force-refreshes every known challenge on a worker pool and
// reports the per-challenge outcomes. Backs the internal recompute job.
func (s *DerivedViewsService) RecomputeAll(ctx context.Context) (RecomputeReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DerivedViewsService.RecomputeAll")
	defer span.End()

	items, err := s.challengeRepo.List(ctx)
	if err != nil {
		return RecomputeReport{}, fmt.Errorf("list challenges for recompute: %w", err)
	}
	report := RecomputeReport{Challenges: len(items)}
	if len(items) == 0 {
		return report, nil
	}

	results := make(chan RecomputeRow, len(items))

	var succeeded atomic.Int32
	var failed atomic.Int32

	pool, err := ants.NewPool(normalizeScoringWorkerCount(len(items)))
	if err != nil {
		return RecomputeReport{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, item := range items {
		item := item
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := RecomputeRow{ChallengeID: item.ID}

			views, refreshErr := s.refreshShared(ctx, item.ID)
			if refreshErr != nil {
				row.Status = recomputeStatusFailed
				row.Message = refreshErr.Error()
				failed.Add(1)
			} else {
				row.Status = recomputeStatusSuccess
				row.EntryCount = views.EntryCount
				succeeded.Add(1)
			}
			row.DurationMs = time.Since(start).Milliseconds()

			results <- row
		}); err != nil {
			workers.Done()
			return RecomputeReport{}, fmt.Errorf("submit recompute task: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		report.Rows = append(report.Rows, row)
	}
	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].ChallengeID < report.Rows[j].ChallengeID
	})
	report.Succeeded = int(succeeded.Load())
	report.Failed = int(failed.Load())
	return report, nil
}

// RecomputeOne force-refreshes a single challenge and reports it in the same
// shape as a bulk run. Unlike RecomputeAll, a refresh failure is returned as
// an error so callers can distinguish an unknown challenge from a degraded
// bulk pass.
func (s *DerivedViewsService) RecomputeOne(ctx context.Context, challengeID string) (RecomputeReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DerivedViewsService.RecomputeOne")
	defer span.End()

	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return RecomputeReport{}, fmt.Errorf("%w: challenge id is required", ErrInvalidInput)
	}

	start := time.Now()
	views, err := s.refreshShared(ctx, challengeID)
	if err != nil {
		return RecomputeReport{}, err
	}

	return RecomputeReport{
		Challenges: 1,
		Succeeded:  1,
		Rows: []RecomputeRow{{
			ChallengeID: challengeID,
			EntryCount:  views.EntryCount,
			Status:      recomputeStatusSuccess,
			DurationMs:  time.Since(start).Milliseconds(),
		}},
	}, nil
}

// RunEntryFeed consumes change notifications until the context ends and
// force-refreshes the touched challenges. Callers run it once at startup.
func (s *DerivedViewsService) RunEntryFeed(ctx context.Context, feed EntryFeed) error {
	changes, err := feed.Changes(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to entry changes: %w", err)
	}

	var handlers conc.WaitGroup
	defer handlers.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			challengeID := strings.TrimSpace(change.ChallengeID)
			if challengeID == "" {
				continue
			}
			handlers.Go(func() {
				if err := s.EnsureChallengeUpToDate(ctx, challengeID, true); err != nil {
					s.logger.ErrorContext(ctx, "refresh derived views from entry feed",
						"challenge_id", challengeID,
						"error", err.Error(),
					)
				}
			})
		}
	}
}

// challengeViews returns the cached views after a staleness check, rebuilding
// them when the cache entry expired between the check and the read.
func (s *DerivedViewsService) challengeViews(ctx context.Context, challengeID string) (DerivedViews, error) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return DerivedViews{}, fmt.Errorf("%w: challenge id is required", ErrInvalidInput)
	}

	if !s.shouldSkipEnsure(challengeID, s.now().UTC()) {
		if _, err := s.refreshShared(ctx, challengeID); err != nil {
			return DerivedViews{}, err
		}
	}
	if cached, ok := s.views.Get(ctx, derivedViewsKey(challengeID)); ok {
		if views, valid := cached.(DerivedViews); valid {
			return views, nil
		}
	}
	return s.refreshShared(ctx, challengeID)
}

// refreshShared rebuilds the views for one challenge. Concurrent callers for
// the same challenge share a single snapshot build and its result.
func (s *DerivedViewsService) refreshShared(ctx context.Context, challengeID string) (DerivedViews, error) {
	val, err, _ := s.refreshFlight.Do(derivedRefreshKey(challengeID), func() (any, error) {
		runNow := s.now().UTC()
		snap, snapErr := s.loadSnapshot(ctx, challengeID)
		if snapErr != nil {
			return nil, snapErr
		}
		views := Recompute(snap)
		views.ComputedAt = runNow
		s.views.Set(ctx, derivedViewsKey(challengeID), views)
		s.markEnsure(challengeID, runNow)
		return views, nil
	})
	if err != nil {
		return DerivedViews{}, err
	}
	views, _ := val.(DerivedViews)
	return views, nil
}

func (s *DerivedViewsService) loadSnapshot(ctx context.Context, challengeID string) (Snapshot, error) {
	item, err := loadChallenge(ctx, s.challengeRepo, challengeID)
	if err != nil {
		return Snapshot{}, err
	}
	players, err := s.playerRepo.ListBySet(ctx, item.Set)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list players for challenge %s: %w", challengeID, err)
	}
	entries, err := s.lineupRepo.ListByChallenge(ctx, challengeID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list entries for challenge %s: %w", challengeID, err)
	}
	return NewSnapshot(item, players, entries)
}

func (s *DerivedViewsService) shouldSkipEnsure(challengeID string, now time.Time) bool {
	if s.ensureInterval <= 0 || challengeID == "" {
		return false
	}
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	last, ok := s.lastEnsureAt[challengeID]
	if !ok {
		return false
	}
	return now.Sub(last) < s.ensureInterval
}

func (s *DerivedViewsService) markEnsure(challengeID string, now time.Time) {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	s.lastEnsureAt[challengeID] = now
}

// scoreSnapshotEntries totals every entry in the snapshot. Entries are scored
// independently, so large snapshots fan out on a worker pool; the result
// slice is indexed by entry position either way.
func scoreSnapshotEntries(snap Snapshot, pool map[string]player.Player) []float64 {
	scores := make([]float64, len(snap.Entries))
	if len(snap.Entries) < derivedParallelThreshold {
		for idx, entry := range snap.Entries {
			scores[idx] = scoreLineup(entry, pool, snap.Challenge.Type, snap.Challenge.CurrentCup).Total
		}
		return scores
	}

	workers, err := ants.NewPool(normalizeScoringWorkerCount(len(snap.Entries)))
	if err != nil {
		for idx, entry := range snap.Entries {
			scores[idx] = scoreLineup(entry, pool, snap.Challenge.Type, snap.Challenge.CurrentCup).Total
		}
		return scores
	}
	defer workers.Release()

	var wg sync.WaitGroup
	for idx := range snap.Entries {
		idx := idx
		wg.Add(1)
		if err := workers.Submit(func() {
			defer wg.Done()
			scores[idx] = scoreLineup(snap.Entries[idx], pool, snap.Challenge.Type, snap.Challenge.CurrentCup).Total
		}); err != nil {
			wg.Done()
			scores[idx] = scoreLineup(snap.Entries[idx], pool, snap.Challenge.Type, snap.Challenge.CurrentCup).Total
		}
	}
	wg.Wait()
	return scores
}

func normalizeScoringWorkerCount(taskCount int) int {
	if taskCount <= 0 {
		return 1
	}
	count := maxDerivedScoringWorkers
	if count > taskCount {
		count = taskCount
	}
	return count
}

func derivedViewsKey(challengeID string) string {
	return "derived:" + challengeID
}

func derivedRefreshKey(challengeID string) string {
	return "derived:refresh:" + challengeID
}
