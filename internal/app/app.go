package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sourcegraph/conc"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/rosterlab/perfect-roster/external/docstore"
	"github.com/rosterlab/perfect-roster/external/doorman"
	"github.com/rosterlab/perfect-roster/external/jobqueue"
	"github.com/rosterlab/perfect-roster/internal/config"
	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/jobscheduler"
	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
	cacherepo "github.com/rosterlab/perfect-roster/internal/infrastructure/repository/cache"
	"github.com/rosterlab/perfect-roster/internal/infrastructure/repository/memory"
	"github.com/rosterlab/perfect-roster/internal/infrastructure/repository/postgres"
	"github.com/rosterlab/perfect-roster/internal/interfaces/httpapi"
	basecache "github.com/rosterlab/perfect-roster/internal/platform/cache"
	idgen "github.com/rosterlab/perfect-roster/internal/platform/id"
	"github.com/rosterlab/perfect-roster/internal/platform/logging"
	"github.com/rosterlab/perfect-roster/internal/platform/resilience"
	"github.com/rosterlab/perfect-roster/internal/usecase"
)

// App is the wired service: the HTTP server plus the background loops that
// keep the job chain armed and derived views fresh. Build it with New, call
// Start once, serve App.Server, and stop everything through Shutdown.
type App struct {
	Server *http.Server

	cfg          config.Config
	logger       *logging.Logger
	db           *sqlx.DB
	orchestrator *usecase.JobOrchestratorService
	viewsService *usecase.DerivedViewsService
	entryFeed    usecase.EntryFeed

	background     conc.WaitGroup
	stopBackground context.CancelFunc
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	a := &App{cfg: cfg, logger: logger}

	challengeRepo, playerRepo, lineupRepo, dispatchRepo, err := a.buildRepositories(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		challengeRepo = cacherepo.NewChallengeRepository(challengeRepo, store)
		playerRepo = cacherepo.NewPlayerRepository(playerRepo, store)
		lineupRepo = cacherepo.NewLineupRepository(lineupRepo, store)
	}

	challengeService := usecase.NewChallengeService(challengeRepo)
	playerService := usecase.NewPlayerService(challengeRepo, playerRepo)
	lineupService := usecase.NewLineupService(challengeRepo, playerRepo, lineupRepo)
	scoringService := usecase.NewScoringService(challengeRepo, playerRepo, lineupRepo, logger.Slog())
	viewsService := usecase.NewDerivedViewsService(challengeRepo, playerRepo, lineupRepo, logger)
	a.viewsService = viewsService

	var provider usecase.ChallengeDataProvider
	var docstoreClient *docstore.Client
	if strings.TrimSpace(cfg.DocstoreBaseURL) != "" {
		docstoreClient = docstore.NewClient(docstore.ClientConfig{
			BaseURL:    cfg.DocstoreBaseURL,
			APIKey:     cfg.DocstoreAPIKey,
			Timeout:    cfg.DocstoreTimeout,
			PollWait:   cfg.DocstorePollWait,
			MaxRetries: cfg.DocstoreMaxRetries,
			Logger:     logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.DocstoreCircuitEnabled,
				FailureThreshold: cfg.DocstoreCircuitFailureCount,
				OpenTimeout:      cfg.DocstoreCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.DocstoreCircuitHalfOpenMaxReq,
			},
		})
		provider = docstoreClient
	}

	syncService := usecase.NewChallengeSyncService(
		provider,
		challengeRepo,
		playerRepo,
		idgen.NewPrefixedGenerator("sync"),
		usecase.ChallengeSyncConfig{Enabled: cfg.RosterSyncEnabled},
		logger,
	)
	syncService.SetViewsRefresher(viewsService)

	if cfg.EntryFeedEnabled && docstoreClient != nil {
		a.entryFeed = docstoreClient
	}

	verifier := doorman.NewClient(doorman.ClientConfig{
		BaseURL:        cfg.DoormanBaseURL,
		IntrospectPath: cfg.DoormanIntrospectPath,
		Timeout:        cfg.DoormanTimeout,
		CacheTTL:       cfg.DoormanCacheTTL,
		CacheMaxSize:   cfg.DoormanCacheMaxSize,
		Logger:         logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.DoormanCircuitEnabled,
			FailureThreshold: cfg.DoormanCircuitFailureCount,
			OpenTimeout:      cfg.DoormanCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.DoormanCircuitHalfOpenMaxReq,
		},
	})

	var publisher *jobqueue.QStashPublisher
	if cfg.QStashEnabled {
		publisher = jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			Logger:           logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.QStashCircuitEnabled,
				FailureThreshold: cfg.QStashCircuitFailureCount,
				OpenTimeout:      cfg.QStashCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
			},
		})
		a.orchestrator = usecase.NewJobOrchestratorService(
			challengeRepo,
			publisher,
			dispatchRepo,
			usecase.JobOrchestratorConfig{
				// Sync jobs need a configured upstream or every delivery 503s.
				SyncEnabled:       cfg.RosterSyncEnabled && docstoreClient != nil,
				SyncInterval:      cfg.JobSyncInterval,
				RecomputeInterval: cfg.JobRecomputeInterval,
				PreDeadlineLead:   cfg.JobPreDeadlineLead,
			},
			logger,
		)
	}

	readiness := make([]httpapi.ReadinessCheck, 0, 4)
	if a.db != nil {
		db := a.db
		readiness = append(readiness, httpapi.ReadinessCheck{
			Name: "database",
			Probe: func(ctx context.Context) error {
				return db.PingContext(ctx)
			},
		})
	}
	readiness = append(readiness, circuitCheck("doorman", verifier.CircuitSnapshot))
	if docstoreClient != nil {
		readiness = append(readiness, circuitCheck("docstore", docstoreClient.CircuitSnapshot))
	}
	if publisher != nil {
		readiness = append(readiness, circuitCheck("qstash", publisher.CircuitSnapshot))
	}

	handler := httpapi.NewHandler(
		challengeService,
		playerService,
		lineupService,
		scoringService,
		viewsService,
		syncService,
		readiness,
		logger,
	)
	if a.orchestrator != nil {
		handler.SetJobScheduler(a.orchestrator)
	}
	handler.SetJobDispatchRepository(dispatchRepo)

	router := httpapi.NewRouter(handler, verifier, logger.Slog(), cfg.SwaggerEnabled, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	a.Server = server
	return a, nil
}

func (a *App) buildRepositories(ctx context.Context) (challenge.Repository, player.Repository, lineup.Repository, jobscheduler.Repository, error) {
	if a.cfg.StorageDriver == config.StorageDriverMemory {
		a.logger.Info("using in-memory storage with seeded fixtures", "storage_driver", a.cfg.StorageDriver)
		return memory.NewChallengeRepository(memory.SeedChallenges()),
			memory.NewPlayerRepository(memory.SeedPlayers()),
			memory.NewLineupRepository(),
			memory.NewJobDispatchRepository(),
			nil
	}

	db, err := a.openDatabase(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	a.db = db

	return postgres.NewChallengeRepository(db),
		postgres.NewPlayerRepository(db),
		postgres.NewLineupRepository(db),
		postgres.NewJobDispatchRepository(db),
		nil
}

func (a *App) openDatabase(ctx context.Context) (*sqlx.DB, error) {
	dsn := strings.TrimSpace(a.cfg.DBURL)
	if dsn == "" {
		return nil, fmt.Errorf("DB_URL is required when STORAGE_DRIVER=%s", a.cfg.StorageDriver)
	}
	dsn = normalizeDBURL(dsn, a.cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.ConnectContext(ctx, "postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Prod data comes from migrations plus the roster sync; seeded
	// fixtures are for local stacks that start against an empty schema.
	if a.cfg.AppEnv != config.EnvProd {
		if err := postgres.BootstrapSeed(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap seed: %w", err)
		}
	}

	return db, nil
}

// circuitCheck reports a dependency as not ready while its breaker is open.
// Half-open circuits pass so recovery probes are not starved.
func circuitCheck(name string, snapshot func() resilience.CircuitSnapshot) httpapi.ReadinessCheck {
	return httpapi.ReadinessCheck{
		Name: name,
		Probe: func(context.Context) error {
			snap := snapshot()
			if snap.State == resilience.CircuitStateOpen {
				return fmt.Errorf("circuit open after %d consecutive failures", snap.ConsecutiveFailures)
			}
			return nil
		},
	}
}

// Start launches the background loops. The job chain bootstrap queues the
// first deliveries; the entry feed keeps leaderboards fresh between
// recompute passes. Call it once, after New.
func (a *App) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	a.stopBackground = cancel

	if a.orchestrator != nil {
		a.background.Go(func() {
			result, err := a.orchestrator.Bootstrap(runCtx)
			if err != nil {
				a.logger.ErrorContext(runCtx, "job chain bootstrap failed", "error", err)
				return
			}
			a.logger.InfoContext(runCtx, "job chain bootstrapped",
				"mode", result.Mode,
				"queued", result.QueuedCount,
				"open_challenges", result.OpenChallengeCount,
			)
		})
	}

	if a.entryFeed != nil {
		a.background.Go(func() {
			if err := a.viewsService.RunEntryFeed(runCtx, a.entryFeed); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.ErrorContext(runCtx, "entry feed stopped", "error", err)
			}
		})
	}
}

// Shutdown drains the HTTP server, stops the background loops, and closes
// the database pool.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("shutdown http server: %w", err)
		}
	}

	if a.stopBackground != nil {
		a.stopBackground()
	}
	a.background.Wait()

	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close database pool: %w", err)
		}
	}

	return firstErr
}
