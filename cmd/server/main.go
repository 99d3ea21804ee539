package main // Entry point package

import (
	"context" // Context for startup deadlines and shutdown
	"log"     // Logging library
	"os"      // Environment access for optional knobs
	"time"    // Durations for scheduler intervals

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/platformnet/bounty-ledger/internal/config"     // Internal config loader
	"github.com/platformnet/bounty-ledger/internal/consensus"  // Multi-observer vote coordination
	"github.com/platformnet/bounty-ledger/internal/database"   // MySQL pool + schema bootstrap
	"github.com/platformnet/bounty-ledger/internal/handler"    // HTTP handlers
	"github.com/platformnet/bounty-ledger/internal/middleware" // Cache + rate limit middleware
	"github.com/platformnet/bounty-ledger/internal/model"      // Ledger types
	"github.com/platformnet/bounty-ledger/internal/queue"      // Broker consumers
	"github.com/platformnet/bounty-ledger/internal/registry"   // Identity registry service
	"github.com/platformnet/bounty-ledger/internal/repository" // DB repositories
	"github.com/platformnet/bounty-ledger/internal/router"     // Route registration
	"github.com/platformnet/bounty-ledger/internal/scoring"    // Scoring engine + normalizer
	"github.com/platformnet/bounty-ledger/internal/syncer"     // Feed ingestion + scheduler
)

// committer adapts the item repository to the consensus commit hook.
type committer struct{ items *repository.ItemRepo }

func (c committer) Commit(ctx context.Context, scope model.Scope, itemID int64, class model.Classification) error {
	return c.items.SetClassification(ctx, scope, itemID, class, time.Now().UTC())
}

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load() // Load environment config

	// ---- Storage ----
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database open: %v", err)
	}
	defer db.Close()
	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		cancel()
		log.Fatalf("database migrate: %v", err)
	}
	cancel()

	rdb := config.NewRedisClient() // nil disables cache + rate limiting

	// ---- Repositories ----
	identities := repository.NewIdentityRepo(db)
	items := repository.NewItemRepo(db)
	stars := repository.NewStarRepo(db)
	bonuses := repository.NewBonusRepo(db)
	snapshots := repository.NewSnapshotRepo(db)
	activity := repository.NewActivityRepo(db)
	scopes := repository.NewScopeRepo(db)

	// ---- Services ----
	registrySvc := registry.NewService(identities)

	var source syncer.Source
	if feedURL := os.Getenv("FEED_URL"); feedURL != "" {
		source = syncer.NewHTTPSource(feedURL)
	}
	syncSvc := syncer.NewService(items, scopes, source)

	engine := scoring.NewEngine(activity, snapshots, scoring.Params{
		Formula:        scoring.FormulaVersion(cfg.FormulaVersion),
		WeightPerPoint: cfg.WeightPerPoint,
		Window:         time.Duration(cfg.WindowHours) * time.Hour,
	})
	mode := scoring.Mode(cfg.WeightMode)
	runner := handler.NewScoreRunner(engine, mode, time.Duration(cfg.EpochLengthMin)*time.Minute)

	// ---- Background workers ----
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	scheduler := syncer.NewScheduler(syncSvc, scopes,
		time.Duration(cfg.SyncIntervalMin)*time.Minute,
		time.Duration(cfg.ScoreIntervalMin)*time.Minute,
		runner.Run)
	go scheduler.Run(ctx)

	// Multi-observer deployments resolve item votes through the broker;
	// single-observer deployments skip the coordinator entirely.
	if len(cfg.Observers) > 0 {
		coord, err := consensus.New(cfg.Observers)
		if err != nil {
			log.Fatalf("consensus: %v", err)
		}
		proposals := consensus.NewProposalService(coord, committer{items: items})
		go func() {
			if err := queue.StartProposalConsumer(proposals); err != nil {
				log.Printf("proposal consumer stopped: %v", err)
			}
		}()
	}
	go func() {
		if err := queue.StartWeightsAuditConsumer(); err != nil {
			log.Printf("weights audit consumer stopped: %v", err)
		}
	}()

	// ---- HTTP ----
	e := echo.New()          // Create Echo instance
	router.RegisterRoutes(e) // Health check

	// Cache and rate limit the public read surface when Redis is up.
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterPublic(e, router.PublicHandlers{
		Register:    handler.NewRegisterHandler(registrySvc),
		Status:      handler.NewStatusHandler(identities, snapshots, stars, bonuses),
		Leaderboard: handler.NewLeaderboardHandler(snapshots),
		Weights:     handler.NewWeightsHandler(snapshots, mode),
	})
	router.RegisterAdmin(e, router.AdminHandlers{
		Auth:     handler.NewAdminAuthHandler(cfg),
		Bonus:    handler.NewAdminBonusHandler(bonuses, identities),
		Star:     handler.NewAdminStarHandler(stars),
		Override: handler.NewAdminOverrideHandler(syncSvc),
		Sync:     handler.NewAdminSyncHandler(syncSvc, scopes),
		Score:    handler.NewAdminScoreHandler(runner),
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
