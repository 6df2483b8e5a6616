package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/crucial707/risk-watch/internal/batch"
	"github.com/crucial707/risk-watch/internal/collectors"
	"github.com/crucial707/risk-watch/internal/config"
	"github.com/crucial707/risk-watch/internal/handlers"
	"github.com/crucial707/risk-watch/internal/middleware"
	"github.com/crucial707/risk-watch/internal/monitor"
	"github.com/crucial707/risk-watch/internal/repo"
	"github.com/crucial707/risk-watch/internal/scheduler"
)

// newCollector builds the evidence collector from configured source URLs.
// An empty URL disables that source; the built-in geo table and behavioral
// matcher are always on.
func newCollector(cfg config.Config) *collectors.Collector {
	c := &collectors.Collector{
		Geo:        collectors.DefaultGeoRiskTable(),
		Behavioral: collectors.NewBehavioralMatcher(),
		Limiter:    rate.NewLimiter(rate.Limit(cfg.CollectorRatePerSec), cfg.CollectorBurst),
		Timeout:    cfg.CollectorTimeout,
	}
	if cfg.CommunityURL != "" {
		c.Community = &collectors.HTTPCommunity{BaseURL: cfg.CommunityURL}
	}
	if cfg.ReputationURL != "" {
		c.Reputation = &collectors.HTTPReputation{BaseURL: cfg.ReputationURL}
	}
	if cfg.ProfileURL != "" {
		c.Profiles = &collectors.HTTPProfile{BaseURL: cfg.ProfileURL}
	}
	return c
}

// newRouter wires repositories, the scheduler, the batch orchestrator, and
// all HTTP handlers onto one chi router. The returned scheduler is not yet
// started; main starts and stops it around the server's lifetime.
func newRouter(database *sql.DB, cfg config.Config) (*chi.Mux, *scheduler.Scheduler) {
	targets := repo.NewTargetRepo(database)
	snapshots := repo.NewSnapshotRepo(database)
	alerts := repo.NewAlertRepo(database)
	jobs := repo.NewBatchJobRepo(database)
	cache := repo.NewAssessmentCacheRepo(database)

	collector := newCollector(cfg)

	mon := &monitor.Monitor{
		Snapshots:   snapshots,
		Alerts:      alerts,
		Collector:   collector,
		DedupWindow: cfg.AlertDedupWindow,
	}
	sched := &scheduler.Scheduler{
		Targets:           targets,
		Cache:             cache,
		Monitor:           mon,
		Workers:           cfg.SchedulerWorkers,
		PollEvery:         cfg.SchedulerPoll,
		AccelerateOnAlert: cfg.AccelerateOnAlert,
	}
	orch := &batch.Orchestrator{
		Jobs:         jobs,
		Collector:    collector,
		ItemEstimate: cfg.BatchItemEstimate,
	}

	watchlist := &handlers.WatchlistHandler{Targets: targets, Snapshots: snapshots, Scheduler: sched}
	alertH := &handlers.AlertHandler{Repo: alerts}
	batchH := &handlers.BatchHandler{Orchestrator: orch}
	verifyH := &handlers.VerifyHandler{Cache: cache, Collector: collector, TTL: cfg.VerifyCacheTTL}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIToken(cfg.APIToken))

		r.Post("/verify", verifyH.Verify)

		r.Route("/watchlist", func(r chi.Router) {
			r.Post("/", watchlist.Add)
			r.Get("/", watchlist.List)
			r.Delete("/{watchID}", watchlist.Remove)
			r.Get("/{watchID}/timeline", watchlist.Timeline)
			r.Post("/{watchID}/check", watchlist.Trigger)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", alertH.List)
			r.Post("/{id}/read", alertH.MarkRead)
			r.Post("/{id}/dismiss", alertH.Dismiss)
		})

		r.Route("/batch", func(r chi.Router) {
			r.Post("/", batchH.Create)
			r.Get("/{jobID}/status", batchH.Status)
			r.Get("/{jobID}/results", batchH.Results)
			r.Post("/{jobID}/cancel", batchH.Cancel)
		})
	})

	return r, sched
}
