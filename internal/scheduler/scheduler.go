package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crucial707/risk-watch/internal/metrics"
	"github.com/crucial707/risk-watch/internal/models"
	"github.com/crucial707/risk-watch/internal/monitor"
	"github.com/crucial707/risk-watch/internal/repo"
	"github.com/crucial707/risk-watch/internal/risk"
	"github.com/robfig/cron/v3"
)

// ErrCheckInFlight is returned when a check is requested for a target whose
// run lease is already held.
var ErrCheckInFlight = errors.New("a check for this target is already running")

// sweepBatchSize caps how many due targets one sweep picks up.
const sweepBatchSize = 100

// Scheduler owns every monitored target's next-check time. A cron tick
// sweeps due targets from the DB and hands them to a bounded worker pool;
// each worker takes the target's run lease before touching its state, so at
// most one check per target is ever in flight.
type Scheduler struct {
	Targets *repo.TargetRepo
	Cache   *repo.AssessmentCacheRepo
	Monitor *monitor.Monitor

	// Workers is the pool size (default 4).
	Workers int
	// PollEvery is the sweep cadence (default 1m).
	PollEvery time.Duration
	// AccelerateOnAlert shortens the recheck interval to a quarter after a
	// critical finding. Off by default: the cadence stays unchanged.
	AccelerateOnAlert bool

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time

	cron   *cron.Cron
	tasks  chan models.Target
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return 4
}

// Start launches the worker pool and the periodic sweep. Call Stop to shut
// down.
func (s *Scheduler) Start() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.tasks = make(chan models.Target, sweepBatchSize)

	for i := 0; i < s.workers(); i++ {
		s.wg.Add(1)
		go s.worker()
	}

	poll := s.PollEvery
	if poll <= 0 {
		poll = time.Minute
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", poll), s.sweep); err != nil {
		// The expression is built from a duration and cannot be invalid.
		slog.Error("scheduler: add sweep", "error", err)
		return
	}
	s.cron.Start()
	slog.Info("scheduler started", "workers", s.workers(), "poll", poll.String())
}

// Stop halts the sweep, waits for an in-flight sweep to finish, and returns
// once every worker has exited. The cron wait must come before the task
// channel closes, or a sweep mid-enqueue would send on a closed channel.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	close(s.tasks)
	s.wg.Wait()
	slog.Info("scheduler stopped")
}

// sweep loads due targets and queues them. It also purges expired
// verification cache rows while it is here.
func (s *Scheduler) sweep() {
	ctx := s.ctx
	now := s.now()

	if s.Cache != nil {
		if n, err := s.Cache.PurgeExpired(ctx, now); err != nil {
			slog.Warn("scheduler: purge assessment cache", "error", err)
		} else if n > 0 {
			slog.Debug("scheduler: purged expired assessments", "count", n)
		}
	}

	due, err := s.Targets.Due(ctx, now, sweepBatchSize)
	if err != nil {
		slog.Error("scheduler: list due targets", "error", err)
		return
	}
	for _, t := range due {
		select {
		case s.tasks <- t:
		case <-ctx.Done():
			return
		default:
			// Queue full; the next sweep picks the target up again.
			slog.Warn("scheduler: task queue full, deferring target", "identifier", t.Identifier)
			return
		}
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for t := range s.tasks {
		if s.ctx.Err() != nil {
			return
		}
		if err := s.runWithLease(s.ctx, &t); err != nil && !errors.Is(err, ErrCheckInFlight) {
			slog.Error("scheduler: check failed", "identifier", t.Identifier, "error", err)
		}
	}
}

// TriggerCheck runs an immediate manual check for a target. When the lease
// is already held the claim is retried once, then ErrCheckInFlight is
// surfaced; a manual trigger never runs concurrently with a scheduled one.
func (s *Scheduler) TriggerCheck(ctx context.Context, target *models.Target) (*monitor.CheckResult, error) {
	ok, err := s.Targets.Claim(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("claim target: %w", err)
	}
	if !ok {
		ok, err = s.Targets.Claim(ctx, target.ID)
		if err != nil {
			return nil, fmt.Errorf("claim target (retry): %w", err)
		}
		if !ok {
			return nil, ErrCheckInFlight
		}
	}
	return s.runChecked(ctx, target)
}

// runWithLease is the scheduled path: losing the claim just means another
// run got there first.
func (s *Scheduler) runWithLease(ctx context.Context, target *models.Target) error {
	ok, err := s.Targets.Claim(ctx, target.ID)
	if err != nil {
		return fmt.Errorf("claim target: %w", err)
	}
	if !ok {
		return ErrCheckInFlight
	}
	_, err = s.runChecked(ctx, target)
	return err
}

// runChecked performs one check while holding the lease and always releases
// it by writing a terminal status. A collector failure marks the target
// error but keeps its schedule alive: next_check_at advances by the normal
// interval either way.
func (s *Scheduler) runChecked(ctx context.Context, target *models.Target) (*monitor.CheckResult, error) {
	metrics.IncChecksRunning()
	defer metrics.DecChecksRunning()

	interval := models.CheckInterval(target.Frequency)
	result, err := s.Monitor.Check(ctx, target)
	checkedAt := s.now()

	if err != nil {
		if mErr := s.Targets.MarkError(ctx, target.ID, checkedAt, checkedAt.Add(interval)); mErr != nil {
			slog.Error("scheduler: release lease after failure", "identifier", target.Identifier, "error", mErr)
		}
		metrics.IncChecksTotal(models.StatusError)
		return nil, err
	}

	status := models.StatusActive
	next := checkedAt.Add(interval)
	if result.Assessment.Level == risk.LevelCritical {
		status = models.StatusAlerting
		if s.AccelerateOnAlert {
			next = checkedAt.Add(interval / 4)
		}
	}

	if err := s.Targets.FinishCheck(ctx, target.ID, status, result.Assessment.Score, checkedAt, next); err != nil {
		return result, fmt.Errorf("finish check: %w", err)
	}
	metrics.IncChecksTotal(status)

	slog.Info("target checked",
		"identifier", target.Identifier,
		"score", result.Assessment.Score,
		"level", result.Assessment.Level,
		"alerts", result.AlertsCreated,
		"next_check_at", next)
	return result, nil
}
