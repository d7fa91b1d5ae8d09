// Package jobs runs periodic ledger maintenance.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/shared"
)

// BalanceUpdater recomputes cached balances; nil ids means every account
type BalanceUpdater interface {
	UpdateBalances(ctx context.Context, accountIDs []int64) (int, error)
}

// OutboxPurger removes outbox messages that were already published
type OutboxPurger interface {
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler wraps a seconds-precision UTC cron
type Scheduler struct {
	cron      *cron.Cron
	balances  BalanceUpdater
	outbox    OutboxPurger
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

const defaultJobTimeout = 10 * time.Minute

// NewScheduler registers the configured jobs. An empty spec disables a job.
func NewScheduler(cfg config.SchedulerConfig, balances BalanceUpdater, outbox OutboxPurger, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		balances:  balances,
		outbox:    outbox,
		retention: cfg.OutboxRetention,
		timeout:   defaultJobTimeout,
		now:       time.Now,
		logger:    logger,
	}

	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{name: "update_balances", spec: cfg.UpdateBalances, run: s.UpdateBalances},
		{name: "purge_outbox", spec: cfg.PurgeOutbox, run: s.PurgeOutbox},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			return nil, fmt.Errorf("failed to register %s job: %w", job.name, err)
		}
		logger.Info("Registered cron job", "job", job.name, "spec", job.spec)
	}

	return s, nil
}

// jobContext bounds a run and tags its logs with a fresh correlation id
func (s *Scheduler) jobContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	return shared.WithCorrelationID(ctx, uuid.NewString()), cancel
}

// UpdateBalances recomputes the balance cache for every account
func (s *Scheduler) UpdateBalances() {
	ctx, cancel := s.jobContext()
	defer cancel()

	start := time.Now()
	n, err := s.balances.UpdateBalances(ctx, nil)
	if err != nil {
		s.logger.Error("Scheduled balance update failed", "error", err, "correlation_id", shared.CorrelationIDFromContext(ctx))
		return
	}
	s.logger.Info("Scheduled balance update finished", "accounts", n, "duration", time.Since(start).String())
}

// PurgeOutbox deletes processed outbox messages older than the retention
func (s *Scheduler) PurgeOutbox() {
	if s.outbox == nil || s.retention <= 0 {
		return
	}
	ctx, cancel := s.jobContext()
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	n, err := s.outbox.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("Scheduled outbox purge failed", "error", err, "correlation_id", shared.CorrelationIDFromContext(ctx))
		return
	}
	s.logger.Info("Scheduled outbox purge finished", "deleted", n, "cutoff", cutoff)
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler", "jobs", s.Jobs())
	s.cron.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Cron scheduler stopped")
}
