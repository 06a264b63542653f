package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
	"github.com/daybook-app/daybook-core/internal/core/ports/driving"
)

// Scheduler runs periodic background syncs for every connected account.
// It runs on worker nodes; a distributed lock keeps multiple workers from
// sweeping at the same time.
type Scheduler struct {
	accounts driven.CalendarAccountStore
	syncer   driving.SyncService
	lock     driven.DistributedLock
	logger   *slog.Logger

	spec    string
	lockTTL time.Duration
	cron    *cron.Cron
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Accounts driven.CalendarAccountStore
	Syncer   driving.SyncService
	Lock     driven.DistributedLock
	Logger   *slog.Logger

	// CronSpec is the sweep schedule (default: every 15 minutes).
	CronSpec string

	// LockTTL is the TTL for the sweep lock (default: 10 minutes).
	LockTTL time.Duration
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	spec := cfg.CronSpec
	if spec == "" {
		spec = "*/15 * * * *"
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 10 * time.Minute
	}

	return &Scheduler{
		accounts: cfg.Accounts,
		syncer:   cfg.Syncer,
		lock:     cfg.Lock,
		logger:   logger,
		spec:     spec,
		lockTTL:  lockTTL,
	}
}

// Start begins the periodic sweep. It returns immediately; sweeps run on
// the cron goroutine until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() { s.sweep(ctx) }); err != nil {
		return err
	}
	s.cron = c
	c.Start()

	s.logger.Info("sync scheduler starting", "schedule", s.spec)
	return nil
}

// Stop halts the sweep schedule and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.logger.Info("sync scheduler stopped")
}

// sweep syncs every connected account once.
func (s *Scheduler) sweep(ctx context.Context) {
	acquired, err := s.lock.Acquire(ctx, "scheduler:sweep", s.lockTTL)
	if err != nil {
		s.logger.Warn("sweep lock error", "error", err)
		return
	}
	if !acquired {
		s.logger.Debug("sweep already running on another instance")
		return
	}
	defer func() {
		if err := s.lock.Release(ctx, "scheduler:sweep"); err != nil {
			s.logger.Warn("failed to release sweep lock", "error", err)
		}
	}()

	accounts, err := s.accounts.ListAuthorized(ctx)
	if err != nil {
		s.logger.Error("failed to list connected accounts", "error", err)
		return
	}

	s.logger.Info("sync sweep starting", "accounts", len(accounts))

	for _, account := range accounts {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := s.syncer.Sync(ctx, account.UserID, domain.SyncOptions{})
		switch {
		case errors.Is(err, domain.ErrSyncInProgress):
			// A manual sync for this user is running; skip this round.
			continue
		case errors.Is(err, domain.ErrReauthorizationRequired):
			s.logger.Info("skipping account pending reauthorization", "user_id", account.UserID)
			continue
		case err != nil:
			s.logger.Warn("background sync failed", "user_id", account.UserID, "error", err)
			continue
		}

		if !result.Success {
			s.logger.Warn("background sync unsuccessful",
				"user_id", account.UserID,
				"failed_calendars", result.FailedCalendars)
		}
	}
}
