package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
	"github.com/daybook-app/daybook-core/internal/core/ports/driving"
)

// Ensure syncService implements SyncService
var _ driving.SyncService = (*syncService)(nil)

const (
	// syncLockTTL bounds how long a crashed sync can block its user.
	syncLockTTL = 5 * time.Minute

	// Default window when the caller doesn't bound the sync.
	defaultWindowPast   = 30 * 24 * time.Hour
	defaultWindowFuture = 90 * 24 * time.Hour
)

// syncService pulls provider events into local storage. Syncs are
// idempotent: each provider event upserts by its provider id, and an
// unchanged revision tag makes the upsert a no-op.
type syncService struct {
	accounts driven.CalendarAccountStore
	events   driven.CalendarEventStore
	cache    driven.EventCache
	provider driven.CalendarProvider
	tokens   *TokenManager
	lock     driven.DistributedLock
	logger   *slog.Logger
}

// SyncServiceConfig holds dependencies for the sync service.
type SyncServiceConfig struct {
	Accounts driven.CalendarAccountStore
	Events   driven.CalendarEventStore
	Cache    driven.EventCache
	Provider driven.CalendarProvider
	Tokens   *TokenManager
	Lock     driven.DistributedLock
	Logger   *slog.Logger
}

// NewSyncService creates a new SyncService.
func NewSyncService(cfg SyncServiceConfig) driving.SyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &syncService{
		accounts: cfg.Accounts,
		events:   cfg.Events,
		cache:    cfg.Cache,
		provider: cfg.Provider,
		tokens:   cfg.Tokens,
		lock:     cfg.Lock,
		logger:   logger,
	}
}

// Sync pulls events for all of the user's selected calendars.
// A failing calendar doesn't abort the run; the result reports partial
// failures and Success is false only when every calendar failed.
func (s *syncService) Sync(ctx context.Context, userID string, opts domain.SyncOptions) (*domain.SyncResult, error) {
	startTime := time.Now()

	lockName := "sync:" + userID
	acquired, err := s.lock.Acquire(ctx, lockName, syncLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, domain.ErrSyncInProgress
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), lockName); err != nil {
			s.logger.Warn("failed to release sync lock", "user_id", userID, "error", err)
		}
	}()

	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get calendar account: %w", err)
	}
	if account == nil || !account.Authorized {
		return nil, domain.ErrNotConnected
	}

	accessToken, err := s.tokens.ValidAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	timeMin, timeMax := opts.TimeMin, opts.TimeMax
	if timeMin.IsZero() {
		timeMin = startTime.Add(-defaultWindowPast)
	}
	if timeMax.IsZero() {
		timeMax = startTime.Add(defaultWindowFuture)
	}

	calendarIDs := account.SyncCalendarIDs()
	s.logger.Info("starting calendar sync",
		"user_id", userID,
		"calendars", len(calendarIDs),
		"force", opts.Force)

	result := &domain.SyncResult{UserID: userID}
	var windows []*fetchedWindow
	for _, calendarID := range calendarIDs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		stats, window, err := s.syncCalendar(ctx, userID, accessToken, calendarID, timeMin, timeMax, opts.Force)
		if err != nil {
			s.logger.Warn("calendar sync failed",
				"user_id", userID,
				"calendar_id", calendarID,
				"error", err)
			result.FailedCalendars = append(result.FailedCalendars, calendarID)
			result.Stats.Errors++
			continue
		}

		if window != nil {
			windows = append(windows, window)
		}
		result.CalendarsProcessed++
		result.Stats.EventsAdded += stats.EventsAdded
		result.Stats.EventsUpdated += stats.EventsUpdated
		result.Stats.EventsSkipped += stats.EventsSkipped
		result.Stats.EventsDeleted += stats.EventsDeleted
	}

	result.EventsProcessed = result.Stats.EventsAdded + result.Stats.EventsUpdated +
		result.Stats.EventsSkipped + result.Stats.EventsDeleted
	result.Success = result.CalendarsProcessed > 0 || len(calendarIDs) == 0
	result.Duration = time.Since(startTime).Seconds()
	if len(result.FailedCalendars) > 0 {
		result.Message = fmt.Sprintf("%d of %d calendars failed", len(result.FailedCalendars), len(calendarIDs))
	}

	if result.Success {
		now := time.Now()
		account.LastSyncAt = &now
		account.UpdatedAt = now
		if err := s.accounts.Upsert(ctx, account); err != nil {
			s.logger.Warn("failed to record sync time", "user_id", userID, "error", err)
		}
		if result.Stats.EventsAdded+result.Stats.EventsUpdated+result.Stats.EventsDeleted > 0 {
			// Cached windows predate the changes this run made. The next
			// sync verifies against the provider again.
			if err := s.cache.ClearAll(ctx, userID); err != nil {
				s.logger.Warn("failed to clear event cache", "user_id", userID, "error", err)
			}
		} else {
			// Nothing moved; the fetched windows stay good for the TTL.
			for _, w := range windows {
				if err := s.cache.Put(ctx, w.key, w.events); err != nil {
					s.logger.Warn("event cache write failed", "user_id", userID, "error", err)
				}
			}
		}
	}

	s.logger.Info("calendar sync finished",
		"user_id", userID,
		"success", result.Success,
		"added", result.Stats.EventsAdded,
		"updated", result.Stats.EventsUpdated,
		"skipped", result.Stats.EventsSkipped,
		"deleted", result.Stats.EventsDeleted,
		"duration_seconds", result.Duration)

	return result, nil
}

// fetchedWindow records one provider window pulled during a run, so a run
// that changed nothing can mark its windows fresh for the cache TTL.
type fetchedWindow struct {
	key    driven.EventCacheKey
	events []*domain.CalendarEvent
}

// syncCalendar upserts one calendar's events in the window. A window
// fetched from the provider within the cache TTL is not fetched again
// unless force is set; the returned window is nil when the provider was
// not consulted.
func (s *syncService) syncCalendar(ctx context.Context, userID, accessToken, calendarID string, timeMin, timeMax time.Time, force bool) (domain.SyncStats, *fetchedWindow, error) {
	var stats domain.SyncStats

	key := driven.EventCacheKey{
		UserID:     userID,
		CalendarID: calendarID,
		TimeMin:    timeMin.Truncate(time.Minute),
		TimeMax:    timeMax.Truncate(time.Minute),
	}
	if !force {
		if _, ok, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("event cache read failed", "user_id", userID, "error", err)
		} else if ok {
			s.logger.Debug("calendar window fetched recently, skipping",
				"user_id", userID, "calendar_id", calendarID)
			return stats, nil, nil
		}
	}

	providerEvents, err := s.provider.ListEvents(ctx, accessToken, calendarID, timeMin, timeMax)
	if err != nil {
		return stats, nil, fmt.Errorf("list events: %w", err)
	}

	window := &fetchedWindow{key: key}
	now := time.Now()
	for _, pe := range providerEvents {
		if pe.ID == "" {
			stats.EventsSkipped++
			continue
		}

		if pe.Status == "cancelled" {
			// A cancellation for an event we hold means it was deleted
			// remotely; drop our copy.
			existing, err := s.events.GetByProviderID(ctx, userID, pe.ID)
			if err != nil {
				return stats, nil, fmt.Errorf("lookup event %s: %w", pe.ID, err)
			}
			if existing != nil {
				if err := s.events.DeleteByProviderID(ctx, userID, pe.ID); err != nil {
					return stats, nil, fmt.Errorf("delete event %s: %w", pe.ID, err)
				}
				stats.EventsDeleted++
			} else {
				stats.EventsSkipped++
			}
			continue
		}

		if pe.Summary == "" {
			stats.EventsSkipped++
			continue
		}

		// Events without concrete times can't be placed in the planner.
		if pe.Start.IsZero() || pe.End.IsZero() {
			stats.EventsSkipped++
			continue
		}

		existing, err := s.events.GetByProviderID(ctx, userID, pe.ID)
		if err != nil {
			return stats, nil, fmt.Errorf("lookup event %s: %w", pe.ID, err)
		}
		if existing != nil && existing.Etag == pe.Etag && pe.Etag != "" {
			stats.EventsSkipped++
			window.events = append(window.events, existing)
			continue
		}

		event := &domain.CalendarEvent{
			UserID:          userID,
			ProviderEventID: pe.ID,
			CalendarID:      calendarID,
			Title:           pe.Summary,
			Description:     pe.Description,
			Location:        pe.Location,
			StartTime:       pe.Start,
			EndTime:         pe.End,
			AllDay:          pe.AllDay,
			Color:           domain.EventColor(pe.ColorID, pe.Summary),
			Etag:            pe.Etag,
			LastSyncedAt:    now,
			RawPayload:      pe.Raw,
		}
		if existing != nil {
			event.ID = existing.ID
		}
		if err := event.Validate(); err != nil {
			stats.EventsSkipped++
			continue
		}

		if err := s.events.Upsert(ctx, event); err != nil {
			return stats, nil, fmt.Errorf("upsert event %s: %w", pe.ID, err)
		}
		window.events = append(window.events, event)
		if existing == nil {
			stats.EventsAdded++
		} else {
			stats.EventsUpdated++
		}
	}

	return stats, window, nil
}

// Events serves the user's events in the window. A fresh cached copy is
// served unless the query forces a read-through.
func (s *syncService) Events(ctx context.Context, userID string, q driving.EventQuery) ([]*domain.CalendarEvent, error) {
	from, to := q.From, q.To
	if from.IsZero() {
		from = time.Now().Add(-defaultWindowPast)
	}
	if to.IsZero() {
		to = time.Now().Add(defaultWindowFuture)
	}

	key := driven.EventCacheKey{
		UserID:     userID,
		CalendarID: "all",
		TimeMin:    from.Truncate(time.Minute),
		TimeMax:    to.Truncate(time.Minute),
	}

	if !q.Force {
		if events, ok, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("event cache read failed", "user_id", userID, "error", err)
		} else if ok {
			return events, nil
		}
	}

	events, err := s.events.ListByUser(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	if err := s.cache.Put(ctx, key, events); err != nil {
		s.logger.Warn("event cache write failed", "user_id", userID, "error", err)
	}
	return events, nil
}

// ClearAll removes every synced event and cached window for a user.
func (s *syncService) ClearAll(ctx context.Context, userID string) (int, error) {
	deleted, err := s.events.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	if err := s.cache.ClearAll(ctx, userID); err != nil {
		s.logger.Warn("failed to clear event cache", "user_id", userID, "error", err)
	}
	s.logger.Info("cleared synced events", "user_id", userID, "deleted", deleted)
	return deleted, nil
}
