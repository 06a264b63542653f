package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.CalendarProvider = (*Provider)(nil)

// maxEventsPerCalendar caps one listing call per calendar per sync.
const maxEventsPerCalendar = 250

// readableRoles are the calendar list access roles that grant event
// access. freeBusyReader entries only expose busy blocks and are skipped.
var readableRoles = map[string]bool{
	"owner":  true,
	"writer": true,
	"reader": true,
}

// Provider implements driven.CalendarProvider against the Google
// Calendar API.
type Provider struct {
	cfg        Config
	httpClient *http.Client
}

// NewProvider creates a new Google Calendar provider.
func NewProvider(cfg Config) *Provider {
	return &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// service builds a calendar API client bound to the access token.
func (p *Provider) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	opts := []option.ClientOption{option.WithTokenSource(source)}
	if p.cfg.CalendarURL != "" {
		opts = append(opts, option.WithEndpoint(p.cfg.CalendarURL))
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

// ListCalendars retrieves the calendars the token can read events from.
func (p *Provider) ListCalendars(ctx context.Context, accessToken string) ([]*driven.ProviderCalendar, error) {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var calendars []*driven.ProviderCalendar
	pageToken := ""
	for {
		call := svc.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list calendars: %w", err)
		}

		for _, entry := range list.Items {
			if !readableRoles[entry.AccessRole] {
				continue
			}
			calendars = append(calendars, &driven.ProviderCalendar{
				ID:         entry.Id,
				Summary:    entry.Summary,
				Primary:    entry.Primary,
				AccessRole: entry.AccessRole,
			})
		}

		pageToken = list.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return calendars, nil
}

// ListEvents retrieves expanded single events in the window, ordered by
// start time. Recurring events arrive as individual instances.
func (p *Provider) ListEvents(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]*driven.ProviderEvent, error) {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	list, err := svc.Events.List(calendarID).
		Context(ctx).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxEventsPerCalendar).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", calendarID, err)
	}

	events := make([]*driven.ProviderEvent, 0, len(list.Items))
	for _, item := range list.Items {
		events = append(events, convertEvent(item))
	}
	return events, nil
}

// convertEvent maps an API event to the provider-neutral form.
// A date-only start marks an all-day event.
func convertEvent(item *calendar.Event) *driven.ProviderEvent {
	event := &driven.ProviderEvent{
		ID:          item.Id,
		Status:      item.Status,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		ColorID:     item.ColorId,
		Etag:        item.Etag,
	}

	if raw, err := json.Marshal(item); err == nil {
		event.Raw = raw
	}

	event.Start, event.AllDay = parseEventTime(item.Start)
	event.End, _ = parseEventTime(item.End)
	return event
}

// parseEventTime resolves an EventDateTime to a concrete time.
// Google sets Date for all-day events and DateTime otherwise.
func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.Date != "" {
		t, _ := time.Parse("2006-01-02", edt.Date)
		return t, true
	}
	t, _ := time.Parse(time.RFC3339, edt.DateTime)
	return t, false
}
