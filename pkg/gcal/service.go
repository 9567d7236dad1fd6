package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	eventdomain "flowdesk-backend/internal/event/domain"
	integrationdomain "flowdesk-backend/internal/integration/domain"
	"flowdesk-backend/pkg/gclient"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	primaryCalendar = "primary"
	pageSize        = 250
)

// Service wraps the Google Calendar API for the sync engine.
type Service struct {
	limiter *gclient.RateLimiter
}

// NewService creates a new Calendar service wrapper.
func NewService() *Service {
	return &Service{limiter: gclient.NewRateLimiter(gclient.ServiceCalendar)}
}

func (s *Service) calendarService(ctx context.Context, accessToken string) (*calendar.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	srv, err := calendar.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}
	return srv, nil
}

// ListEvents pages through the primary calendar in [from, to), including
// cancelled events so deletions propagate to the local store.
func (s *Service) ListEvents(ctx context.Context, accessToken string, from, to time.Time) ([]*integrationdomain.RemoteEvent, error) {
	srv, err := s.calendarService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var events []*integrationdomain.RemoteEvent
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := srv.Events.List(primaryCalendar).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			ShowDeleted(true).
			MaxResults(pageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, s.wrap(err)
		}

		for _, item := range resp.Items {
			if item.Id == "" {
				continue
			}
			events = append(events, remoteFromGoogle(item))
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return events, nil
}

// CreateEvent inserts the local event into the primary calendar.
func (s *Service) CreateEvent(ctx context.Context, accessToken string, event *eventdomain.Event) (*integrationdomain.RemoteEvent, error) {
	srv, err := s.calendarService(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	created, err := srv.Events.Insert(primaryCalendar, googleFromLocal(event)).Context(ctx).Do()
	if err != nil {
		return nil, s.wrap(err)
	}
	return remoteFromGoogle(created), nil
}

// UpdateEvent overwrites the remote event identified by remoteID.
func (s *Service) UpdateEvent(ctx context.Context, accessToken, remoteID string, event *eventdomain.Event) (*integrationdomain.RemoteEvent, error) {
	srv, err := s.calendarService(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	updated, err := srv.Events.Update(primaryCalendar, remoteID, googleFromLocal(event)).Context(ctx).Do()
	if err != nil {
		return nil, s.wrap(err)
	}
	return remoteFromGoogle(updated), nil
}

func (s *Service) wrap(err error) error {
	wrapped := gclient.WrapError(err)
	var rl *integrationdomain.RateLimitedError
	if errors.As(wrapped, &rl) {
		s.limiter.RecordRateLimitError(int(rl.RetryAfter / time.Second))
	}
	return wrapped
}

func googleFromLocal(event *eventdomain.Event) *calendar.Event {
	return &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start:       &calendar.EventDateTime{DateTime: event.StartTime.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: event.EndTime.Format(time.RFC3339)},
	}
}

func remoteFromGoogle(event *calendar.Event) *integrationdomain.RemoteEvent {
	remote := &integrationdomain.RemoteEvent{
		ID:          event.Id,
		Title:       event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Cancelled:   event.Status == "cancelled",
	}
	remote.Start = parseEventTime(event.Start)
	remote.End = parseEventTime(event.End)
	if t, err := time.Parse(time.RFC3339, event.Updated); err == nil {
		remote.Updated = t.UTC()
	}
	return remote
}

// parseEventTime handles both timed events (DateTime) and all-day events
// (Date only).
func parseEventTime(edt *calendar.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t.UTC()
		}
	}
	if edt.Date != "" {
		if t, err := time.Parse("2006-01-02", edt.Date); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
