// Package calendar mirrors tasks to Google Calendar events. All operations
// are best effort from the caller's point of view: local task state stays
// authoritative and sync failures are reported, never fatal.
package calendar

import (
	"context"
	"errors"
	"fmt"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"taskcal/internal/models"
)

var (
	// ErrNotSynced is returned by UpdateEvent when the task has no event id
	// recorded yet, i.e. no prior insert succeeded.
	ErrNotSynced = errors.New("task not synced to calendar")

	// ErrSyncFailed classifies transport or API failures from the calendar
	// provider.
	ErrSyncFailed = errors.New("calendar sync failed")

	// ErrUnauthorized classifies rejections caused by stale or revoked
	// credentials. The caller should drop the session credentials and send
	// the user back through the authorization flow.
	ErrUnauthorized = errors.New("calendar credentials rejected")
)

// Service issues event mutations against an external calendar.
type Service interface {
	// InsertEvent creates the mirrored event and returns its identifier.
	InsertEvent(ctx context.Context, t models.Task) (string, error)
	// UpdateEvent overwrites the mirrored event referenced by
	// t.GoogleEventID with the task's current field values.
	UpdateEvent(ctx context.Context, t models.Task) error
	// DeleteEvent removes the mirrored event.
	DeleteEvent(ctx context.Context, eventID string) error
}

// GoogleService implements Service over the Google Calendar API.
type GoogleService struct {
	events     *gcal.EventsService
	calendarID string
}

// NewGoogleService builds a calendar client from per-session credentials.
// calendarID is typically "primary".
func NewGoogleService(ctx context.Context, calendarID string, opts ...option.ClientOption) (*GoogleService, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleService{events: svc.Events, calendarID: calendarID}, nil
}

// buildEvent maps task fields onto an event payload. Start and end are the
// literal clock values concatenated from the task's date and times, labeled
// UTC without conversion.
func buildEvent(t models.Task) *gcal.Event {
	return &gcal.Event{
		Summary:     t.Title,
		Description: t.Description,
		Start: &gcal.EventDateTime{
			DateTime: t.StartDate + "T" + t.StartTime + ":00",
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: t.StartDate + "T" + t.EndTime + ":00",
			TimeZone: "UTC",
		},
	}
}

// InsertEvent creates the mirrored event and returns its identifier.
func (g *GoogleService) InsertEvent(ctx context.Context, t models.Task) (string, error) {
	created, err := g.events.Insert(g.calendarID, buildEvent(t)).Context(ctx).Do()
	if err != nil {
		return "", classify("insert", err)
	}
	return created.Id, nil
}

// UpdateEvent fetches the mirrored event and overwrites summary, description
// and the start/end timestamps.
func (g *GoogleService) UpdateEvent(ctx context.Context, t models.Task) error {
	if t.GoogleEventID == "" {
		return ErrNotSynced
	}

	event, err := g.events.Get(g.calendarID, t.GoogleEventID).Context(ctx).Do()
	if err != nil {
		return classify("get", err)
	}

	payload := buildEvent(t)
	event.Summary = payload.Summary
	event.Description = payload.Description
	event.Start = payload.Start
	event.End = payload.End

	if _, err := g.events.Update(g.calendarID, t.GoogleEventID, event).Context(ctx).Do(); err != nil {
		return classify("update", err)
	}
	return nil
}

// DeleteEvent removes the mirrored event.
func (g *GoogleService) DeleteEvent(ctx context.Context, eventID string) error {
	if err := g.events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return classify("delete", err)
	}
	return nil
}

func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 401 || apiErr.Code == 403) {
		return fmt.Errorf("%s event: %w", op, ErrUnauthorized)
	}
	return fmt.Errorf("%s event: %w: %v", op, ErrSyncFailed, err)
}
