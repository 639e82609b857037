package calendar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"taskcal/internal/models"
)

func TestBuildEventLabelsLiteralClockValuesUTC(t *testing.T) {
	event := buildEvent(models.Task{
		Title:       "Write report",
		Description: "Quarterly numbers",
		StartDate:   "2024-06-01",
		StartTime:   "09:00",
		EndTime:     "10:00",
	})

	assert.Equal(t, "Write report", event.Summary)
	assert.Equal(t, "Quarterly numbers", event.Description)
	assert.Equal(t, "2024-06-01T09:00:00", event.Start.DateTime)
	assert.Equal(t, "UTC", event.Start.TimeZone)
	assert.Equal(t, "2024-06-01T10:00:00", event.End.DateTime)
	assert.Equal(t, "UTC", event.End.TimeZone)
}

func TestUpdateEventRequiresEventID(t *testing.T) {
	g := &GoogleService{calendarID: "primary"}

	err := g.UpdateEvent(context.Background(), models.Task{Title: "Write report"})
	assert.ErrorIs(t, err, ErrNotSynced)
}

func TestClassify(t *testing.T) {
	unauthorized := classify("insert", &googleapi.Error{Code: 401})
	assert.ErrorIs(t, unauthorized, ErrUnauthorized)

	forbidden := classify("update", &googleapi.Error{Code: 403})
	assert.ErrorIs(t, forbidden, ErrUnauthorized)

	serverSide := classify("insert", &googleapi.Error{Code: 500})
	assert.ErrorIs(t, serverSide, ErrSyncFailed)

	transport := classify("delete", errors.New("connection refused"))
	assert.ErrorIs(t, transport, ErrSyncFailed)
}
