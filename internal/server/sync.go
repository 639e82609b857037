package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"taskcal/internal/auth"
	"taskcal/internal/calendar"
	"taskcal/internal/metrics"
	"taskcal/internal/models"
)

// mirrorInsert creates the external event for a freshly stored task and
// persists the returned event id. The return value reports whether the
// request should redirect to the authorize flow instead of the index.
func (s *Server) mirrorInsert(c *gin.Context, task models.Task) bool {
	creds, err := s.auth.Credentials(c)
	if err != nil {
		s.flash(c, "Connect Google Calendar to mirror this task.")
		return true
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.syncTimeout)
	defer cancel()

	svc, err := s.newCalendar(c, creds)
	if err != nil {
		s.reportSyncFailure(c, "insert", task, err)
		return false
	}

	eventID, err := svc.InsertEvent(ctx, task)
	if err != nil {
		return s.handleSyncError(c, "insert", task, err)
	}

	if err := s.store.SetEventID(c.Request.Context(), task.ID, eventID); err != nil {
		s.reportSyncFailure(c, "insert", task, err)
		return false
	}
	metrics.RecordCalendarSync("insert", "ok")
	return false
}

// mirrorUpdate pushes the task's current values onto its mirrored event.
// Tasks that never synced fall back to an insert so they end up mirrored.
func (s *Server) mirrorUpdate(c *gin.Context, task models.Task) bool {
	creds, err := s.auth.Credentials(c)
	if err != nil {
		s.flash(c, "Connect Google Calendar to mirror this task.")
		return true
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.syncTimeout)
	defer cancel()

	svc, err := s.newCalendar(c, creds)
	if err != nil {
		s.reportSyncFailure(c, "update", task, err)
		return false
	}

	err = svc.UpdateEvent(ctx, task)
	if errors.Is(err, calendar.ErrNotSynced) {
		eventID, insErr := svc.InsertEvent(ctx, task)
		if insErr != nil {
			return s.handleSyncError(c, "update", task, insErr)
		}
		if insErr := s.store.SetEventID(c.Request.Context(), task.ID, eventID); insErr != nil {
			s.reportSyncFailure(c, "update", task, insErr)
			return false
		}
		metrics.RecordCalendarSync("update", "ok")
		return false
	}
	if err != nil {
		return s.handleSyncError(c, "update", task, err)
	}
	metrics.RecordCalendarSync("update", "ok")
	return false
}

// mirrorDelete removes the mirrored event when the task is synced and
// credentials are available. Purely best effort; the caller deletes the
// local row regardless.
func (s *Server) mirrorDelete(c *gin.Context, task models.Task) {
	if task.GoogleEventID == "" {
		return
	}

	creds, err := s.auth.Credentials(c)
	if err != nil {
		// Unauthenticated deletes stay local-only, matching the original
		// surface. The orphaned event is reported for reconciliation.
		s.logger.Warn("deleting task without calendar credentials",
			slog.Int64("task_id", task.ID), slog.String("event_id", task.GoogleEventID))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.syncTimeout)
	defer cancel()

	svc, err := s.newCalendar(c, creds)
	if err != nil {
		s.reportSyncFailure(c, "delete", task, err)
		return
	}

	if err := svc.DeleteEvent(ctx, task.GoogleEventID); err != nil {
		s.reportSyncFailure(c, "delete", task, err)
		return
	}
	metrics.RecordCalendarSync("delete", "ok")
}

// handleSyncError classifies a sync failure. Unauthorized errors clear the
// session credentials and ask the caller to redirect to /authorize; anything
// else is logged and surfaced as a notice.
func (s *Server) handleSyncError(c *gin.Context, op string, task models.Task, err error) bool {
	if errors.Is(err, calendar.ErrUnauthorized) {
		auth.ClearCredentials(c)
		metrics.RecordCalendarSync(op, "unauthorized")
		s.flash(c, "Google Calendar authorization expired; please reconnect.")
		return true
	}
	s.reportSyncFailure(c, op, task, err)
	return false
}

// reportSyncFailure logs the failure with enough context for manual
// reconciliation, counts it and queues a user-visible notice.
func (s *Server) reportSyncFailure(c *gin.Context, op string, task models.Task, err error) {
	s.logger.Error("calendar sync failed",
		slog.String("operation", op),
		slog.Int64("task_id", task.ID),
		slog.String("event_id", task.GoogleEventID),
		slog.String("error", err.Error()))
	metrics.RecordCalendarSync(op, "failed")
	s.flash(c, "Calendar sync failed; the task was saved locally.")
}

func (s *Server) flash(c *gin.Context, msg string) {
	sess := sessions.Default(c)
	sess.AddFlash(msg)
	if err := sess.Save(); err != nil {
		s.logger.Error("save session", slog.String("error", err.Error()))
	}
}
