package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"taskcal/internal/forms"
	"taskcal/internal/models"
	"taskcal/internal/storage/sqlite"
)

// handleListTasks returns tasks matching the query filters plus any pending
// notices from earlier sync attempts.
func (s *Server) handleListTasks(c *gin.Context) {
	filter := sqlite.TaskFilter{
		Category: c.Query("category"),
		Priority: c.Query("priority"),
		Status:   c.Query("status"),
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	sess := sessions.Default(c)
	flashes := sess.Flashes()
	if len(flashes) > 0 {
		_ = sess.Save()
	}
	notices := make([]string, 0, len(flashes))
	for _, f := range flashes {
		if msg, ok := f.(string); ok {
			notices = append(notices, msg)
		}
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "notices": notices})
}

// handleAddTask validates the form, stores the task and mirrors it to the
// calendar. The task commits locally regardless of the sync outcome.
func (s *Server) handleAddTask(c *gin.Context) {
	var form forms.TaskForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": forms.FieldErrors(err)})
		return
	}

	task, err := s.store.CreateTask(c.Request.Context(), form.Task())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	if s.mirrorInsert(c, task) {
		c.Redirect(http.StatusSeeOther, "/authorize")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// handleShowTask returns the current field values for the edit form.
func (s *Server) handleShowTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := s.store.GetTask(c.Request.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		s.respondError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// handleEditTask validates the form, overwrites the task and mirrors the
// change to the stored calendar event.
func (s *Server) handleEditTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var form forms.TaskForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": forms.FieldErrors(err)})
		return
	}

	task, err := s.store.UpdateTask(c.Request.Context(), id, form.Task())
	if errors.Is(err, sqlite.ErrNotFound) {
		s.respondError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	if s.mirrorUpdate(c, task) {
		c.Redirect(http.StatusSeeOther, "/authorize")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// handleCompleteTask marks a task completed. No calendar interaction.
func (s *Server) handleCompleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	err := s.store.SetCompleted(c.Request.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		s.respondError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// handleDeleteTask removes the mirrored event best-effort, then the local
// row. Local deletion proceeds even when the external delete fails.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := s.store.GetTask(c.Request.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		s.respondError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	s.mirrorDelete(c, task)

	if err := s.store.DeleteTask(c.Request.Context(), id); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, err)
			return
		}
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
