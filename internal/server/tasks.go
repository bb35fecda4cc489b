package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tracker/internal/manager"
	"tracker/internal/models"
	"tracker/internal/storage/codec"
)

// optionalTime tells an absent field apart from an explicit null, which
// clears the value.
type optionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *optionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if string(data) == "null" {
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

// taskRequest carries the fields of a create or update. Omitted fields keep
// their current value; "start_time": null unschedules the item.
type taskRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Status      *string      `json:"status"`
	Duration    *int64       `json:"duration"`
	StartTime   optionalTime `json:"start_time"`
}

// validate checks the fields that are present. create additionally
// requires a title.
func (r taskRequest) validate(create bool) error {
	if create && (r.Title == nil || *r.Title == "") {
		return fmt.Errorf("title is required: %w", manager.ErrInvalid)
	}
	for _, v := range []*string{r.Title, r.Description} {
		if v != nil && !codec.CheckText(*v) {
			return fmt.Errorf("text must not contain commas or line breaks: %w", manager.ErrInvalid)
		}
	}
	if r.Status != nil && !models.Status(*r.Status).Valid() {
		return fmt.Errorf("unknown status %q: %w", *r.Status, manager.ErrInvalid)
	}
	if r.Duration != nil && (*r.Duration < 0 || *r.Duration > models.MaxDuration) {
		return fmt.Errorf("duration must be between 0 and %d minutes: %w", models.MaxDuration, manager.ErrInvalid)
	}
	return nil
}

// apply copies the present fields onto t.
func (r taskRequest) apply(t *models.Task) {
	if r.Title != nil && *r.Title != "" {
		t.Title = *r.Title
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.Status != nil {
		t.Status = models.Status(*r.Status)
	}
	if r.Duration != nil {
		t.Duration = *r.Duration
	}
	if r.StartTime.Set {
		t.StartTime = r.StartTime.Value
	}
}

// bindTask decodes and validates a task payload.
func (s *Server) bindTask(c *gin.Context, create bool) (taskRequest, bool) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return req, false
	}
	if err := req.validate(create); err != nil {
		s.fail(c, err)
		return req, false
	}
	return req, true
}

// handleListTasks returns every task.
func (s *Server) handleListTasks(c *gin.Context) {
	defer s.lock()()
	respondSuccess(c, http.StatusOK, gin.H{"tasks": s.manager.Tasks()})
}

// handleCreateTask adds a task, rejecting overlapping schedules.
func (s *Server) handleCreateTask(c *gin.Context) {
	req, ok := s.bindTask(c, true)
	if !ok {
		return
	}
	var t models.Task
	req.apply(&t)

	defer s.lock()()
	task, err := s.manager.AddTask(t)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleGetTask returns a task and records the view.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	defer s.lock()()
	task, err := s.manager.TaskByID(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask changes the fields present in the payload.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, ok := s.bindTask(c, false)
	if !ok {
		return
	}

	defer s.lock()()
	entry, found := s.manager.Entry(id)
	if !found || entry.Task == nil {
		s.fail(c, fmt.Errorf("task %d: %w", id, manager.ErrNotFound))
		return
	}
	t := *entry.Task
	req.apply(&t)

	task, err := s.manager.UpdateTask(t)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	defer s.lock()()
	if err := s.manager.DeleteTask(id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleDeleteTasks removes every task.
func (s *Server) handleDeleteTasks(c *gin.Context) {
	defer s.lock()()
	if err := s.manager.DeleteTasks(); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
