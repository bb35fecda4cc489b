package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/manager"
	"tracker/internal/models"
)

type subtaskRequest struct {
	taskRequest
	EpicID *int64 `json:"epic_id"`
}

// handleListSubtasks returns every subtask.
func (s *Server) handleListSubtasks(c *gin.Context) {
	defer s.lock()()
	respondSuccess(c, http.StatusOK, gin.H{"subtasks": s.manager.Subtasks()})
}

// handleCreateSubtask adds a subtask to an existing epic.
func (s *Server) handleCreateSubtask(c *gin.Context) {
	var req subtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(true); err != nil {
		s.fail(c, err)
		return
	}
	if req.EpicID == nil {
		s.fail(c, fmt.Errorf("epic_id is required: %w", manager.ErrInvalid))
		return
	}
	sub := models.Subtask{EpicID: *req.EpicID}
	req.apply(&sub.Task)

	defer s.lock()()
	created, err := s.manager.AddSubtask(sub)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"subtask": created})
}

// handleGetSubtask returns a subtask and records the view.
func (s *Server) handleGetSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	defer s.lock()()
	sub, err := s.manager.SubtaskByID(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"subtask": sub})
}

// handleUpdateSubtask changes the fields present in the payload. The epic
// of a subtask cannot be changed.
func (s *Server) handleUpdateSubtask(c *gin.Context) {
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
	if !found || entry.Subtask == nil {
		s.fail(c, fmt.Errorf("subtask %d: %w", id, manager.ErrNotFound))
		return
	}
	sub := *entry.Subtask
	req.apply(&sub.Task)

	updated, err := s.manager.UpdateSubtask(sub)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"subtask": updated})
}

// handleDeleteSubtask removes one subtask.
func (s *Server) handleDeleteSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	defer s.lock()()
	if err := s.manager.DeleteSubtask(id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleDeleteSubtasks removes every subtask and resets all epics to NEW.
func (s *Server) handleDeleteSubtasks(c *gin.Context) {
	defer s.lock()()
	if err := s.manager.DeleteSubtasks(); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
