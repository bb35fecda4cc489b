package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/manager"
	"tracker/internal/models"
	"tracker/internal/storage/codec"
)

type epicRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) bindEpic(c *gin.Context, create bool) (epicRequest, bool) {
	var req epicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return req, false
	}
	if create && (req.Title == nil || *req.Title == "") {
		s.fail(c, fmt.Errorf("title is required: %w", manager.ErrInvalid))
		return req, false
	}
	for _, v := range []*string{req.Title, req.Description} {
		if v != nil && !codec.CheckText(*v) {
			s.fail(c, fmt.Errorf("text must not contain commas or line breaks: %w", manager.ErrInvalid))
			return req, false
		}
	}
	return req, true
}

// handleListEpics returns every epic.
func (s *Server) handleListEpics(c *gin.Context) {
	defer s.lock()()
	respondSuccess(c, http.StatusOK, gin.H{"epics": s.manager.Epics()})
}

// handleCreateEpic adds an epic. Its status is derived, so none is accepted.
func (s *Server) handleCreateEpic(c *gin.Context) {
	req, ok := s.bindEpic(c, true)
	if !ok {
		return
	}
	e := models.Epic{Title: *req.Title}
	if req.Description != nil {
		e.Description = *req.Description
	}

	defer s.lock()()
	epic, err := s.manager.AddEpic(e)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"epic": epic})
}

// handleGetEpic returns an epic and records the view.
func (s *Server) handleGetEpic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	defer s.lock()()
	epic, err := s.manager.EpicByID(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"epic": epic})
}

// handleUpdateEpic renames an epic or changes its description.
func (s *Server) handleUpdateEpic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, ok := s.bindEpic(c, false)
	if !ok {
		return
	}

	defer s.lock()()
	entry, found := s.manager.Entry(id)
	if !found || entry.Epic == nil {
		s.fail(c, fmt.Errorf("epic %d: %w", id, manager.ErrNotFound))
		return
	}
	e := *entry.Epic
	if req.Title != nil && *req.Title != "" {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}

	epic, err := s.manager.UpdateEpic(e)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"epic": epic})
}

// handleDeleteEpic removes an epic and all of its subtasks.
func (s *Server) handleDeleteEpic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	defer s.lock()()
	if err := s.manager.DeleteEpic(id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleDeleteEpics removes every epic and subtask.
func (s *Server) handleDeleteEpics(c *gin.Context) {
	defer s.lock()()
	if err := s.manager.DeleteEpics(); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleEpicSubtasks lists the subtasks of one epic.
func (s *Server) handleEpicSubtasks(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	defer s.lock()()
	subtasks, err := s.manager.EpicSubtasks(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"subtasks": subtasks})
}
