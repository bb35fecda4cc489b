package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/models"
)

// handleHistory returns recently viewed items, oldest first.
func (s *Server) handleHistory(c *gin.Context) {
	defer s.lock()()
	ids := s.manager.History()
	entries := make([]models.Entry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := s.manager.Entry(id); ok {
			entries = append(entries, entry)
		}
	}
	respondSuccess(c, http.StatusOK, gin.H{"history": entries})
}

// handlePrioritized returns tasks and subtasks ordered by start time.
func (s *Server) handlePrioritized(c *gin.Context) {
	defer s.lock()()
	respondSuccess(c, http.StatusOK, gin.H{"items": s.manager.Prioritized()})
}
