package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tracker/internal/manager"
)

const requestIDHeader = "X-Request-ID"

// Server provides HTTP handlers for the task tracker.
//
// The manager is not safe for concurrent use, so every call into it goes
// through mu.
type Server struct {
	engine  *gin.Engine
	mu      sync.Mutex
	manager manager.Manager
	logger  *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(m manager.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:  router,
		manager: m,
		logger:  logger,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		tasks := api.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.DELETE("", s.handleDeleteTasks)
			tasks.GET(":id", s.handleGetTask)
			tasks.PUT(":id", s.handleUpdateTask)
			tasks.DELETE(":id", s.handleDeleteTask)
		}

		epics := api.Group("/epics")
		{
			epics.GET("", s.handleListEpics)
			epics.POST("", s.handleCreateEpic)
			epics.DELETE("", s.handleDeleteEpics)
			epics.GET(":id", s.handleGetEpic)
			epics.PUT(":id", s.handleUpdateEpic)
			epics.DELETE(":id", s.handleDeleteEpic)
			epics.GET(":id/subtasks", s.handleEpicSubtasks)
		}

		subtasks := api.Group("/subtasks")
		{
			subtasks.GET("", s.handleListSubtasks)
			subtasks.POST("", s.handleCreateSubtask)
			subtasks.DELETE("", s.handleDeleteSubtasks)
			subtasks.GET(":id", s.handleGetSubtask)
			subtasks.PUT(":id", s.handleUpdateSubtask)
			subtasks.DELETE(":id", s.handleDeleteSubtask)
		}

		api.GET("/history", s.handleHistory)
		api.GET("/prioritized", s.handlePrioritized)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestID tags every request with an id, reusing the caller's if sent.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// statusFor maps manager error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, manager.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, manager.ErrScheduleConflict):
		return http.StatusConflict
	case errors.Is(err, manager.ErrFormat), errors.Is(err, manager.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	s.logger.Error("request failed",
		slog.String("path", c.FullPath()),
		slog.String("request_id", c.GetString(requestIDHeader)),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}

// fail responds with the status matching the error kind.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

func (s *Server) lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}
