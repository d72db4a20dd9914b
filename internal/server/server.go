// Package server exposes the scenario-list sync API over HTTP: list CRUD,
// delta pull/push, snapshots, and a restricted read-only SQL explorer, all
// delegating to the SQLite backend.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/scenariolist/internal/logger"
	"github.com/mesh-intelligence/scenariolist/internal/sqlite"
)

// Server wires the sync API handlers to one attached SQLite backend.
type Server struct {
	backend *sqlite.Backend
	log     *logger.Logger
}

// New creates a Server over an attached backend.
func New(backend *sqlite.Backend, log *logger.Logger) *Server {
	return &Server{backend: backend, log: log}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(s.requestID())

	router.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	router.POST("/lists", s.createList)
	router.GET("/lists/:id", s.getList)
	router.GET("/lists/:id/info", s.getInfo)
	router.GET("/lists/:id/history", s.getHistory)
	router.GET("/lists/:id/pull", s.pull)
	router.POST("/lists/:id/push", s.push)
	router.POST("/lists/:id/snapshot", s.snapshot)
	router.DELETE("/lists/:id", s.deleteList)
	router.POST("/sql", s.sqlQuery)

	return router
}

// requestID tags every request with an ID and logs the call.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
		s.log.Info("request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}
