// Package api exposes the read-only HTTP introspection surface (§4.11):
// process/dispatcher health, live request listings, and pipeline
// subscriber-counter snapshots. Modeled on the teacher's cmd/tarsy/main.go
// inline gin wiring — a dedicated package here only because the routes
// have grown past one main function's worth of inline handlers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jdibridge/bridge/pkg/database"
	"github.com/jdibridge/bridge/pkg/engine"
	"github.com/jdibridge/bridge/pkg/version"
)

// Server wires the engine and optional audit database into a gin router.
type Server struct {
	engine *engine.Engine
	db     *database.Client // nil when AUDIT_ENABLED=false
	router *gin.Engine
}

// New builds a Server. db may be nil when the audit sink is disabled.
func New(eng *engine.Engine, db *database.Client) *Server {
	s := &Server{engine: eng, db: db, router: gin.Default()}
	s.routes()
	return s
}

// Router exposes the underlying gin engine, e.g. for http.Server wiring.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/requests/:kind", s.handleRequests)
	s.router.GET("/pipelines/:kind", s.handlePipelines)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	h := s.engine.Health()
	body := gin.H{
		"status":        statusFor(h.DispatcherRunning),
		"version":       version.Full(),
		"dispatcher":    h.DispatcherRunning,
		"manager_kinds": h.ManagerKinds,
	}

	unhealthy := !h.DispatcherRunning
	if s.db != nil {
		dbHealth, err := database.Health(ctx, s.db.DB())
		body["audit_db"] = dbHealth
		unhealthy = unhealthy || err != nil
	}

	if unhealthy {
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func statusFor(dispatcherRunning bool) string {
	if dispatcherRunning {
		return "healthy"
	}
	return "unhealthy"
}

func (s *Server) handleRequests(c *gin.Context) {
	kind := c.Param("kind")
	entries, ok := s.engine.Entries(kind)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown request kind", "kind": kind})
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "requests": entries})
}

func (s *Server) handlePipelines(c *gin.Context) {
	kind := c.Param("kind")
	counters, ok := s.engine.Counters(kind)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown request kind", "kind": kind})
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "subscribers": counters})
}
