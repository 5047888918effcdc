// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the routing engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/routecortex/routecortex/internal/config"
	"github.com/routecortex/routecortex/internal/decision"
	"github.com/routecortex/routecortex/internal/engine"
	"github.com/routecortex/routecortex/internal/feedback"
	"github.com/routecortex/routecortex/internal/profile"
	"github.com/routecortex/routecortex/internal/registry"
	"github.com/routecortex/routecortex/internal/scoring"
)

// Server holds the HTTP surface's collaborators.
type Server struct {
	cfg      *config.Config
	engine   *engine.Engine
	reporter *feedback.Reporter
	agents   *registry.AgentRegistry
}

// NewServer builds the HTTP surface on top of an assembled engine.
func NewServer(cfg *config.Config, eng *engine.Engine, reporter *feedback.Reporter, agents *registry.AgentRegistry) *Server {
	return &Server{cfg: cfg, engine: eng, reporter: reporter, agents: agents}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealthz)

	v1 := router.Group("/v1")
	{
		v1.POST("/route", s.handleRoute)
		v1.POST("/feedback", s.handleFeedback)
		v1.GET("/agents", s.handleListAgents)

		admin := v1.Group("/admin")
		admin.POST("/rules/reload", s.handleReloadRules)
		admin.PUT("/agents/:name/availability", s.handleSetAvailability)
	}
	return router
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("routecortex listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type routeRequest struct {
	SessionID string            `json:"session_id" binding:"required"`
	UserID    string            `json:"user_id" binding:"required"`
	Content   string            `json:"content" binding:"required"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleRoute(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := s.engine.Route(c.Request.Context(), engine.Request{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Content:   req.Content,
		Metadata:  req.Metadata,
	})
	if err != nil {
		s.renderRouteError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) renderRouteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scoring.ErrNoCandidates):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no candidate agents configured"})
	case errors.Is(err, profile.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile store unavailable"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "decision budget exceeded"})
	default:
		log.WithError(err).Error("routing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type feedbackRequest struct {
	DecisionID   string   `json:"decision_id" binding:"required"`
	Outcome      string   `json:"outcome" binding:"required"`
	Satisfaction *float64 `json:"satisfaction,omitempty"`
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Satisfaction != nil && (*req.Satisfaction < 0 || *req.Satisfaction > 1) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "satisfaction must be in [0,1]"})
		return
	}

	err := s.reporter.Report(c.Request.Context(), req.DecisionID, feedback.Outcome(req.Outcome), req.Satisfaction)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "recorded"})
	case errors.Is(err, feedback.ErrDuplicateFeedback):
		// Duplicates are not a caller failure; the first report stands.
		c.Status(http.StatusNoContent)
	case errors.Is(err, feedback.ErrInvalidOutcome):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, decision.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown decision id"})
	default:
		log.WithError(err).Error("feedback failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// handleReloadRules re-reads the rule table from disk. The table only ever
// changes through this endpoint or a restart.
func (s *Server) handleReloadRules(c *gin.Context) {
	if err := s.engine.Rules().Reload(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	rules := s.engine.Rules().Rules()
	log.Infof("rule table reloaded, %d rules active", len(rules))
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "rules": len(rules)})
}

func (s *Server) handleListAgents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": s.agents.Snapshot()})
}

type availabilityRequest struct {
	Availability *float64 `json:"availability" binding:"required"`
}

// handleSetAvailability is the entry point for the external load signal.
func (s *Server) handleSetAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := c.Param("name")
	if _, ok := s.agents.Get(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown agent"})
		return
	}
	s.agents.SetAvailability(name, *req.Availability)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
