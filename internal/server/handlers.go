// internal/server/handlers.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shopping-agent/internal/agent"
	"shopping-agent/internal/common/database"
	apperrors "shopping-agent/internal/common/errors"
	"shopping-agent/internal/models"
	comparefull "shopping-agent/internal/workers/price/compare-full"

	"github.com/gin-gonic/gin"
)

const defaultReadyTimeout = 2 * time.Second

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Agent is implemented by *agent.Service.
type Agent interface {
	HandleQuery(ctx context.Context, q models.Query) (*agent.Response, error)
}

// Comparer is implemented by *comparefull.Handler.
type Comparer interface {
	Compare(ctx context.Context, input *comparefull.Input) (*comparefull.Output, error)
}

type Handlers struct {
	agent        Agent
	comparer     Comparer
	backends     []database.Pinger
	readyTimeout time.Duration
	errors       *apperrors.ErrorHandler
	logger       Logger
}

// NewHandlers builds the HTTP handlers. backends are pinged by /ready.
func NewHandlers(agent Agent, comparer Comparer, backends []database.Pinger, log Logger) *Handlers {
	l := log.With(map[string]interface{}{
		"component": "http",
	})
	return &Handlers{
		agent:        agent,
		comparer:     comparer,
		backends:     backends,
		readyTimeout: defaultReadyTimeout,
		errors:       apperrors.NewErrorHandler(l),
		logger:       l,
	}
}

// HandleAgent answers POST /agent.
func (h *Handlers) HandleAgent(c *gin.Context) {
	var q models.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		h.errors.Write(c.Writer, apperrors.NewInvalidRequestError(fmt.Sprintf("malformed request body: %v", err)))
		return
	}

	resp, err := h.agent.HandleQuery(c.Request.Context(), q)
	if err != nil {
		h.errors.Write(c.Writer, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleCompare answers POST /compare by running the price comparison directly.
func (h *Handlers) HandleCompare(c *gin.Context) {
	var input comparefull.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		h.errors.Write(c.Writer, apperrors.NewInvalidRequestError(fmt.Sprintf("malformed request body: %v", err)))
		return
	}

	out, err := h.comparer.Compare(c.Request.Context(), &input)
	if err != nil {
		h.errors.Write(c.Writer, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady pings every configured backend.
func (h *Handlers) HandleReady(c *gin.Context) {
	status, healthy := database.CheckAll(c.Request.Context(), h.readyTimeout, h.backends...)
	if !healthy {
		h.logger.Warn("readiness check failed", map[string]interface{}{"backends": status})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "backends": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "backends": status})
}
