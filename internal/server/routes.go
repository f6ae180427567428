// internal/server/routes.go
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the agent endpoints on rg.
//
// Endpoints:
//
//	POST /agent   - answer a shopping query
//	POST /compare - run price.compare_full directly
//	GET  /health  - liveness
//	GET  /ready   - backend readiness
//	GET  /metrics - Prometheus scrape endpoint
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/agent", h.HandleAgent)
	rg.POST("/compare", h.HandleCompare)
	rg.GET("/health", h.HandleHealth)
	rg.GET("/ready", h.HandleReady)
	rg.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
