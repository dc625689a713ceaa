// Package web provides API routes for the web server.
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusProbe reports the state of one dependency
type StatusProbe struct {
	Name  string
	Check func() (string, bool)
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, probes ...StatusProbe) {
	api := s.Group("/api")
	{
		api.GET("/status", statusHandler(probes))
		api.GET("/health", healthHandler)
	}
}

// statusHandler runs every probe; any offline dependency makes the answer 503
func statusHandler(probes []StatusProbe) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := http.StatusOK
		overall := "ok"
		components := gin.H{}

		for _, p := range probes {
			status, online := p.Check()
			if !online {
				code = http.StatusServiceUnavailable
				overall = "degraded"
			}
			components[p.Name] = gin.H{
				"status":   status,
				"isOnline": online,
			}
		}

		c.JSON(code, gin.H{
			"status":     overall,
			"components": components,
		})
	}
}

// healthHandler returns a simple health check response
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "AppealBot Go is running",
	})
}
