package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything whose reachability can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is a named health probe.
type Dependency struct {
	Name   string
	Pinger Pinger
}

const probeTimeout = 2 * time.Second

type healthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Timestamp    string            `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	resp := healthResponse{
		Status:       "healthy",
		Service:      "transaction-service",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Dependencies: make(map[string]string, len(h.dependencies)),
	}
	code := http.StatusOK

	for _, dep := range h.dependencies {
		if dep.Pinger == nil {
			continue
		}
		if err := dep.Pinger.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Str("dependency", dep.Name).Msg("health probe failed")
			resp.Dependencies[dep.Name] = "disconnected"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[dep.Name] = "connected"
	}

	c.JSON(code, resp)
}
