package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrolink/backend/internal/infrastructure/logger"
)

// ReadinessProbe checks one dependency. Detail, when set, is reported next
// to a passing check.
type ReadinessProbe struct {
	Name   string
	Check  func(ctx context.Context) error
	Detail func() any
}

// SystemHandler serves the probe and build information routes
type SystemHandler struct {
	BaseHandler
	name         string
	version      string
	startTime    time.Time
	probes       []ReadinessProbe
	probeTimeout time.Duration
}

// NewSystemHandler creates a SystemHandler. Empty name and version fall back
// to the service defaults.
func NewSystemHandler(name, version string, probes ...ReadinessProbe) *SystemHandler {
	if name == "" {
		name = "agrolink-backend"
	}
	if version == "" {
		version = "dev"
	}
	return &SystemHandler{
		name:         name,
		version:      version,
		startTime:    time.Now(),
		probes:       probes,
		probeTimeout: 2 * time.Second,
	}
}

// SystemInfoResponse describes the running build
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns the service name, version and uptime.
//
//	GET /api/v1/system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Live answers liveness probes without touching any dependency.
//
//	GET /health
func (h *SystemHandler) Live(c *gin.Context) {
	h.Success(c, gin.H{"status": "alive", "time": time.Now().UTC().Format(time.RFC3339)})
}

// CheckResult is the outcome of one readiness probe
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Detail any    `json:"detail,omitempty"`
}

// ReadinessResponse lists every probe outcome
type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Ready runs every probe within a shared timeout and answers 503 when one
// of them fails.
//
//	GET /health/ready
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.probeTimeout)
	defer cancel()

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]CheckResult, len(h.probes))}
	for _, p := range h.probes {
		if err := p.Check(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Readiness check failed", zap.String("check", p.Name), zap.Error(err))
			resp.Status = "unavailable"
			resp.Checks[p.Name] = CheckResult{Status: "error", Error: err.Error()}
			continue
		}
		result := CheckResult{Status: "ok"}
		if p.Detail != nil {
			result.Detail = p.Detail()
		}
		resp.Checks[p.Name] = result
	}

	if resp.Status != "ready" {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
