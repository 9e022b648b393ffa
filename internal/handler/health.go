package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"clob-proxy-go/internal/config"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	cfg *config.Config
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// Health reports liveness, the region tag and the configured upstream.
// It bypasses the gate and never calls upstream.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"region": h.cfg.Server.Region,
		"target": h.cfg.Upstream.BaseURL,
	})
}
