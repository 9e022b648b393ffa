package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"clob-proxy-go/internal/auth"
	"clob-proxy-go/internal/model"
	"clob-proxy-go/internal/service"
)

// ProxyHandler relays requests to the upstream origin.
type ProxyHandler struct {
	gate      *auth.Gatekeeper
	forwarder *service.Forwarder
	logger    *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(gate *auth.Gatekeeper, fwd *service.Forwarder, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		gate:      gate,
		forwarder: fwd,
		logger:    logger.With("component", "proxy_handler"),
	}
}

// Handle checks the gate, forwards the request upstream and streams the
// response back. Rejected requests are answered locally with 401 and never
// reach the upstream; upstream transport failures become 502.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	if err := h.gate.Authorize(req.Method, req.Header); err != nil {
		h.logger.Warn("rejected request",
			"method", req.Method,
			"path", req.URL.Path,
		)
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized — invalid X-Proxy-Key",
		})
	}

	pr := &model.ProxyRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		Path:          req.URL.Path,
		RawPath:       req.URL.EscapedPath(),
		RawQuery:      req.URL.RawQuery,
		Header:        req.Header,
		Body:          req.Body,
		ContentLength: req.ContentLength,
	}

	resp, err := h.forwarder.Forward(pr)
	if err != nil {
		h.logger.Error("proxy error",
			"err", err,
			"method", req.Method,
			"path", req.URL.Path,
		)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error":  "Proxy error",
			"detail": err.Error(),
		})
	}
	defer func() { _ = resp.Body.Close() }()

	// Copy filtered response headers
	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Stream the upstream body directly to the client. If io.Copy fails
	// mid-stream (e.g. client disconnect, network error), the HTTP status
	// code has already been sent, so the client receives a truncated
	// response with the original status. This is an inherent trade-off of
	// streaming proxies; the error is logged for observability.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}
