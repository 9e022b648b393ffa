// Package auth implements the shared-secret gate for state-changing requests.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"clob-proxy-go/internal/config"
)

// ProxyKeyHeader carries the shared secret between caller and proxy.
// It is stripped before forwarding and never reaches the upstream.
const ProxyKeyHeader = "X-Proxy-Key"

// ErrInvalidProxyKey is returned when a write request is missing the shared
// secret or carries a value that does not match the configured one.
var ErrInvalidProxyKey = errors.New("invalid or missing X-Proxy-Key header")

// readMethods are safe/idempotent methods that are never gated.
var readMethods = map[string]bool{
	http.MethodGet:  true,
	http.MethodHead: true,
}

// Gatekeeper authorizes inbound requests against the configured shared secret.
type Gatekeeper struct {
	secret string
}

// NewGatekeeper creates a Gatekeeper. An empty auth.api_key disables the gate.
func NewGatekeeper(cfg *config.Config) *Gatekeeper {
	return &Gatekeeper{secret: cfg.Auth.APIKey}
}

// Authorize returns nil if the request may proceed upstream.
//
// Read methods (GET, HEAD) always pass, whether or not a secret is configured.
// With no configured secret every method passes. Otherwise a write request
// must carry a X-Proxy-Key header exactly equal to the secret; the comparison
// is constant-time.
func (g *Gatekeeper) Authorize(method string, header http.Header) error {
	if g.secret == "" || readMethods[method] {
		return nil
	}

	key := header.Get(ProxyKeyHeader)
	if subtle.ConstantTimeCompare([]byte(key), []byte(g.secret)) != 1 {
		return ErrInvalidProxyKey
	}
	return nil
}
