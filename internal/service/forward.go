// Package service implements the core proxy forwarding logic.
package service

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"clob-proxy-go/internal/auth"
	"clob-proxy-go/internal/client"
	"clob-proxy-go/internal/config"
	"clob-proxy-go/internal/model"
)

// droppedRequestHeaders are stripped from the outbound request. Hop-by-hop and
// framing headers are only valid for a single connection leg; Host is always
// rewritten to the upstream authority; Content-Length is recomputed by the
// transport; the proxy key is a caller-to-proxy credential and must not leak
// upstream. Everything else, including caller auth, idempotency keys and
// tracing headers, passes through untouched.
var droppedRequestHeaders = map[string]bool{
	"Host":                true,
	"Connection":          true,
	"Keep-Alive":          true,
	"Transfer-Encoding":   true,
	"Te":                  true,
	"Trailer":             true,
	"Upgrade":             true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Content-Length":      true,
	auth.ProxyKeyHeader:   true,
}

// droppedResponseHeaders are stripped from the relayed response. The hosting
// HTTP layer re-frames the streamed body, so Content-Length must not be copied
// verbatim. Content-Encoding stays: when the transport transparently
// decompressed the body it already removed the header itself.
var droppedResponseHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Transfer-Encoding":   true,
	"Te":                  true,
	"Trailer":             true,
	"Upgrade":             true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Content-Length":      true,
}

const userAgent = "clob-proxy-go/1.0"

// Forwarder relays authorized requests to the configured upstream.
type Forwarder struct {
	client  *client.UpstreamClient
	logger  *slog.Logger
	baseURL *url.URL
}

// NewForwarder creates a Forwarder.
func NewForwarder(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*Forwarder, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}

	return &Forwarder{
		client:  c,
		logger:  logger.With("component", "forwarder"),
		baseURL: u,
	}, nil
}

// Forward sends a ProxyRequest to the upstream and returns the response.
// The caller is responsible for closing the response body.
//
// Exactly one outbound request is issued per call; failed calls are not
// retried. GET and HEAD never carry an outbound body, whatever the caller
// supplied. For other methods the inbound body is streamed byte-for-byte;
// a body with no declared Content-Type defaults to application/json.
func (f *Forwarder) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	upstreamURL := f.buildUpstreamURL(pr.Path, pr.RawPath, pr.RawQuery)
	header := filterRequestHeaders(pr.Header)

	var body io.Reader
	var contentLength int64
	if methodAllowsBody(pr.Method) && pr.Body != nil && pr.ContentLength != 0 {
		body = pr.Body
		contentLength = pr.ContentLength
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
	}

	f.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.Path,
	)

	resp, err := f.client.DoStream(pr.Ctx, pr.Method, upstreamURL, header, body, contentLength)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	resp.Header = filterResponseHeaders(resp.Header)
	return resp, nil
}

// buildUpstreamURL joins the upstream base with the caller's path and raw
// query. Path escaping and the query survive byte-for-byte; re-encoding them
// could change signatures computed over the original string. A path prefix on
// the base URL is kept, so a base of https://host/api maps /book to /api/book.
func (f *Forwarder) buildUpstreamURL(path, rawPath, rawQuery string) string {
	u := *f.baseURL
	u.Path, u.RawPath = joinURLPath(f.baseURL, path, rawPath)
	u.RawQuery = rawQuery
	return u.String()
}

// joinURLPath joins the base URL's path with the inbound path in both decoded
// and escaped forms, keeping exactly one slash at the seam. Same approach as
// net/http/httputil's reverse proxy.
func joinURLPath(base *url.URL, path, rawPath string) (string, string) {
	if rawPath == "" {
		rawPath = path
	}
	apath := base.EscapedPath()
	aslash := strings.HasSuffix(apath, "/")
	bslash := strings.HasPrefix(rawPath, "/")
	switch {
	case aslash && bslash:
		return base.Path + path[1:], apath + rawPath[1:]
	case !aslash && !bslash:
		return base.Path + "/" + path, apath + "/" + rawPath
	}
	return base.Path + path, apath + rawPath
}

// methodAllowsBody reports whether an outbound body may be sent for method.
func methodAllowsBody(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}

func filterRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if droppedRequestHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		dst[http.CanonicalHeaderKey(key)] = vals
	}
	if dst.Get("User-Agent") == "" {
		dst.Set("User-Agent", userAgent)
	}
	return dst
}

func filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if droppedResponseHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		dst[key] = vals
	}
	return dst
}
