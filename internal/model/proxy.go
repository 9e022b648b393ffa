// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest represents a client request to be forwarded upstream.
// RawPath carries the escaped form of Path and RawQuery is kept as the
// caller sent it; both travel byte-for-byte, never re-parsed or re-encoded.
// ContentLength mirrors http.Request.ContentLength: 0 means no body, -1
// means a body of unknown length.
type ProxyRequest struct {
	Ctx           context.Context
	Method        string
	Path          string
	RawPath       string
	RawQuery      string
	Header        http.Header
	Body          io.ReadCloser
	ContentLength int64
}

// ProxyResponse represents the upstream response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
