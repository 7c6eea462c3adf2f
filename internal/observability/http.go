package observability

import (
	"net"
	"net/http"
	"strings"
)

// Request metadata helpers. Websocket connections outlive their HTTP
// handshake, so these values are captured once at upgrade time into the
// connection info and reused for every event the connection later emits.

// DeviceIDFromRequest reads the client-supplied device identifier, empty
// when the client sends none.
func DeviceIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Device-Id")
}

// RequestIDFromRequest reads the edge-assigned request id.
func RequestIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Request-Id")
}

// IPFromRequest resolves the client address, preferring the first
// X-Forwarded-For hop set by the proxy in front of the service.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
