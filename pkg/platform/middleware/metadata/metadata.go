// Package metadata stamps request-scoped client metadata into the context:
// a generated request ID, the resolved client IP, the User-Agent, and the
// device identifier reported by the punch client. Services read these back
// through pkg/requestcontext.
package metadata

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"punchtrust/pkg/requestcontext"
)

// deviceIDHeader carries the stable device identifier assigned by the punch
// client installation. Absence of the header is itself a trust signal.
const deviceIDHeader = "X-Device-ID"

// ClientMetadata extracts the request ID, client IP, User-Agent and device ID
// from the request and adds them to the context for handlers and services.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithClientMetadata(ctx, ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		if deviceID := strings.TrimSpace(r.Header.Get(deviceIDHeader)); deviceID != "" {
			ctx = requestcontext.WithDeviceID(ctx, deviceID)
		}

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...);
	// the first entry is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// X-Real-IP is set by nginx and similar proxies.
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" ("[::1]:port" for IPv6), so strip the port.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
