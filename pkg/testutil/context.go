package testutil

import (
	"net/http"
	"time"

	"biasmeter/pkg/requestcontext"
)

// WithRequestID adds a request ID to the request context.
// This simulates what the requestid middleware does for inbound requests.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithClientIP adds a client IP to the request context.
func WithClientIP(req *http.Request, ip string) *http.Request {
	return req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
}

// WithRequestTime pins the request timestamp.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
