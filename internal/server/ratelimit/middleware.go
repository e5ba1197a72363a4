// Provides response writers and keys for rate limiting.

package ratelimit

import (
	"net/http"
	"strconv"
)

// WriteHeaders writes rate limit headers to the response.
// Headers are written on all responses (both success and 429).
func WriteHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if !result.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
	}
}

// ResponseWriter injects rate limit headers before any response is written.
type ResponseWriter struct {
	http.ResponseWriter
	result      Result
	wroteHeader bool
}

// NewResponseWriter creates a response writer that injects rate limit headers.
func NewResponseWriter(w http.ResponseWriter, result Result) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, result: result}
}

// WriteHeader injects rate limit headers before writing the status code.
func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.writeHeaders()
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Write ensures headers are written before any body content.
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	rw.writeHeaders()
	return rw.ResponseWriter.Write(b)
}

func (rw *ResponseWriter) writeHeaders() {
	if !rw.wroteHeader {
		WriteHeaders(rw.ResponseWriter, rw.result)
		rw.wroteHeader = true
	}
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// BuildKey creates a rate limit bucket key from scope, identifier, and tier name.
func BuildKey(scope Scope, identifier, tierName string) string {
	var prefix string
	switch scope {
	case ScopeIP:
		prefix = "ip"
	case ScopeUser:
		prefix = "user"
	default:
		prefix = "unknown"
	}
	return prefix + ":" + identifier + ":" + tierName
}
