package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tabledesk/tabledesk/internal/server/dto"
	"github.com/tabledesk/tabledesk/internal/server/reqctx"
)

// compressible lists the response types worth compressing. XLSX files are
// already zip archives.
var compressible = []string{"application/json", "text/csv"}

// withMiddleware wraps h with request IDs, proxy aware client addresses,
// compression, access logging and panic recovery, outermost first.
func withMiddleware(h http.Handler) http.Handler {
	h = recoverPanics(h)
	h = accessLog(h)
	h = middleware.Compress(5, compressible...)(h)
	h = middleware.RealIP(h)
	return middleware.RequestID(h)
}

// accessLog logs one line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"dur", time.Since(start).Round(time.Millisecond),
			"ip", reqctx.GetClientIP(r),
			"req", middleware.GetReqID(r.Context()),
		)
	})
}

// recoverPanics turns a panicking handler into a 500 JSON error.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.ErrorContext(r.Context(), "Handler panic", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
			writeError(r.Context(), w, dto.Internal("Internal server error"))
		}()
		next.ServeHTTP(w, r)
	})
}
