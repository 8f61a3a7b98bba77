package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/eventhost/internal/platform/logger"
)

// RequestLogger logs one line per request after it completes. Health and
// metrics probes log at DEBUG.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		level := slog.LevelInfo
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			level = slog.LevelDebug
		}

		logger.FromContext(r.Context()).Log(r.Context(), level, "HTTP request",
			"method", r.Method,
			"route", r.URL.Path,
			"status_code", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"client", r.RemoteAddr)
	})
}
