// internal/api/middleware/logger.go
package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs the URI, method, status and duration of every request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			wrappedWriter := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrappedWriter, r)

			status := wrappedWriter.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("request handled",
				zap.String("uri", r.RequestURI),
				zap.String("method", r.Method),
				zap.Int("status", status),
				zap.Int("bytes", wrappedWriter.BytesWritten()),
				zap.Duration("duration", time.Since(startTime)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
