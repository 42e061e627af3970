package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// statusRecorder captures the response status code for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logger logs one structured line per completed request.
func Logger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			logger := GetLogger(r.Context())
			fields := []zap.Field{
				zap.Int("status", recorder.status),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case recorder.status >= 500:
				logger.Error("Request completed", fields...)
			case recorder.status >= 400:
				logger.Warn("Request completed", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
		})
	}
}
