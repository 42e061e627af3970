package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"starview/internal/contextutils"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// ContextKey type for context keys to avoid conflicts
type ContextKey string

const (
	// LoggerKey is the context key for the request-scoped logger
	LoggerKey ContextKey = "logger"
)

// Request ID header constants
const (
	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
)

// RequestID generates and injects unique correlation IDs for request tracing
func RequestID(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Honor an upstream request ID for distributed tracing
			requestID := r.Header.Get(HeaderXRequestID)
			if requestID == "" {
				requestID = r.Header.Get(HeaderXCorrelationID)
			}
			if requestID == "" {
				if id, err := uuid.NewV4(); err == nil {
					requestID = id.String()
				} else {
					requestID = fmt.Sprintf("req_%d", start.UnixNano())
				}
			}

			w.Header().Set(HeaderXRequestID, requestID)

			requestLogger := logger.With(
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", getClientIP(r)),
			)

			ctx := contextutils.WithRequestID(r.Context(), requestID)
			ctx = context.WithValue(ctx, LoggerKey, requestLogger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the request-scoped logger, or a no-op logger when
// the middleware did not run.
func GetLogger(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// getClientIP extracts the client IP, honoring proxy headers
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx != -1 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
