package middleware

import (
	"net/http"
	"runtime"

	"starview/internal/response"
	"starview/internal/services"

	"go.uber.org/zap"
)

// Recovery converts handler panics into 500 responses and logs the
// stack so one broken request never takes the process down.
func Recovery(builder *response.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					stack := make([]byte, 8192)
					stack = stack[:runtime.Stack(stack, false)]

					GetLogger(r.Context()).Error("Handler panicked",
						zap.Any("panic", rec),
						zap.ByteString("stack", stack),
					)

					builder.WriteError(w, r, services.NewInternalError("unexpected server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
