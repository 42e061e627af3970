package middleware

import (
	"net/http"
	"strconv"

	"starview/internal/contextutils"
	"starview/internal/response"
	"starview/internal/services"
)

// Identity header set by the platform's edge gateway after it has
// authenticated the caller.
const HeaderXUserID = "X-User-ID"

// Identity reads the gateway-authenticated user ID into the request
// context. It does not reject anonymous requests; see RequireUser.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := r.Header.Get(HeaderXUserID); raw != "" {
				if userID, err := strconv.ParseInt(raw, 10, 64); err == nil && userID > 0 {
					r = r.WithContext(contextutils.WithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects requests that carry no authenticated user.
func RequireUser(builder *response.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if contextutils.GetUserID(r.Context()) == 0 {
				builder.WriteError(w, r, &services.ServiceError{
					Type:       "UNAUTHORIZED",
					Message:    "authentication required",
					StatusCode: http.StatusUnauthorized,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
