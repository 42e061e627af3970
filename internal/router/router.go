package router

import (
	"net/http"

	"starview/internal/handlers/api/v1/activity"
	"starview/internal/handlers/api/v1/badges"
	"starview/internal/middleware"
	"starview/internal/monitoring"
	"starview/internal/response"
	"starview/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SetupRouter configures all HTTP routes and returns the main handler.
func SetupRouter(sc *services.ServiceCollection, responseBuilder *response.Builder, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(logger))
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery(responseBuilder))
	r.Use(middleware.Identity())

	badgeController := badges.NewBadgeController(sc.BadgeService, sc.BackfillService, logger, responseBuilder)
	activityController := activity.NewActivityController(sc.EventBus, logger, responseBuilder)

	dashboard := monitoring.NewDashboard(sc.DBManager, sc.Cache, sc.EventBus, logger)

	r.Get("/health", healthHandler(sc, responseBuilder))
	r.Get("/internal/dashboard", func(w http.ResponseWriter, req *http.Request) {
		responseBuilder.WriteSuccess(w, req, dashboard.Collect(req.Context()))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/badges", badgeController.GetCatalog)
		r.Get("/badges/{slug}", badgeController.GetBadge)
		r.Get("/users/{username}/badges", badgeController.GetUserBadges)

		r.Route("/me/badges", func(r chi.Router) {
			r.Use(middleware.RequireUser(responseBuilder))
			r.Get("/", badgeController.GetMyCollection)
			r.Get("/pins", badgeController.GetMyPins)
			r.Put("/pins", badgeController.UpdateMyPins)
		})

		r.Post("/admin/badges/backfill", badgeController.RunBackfill)
		r.Post("/internal/events", activityController.IngestEvent)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responseBuilder.WriteError(w, req, services.NewNotFoundError("resource not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		resp := responseBuilder.Error(req.Context(), services.NewValidationError("method not allowed", nil))
		responseBuilder.WriteJSON(w, req, resp, http.StatusMethodNotAllowed)
	})

	return r
}

func healthHandler(sc *services.ServiceCollection, responseBuilder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := sc.Health(r.Context())

		healthy := true
		for _, status := range checks {
			if status != "healthy" {
				healthy = false
				break
			}
		}

		body := map[string]interface{}{
			"status": "healthy",
			"checks": checks,
		}
		status := http.StatusOK
		if !healthy {
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		resp := responseBuilder.Success(r.Context(), body)
		responseBuilder.WriteJSON(w, r, resp, status)
	}
}
