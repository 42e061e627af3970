package badges

import (
	"encoding/json"
	"net/http"

	"starview/internal/contextutils"
	"starview/internal/response"
	"starview/internal/services"
	"starview/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BadgeController handles badge API endpoints.
type BadgeController struct {
	badges          services.BadgeService
	backfill        services.BackfillService
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewBadgeController creates a new badge controller.
func NewBadgeController(
	badges services.BadgeService,
	backfill services.BackfillService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *BadgeController {
	return &BadgeController{
		badges:          badges,
		backfill:        backfill,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// GetCatalog handles GET /api/v1/badges
func (c *BadgeController) GetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := c.badges.GetCatalog(r.Context())
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, catalog)
}

// GetBadge handles GET /api/v1/badges/{slug}
func (c *BadgeController) GetBadge(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("badge slug is required", nil))
		return
	}

	badge, err := c.badges.GetBadgeBySlug(r.Context(), slug)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, badge)
}

// GetUserBadges handles GET /api/v1/users/{username}/badges
//
// Only earned badges are exposed; another user's progress is private.
func (c *BadgeController) GetUserBadges(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("username is required", nil))
		return
	}

	earned, err := c.badges.GetPublicCollection(r.Context(), username)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, earned)
}

// GetMyCollection handles GET /api/v1/me/badges
func (c *BadgeController) GetMyCollection(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	collection, err := c.badges.GetCollection(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, collection)
}

// GetMyPins handles GET /api/v1/me/badges/pins
func (c *BadgeController) GetMyPins(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	pinned, err := c.badges.GetPinnedBadges(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, pinned)
}

// UpdatePinsRequest is the payload for replacing the pinned selection.
// The pin limit is enforced by the service, which reads it from config.
type UpdatePinsRequest struct {
	BadgeIDs []int64 `json:"badge_ids" validate:"dive,gt=0"`
}

// UpdateMyPins handles PUT /api/v1/me/badges/pins
func (c *BadgeController) UpdateMyPins(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	var req UpdatePinsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logger.Warn("Failed to decode pin update request", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if err := c.badges.SetPinnedBadges(r.Context(), userID, req.BadgeIDs); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	pinned, err := c.badges.GetPinnedBadges(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, pinned)
}

// RunBackfill handles POST /api/v1/admin/badges/backfill
//
// The scan is synchronous; operators invoke it from maintenance jobs.
func (c *BadgeController) RunBackfill(w http.ResponseWriter, r *http.Request) {
	report, err := c.backfill.Run(r.Context())
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, report)
}
