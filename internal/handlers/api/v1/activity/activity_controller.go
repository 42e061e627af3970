package activity

import (
	"encoding/json"
	"fmt"
	"net/http"

	"starview/internal/events"
	"starview/internal/response"
	"starview/internal/services"
	"starview/internal/validation"

	"go.uber.org/zap"
)

// ActivityController ingests platform activity events from internal
// services and publishes them onto the event bus.
type ActivityController struct {
	eventBus        events.EventBus
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewActivityController creates a new activity controller.
func NewActivityController(eventBus events.EventBus, logger *zap.Logger, responseBuilder *response.Builder) *ActivityController {
	return &ActivityController{
		eventBus:        eventBus,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// IngestEventRequest is the envelope posted by upstream platform services.
type IngestEventRequest struct {
	Type          string   `json:"type" validate:"required"`
	UserID        int64    `json:"user_id" validate:"required,gt=0"`
	ActorID       int64    `json:"actor_id,omitempty"`
	SubjectID     int64    `json:"subject_id,omitempty"`
	OwnerID       int64    `json:"owner_id,omitempty"`
	LocationID    *int64   `json:"location_id,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	Helpful       bool     `json:"helpful,omitempty"`
	ChangedFields []string `json:"changed_fields,omitempty"`
}

// IngestEvent handles POST /api/v1/internal/events
//
// The event is enqueued asynchronously; a 202 means accepted for
// evaluation, not that any badge was awarded.
func (c *ActivityController) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var req IngestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logger.Warn("Failed to decode activity event", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	event, err := c.buildEvent(&req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if err := c.eventBus.PublishAsync(r.Context(), event); err != nil {
		c.logger.Error("Failed to publish activity event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewInternalError("failed to enqueue event"))
		return
	}

	resp := c.responseBuilder.Success(r.Context(), map[string]string{
		"event_id": event.GetEventID(),
		"status":   "accepted",
	})
	c.responseBuilder.WriteJSON(w, r, resp, http.StatusAccepted)
}

func (c *ActivityController) buildEvent(req *IngestEventRequest) (events.Event, error) {
	switch req.Type {
	case events.EventTypeCheckinCreated:
		if req.LocationID == nil {
			return nil, services.NewValidationError("location_id is required for checkin events", nil)
		}
		return events.NewCheckinCreatedEvent(req.UserID, *req.LocationID), nil
	case events.EventTypeLocationCreated:
		if req.LocationID == nil {
			return nil, services.NewValidationError("location_id is required for location events", nil)
		}
		return events.NewLocationCreatedEvent(req.UserID, *req.LocationID), nil
	case events.EventTypeReviewCreated:
		if req.LocationID == nil {
			return nil, services.NewValidationError("location_id is required for review events", nil)
		}
		return events.NewReviewCreatedEvent(req.UserID, req.SubjectID, *req.LocationID, req.OwnerID, req.Rating), nil
	case events.EventTypeVoteReceived:
		return events.NewVoteReceivedEvent(req.UserID, req.SubjectID, req.ActorID, req.Helpful), nil
	case events.EventTypeFollowCreated:
		return events.NewFollowCreatedEvent(req.UserID, req.ActorID), nil
	case events.EventTypeCommentCreated:
		return events.NewCommentCreatedEvent(req.UserID, req.SubjectID), nil
	case events.EventTypePhotoUploaded:
		return events.NewPhotoUploadedEvent(req.UserID, req.SubjectID, req.LocationID), nil
	case events.EventTypeProfileUpdated:
		return events.NewProfileUpdatedEvent(req.UserID, req.ChangedFields), nil
	case events.EventTypeSignupConfirmed:
		return events.NewSignupConfirmedEvent(req.UserID), nil
	default:
		return nil, services.NewValidationError(fmt.Sprintf("unknown event type: %s", req.Type), nil)
	}
}
