package events

import "time"

// Activity event types emitted by the platform. The badge dispatcher
// subscribes to all of them; other consumers may subscribe to a subset.
const (
	EventTypeCheckinCreated  = "checkin.created"
	EventTypeLocationCreated = "location.created"
	EventTypeReviewCreated   = "review.created"
	EventTypeVoteReceived    = "vote.received"
	EventTypeFollowCreated   = "follow.created"
	EventTypeCommentCreated  = "comment.created"
	EventTypePhotoUploaded   = "photo.uploaded"
	EventTypeProfileUpdated  = "profile.updated"
	EventTypeSignupConfirmed = "signup.confirmed"
)

// AllActivityEventTypes lists every event type the platform emits for
// user activity.
func AllActivityEventTypes() []string {
	return []string{
		EventTypeCheckinCreated,
		EventTypeLocationCreated,
		EventTypeReviewCreated,
		EventTypeVoteReceived,
		EventTypeFollowCreated,
		EventTypeCommentCreated,
		EventTypePhotoUploaded,
		EventTypeProfileUpdated,
		EventTypeSignupConfirmed,
	}
}

// CheckinCreatedEvent is emitted when a user checks in at a location.
type CheckinCreatedEvent struct {
	BaseEvent
	LocationID int64 `json:"location_id"`
}

func NewCheckinCreatedEvent(userID, locationID int64) *CheckinCreatedEvent {
	return &CheckinCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypeCheckinCreated,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		LocationID: locationID,
	}
}

// LocationCreatedEvent is emitted when a user adds a new location.
type LocationCreatedEvent struct {
	BaseEvent
	LocationID int64 `json:"location_id"`
}

func NewLocationCreatedEvent(userID, locationID int64) *LocationCreatedEvent {
	return &LocationCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypeLocationCreated,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		LocationID: locationID,
	}
}

// ReviewCreatedEvent is emitted when a user publishes a review. UserID
// is the reviewer; OwnerID is the reviewed location's creator, whose
// quality standing the review changes.
type ReviewCreatedEvent struct {
	BaseEvent
	ReviewID   int64   `json:"review_id"`
	LocationID int64   `json:"location_id"`
	OwnerID    int64   `json:"owner_id"`
	Rating     float64 `json:"rating"`
}

func NewReviewCreatedEvent(userID, reviewID, locationID, ownerID int64, rating float64) *ReviewCreatedEvent {
	return &ReviewCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypeReviewCreated,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		ReviewID:   reviewID,
		LocationID: locationID,
		OwnerID:    ownerID,
		Rating:     rating,
	}
}

// VoteReceivedEvent is emitted for the review author when their review
// receives a helpfulness vote. UserID is the review author, not the voter.
type VoteReceivedEvent struct {
	BaseEvent
	ReviewID int64 `json:"review_id"`
	VoterID  int64 `json:"voter_id"`
	Helpful  bool  `json:"helpful"`
}

func NewVoteReceivedEvent(authorID, reviewID, voterID int64, helpful bool) *VoteReceivedEvent {
	return &VoteReceivedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypeVoteReceived,
			Timestamp: time.Now(),
			UserID:    &authorID,
		},
		ReviewID: reviewID,
		VoterID:  voterID,
		Helpful:  helpful,
	}
}

// FollowCreatedEvent is emitted for the followed user when they gain a
// follower. UserID is the user being followed.
type FollowCreatedEvent struct {
	BaseEvent
	FollowerID int64 `json:"follower_id"`
}

func NewFollowCreatedEvent(followedID, followerID int64) *FollowCreatedEvent {
	return &FollowCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypeFollowCreated,
			Timestamp: time.Now(),
			UserID:    &followedID,
		},
		FollowerID: followerID,
	}
}

// CommentCreatedEvent is emitted when a user posts a comment.
type CommentCreatedEvent struct {
	BaseEvent
	CommentID int64 `json:"comment_id"`
}

func NewCommentCreatedEvent(userID, commentID int64) *CommentCreatedEvent {
	return &CommentCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypeCommentCreated,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		CommentID: commentID,
	}
}

// PhotoUploadedEvent is emitted when a user uploads a photo.
type PhotoUploadedEvent struct {
	BaseEvent
	PhotoID    int64  `json:"photo_id"`
	LocationID *int64 `json:"location_id,omitempty"`
}

func NewPhotoUploadedEvent(userID, photoID int64, locationID *int64) *PhotoUploadedEvent {
	return &PhotoUploadedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypePhotoUploaded,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		PhotoID:    photoID,
		LocationID: locationID,
	}
}

// ProfileUpdatedEvent is emitted when a user edits their profile.
type ProfileUpdatedEvent struct {
	BaseEvent
	ChangedFields []string `json:"changed_fields,omitempty"`
}

func NewProfileUpdatedEvent(userID int64, changedFields []string) *ProfileUpdatedEvent {
	return &ProfileUpdatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypeProfileUpdated,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		ChangedFields: changedFields,
	}
}

// SignupConfirmedEvent is emitted once a new account is confirmed.
type SignupConfirmedEvent struct {
	BaseEvent
}

func NewSignupConfirmedEvent(userID int64) *SignupConfirmedEvent {
	return &SignupConfirmedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypeSignupConfirmed,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
	}
}
