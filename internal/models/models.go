package models

import "time"

// User carries the profile fields the badge engine reads. The full user
// model (auth, sessions, preferences) lives outside this core; the engine
// only needs the identity and the profile-completion fields.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Bio       *string   `json:"bio,omitempty" db:"bio"`
	Location  *string   `json:"location,omitempty" db:"location"`
	AvatarURL *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
