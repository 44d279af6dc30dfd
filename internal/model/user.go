// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an item owner.
//
// We use GitHub OAuth as the identity provider, so the primary external
// identifier is the GitHub user ID (an integer). We still generate our own
// internal string ID (xid) so items reference an id we control.
//
// LastUserAgent is refreshed by the UserAgent middleware whenever an
// authenticated request arrives from a different client.
type User struct {
	ID            string    `json:"id"            db:"id"`
	GitHubID      int64     `json:"githubId"      db:"github_id"`
	Login         string    `json:"login"         db:"login"`
	Email         string    `json:"email"         db:"email"`
	AvatarURL     string    `json:"avatarUrl"     db:"avatar_url"`
	LastUserAgent string    `json:"lastUserAgent" db:"last_user_agent"`
	CreatedAt     time.Time `json:"createdAt"     db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt"     db:"updated_at"`
}
