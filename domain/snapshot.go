package domain

import "time"

// IdentitySnapshot is a merged, point-in-time view of a user's identity as
// held by the identity provider: the base authentication record plus any
// allow-listed fields from the provider's profile document. It is fetched
// fresh for every sync attempt and never persisted by the engine.
type IdentitySnapshot struct {
	UID           string         `json:"uid"`
	Email         string         `json:"email"`
	DisplayName   string         `json:"display_name,omitempty"`
	AvatarURL     string         `json:"avatar_url,omitempty"`
	PhoneNumber   string         `json:"phone_number,omitempty"`
	EmailVerified bool           `json:"email_verified"`
	CreatedAt     *time.Time     `json:"created_at,omitempty"`
	LastSignInAt  *time.Time     `json:"last_sign_in_at,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}
