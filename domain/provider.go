package domain

import (
	"context"
	"time"
)

// AuthUser is the base authentication record as published by the identity
// provider on its auth-state stream.
type AuthUser struct {
	UID           string     `json:"uid"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name,omitempty"`
	PhotoURL      string     `json:"photo_url,omitempty"`
	PhoneNumber   string     `json:"phone_number,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	LastSignInAt  *time.Time `json:"last_sign_in_at,omitempty"`
}

// AuthEvent is one auth-state change. User is nil on logout; UID is always
// set so listeners can tear down per-user resources.
type AuthEvent struct {
	UID  string    `json:"uid"`
	User *AuthUser `json:"user,omitempty"`
}

// IdentityProvider is the upstream collaborator: the external authentication
// system and its attached profile-document store.
type IdentityProvider interface {
	// Fetch returns the merged identity snapshot for uid. The base
	// authentication read is mandatory; the profile-document read is
	// best-effort and degrades to base fields only.
	Fetch(ctx context.Context, uid string) (*IdentitySnapshot, error)

	// SubscribeAuthState starts delivering auth-state changes. The
	// returned cancel func stops delivery and closes the channel.
	SubscribeAuthState(ctx context.Context) (<-chan AuthEvent, func(), error)

	// WatchProfile streams change notifications for one user's profile
	// document until the cancel func is called.
	WatchProfile(ctx context.Context, uid string) (<-chan struct{}, func(), error)

	// ListUIDs enumerates the external ids of every profile document known
	// to the provider, for batch sweeps.
	ListUIDs(ctx context.Context) ([]string, error)

	// IsAuthenticated reports whether uid currently has an active session
	// with the provider.
	IsAuthenticated(ctx context.Context, uid string) (bool, error)
}
