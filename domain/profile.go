package domain

import "time"

// SyncStatus is the synchronization state recorded on a profile row.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusError   SyncStatus = "error"
)

// ApplicationProfile is the system-of-record profile row in the application
// store. The sync engine creates it on first successful sync and afterwards
// only ever writes identity columns; role and gamification columns belong to
// other features and are never touched here.
type ApplicationProfile struct {
	ID                   string     `json:"id"`
	FirebaseUID          string     `json:"firebase_uid"`
	Email                string     `json:"email"`
	FullName             string     `json:"full_name,omitempty"`
	Phone                string     `json:"phone,omitempty"`
	AvatarURL            string     `json:"avatar_url,omitempty"`
	EmailVerified        bool       `json:"email_verified"`
	ProviderCreatedAt    *time.Time `json:"provider_created_at,omitempty"`
	ProviderLastSignInAt *time.Time `json:"provider_last_sign_in_at,omitempty"`
	LastSyncAt           *time.Time `json:"last_sync_at,omitempty"`
	SyncStatus           SyncStatus `json:"sync_status"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IdentityMapping associates the provider-assigned user id with the internal
// profile id. It is a derived convenience index for O(1) lookups by other
// features, upserted after every successful sync write.
type IdentityMapping struct {
	FirebaseUID string    `json:"firebase_uid"`
	ProfileID   string    `json:"profile_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
