package domain

import (
	"context"
	"errors"
	"time"
)

// ErrProfileNotFound is returned by ProfileRepository lookups when no row
// exists for the given external user id.
var ErrProfileNotFound = errors.New("profile not found")

// ErrDuplicateProfile is returned by ProfileRepository.Create when the
// unique constraint on the external user id is violated.
var ErrDuplicateProfile = errors.New("profile already exists for this firebase uid")

// ProfileRepository defines the application-store operations the sync engine
// needs: point lookups, insert, and two update shapes with explicit column
// lists so that columns owned by other features are never clobbered.
type ProfileRepository interface {
	// GetByFirebaseUID returns the profile row for the external user id,
	// or ErrProfileNotFound.
	GetByFirebaseUID(ctx context.Context, firebaseUID string) (*ApplicationProfile, error)

	// Create inserts a new profile row. The repository assigns ID when
	// empty. Returns ErrDuplicateProfile on a unique-constraint violation.
	Create(ctx context.Context, profile *ApplicationProfile) error

	// UpdateIdentityFields updates the identity columns of the row matched
	// by profile.FirebaseUID and sets sync_status. Only identity columns
	// are written.
	UpdateIdentityFields(ctx context.Context, profile *ApplicationProfile) error

	// TouchSyncTimestamps bumps last_sync_at and provider_last_sign_in_at
	// on the row matched by firebaseUID without touching any other column.
	TouchSyncTimestamps(ctx context.Context, firebaseUID string, lastSyncAt time.Time, lastSignInAt *time.Time) error

	// SetSyncStatus writes only the sync_status column, used to flag rows
	// whose latest sync attempt failed.
	SetSyncStatus(ctx context.Context, firebaseUID string, status SyncStatus) error

	// Stats recomputes the aggregate counts by sync_status and the most
	// recent last_sync_at across all rows.
	Stats(ctx context.Context) (*SyncStats, error)
}

// MappingRepository maintains the external-id to internal-id index.
type MappingRepository interface {
	Upsert(ctx context.Context, mapping *IdentityMapping) error
	GetByFirebaseUID(ctx context.Context, firebaseUID string) (*IdentityMapping, error)
}

// SyncLogRepository appends audit records. Entries are immutable.
type SyncLogRepository interface {
	Append(ctx context.Context, entry *SyncLogEntry) error
}
