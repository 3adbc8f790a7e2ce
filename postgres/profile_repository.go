package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vishu3131/civisync/domain"
)

// ProfileRepository implements domain.ProfileRepository on the relational
// application store. Every UPDATE names its columns explicitly so that
// columns owned by other features are never clobbered.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, firebase_uid, email, full_name, phone, avatar_url, email_verified,
	provider_created_at, provider_last_sign_in_at, last_sync_at, sync_status, created_at, updated_at`

func scanProfile(row *sql.Row) (*domain.ApplicationProfile, error) {
	var p domain.ApplicationProfile
	err := row.Scan(
		&p.ID, &p.FirebaseUID, &p.Email, &p.FullName, &p.Phone, &p.AvatarURL, &p.EmailVerified,
		&p.ProviderCreatedAt, &p.ProviderLastSignInAt, &p.LastSyncAt, &p.SyncStatus, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByFirebaseUID returns the profile row for the external user id.
func (r *ProfileRepository) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*domain.ApplicationProfile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE firebase_uid = $1`, firebaseUID)
	return scanProfile(row)
}

// Create inserts a new profile row, assigning an id when none is set.
func (r *ProfileRepository) Create(ctx context.Context, profile *domain.ApplicationProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, firebase_uid, email, full_name, phone, avatar_url, email_verified,
			provider_created_at, provider_last_sign_in_at, last_sync_at, sync_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		profile.ID, profile.FirebaseUID, profile.Email, profile.FullName, profile.Phone,
		profile.AvatarURL, profile.EmailVerified, profile.ProviderCreatedAt, profile.ProviderLastSignInAt,
		profile.LastSyncAt, profile.SyncStatus, profile.CreatedAt, profile.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateProfile
	}
	return err
}

// UpdateIdentityFields writes the identity columns of the row matched by
// firebase_uid. No other column is touched.
func (r *ProfileRepository) UpdateIdentityFields(ctx context.Context, profile *domain.ApplicationProfile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET
			email = $2,
			full_name = $3,
			phone = $4,
			avatar_url = $5,
			email_verified = $6,
			provider_last_sign_in_at = $7,
			last_sync_at = $8,
			sync_status = $9,
			updated_at = NOW()
		WHERE firebase_uid = $1`,
		profile.FirebaseUID, profile.Email, profile.FullName, profile.Phone, profile.AvatarURL,
		profile.EmailVerified, profile.ProviderLastSignInAt, profile.LastSyncAt, profile.SyncStatus,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// TouchSyncTimestamps bumps only the sync bookkeeping timestamps.
func (r *ProfileRepository) TouchSyncTimestamps(ctx context.Context, firebaseUID string, lastSyncAt time.Time, lastSignInAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET
			last_sync_at = $2,
			provider_last_sign_in_at = COALESCE($3, provider_last_sign_in_at)
		WHERE firebase_uid = $1`,
		firebaseUID, lastSyncAt, lastSignInAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// SetSyncStatus writes only the sync_status column.
func (r *ProfileRepository) SetSyncStatus(ctx context.Context, firebaseUID string, status domain.SyncStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET sync_status = $2, updated_at = NOW() WHERE firebase_uid = $1`,
		firebaseUID, status,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// Stats recomputes the aggregate counts in a single query.
func (r *ProfileRepository) Stats(ctx context.Context) (*domain.SyncStats, error) {
	var stats domain.SyncStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE sync_status = 'synced'),
			COUNT(*) FILTER (WHERE sync_status = 'pending'),
			COUNT(*) FILTER (WHERE sync_status = 'error'),
			MAX(last_sync_at)
		FROM profiles`).Scan(
		&stats.TotalUsers, &stats.SyncedUsers, &stats.PendingUsers, &stats.ErrorUsers, &stats.LastSyncAt,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
