package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vishu3131/civisync/domain"
)

// MappingRepository implements domain.MappingRepository.
type MappingRepository struct {
	db *sql.DB
}

func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Upsert inserts or refreshes the external-id to internal-id association.
func (r *MappingRepository) Upsert(ctx context.Context, mapping *domain.IdentityMapping) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO firebase_user_mapping (firebase_uid, profile_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (firebase_uid)
		DO UPDATE SET profile_id = EXCLUDED.profile_id, updated_at = EXCLUDED.updated_at`,
		mapping.FirebaseUID, mapping.ProfileID, now,
	)
	return err
}

// GetByFirebaseUID returns the mapping row, or domain.ErrProfileNotFound.
func (r *MappingRepository) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*domain.IdentityMapping, error) {
	var m domain.IdentityMapping
	err := r.db.QueryRowContext(ctx, `
		SELECT firebase_uid, profile_id, created_at, updated_at
		FROM firebase_user_mapping WHERE firebase_uid = $1`, firebaseUID).
		Scan(&m.FirebaseUID, &m.ProfileID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
