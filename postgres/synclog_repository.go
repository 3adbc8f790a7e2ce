package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vishu3131/civisync/domain"
)

// SyncLogRepository implements domain.SyncLogRepository. The table is
// append-only; there is no update or delete path.
type SyncLogRepository struct {
	db *sql.DB
}

func NewSyncLogRepository(db *sql.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Append inserts one audit record.
func (r *SyncLogRepository) Append(ctx context.Context, entry *domain.SyncLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var snapshot any
	if entry.Snapshot != nil {
		raw, err := json.Marshal(entry.Snapshot)
		if err != nil {
			return err
		}
		snapshot = raw
	}

	var profileID any
	if entry.ProfileID != "" {
		profileID = entry.ProfileID
	}
	var action any
	if entry.Action != "" {
		action = string(entry.Action)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_logs (id, firebase_uid, profile_id, action, outcome, snapshot, error_message, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.FirebaseUID, profileID, action, entry.Outcome, snapshot,
		nullableString(entry.ErrorMessage), entry.Duration.Milliseconds(), entry.CreatedAt,
	)
	return err
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
