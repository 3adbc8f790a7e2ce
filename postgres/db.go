package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

const (
	ProfilesTable = "profiles"
	MappingTable  = "firebase_user_mapping"
	SyncLogsTable = "sync_logs"

	operationTimeout = 5 * time.Second
)

// schema bootstraps the tables owned by the sync engine. Columns owned by
// other features (roles, gamification counters) are added by their own
// migrations; the engine never reads or writes them.
const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id UUID PRIMARY KEY,
	firebase_uid TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	email_verified BOOLEAN NOT NULL DEFAULT FALSE,
	provider_created_at TIMESTAMPTZ,
	provider_last_sign_in_at TIMESTAMPTZ,
	last_sync_at TIMESTAMPTZ,
	sync_status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS firebase_user_mapping (
	firebase_uid TEXT PRIMARY KEY,
	profile_id UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sync_logs (
	id UUID PRIMARY KEY,
	firebase_uid TEXT NOT NULL,
	profile_id UUID,
	action TEXT,
	outcome TEXT NOT NULL,
	snapshot JSONB,
	error_message TEXT,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS sync_logs_firebase_uid_idx ON sync_logs (firebase_uid);
`

// Open connects to the application store and ensures the sync engine's
// tables exist.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
