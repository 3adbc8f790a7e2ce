package domain

import "time"

// SyncAction is the write the reconciler decided on for one attempt.
type SyncAction string

const (
	ActionCreate           SyncAction = "create"
	ActionUpdateFull       SyncAction = "update"
	ActionUpdateTimestamps SyncAction = "update_timestamps"
)

// SyncOutcome is the terminal state of one sync attempt.
type SyncOutcome string

const (
	OutcomeSuccess SyncOutcome = "success"
	OutcomeError   SyncOutcome = "error"
)

// SyncLogEntry is one append-only audit record per sync attempt, success or
// failure. Entries are never mutated after insertion.
type SyncLogEntry struct {
	ID           string            `json:"id"`
	FirebaseUID  string            `json:"firebase_uid"`
	ProfileID    string            `json:"profile_id,omitempty"`
	Action       SyncAction        `json:"action,omitempty"`
	Outcome      SyncOutcome       `json:"outcome"`
	Snapshot     *IdentitySnapshot `json:"snapshot,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Duration     time.Duration     `json:"duration"`
	CreatedAt    time.Time         `json:"created_at"`
}

// SyncResult reports the outcome of one pipeline invocation for one user.
type SyncResult struct {
	Success   bool          `json:"success"`
	ProfileID string        `json:"profile_id,omitempty"`
	Action    SyncAction    `json:"action,omitempty"`
	Err       error         `json:"-"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// BatchResult reports the outcome of a full sweep over every provider
// profile document.
type BatchResult struct {
	Success int `json:"success"`
	Errors  int `json:"errors"`
	Total   int `json:"total"`
}

// SyncStats is a derived aggregate over all profile rows, recomputed on
// demand for observability surfaces.
type SyncStats struct {
	TotalUsers   int        `json:"total_users"`
	SyncedUsers  int        `json:"synced_users"`
	PendingUsers int        `json:"pending_users"`
	ErrorUsers   int        `json:"error_users"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
}
