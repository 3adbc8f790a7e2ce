package audit

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is one structured audit record for a sync attempt. It complements
// the durable sync_logs table with an operator-visible stream.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action,omitempty"`
	UID        string    `json:"uid"`
	ProfileID  string    `json:"profile_id,omitempty"`
	Success    bool      `json:"success"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

var auditLogger = log.Output(os.Stdout).With().Logger()

// Log records one sync attempt on the audit stream.
func Log(action, uid, profileID string, success bool, duration time.Duration, err error) {
	event := Event{
		Timestamp:  time.Now().UTC(),
		Action:     action,
		UID:        uid,
		ProfileID:  profileID,
		Success:    success,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		event.Error = err.Error()
	}

	entry, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		// Fallback to field-by-field logging if marshaling fails.
		auditLogger.Error().
			Str("action", action).
			Str("uid", uid).
			Str("profile_id", profileID).
			Bool("success", success).
			Err(err).
			Msg("Audit log (fallback)")
		return
	}
	auditLogger.Log().RawJSON("audit_event", entry).Msg("")
}
