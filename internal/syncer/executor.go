package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/vishu3131/civisync/domain"
	syncerrors "github.com/vishu3131/civisync/errors"
	"github.com/vishu3131/civisync/internal/audit"
	"github.com/vishu3131/civisync/log"
)

// Executor performs the single write an action calls for, maintains the
// identity mapping, and appends one sync log entry per attempt.
type Executor struct {
	profiles domain.ProfileRepository
	mappings domain.MappingRepository
	logs     domain.SyncLogRepository
	logger   log.Logger
}

func NewExecutor(profiles domain.ProfileRepository, mappings domain.MappingRepository, logs domain.SyncLogRepository, logger log.Logger) *Executor {
	return &Executor{
		profiles: profiles,
		mappings: mappings,
		logs:     logs,
		logger:   logger,
	}
}

// Execute applies the reconciled action. Exactly one sync log entry is
// appended whatever the outcome. The mapping upsert runs only after the
// profile write is confirmed; its failure is a warning, not a rollback.
func (e *Executor) Execute(ctx context.Context, action domain.SyncAction, snapshot *domain.IdentitySnapshot, existing *domain.ApplicationProfile) domain.SyncResult {
	start := time.Now()

	var (
		profileID string
		err       error
	)
	switch action {
	case domain.ActionCreate:
		profileID, err = e.create(ctx, snapshot)
		if errors.Is(err, domain.ErrDuplicateProfile) {
			// Two first-syncs raced on the unique constraint: the other
			// writer won the insert, so re-read and update instead.
			e.logger.Warn(ctx, "Create race detected, falling back to update", map[string]any{"uid": snapshot.UID})
			var row *domain.ApplicationProfile
			if row, err = e.profiles.GetByFirebaseUID(ctx, snapshot.UID); err == nil {
				action = domain.ActionUpdateFull
				profileID, err = e.updateFull(ctx, snapshot, row)
			}
		}
	case domain.ActionUpdateFull:
		profileID, err = e.updateFull(ctx, snapshot, existing)
	case domain.ActionUpdateTimestamps:
		profileID, err = e.touchTimestamps(ctx, snapshot, existing)
	default:
		err = errors.New("unknown sync action")
	}

	result := domain.SyncResult{
		Action:   action,
		Duration: time.Since(start),
	}
	if err != nil {
		execErr := &syncerrors.ExecutorError{UID: snapshot.UID, Err: err}
		result.Err = execErr
		result.Error = execErr.Error()
		e.markError(ctx, snapshot.UID, existing)
	} else {
		result.Success = true
		result.ProfileID = profileID
		e.upsertMapping(ctx, snapshot.UID, profileID)
	}

	e.appendLog(ctx, snapshot, &result)
	audit.Log(string(action), snapshot.UID, result.ProfileID, result.Success, result.Duration, result.Err)
	return result
}

func (e *Executor) create(ctx context.Context, snapshot *domain.IdentitySnapshot) (string, error) {
	now := time.Now().UTC()
	profile := &domain.ApplicationProfile{
		FirebaseUID:          snapshot.UID,
		Email:                snapshot.Email,
		FullName:             snapshot.DisplayName,
		Phone:                snapshot.PhoneNumber,
		AvatarURL:            snapshot.AvatarURL,
		EmailVerified:        snapshot.EmailVerified,
		ProviderCreatedAt:    snapshot.CreatedAt,
		ProviderLastSignInAt: snapshot.LastSignInAt,
		LastSyncAt:           &now,
		SyncStatus:           domain.SyncStatusSynced,
	}
	if err := e.profiles.Create(ctx, profile); err != nil {
		return "", err
	}
	return profile.ID, nil
}

// updateFull writes all identity columns. Fields the snapshot has no data
// for keep their stored values so a partial snapshot never erases
// previously synced data.
func (e *Executor) updateFull(ctx context.Context, snapshot *domain.IdentitySnapshot, existing *domain.ApplicationProfile) (string, error) {
	updated := *existing
	if snapshot.Email != "" {
		updated.Email = snapshot.Email
	}
	if snapshot.DisplayName != "" {
		updated.FullName = snapshot.DisplayName
	}
	if snapshot.PhoneNumber != "" {
		updated.Phone = snapshot.PhoneNumber
	}
	if snapshot.AvatarURL != "" {
		updated.AvatarURL = snapshot.AvatarURL
	}
	updated.EmailVerified = snapshot.EmailVerified
	if snapshot.LastSignInAt != nil {
		updated.ProviderLastSignInAt = snapshot.LastSignInAt
	}
	now := time.Now().UTC()
	updated.LastSyncAt = &now
	updated.SyncStatus = domain.SyncStatusSynced

	if err := e.profiles.UpdateIdentityFields(ctx, &updated); err != nil {
		return "", err
	}
	return existing.ID, nil
}

func (e *Executor) touchTimestamps(ctx context.Context, snapshot *domain.IdentitySnapshot, existing *domain.ApplicationProfile) (string, error) {
	now := time.Now().UTC()
	if err := e.profiles.TouchSyncTimestamps(ctx, snapshot.UID, now, snapshot.LastSignInAt); err != nil {
		return "", err
	}
	return existing.ID, nil
}

func (e *Executor) upsertMapping(ctx context.Context, uid, profileID string) {
	err := e.mappings.Upsert(ctx, &domain.IdentityMapping{
		FirebaseUID: uid,
		ProfileID:   profileID,
	})
	if err != nil {
		// The mapping is a derived index, not the source of truth; the
		// profile write stands.
		e.logger.Warn(ctx, "Identity mapping upsert failed", map[string]any{
			"uid":        uid,
			"profile_id": profileID,
			"error":      err.Error(),
		})
	}
}

// markError flags the row so observability surfaces can show the failure.
// Best effort: the row may not exist yet, or the store may be down.
func (e *Executor) markError(ctx context.Context, uid string, existing *domain.ApplicationProfile) {
	if existing == nil {
		return
	}
	if err := e.profiles.SetSyncStatus(ctx, uid, domain.SyncStatusError); err != nil {
		e.logger.Warn(ctx, "Failed to flag profile sync error", map[string]any{"uid": uid, "error": err.Error()})
	}
}

func (e *Executor) appendLog(ctx context.Context, snapshot *domain.IdentitySnapshot, result *domain.SyncResult) {
	outcome := domain.OutcomeSuccess
	if !result.Success {
		outcome = domain.OutcomeError
	}
	entry := &domain.SyncLogEntry{
		FirebaseUID:  snapshot.UID,
		ProfileID:    result.ProfileID,
		Action:       result.Action,
		Outcome:      outcome,
		Snapshot:     snapshot,
		ErrorMessage: result.Error,
		Duration:     result.Duration,
	}
	if err := e.logs.Append(ctx, entry); err != nil {
		e.logger.Error(ctx, "Failed to append sync log entry", err, map[string]any{"uid": snapshot.UID})
	}
}
