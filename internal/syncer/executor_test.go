package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishu3131/civisync/domain"
	syncerrors "github.com/vishu3131/civisync/errors"
	"github.com/vishu3131/civisync/log"
)

func testLogger() log.Logger {
	return log.NewZerologAdapter(zerolog.Disabled, false)
}

func snapshotFor(uid, email string) *domain.IdentitySnapshot {
	now := time.Now().UTC()
	return &domain.IdentitySnapshot{
		UID:          uid,
		Email:        email,
		DisplayName:  "Ada Lovelace",
		LastSignInAt: &now,
	}
}

func TestExecutorCreate(t *testing.T) {
	profiles := newFakeProfileRepo()
	mappings := newFakeMappingRepo()
	logs := newFakeLogRepo()
	e := NewExecutor(profiles, mappings, logs, testLogger())

	result := e.Execute(context.Background(), domain.ActionCreate, snapshotFor("abc", "a@x.com"), nil)

	require.True(t, result.Success)
	assert.Equal(t, domain.ActionCreate, result.Action)
	assert.NotEmpty(t, result.ProfileID)

	row := profiles.get("abc")
	require.NotNil(t, row)
	assert.Equal(t, "a@x.com", row.Email)
	assert.Equal(t, domain.SyncStatusSynced, row.SyncStatus)
	require.NotNil(t, row.LastSyncAt)

	assert.Equal(t, 1, mappings.upsertCalls)
	entries := logs.all()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.OutcomeSuccess, entries[0].Outcome)
	assert.Equal(t, domain.ActionCreate, entries[0].Action)
	require.NotNil(t, entries[0].Snapshot)
}

func TestExecutorCreateRaceFallsBackToUpdate(t *testing.T) {
	profiles := newFakeProfileRepo()
	// Another writer won the insert between reconcile and execute.
	require.NoError(t, profiles.Create(context.Background(), &domain.ApplicationProfile{
		FirebaseUID: "abc",
		Email:       "old@x.com",
		SyncStatus:  domain.SyncStatusSynced,
	}))

	e := NewExecutor(profiles, newFakeMappingRepo(), newFakeLogRepo(), testLogger())
	result := e.Execute(context.Background(), domain.ActionCreate, snapshotFor("abc", "new@x.com"), nil)

	require.True(t, result.Success)
	assert.Equal(t, domain.ActionUpdateFull, result.Action)
	assert.Equal(t, 1, profiles.count())
	assert.Equal(t, "new@x.com", profiles.get("abc").Email)
}

func TestExecutorMappingFailureDoesNotFailSync(t *testing.T) {
	profiles := newFakeProfileRepo()
	mappings := newFakeMappingRepo()
	mappings.upsertErr = errors.New("mapping table unavailable")
	logs := newFakeLogRepo()
	e := NewExecutor(profiles, mappings, logs, testLogger())

	result := e.Execute(context.Background(), domain.ActionCreate, snapshotFor("abc", "a@x.com"), nil)

	require.True(t, result.Success)
	entries := logs.all()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.OutcomeSuccess, entries[0].Outcome)
}

func TestExecutorTimestampOnlyLeavesFieldsUntouched(t *testing.T) {
	profiles := newFakeProfileRepo()
	require.NoError(t, profiles.Create(context.Background(), &domain.ApplicationProfile{
		FirebaseUID: "abc",
		Email:       "a@x.com",
		FullName:    "Ada Lovelace",
		SyncStatus:  domain.SyncStatusSynced,
	}))
	existing := profiles.get("abc")

	e := NewExecutor(profiles, newFakeMappingRepo(), newFakeLogRepo(), testLogger())
	result := e.Execute(context.Background(), domain.ActionUpdateTimestamps, snapshotFor("abc", "a@x.com"), existing)

	require.True(t, result.Success)
	assert.Equal(t, 0, profiles.updateCalls)
	assert.Equal(t, 1, profiles.touchCalls)

	row := profiles.get("abc")
	assert.Equal(t, "a@x.com", row.Email)
	assert.Equal(t, "Ada Lovelace", row.FullName)
	require.NotNil(t, row.LastSyncAt)
}

func TestExecutorFailureFlagsRowAndLogsError(t *testing.T) {
	profiles := newFakeProfileRepo()
	require.NoError(t, profiles.Create(context.Background(), &domain.ApplicationProfile{
		FirebaseUID: "abc",
		Email:       "a@x.com",
		SyncStatus:  domain.SyncStatusSynced,
	}))
	existing := profiles.get("abc")
	profiles.updateErr = errors.New("connection reset")

	logs := newFakeLogRepo()
	e := NewExecutor(profiles, newFakeMappingRepo(), logs, testLogger())
	result := e.Execute(context.Background(), domain.ActionUpdateFull, snapshotFor("abc", "b@x.com"), existing)

	require.False(t, result.Success)
	var execErr *syncerrors.ExecutorError
	require.ErrorAs(t, result.Err, &execErr)

	entries := logs.all()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.OutcomeError, entries[0].Outcome)
	assert.NotEmpty(t, entries[0].ErrorMessage)

	assert.Equal(t, domain.SyncStatusError, profiles.get("abc").SyncStatus)
}

func TestExecutorPartialSnapshotPreservesFields(t *testing.T) {
	profiles := newFakeProfileRepo()
	require.NoError(t, profiles.Create(context.Background(), &domain.ApplicationProfile{
		FirebaseUID: "abc",
		Email:       "a@x.com",
		FullName:    "Ada Lovelace",
		AvatarURL:   "https://cdn.example/a.png",
		SyncStatus:  domain.SyncStatusSynced,
	}))
	existing := profiles.get("abc")

	// Document read failed upstream: the snapshot carries base fields only.
	snapshot := &domain.IdentitySnapshot{UID: "abc", Email: "b@x.com", EmailVerified: true}

	e := NewExecutor(profiles, newFakeMappingRepo(), newFakeLogRepo(), testLogger())
	result := e.Execute(context.Background(), domain.ActionUpdateFull, snapshot, existing)

	require.True(t, result.Success)
	row := profiles.get("abc")
	assert.Equal(t, "b@x.com", row.Email)
	assert.Equal(t, "Ada Lovelace", row.FullName, "empty snapshot field must not erase stored value")
	assert.Equal(t, "https://cdn.example/a.png", row.AvatarURL)
}
