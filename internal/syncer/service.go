package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/vishu3131/civisync/domain"
	syncerrors "github.com/vishu3131/civisync/errors"
	"github.com/vishu3131/civisync/internal/audit"
	"github.com/vishu3131/civisync/log"
)

// Service is the pipeline entry point exposed to the rest of the
// application: fetch, reconcile, execute, refresh stats.
type Service struct {
	provider   domain.IdentityProvider
	profiles   domain.ProfileRepository
	logs       domain.SyncLogRepository
	reconciler *Reconciler
	executor   *Executor
	stats      *StatsReporter
	logger     log.Logger

	batchRunning atomic.Bool
}

func NewService(
	provider domain.IdentityProvider,
	profiles domain.ProfileRepository,
	logs domain.SyncLogRepository,
	reconciler *Reconciler,
	executor *Executor,
	stats *StatsReporter,
	logger log.Logger,
) *Service {
	return &Service{
		provider:   provider,
		profiles:   profiles,
		logs:       logs,
		reconciler: reconciler,
		executor:   executor,
		stats:      stats,
		logger:     logger,
	}
}

// SyncUser runs the full pipeline for one user. Every invocation produces a
// SyncResult and a sync log entry, whatever the outcome.
func (s *Service) SyncUser(ctx context.Context, uid string) domain.SyncResult {
	start := time.Now()

	snapshot, err := s.provider.Fetch(ctx, uid)
	if err != nil {
		return s.failBeforeExecute(ctx, uid, start, err)
	}

	existing, err := s.profiles.GetByFirebaseUID(ctx, uid)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return s.failBeforeExecute(ctx, uid, start, &syncerrors.ExecutorError{UID: uid, Err: err})
	}
	if errors.Is(err, domain.ErrProfileNotFound) {
		existing = nil
	}

	action := s.reconciler.Reconcile(snapshot, existing)
	result := s.executor.Execute(ctx, action, snapshot, existing)
	if result.Success {
		s.stats.Invalidate()
	}
	return result
}

// failBeforeExecute records an attempt that never reached the executor:
// the log entry has no action, only the failure.
func (s *Service) failBeforeExecute(ctx context.Context, uid string, start time.Time, err error) domain.SyncResult {
	result := domain.SyncResult{
		Err:      err,
		Error:    err.Error(),
		Duration: time.Since(start),
	}
	s.logger.Error(ctx, "Sync pipeline failed before execute", err, map[string]any{"uid": uid})

	entry := &domain.SyncLogEntry{
		FirebaseUID:  uid,
		Outcome:      domain.OutcomeError,
		ErrorMessage: result.Error,
		Duration:     result.Duration,
	}
	if logErr := s.logs.Append(ctx, entry); logErr != nil {
		s.logger.Error(ctx, "Failed to append sync log entry", logErr, map[string]any{"uid": uid})
	}
	audit.Log("", uid, "", false, result.Duration, err)
	return result
}

// SyncAllUsers sweeps every profile document known to the provider through
// the pipeline sequentially. A sweep already in progress rejects the call.
// Per-item failures are counted, not retried.
func (s *Service) SyncAllUsers(ctx context.Context) (*domain.BatchResult, error) {
	if !s.batchRunning.CompareAndSwap(false, true) {
		return nil, syncerrors.ErrBatchInProgress
	}
	defer s.batchRunning.Store(false)

	uids, err := s.provider.ListUIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &domain.BatchResult{Total: len(uids)}
	for _, uid := range uids {
		if r := s.SyncUser(ctx, uid); r.Success {
			result.Success++
		} else {
			result.Errors++
		}
	}

	s.logger.Info(ctx, "Batch sync finished", map[string]any{
		"total":   result.Total,
		"success": result.Success,
		"errors":  result.Errors,
	})
	return result, nil
}

// BatchRunning reports whether a sweep is currently in progress.
func (s *Service) BatchRunning() bool {
	return s.batchRunning.Load()
}

// ForceSync bypasses debouncing and the queue entirely and syncs uid right
// now, provided the user still holds an active session.
func (s *Service) ForceSync(ctx context.Context, uid string) bool {
	authed, err := s.provider.IsAuthenticated(ctx, uid)
	if err != nil {
		s.logger.Error(ctx, "Force sync: session check failed", err, map[string]any{"uid": uid})
		return false
	}
	if !authed {
		s.logger.Warn(ctx, "Force sync rejected: user not authenticated", map[string]any{"uid": uid})
		return false
	}
	return s.SyncUser(ctx, uid).Success
}

// Stats exposes the stats reporter for observability surfaces.
func (s *Service) Stats(ctx context.Context) (*domain.SyncStats, error) {
	return s.stats.Stats(ctx)
}
