package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vishu3131/civisync/domain"
	syncerrors "github.com/vishu3131/civisync/errors"
	"github.com/vishu3131/civisync/log"
)

// Options configures the trigger manager. Zero values fall back to the
// defaults below.
type Options struct {
	SyncOnAuthChange    bool
	SyncOnProfileChange bool
	// BatchInterval enables the periodic full sweep when > 0.
	BatchInterval time.Duration
	DebounceDelay time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
}

// DefaultOptions returns the stock trigger configuration.
func DefaultOptions() Options {
	return Options{
		SyncOnAuthChange:    true,
		SyncOnProfileChange: true,
		BatchInterval:       0,
		DebounceDelay:       time.Second,
		MaxRetries:          3,
		RetryDelay:          5 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DebounceDelay <= 0 {
		o.DebounceDelay = d.DebounceDelay
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	return o
}

// Status is the trigger manager's observable state.
type Status struct {
	ActiveListeners int  `json:"active_listeners"`
	QueueSize       int  `json:"queue_size"`
	IsProcessing    bool `json:"is_processing"`
}

// TriggerManager coordinates the real-time sync lifecycle: it subscribes to
// auth-state changes and per-user profile-document changes, debounces bursts
// per user, drains a shared queue one user at a time, and retries failures
// with linear backoff. One instance per process, injected where needed.
type TriggerManager struct {
	svc      *Service
	provider domain.IdentityProvider
	opts     Options
	logger   log.Logger

	mu sync.Mutex
	// timers holds the per-user debounce or retry timer, cancel-and-replace.
	timers   map[string]*time.Timer
	queue    []string
	queued   map[string]struct{}
	attempts map[string]int
	watchers map[string]context.CancelFunc
	// authCancel tears down the auth-state subscription.
	authCancel func()
	batchStop  chan struct{}
	// isProcessing is the cooperative single-flight lock over queue drain.
	isProcessing bool
	started      bool

	listenCtx    context.Context
	listenCancel context.CancelFunc
	// pipelineCtx carries the Start context's values but not its
	// cancellation: an in-flight pipeline call always runs to completion.
	pipelineCtx context.Context
}

func NewTriggerManager(svc *Service, provider domain.IdentityProvider, opts Options, logger log.Logger) *TriggerManager {
	return &TriggerManager{
		svc:      svc,
		provider: provider,
		opts:     opts.withDefaults(),
		logger:   logger,
		timers:   make(map[string]*time.Timer),
		queued:   make(map[string]struct{}),
		attempts: make(map[string]int),
		watchers: make(map[string]context.CancelFunc),
	}
}

// Start subscribes to the provider's auth-state stream and, when
// configured, arms the periodic batch sweep. Calling Start on a running
// manager is an error.
func (m *TriggerManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("trigger manager already started")
	}
	listenCtx, cancel := context.WithCancel(ctx)
	m.listenCtx = listenCtx
	m.listenCancel = cancel
	m.pipelineCtx = context.WithoutCancel(ctx)
	m.started = true
	m.mu.Unlock()

	events, cancelAuth, err := m.provider.SubscribeAuthState(listenCtx)
	if err != nil {
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
		cancel()
		return err
	}

	m.mu.Lock()
	m.authCancel = cancelAuth
	if m.opts.BatchInterval > 0 {
		m.batchStop = make(chan struct{})
		go m.batchLoop(listenCtx, m.batchStop)
	}
	m.mu.Unlock()

	go m.authLoop(listenCtx, events)

	m.logger.Info(ctx, "Trigger manager started", map[string]any{
		"debounce_delay": m.opts.DebounceDelay.String(),
		"max_retries":    m.opts.MaxRetries,
		"batch_interval": m.opts.BatchInterval.String(),
	})
	return nil
}

func (m *TriggerManager) authLoop(ctx context.Context, events <-chan domain.AuthEvent) {
	for ev := range events {
		if ev.User == nil {
			m.handleLogout(ctx, ev.UID)
			continue
		}
		m.handleLogin(ctx, ev.User.UID)
	}
}

func (m *TriggerManager) handleLogin(ctx context.Context, uid string) {
	if m.opts.SyncOnProfileChange {
		m.startProfileWatcher(ctx, uid)
	}
	if m.opts.SyncOnAuthChange {
		m.scheduleSync(uid)
	}
}

// handleLogout tears down the per-user document listener immediately. Any
// id already queued is abandoned at drain time by the session check.
func (m *TriggerManager) handleLogout(ctx context.Context, uid string) {
	m.mu.Lock()
	cancel, ok := m.watchers[uid]
	if ok {
		delete(m.watchers, uid)
	}
	m.mu.Unlock()
	if ok {
		cancel()
		m.logger.Debug(ctx, "Stopped profile watcher on logout", map[string]any{"uid": uid})
	}
}

func (m *TriggerManager) startProfileWatcher(ctx context.Context, uid string) {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	if _, exists := m.watchers[uid]; exists {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	changes, cancel, err := m.provider.WatchProfile(ctx, uid)
	if err != nil {
		m.logger.Warn(ctx, "Failed to watch profile document", map[string]any{"uid": uid, "error": err.Error()})
		return
	}

	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		cancel()
		return
	}
	m.watchers[uid] = cancel
	m.mu.Unlock()

	go func() {
		for range changes {
			m.scheduleSync(uid)
		}
	}()
}

// scheduleSync (re)arms the per-user debounce timer. Each new event resets
// the window, coalescing bursts into one pipeline execution.
func (m *TriggerManager) scheduleSync(uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	if t, ok := m.timers[uid]; ok {
		t.Stop()
	}
	m.timers[uid] = time.AfterFunc(m.opts.DebounceDelay, func() {
		m.enqueue(uid)
	})
}

// enqueue inserts uid into the shared queue as a set member and kicks the
// single drain worker when idle.
func (m *TriggerManager) enqueue(uid string) {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	delete(m.timers, uid)
	if _, ok := m.queued[uid]; !ok {
		m.queued[uid] = struct{}{}
		m.queue = append(m.queue, uid)
	}
	startDrain := !m.isProcessing
	if startDrain {
		m.isProcessing = true
	}
	m.mu.Unlock()

	if startDrain {
		go m.drain()
	}
}

// drain processes queued ids one at a time. It is the only goroutine ever
// running the pipeline from the queue; overlapping invocations are
// prevented by isProcessing.
func (m *TriggerManager) drain() {
	for {
		m.mu.Lock()
		if !m.started || len(m.queue) == 0 {
			m.isProcessing = false
			m.mu.Unlock()
			return
		}
		uid := m.queue[0]
		m.queue = m.queue[1:]
		delete(m.queued, uid)
		ctx := m.pipelineCtx
		m.mu.Unlock()

		m.process(ctx, uid)
	}
}

func (m *TriggerManager) process(ctx context.Context, uid string) {
	authed, err := m.provider.IsAuthenticated(ctx, uid)
	if err == nil && !authed {
		// Logout between enqueue and drain: abandon without consuming a
		// retry. The next authenticated action re-triggers sync.
		m.logger.Info(ctx, "Abandoning queued sync, user no longer authenticated", map[string]any{
			"uid":    uid,
			"reason": syncerrors.ErrAuthenticationLost.Error(),
		})
		m.mu.Lock()
		delete(m.attempts, uid)
		m.mu.Unlock()
		return
	}

	result := m.svc.SyncUser(ctx, uid)
	if result.Success {
		m.mu.Lock()
		delete(m.attempts, uid)
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.attempts[uid]++
	attempt := m.attempts[uid]
	retry := attempt < m.opts.MaxRetries
	if !retry {
		delete(m.attempts, uid)
	}
	m.mu.Unlock()

	if retry {
		m.logger.Warn(ctx, "Sync attempt failed, scheduling retry", map[string]any{
			"uid":     uid,
			"attempt": attempt,
			"error":   result.Error,
		})
		m.scheduleRetry(uid, attempt)
		return
	}
	m.logger.Error(ctx, "Sync failed after max retries, giving up until next change event", result.Err, map[string]any{
		"uid":         uid,
		"max_retries": m.opts.MaxRetries,
	})
}

// scheduleRetry reschedules uid after retryDelay * attempt, linear backoff.
func (m *TriggerManager) scheduleRetry(uid string, attempt int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	if t, ok := m.timers[uid]; ok {
		t.Stop()
	}
	delay := m.opts.RetryDelay * time.Duration(attempt)
	m.timers[uid] = time.AfterFunc(delay, func() {
		m.enqueue(uid)
	})
}

func (m *TriggerManager) batchLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(m.opts.BatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := m.svc.SyncAllUsers(ctx); err != nil {
				if errors.Is(err, syncerrors.ErrBatchInProgress) {
					m.logger.Debug(ctx, "Skipping periodic sweep, batch already running")
					continue
				}
				m.logger.Error(ctx, "Periodic batch sync failed", err)
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Cleanup makes the manager fully inert: it unsubscribes all listeners,
// stops every pending timer, and clears the queue. Safe to call at any
// time, including repeatedly; an in-flight pipeline call finishes on its
// own, only future work is prevented.
func (m *TriggerManager) Cleanup() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false

	authCancel := m.authCancel
	m.authCancel = nil
	watchers := m.watchers
	m.watchers = make(map[string]context.CancelFunc)
	for uid, t := range m.timers {
		t.Stop()
		delete(m.timers, uid)
	}
	m.queue = nil
	m.queued = make(map[string]struct{})
	m.attempts = make(map[string]int)
	batchStop := m.batchStop
	m.batchStop = nil
	listenCancel := m.listenCancel
	m.mu.Unlock()

	if authCancel != nil {
		authCancel()
	}
	for _, cancel := range watchers {
		cancel()
	}
	if batchStop != nil {
		close(batchStop)
	}
	if listenCancel != nil {
		listenCancel()
	}
	m.logger.Info(context.Background(), "Trigger manager cleaned up")
}

// Status reports listener, queue, and drain state.
func (m *TriggerManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	listeners := len(m.watchers)
	if m.authCancel != nil {
		listeners++
	}
	return Status{
		ActiveListeners: listeners,
		QueueSize:       len(m.queue),
		IsProcessing:    m.isProcessing,
	}
}
