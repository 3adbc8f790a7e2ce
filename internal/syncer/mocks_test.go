package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vishu3131/civisync/domain"
	syncerrors "github.com/vishu3131/civisync/errors"
)

// fakeProfileRepo is an in-memory domain.ProfileRepository.
type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.ApplicationProfile
	nextID   int

	createErr error
	updateErr error
	touchErr  error

	createCalls int
	updateCalls int
	touchCalls  int
	statsCalls  int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*domain.ApplicationProfile)}
}

func (r *fakeProfileRepo) GetByFirebaseUID(_ context.Context, uid string) (*domain.ApplicationProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) Create(_ context.Context, profile *domain.ApplicationProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.profiles[profile.FirebaseUID]; ok {
		return domain.ErrDuplicateProfile
	}
	if profile.ID == "" {
		r.nextID++
		profile.ID = fmt.Sprintf("profile-%d", r.nextID)
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	cp := *profile
	r.profiles[profile.FirebaseUID] = &cp
	return nil
}

func (r *fakeProfileRepo) UpdateIdentityFields(_ context.Context, profile *domain.ApplicationProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.profiles[profile.FirebaseUID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	stored.Email = profile.Email
	stored.FullName = profile.FullName
	stored.Phone = profile.Phone
	stored.AvatarURL = profile.AvatarURL
	stored.EmailVerified = profile.EmailVerified
	stored.ProviderLastSignInAt = profile.ProviderLastSignInAt
	stored.LastSyncAt = profile.LastSyncAt
	stored.SyncStatus = profile.SyncStatus
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeProfileRepo) TouchSyncTimestamps(_ context.Context, uid string, lastSyncAt time.Time, lastSignInAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchCalls++
	if r.touchErr != nil {
		return r.touchErr
	}
	stored, ok := r.profiles[uid]
	if !ok {
		return domain.ErrProfileNotFound
	}
	stored.LastSyncAt = &lastSyncAt
	if lastSignInAt != nil {
		stored.ProviderLastSignInAt = lastSignInAt
	}
	return nil
}

func (r *fakeProfileRepo) SetSyncStatus(_ context.Context, uid string, status domain.SyncStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.profiles[uid]
	if !ok {
		return domain.ErrProfileNotFound
	}
	stored.SyncStatus = status
	return nil
}

func (r *fakeProfileRepo) Stats(_ context.Context) (*domain.SyncStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statsCalls++
	stats := &domain.SyncStats{}
	for _, p := range r.profiles {
		stats.TotalUsers++
		switch p.SyncStatus {
		case domain.SyncStatusSynced:
			stats.SyncedUsers++
		case domain.SyncStatusPending:
			stats.PendingUsers++
		case domain.SyncStatusError:
			stats.ErrorUsers++
		}
		if p.LastSyncAt != nil && (stats.LastSyncAt == nil || p.LastSyncAt.After(*stats.LastSyncAt)) {
			stats.LastSyncAt = p.LastSyncAt
		}
	}
	return stats, nil
}

func (r *fakeProfileRepo) get(uid string) *domain.ApplicationProfile {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (r *fakeProfileRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.profiles)
}

// fakeMappingRepo is an in-memory domain.MappingRepository.
type fakeMappingRepo struct {
	mu          sync.Mutex
	byUID       map[string]string
	upsertErr   error
	upsertCalls int
}

func newFakeMappingRepo() *fakeMappingRepo {
	return &fakeMappingRepo{byUID: make(map[string]string)}
}

func (r *fakeMappingRepo) Upsert(_ context.Context, mapping *domain.IdentityMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.byUID[mapping.FirebaseUID] = mapping.ProfileID
	return nil
}

func (r *fakeMappingRepo) GetByFirebaseUID(_ context.Context, uid string) (*domain.IdentityMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byUID[uid]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &domain.IdentityMapping{FirebaseUID: uid, ProfileID: id}, nil
}

// fakeLogRepo records appended entries.
type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*domain.SyncLogEntry
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{}
}

func (r *fakeLogRepo) Append(_ context.Context, entry *domain.SyncLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeLogRepo) all() []*domain.SyncLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.SyncLogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// fakeProvider is an in-memory domain.IdentityProvider driven by tests.
type fakeProvider struct {
	mu         sync.Mutex
	snapshots  map[string]*domain.IdentitySnapshot
	fetchErrs  map[string]error
	authed     map[string]bool
	uids       []string
	fetchCalls int

	authCh       chan domain.AuthEvent
	authOnce     sync.Once
	profileChans map[string]chan struct{}

	// listGate, when set, blocks ListUIDs until it receives, and signals
	// listStarted first. Used to hold a batch sweep open.
	listGate    chan struct{}
	listStarted chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		snapshots:    make(map[string]*domain.IdentitySnapshot),
		fetchErrs:    make(map[string]error),
		authed:       make(map[string]bool),
		authCh:       make(chan domain.AuthEvent),
		profileChans: make(map[string]chan struct{}),
	}
}

func (p *fakeProvider) setSnapshot(s *domain.IdentitySnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *s
	p.snapshots[s.UID] = &cp
}

func (p *fakeProvider) setAuthed(uid string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authed[uid] = ok
}

func (p *fakeProvider) fetchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchCalls
}

func (p *fakeProvider) Fetch(_ context.Context, uid string) (*domain.IdentitySnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCalls++
	if err, ok := p.fetchErrs[uid]; ok {
		return nil, &syncerrors.FetchError{UID: uid, Err: err}
	}
	s, ok := p.snapshots[uid]
	if !ok {
		return nil, &syncerrors.FetchError{UID: uid, Err: domain.ErrProfileNotFound}
	}
	cp := *s
	return &cp, nil
}

func (p *fakeProvider) SubscribeAuthState(_ context.Context) (<-chan domain.AuthEvent, func(), error) {
	cancel := func() {
		p.authOnce.Do(func() { close(p.authCh) })
	}
	return p.authCh, cancel, nil
}

func (p *fakeProvider) WatchProfile(_ context.Context, uid string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{})
	p.mu.Lock()
	p.profileChans[uid] = ch
	p.mu.Unlock()
	var once sync.Once
	cancel := func() {
		once.Do(func() { close(ch) })
		p.mu.Lock()
		delete(p.profileChans, uid)
		p.mu.Unlock()
	}
	return ch, cancel, nil
}

func (p *fakeProvider) ListUIDs(_ context.Context) ([]string, error) {
	p.mu.Lock()
	gate := p.listGate
	started := p.listStarted
	uids := make([]string, len(p.uids))
	copy(uids, p.uids)
	p.mu.Unlock()
	if gate != nil {
		if started != nil {
			started <- struct{}{}
		}
		<-gate
	}
	return uids, nil
}

func (p *fakeProvider) IsAuthenticated(_ context.Context, uid string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok, known := p.authed[uid]
	if !known {
		return true, nil
	}
	return ok, nil
}

// login pushes an auth event for uid onto the stream.
func (p *fakeProvider) login(uid string) {
	p.authCh <- domain.AuthEvent{UID: uid, User: &domain.AuthUser{UID: uid}}
}

// logout pushes a logout event for uid onto the stream.
func (p *fakeProvider) logout(uid string) {
	p.authCh <- domain.AuthEvent{UID: uid}
}

// fireProfileChange emits one document-change notification for uid.
func (p *fakeProvider) fireProfileChange(uid string) bool {
	p.mu.Lock()
	ch, ok := p.profileChans[uid]
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- struct{}{}
	return true
}
