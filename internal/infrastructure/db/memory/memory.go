// Package memory is an in-process implementation of the repository ports.
// It is safe for concurrent use and backs local development and the
// end-to-end API tests when STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
)

// Store holds every collection behind one lock so a status write and its
// history entry are applied together.
type Store struct {
	mu           sync.RWMutex
	seq          int64
	users        map[string]*domain.User
	usersByEmail map[string]string
	profiles     map[string]*domain.ClientProfile // keyed by user id
	requests     map[string]*storedRequest
}

type storedRequest struct {
	req *domain.AdvisoryRequest
	seq int64
}

func New() *Store {
	return &Store{
		users:        make(map[string]*domain.User),
		usersByEmail: make(map[string]string),
		profiles:     make(map[string]*domain.ClientProfile),
		requests:     make(map[string]*storedRequest),
	}
}

// Users returns the ports.UserRepository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Profiles returns the ports.ProfileRepository view of the store.
func (s *Store) Profiles() *ProfileRepository { return &ProfileRepository{s: s} }

// Requests returns the ports.RequestRepository view of the store.
func (s *Store) Requests() *RequestRepository { return &RequestRepository{s: s} }

var (
	_ ports.UserRepository    = (*UserRepository)(nil)
	_ ports.ProfileRepository = (*ProfileRepository)(nil)
	_ ports.RequestRepository = (*RequestRepository)(nil)
)

// UserRepository --------------------------------------------------------------

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := r.s.usersByEmail[email]; exists {
		return nil, domain.ErrUserExists
	}

	stored := *user
	stored.ID = uuid.NewString()
	stored.Email = email
	r.s.users[stored.ID] = &stored
	r.s.usersByEmail[email] = stored.ID

	out := stored
	return &out, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *r.s.users[id]
	return &out, nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// ProfileRepository -----------------------------------------------------------

type ProfileRepository struct{ s *Store }

func (r *ProfileRepository) FindByUserID(_ context.Context, userID string) (*domain.ClientProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	out := *p
	return &out, nil
}

func (r *ProfileRepository) Upsert(_ context.Context, p *domain.ClientProfile) (*domain.ClientProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *p
	if existing, ok := r.s.profiles[p.UserID]; ok {
		stored.ID = existing.ID
	} else {
		stored.ID = uuid.NewString()
	}
	r.s.profiles[p.UserID] = &stored

	out := stored
	return &out, nil
}

func (r *ProfileRepository) CreateIfAbsent(_ context.Context, p *domain.ClientProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.profiles[p.UserID]; ok {
		return nil
	}
	stored := *p
	stored.ID = uuid.NewString()
	r.s.profiles[p.UserID] = &stored
	return nil
}

// RequestRepository -----------------------------------------------------------

type RequestRepository struct{ s *Store }

func cloneRequest(r *domain.AdvisoryRequest) *domain.AdvisoryRequest {
	out := *r
	out.History = append([]domain.StatusHistoryEntry(nil), r.History...)
	return &out
}

func (r *RequestRepository) Create(_ context.Context, req *domain.AdvisoryRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req.ID = uuid.NewString()
	for i := range req.History {
		req.History[i].RequestID = req.ID
	}
	r.s.seq++
	r.s.requests[req.ID] = &storedRequest{req: cloneRequest(req), seq: r.s.seq}
	return nil
}

func (r *RequestRepository) FindByID(_ context.Context, id string) (*domain.AdvisoryRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sr, ok := r.s.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return cloneRequest(sr.req), nil
}

func (r *RequestRepository) ListByUser(_ context.Context, userID string) ([]*domain.AdvisoryRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows := r.s.sortedLocked(func(req *domain.AdvisoryRequest) bool { return req.UserID == userID })
	out := make([]*domain.AdvisoryRequest, 0, len(rows))
	for _, sr := range rows {
		out = append(out, cloneRequest(sr.req))
	}
	return out, nil
}

func (r *RequestRepository) List(_ context.Context, f ports.ListRequestsFilter) ([]ports.RequestWithOwner, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := strings.ToLower(f.Query)
	rows := r.s.sortedLocked(func(req *domain.AdvisoryRequest) bool {
		if f.Status != "" && string(req.Status) != f.Status {
			return false
		}
		if q == "" {
			return true
		}
		if strings.Contains(strings.ToLower(req.Goal), q) {
			return true
		}
		if req.Notes != nil && strings.Contains(strings.ToLower(*req.Notes), q) {
			return true
		}
		owner, ok := r.s.users[req.UserID]
		return ok && strings.Contains(owner.Email, q)
	})

	total := int64(len(rows))
	if f.Skip >= len(rows) {
		return []ports.RequestWithOwner{}, total, nil
	}
	rows = rows[f.Skip:]
	if f.Limit > 0 && f.Limit < len(rows) {
		rows = rows[:f.Limit]
	}

	out := make([]ports.RequestWithOwner, 0, len(rows))
	for _, sr := range rows {
		item := ports.RequestWithOwner{Request: cloneRequest(sr.req)}
		if owner, ok := r.s.users[sr.req.UserID]; ok {
			item.Owner = domain.RequestOwner{Email: owner.Email, Role: owner.Role}
		}
		out = append(out, item)
	}
	return out, total, nil
}

// UpdateStatus checks the precondition and appends history under the write
// lock, so concurrent writers are serialized.
func (r *RequestRepository) UpdateStatus(_ context.Context, u ports.StatusUpdate) (*domain.AdvisoryRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sr, ok := r.s.requests[u.RequestID]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	req := sr.req
	if req.Status.IsTerminal() {
		return nil, domain.ErrTerminalStatus
	}
	if !containsStatus(u.From, req.Status) {
		return nil, domain.Conflictf("request status changed to %s concurrently", req.Status)
	}

	old := req.Status
	at := u.At.UTC()
	req.Status = u.To
	req.UpdatedAt = at
	req.History = append(req.History, domain.StatusHistoryEntry{
		RequestID: req.ID,
		OldStatus: &old,
		NewStatus: u.To,
		ChangedBy: u.ChangedBy,
		ChangedAt: at,
	})
	return cloneRequest(req), nil
}

func (r *RequestRepository) CountByStatus(_ context.Context) (map[domain.RequestStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[domain.RequestStatus]int64)
	for _, sr := range r.s.requests {
		out[sr.req.Status]++
	}
	return out, nil
}

// sortedLocked returns the matching requests newest first. Ties on created_at
// fall back to insertion order. Callers must hold the lock.
func (s *Store) sortedLocked(keep func(*domain.AdvisoryRequest) bool) []*storedRequest {
	rows := make([]*storedRequest, 0, len(s.requests))
	for _, sr := range s.requests {
		if keep(sr.req) {
			rows = append(rows, sr)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.req.CreatedAt.Equal(b.req.CreatedAt) {
			return a.req.CreatedAt.After(b.req.CreatedAt)
		}
		return a.seq > b.seq
	})
	return rows
}

func containsStatus(list []domain.RequestStatus, s domain.RequestStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// IdempotencyStore ------------------------------------------------------------

// IdempotencyStore keeps Idempotency-Key mappings in process with a TTL.
type IdempotencyStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	keys map[string]idemEntry
}

type idemEntry struct {
	value   string
	expires time.Time
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, now: time.Now, keys: make(map[string]idemEntry)}
}

// liveLocked returns the unexpired entry for k, dropping it once expired.
func (s *IdempotencyStore) liveLocked(k string) (idemEntry, bool) {
	e, ok := s.keys[k]
	if !ok {
		return idemEntry{}, false
	}
	if s.ttl > 0 && s.now().After(e.expires) {
		delete(s.keys, k)
		return idemEntry{}, false
	}
	return e, true
}

func (s *IdempotencyStore) Reserve(_ context.Context, scope, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := scope + ":" + key
	if _, held := s.liveLocked(k); held {
		return false, nil
	}
	s.keys[k] = idemEntry{value: ports.IdempotencyPending, expires: s.now().Add(s.ttl)}
	return true, nil
}

func (s *IdempotencyStore) Lookup(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.liveLocked(scope + ":" + key)
	return e.value, ok, nil
}

func (s *IdempotencyStore) Remember(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[scope+":"+key] = idemEntry{value: value, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, scope+":"+key)
	return nil
}
