package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
)

func newRequest(userID, goal string, createdAt time.Time) *domain.AdvisoryRequest {
	return &domain.AdvisoryRequest{
		UserID:           userID,
		Goal:             goal,
		Amount:           1000,
		TimeHorizonYears: 5,
		RiskProfile:      domain.RiskLow,
		Status:           domain.StatusPending,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
		History: []domain.StatusHistoryEntry{{
			NewStatus: domain.StatusPending,
			ChangedBy: userID,
			ChangedAt: createdAt,
		}},
	}
}

func TestUserRepository_EmailIsUniqueCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	users := New().Users()

	created, err := users.Create(ctx, &domain.User{Email: "Ana@Example.com", Role: domain.RoleClient})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ana@example.com", created.Email)

	_, err = users.Create(ctx, &domain.User{Email: "ana@example.COM", Role: domain.RoleClient})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	found, err := users.FindByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = users.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestProfileRepository_OnePerUser(t *testing.T) {
	ctx := context.Background()
	profiles := New().Profiles()

	require.NoError(t, profiles.CreateIfAbsent(ctx, &domain.ClientProfile{UserID: "u1", FirstName: "Ana", LastName: "Diaz"}))
	base, err := profiles.FindByUserID(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, profiles.CreateIfAbsent(ctx, &domain.ClientProfile{UserID: "u1", FirstName: "Other", LastName: "Name"}))
	unchanged, err := profiles.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", unchanged.FirstName)

	updated, err := profiles.Upsert(ctx, &domain.ClientProfile{UserID: "u1", FirstName: "Ana", LastName: "Ruiz"})
	require.NoError(t, err)
	assert.Equal(t, base.ID, updated.ID)
	assert.Equal(t, "Ruiz", updated.LastName)

	_, err = profiles.FindByUserID(ctx, "u2")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestRequestRepository_ListOrderingAndSearch(t *testing.T) {
	ctx := context.Background()
	store := New()
	owner, err := store.Users().Create(ctx, &domain.User{Email: "owner@example.com", Role: domain.RoleClient})
	require.NoError(t, err)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	requests := store.Requests()
	old := newRequest(owner.ID, "House deposit", base)
	mid := newRequest(owner.ID, "Retirement", base.Add(time.Hour))
	notes := "college fund for kids"
	mid.Notes = &notes
	recent := newRequest("someone-else", "Travel", base.Add(2*time.Hour))
	for _, r := range []*domain.AdvisoryRequest{old, mid, recent} {
		require.NoError(t, requests.Create(ctx, r))
	}
	assert.Equal(t, old.ID, old.History[0].RequestID)

	mine, err := requests.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, mid.ID, mine[0].ID)
	assert.Equal(t, old.ID, mine[1].ID)

	all, total, err := requests.List(ctx, ports.ListRequestsFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 2)
	assert.Equal(t, recent.ID, all[0].Request.ID)
	assert.Equal(t, "owner@example.com", all[1].Owner.Email)

	byNotes, total, err := requests.List(ctx, ports.ListRequestsFilter{Query: "COLLEGE", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, mid.ID, byNotes[0].Request.ID)

	byEmail, total, err := requests.List(ctx, ports.ListRequestsFilter{Query: "owner@", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, byEmail, 2)

	pastEnd, total, err := requests.List(ctx, ports.ListRequestsFilter{Skip: 10, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Empty(t, pastEnd)
}

func TestRequestRepository_UpdateStatusPreconditions(t *testing.T) {
	ctx := context.Background()
	requests := New().Requests()
	req := newRequest("u1", "Retirement", time.Now())
	require.NoError(t, requests.Create(ctx, req))

	_, err := requests.UpdateStatus(ctx, ports.StatusUpdate{
		RequestID: req.ID, From: []domain.RequestStatus{domain.StatusInReview}, To: domain.StatusCompleted, ChangedBy: "adv",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	updated, err := requests.UpdateStatus(ctx, ports.StatusUpdate{
		RequestID: req.ID, From: []domain.RequestStatus{domain.StatusPending}, To: domain.StatusCancelled, ChangedBy: "u1", At: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)
	require.Len(t, updated.History, 2)
	require.NotNil(t, updated.History[1].OldStatus)
	assert.Equal(t, domain.StatusPending, *updated.History[1].OldStatus)

	_, err = requests.UpdateStatus(ctx, ports.StatusUpdate{
		RequestID: req.ID, From: domain.AllStatuses, To: domain.StatusPending, ChangedBy: "adv",
	})
	assert.ErrorIs(t, err, domain.ErrTerminalStatus)

	_, err = requests.UpdateStatus(ctx, ports.StatusUpdate{RequestID: "missing", From: domain.AllStatuses, To: domain.StatusPending})
	assert.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestRequestRepository_ConcurrentWritesKeepHistoryConsistent(t *testing.T) {
	ctx := context.Background()
	requests := New().Requests()
	req := newRequest("u1", "Retirement", time.Now())
	require.NoError(t, requests.Create(ctx, req))

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			to := domain.StatusInReview
			if i%2 == 0 {
				to = domain.StatusPending
			}
			_, _ = requests.UpdateStatus(ctx, ports.StatusUpdate{
				RequestID: req.ID,
				From:      []domain.RequestStatus{domain.StatusPending, domain.StatusInReview},
				To:        to,
				ChangedBy: "adv",
				At:        time.Now(),
			})
		}(i)
	}
	wg.Wait()

	got, err := requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, got.History, writers+1)
	for i := 1; i < len(got.History); i++ {
		require.NotNil(t, got.History[i].OldStatus)
		assert.Equal(t, got.History[i-1].NewStatus, *got.History[i].OldStatus)
	}
	assert.Equal(t, got.Status, got.History[len(got.History)-1].NewStatus)
}

func TestIdempotencyStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Remember(ctx, "u1", "key", "req-1"))

	v, ok, err := store.Lookup(ctx, "u1", "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "req-1", v)

	_, ok, _ = store.Lookup(ctx, "u2", "key")
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = store.Lookup(ctx, "u1", "key")
	assert.False(t, ok)
}

func TestIdempotencyStore_ReserveHasOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore(time.Hour)

	const callers = 50
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := store.Reserve(ctx, "u1", "key")
			assert.NoError(t, err)
			if won {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())

	v, ok, err := store.Lookup(ctx, "u1", "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ports.IdempotencyPending, v)

	require.NoError(t, store.Remember(ctx, "u1", "key", "req-1"))
	v, _, _ = store.Lookup(ctx, "u1", "key")
	assert.Equal(t, "req-1", v)

	won, err := store.Reserve(ctx, "u1", "key")
	require.NoError(t, err)
	assert.False(t, won, "a completed key stays held")
}

func TestIdempotencyStore_ReleaseAndExpiryFreeTheKey(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	won, _ := store.Reserve(ctx, "u1", "key")
	require.True(t, won)
	require.NoError(t, store.Release(ctx, "u1", "key"))
	won, _ = store.Reserve(ctx, "u1", "key")
	require.True(t, won)

	now = now.Add(2 * time.Minute)
	won, _ = store.Reserve(ctx, "u1", "key")
	assert.True(t, won, "an expired reservation can be claimed again")
}
