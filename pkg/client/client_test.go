package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aurora-advisory/advisory-api/internal/api"
	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/service"
	"github.com/aurora-advisory/advisory-api/internal/infrastructure/db/memory"
	"github.com/aurora-advisory/advisory-api/pkg/client"
)

func newServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	log := zerolog.Nop()

	e := api.NewRouter(api.Dependencies{
		Auth:     service.NewAuthService(store.Users(), store.Profiles(), "test-secret", time.Hour, log),
		Profiles: service.NewProfileService(store.Profiles(), log),
		Requests: service.NewRequestService(store.Requests(), memory.NewIdempotencyStore(time.Hour), log),
		Logger:   log,
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, store
}

func seedAdvisor(t *testing.T, store *memory.Store, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = store.Users().Create(context.Background(), &domain.User{
		Email: email, PasswordHash: string(hash), Role: domain.RoleAdvisor, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func registerAndLogin(t *testing.T, c *client.Client, email string) {
	t.Helper()
	ctx := context.Background()
	_, err := c.Register(ctx, client.RegisterInput{Email: email, FirstName: "A", LastName: "B", Password: "pw"})
	require.NoError(t, err)
	_, err = c.Login(ctx, email, "pw")
	require.NoError(t, err)
}

func retirement() client.CreateRequestInput {
	return client.CreateRequestInput{Goal: "retirement", Amount: 10000, TimeHorizonYears: 10, RiskProfile: "medium"}
}

func TestClient_EndToEnd(t *testing.T) {
	srv, store := newServer(t)
	ctx := context.Background()

	alice := client.New(srv.URL)
	user, err := alice.Register(ctx, client.RegisterInput{Email: "a@x.com", FirstName: "A", LastName: "B", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "client", user.Role)

	session, err := alice.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.True(t, session.Authenticated())
	assert.Equal(t, session, alice.Session())

	req, replayed, err := alice.CreateRequest(ctx, retirement(), "")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, client.StatusPending, req.Status)

	history, err := alice.History(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].OldStatus)

	seedAdvisor(t, store, "advisor@x.com", "pw")
	advisor := client.New(srv.URL)
	_, err = advisor.Login(ctx, "advisor@x.com", "pw")
	require.NoError(t, err)

	updated, err := advisor.UpdateStatus(ctx, req.ID, client.StatusInReview)
	require.NoError(t, err)
	assert.Equal(t, client.StatusInReview, updated.Status)

	history, err = advisor.History(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[1].OldStatus)
	assert.Equal(t, client.StatusPending, *history[1].OldStatus)

	_, err = alice.CancelRequest(ctx, req.ID)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "conflict", apiErr.Kind)
	assert.True(t, alice.Session().Authenticated())
}

func TestClient_SessionsAreIndependent(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()

	alice := client.New(srv.URL)
	bob := client.New(srv.URL)
	registerAndLogin(t, alice, "a@x.com")
	registerAndLogin(t, bob, "b@x.com")

	req, _, err := alice.CreateRequest(ctx, retirement(), "")
	require.NoError(t, err)

	mine, err := bob.MyRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = bob.MyRequest(ctx, req.ID)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClient_UnauthorizedClearsSession(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()

	c := client.New(srv.URL, client.WithSession(client.Session{AccessToken: "stale", TokenType: "bearer"}))
	_, err := c.MyRequests(ctx)
	assert.True(t, errors.Is(err, client.ErrUnauthenticated))
	assert.False(t, c.Session().Authenticated())

	_, err = c.Login(ctx, "ghost@x.com", "pw")
	assert.ErrorIs(t, err, client.ErrUnauthenticated)
}

func TestClient_ForbiddenKeepsSession(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()

	c := client.New(srv.URL)
	registerAndLogin(t, c, "a@x.com")

	_, err := c.ListRequests(ctx, client.ListOptions{})
	assert.ErrorIs(t, err, client.ErrForbidden)
	assert.True(t, c.Session().Authenticated())

	_, err = c.Stats(ctx)
	assert.ErrorIs(t, err, client.ErrForbidden)
}

func TestClient_ProfileAndIdempotency(t *testing.T) {
	srv, store := newServer(t)
	ctx := context.Background()

	c := client.New(srv.URL)
	registerAndLogin(t, c, "a@x.com")

	for _, income := range []int64{40000, 55000} {
		_, err := c.SaveProfile(ctx, client.ProfileInput{FirstName: "A", LastName: "B", Income: &income})
		require.NoError(t, err)
	}
	profile, err := c.MyProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, profile.Income)
	assert.EqualValues(t, 55000, *profile.Income)

	first, replayed, err := c.CreateRequest(ctx, retirement(), "retry-1")
	require.NoError(t, err)
	assert.False(t, replayed)
	second, replayed, err := c.CreateRequest(ctx, retirement(), "retry-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	seedAdvisor(t, store, "advisor@x.com", "pw")
	advisor := client.New(srv.URL)
	_, err = advisor.Login(ctx, "advisor@x.com", "pw")
	require.NoError(t, err)

	page, err := advisor.ListRequests(ctx, client.ListOptions{Status: client.StatusPending, Query: "retire"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a@x.com", page.Items[0].OwnerEmail)

	stats, err := advisor.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Pending)
	assert.EqualValues(t, 1, stats.Total)
}
