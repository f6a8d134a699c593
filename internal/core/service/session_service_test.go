package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func newSessionFixture(users map[string]*domain.User) (*SessionService, *mockSessionStore, *mockAddressAPI, *[]*domain.User) {
	store := &mockSessionStore{}
	addrAPI := &mockAddressAPI{}
	svc := NewSessionService(&mockAuth{users: users}, addrAPI, store, nil)

	var seen []*domain.User
	svc.OnIdentityChange(func(u *domain.User) {
		seen = append(seen, u)
	})
	return svc, store, addrAPI, &seen
}

func TestSession_LoginNotifiesAndPersists(t *testing.T) {
	user := &domain.User{ID: "u-1", Email: "a@bakery.test", Token: "opaque"}
	svc, store, _, seen := newSessionFixture(map[string]*domain.User{user.Email: user})

	got, err := svc.Login(context.Background(), Credentials{Email: user.Email, Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, "u-1", got.ID)
	assert.True(t, svc.IsAuthenticated())
	assert.False(t, svc.IsAdmin())
	require.Len(t, *seen, 1)
	assert.Equal(t, "u-1", (*seen)[0].ID)
	assert.Equal(t, "u-1", store.user.ID)
	assert.Zero(t, store.ttl, "opaque tokens are kept until cleared")
}

func TestSession_LoginValidatesInput(t *testing.T) {
	svc, _, _, seen := newSessionFixture(nil)

	_, err := svc.Login(context.Background(), Credentials{Email: "not-an-email", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Signup(context.Background(), Registration{Name: "A", Email: "a@bakery.test", Password: "123"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, *seen)
	assert.False(t, svc.IsAuthenticated())
}

func TestSession_LoginFailureKeepsSignedOut(t *testing.T) {
	store := &mockSessionStore{}
	backendErr := errors.New("Invalid email or password")
	svc := NewSessionService(&mockAuth{err: backendErr}, &mockAddressAPI{}, store, nil)

	_, err := svc.Login(context.Background(), Credentials{Email: "a@bakery.test", Password: "bad"})
	assert.ErrorIs(t, err, backendErr)
	assert.Nil(t, svc.CurrentUser())
	assert.Nil(t, store.user)
}

func TestSession_SignupSignsIn(t *testing.T) {
	svc, _, _, seen := newSessionFixture(nil)

	got, err := svc.Signup(context.Background(), Registration{Name: "Bea", Email: "bea@bakery.test", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "Bea", got.Name)
	assert.Len(t, *seen, 1)
	assert.True(t, svc.IsAuthenticated())
}

func TestSession_LogoutNotifiesNil(t *testing.T) {
	user := &domain.User{ID: "u-1", Email: "a@bakery.test", Token: "t"}
	svc, store, _, seen := newSessionFixture(map[string]*domain.User{user.Email: user})

	_, err := svc.Login(context.Background(), Credentials{Email: user.Email, Password: "secret"})
	require.NoError(t, err)

	svc.Logout(context.Background())
	require.Len(t, *seen, 2)
	assert.Nil(t, (*seen)[1])
	assert.Nil(t, store.user)
	assert.False(t, svc.IsAuthenticated())

	// logging out twice is quiet
	svc.Logout(context.Background())
	assert.Len(t, *seen, 2)
}

func TestSession_RestoreValidToken(t *testing.T) {
	svc, store, _, seen := newSessionFixture(nil)
	store.user = &domain.User{ID: "u-1", Token: signedToken(t, time.Now().Add(time.Hour))}

	got, err := svc.Restore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u-1", got.ID)
	assert.Len(t, *seen, 1)
}

func TestSession_RestoreExpiredTokenClears(t *testing.T) {
	svc, store, _, seen := newSessionFixture(nil)
	store.user = &domain.User{ID: "u-1", Token: signedToken(t, time.Now().Add(-time.Minute))}

	got, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, store.user)
	assert.Equal(t, 1, store.cleared)
	assert.Empty(t, *seen)
}

func TestSession_RestoreNothingStored(t *testing.T) {
	svc, _, _, seen := newSessionFixture(nil)

	got, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, *seen)
}

func TestSession_PersistTTLFollowsTokenExpiry(t *testing.T) {
	user := &domain.User{ID: "u-1", Email: "a@bakery.test", Token: signedToken(t, time.Now().Add(2*time.Hour))}
	svc, store, _, _ := newSessionFixture(map[string]*domain.User{user.Email: user})

	_, err := svc.Login(context.Background(), Credentials{Email: user.Email, Password: "secret"})
	require.NoError(t, err)

	assert.InDelta(t, (2 * time.Hour).Seconds(), store.ttl.Seconds(), 5)
}

func TestSession_UpdateAddresses(t *testing.T) {
	user := &domain.User{ID: "u-1", Email: "a@bakery.test", Token: "t"}
	svc, store, addrAPI, seen := newSessionFixture(map[string]*domain.User{user.Email: user})
	_, err := svc.Login(context.Background(), Credentials{Email: user.Email, Password: "secret"})
	require.NoError(t, err)

	draft := NewDraftAddress()
	draft.Street, draft.City, draft.State, draft.Zip = "1 Rye Rd", "Crumbton", "CA", "90000"
	draft.Default = true
	existing := domain.Address{ID: "a-1", Street: "2 Oat St", City: "Crumbton", State: "CA", Zip: "90001", Default: true}

	got, err := svc.UpdateAddresses(context.Background(), []domain.Address{draft, existing})
	require.NoError(t, err)

	require.Len(t, addrAPI.sent, 2)
	assert.Empty(t, addrAPI.sent[0].ID, "draft ids are not sent")
	assert.True(t, addrAPI.sent[0].Default)
	assert.False(t, addrAPI.sent[1].Default, "only one default address")

	assert.Equal(t, "saved-1 Rye Rd", got.Addresses[0].ID)
	assert.Equal(t, got.Addresses, svc.CurrentUser().Addresses)
	assert.Equal(t, got.Addresses, store.user.Addresses)
	assert.Len(t, *seen, 1, "address changes are not identity changes")
}

func TestSession_UpdateAddressesRejectsIncomplete(t *testing.T) {
	user := &domain.User{ID: "u-1", Email: "a@bakery.test", Token: "t"}
	svc, _, addrAPI, _ := newSessionFixture(map[string]*domain.User{user.Email: user})
	_, err := svc.Login(context.Background(), Credentials{Email: user.Email, Password: "secret"})
	require.NoError(t, err)

	_, err = svc.UpdateAddresses(context.Background(), []domain.Address{{Street: "1 Rye Rd"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Nil(t, addrAPI.sent)
}

func TestSession_UpdateAddressesRequiresLogin(t *testing.T) {
	svc, _, _, _ := newSessionFixture(nil)
	_, err := svc.UpdateAddresses(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSession_CurrentUserIsACopy(t *testing.T) {
	user := &domain.User{ID: "u-1", Email: "a@bakery.test", Token: "t", Addresses: []domain.Address{{ID: "a-1", Street: "x"}}}
	svc, _, _, _ := newSessionFixture(map[string]*domain.User{user.Email: user})
	_, err := svc.Login(context.Background(), Credentials{Email: user.Email, Password: "secret"})
	require.NoError(t, err)

	u := svc.CurrentUser()
	u.Addresses[0].Street = "changed"
	u.IsAdmin = true

	assert.Equal(t, "x", svc.CurrentUser().Addresses[0].Street)
	assert.False(t, svc.IsAdmin())
}

func TestDraftAddress(t *testing.T) {
	a := NewDraftAddress()
	assert.True(t, a.IsDraft())
	assert.NotEqual(t, a.ID, NewDraftAddress().ID)
}
