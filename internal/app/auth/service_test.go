package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainauth "recyclemart/internal/domain/auth"
	"recyclemart/internal/domain/marketplace"
	"recyclemart/internal/infra/storage/memory"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) SignIn(ctx context.Context, creds marketplace.Credentials) (domainauth.Tokens, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(domainauth.Tokens), args.Error(1)
}

func (m *mockAPI) VerifySignupOTP(ctx context.Context, email, otp string) (domainauth.Tokens, error) {
	args := m.Called(ctx, email, otp)
	return args.Get(0).(domainauth.Tokens), args.Error(1)
}

func (m *mockAPI) ResendSignupOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAPI) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func signed(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"_id": userID, "role": "BUYER"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return token
}

func newService(api API) (*Service, *memory.SessionStore) {
	store := memory.NewSessionStore()
	return &Service{Store: store, API: api, Now: func() time.Time { return now }}, store
}

func TestLoginStoresSession(t *testing.T) {
	api := new(mockAPI)
	access := signed(t, "u1", now.Add(time.Hour))
	api.On("SignIn", mock.Anything, marketplace.Credentials{Email: "ann@example.com", Password: "pw"}).
		Return(domainauth.Tokens{AccessToken: access, RefreshToken: "r1"}, nil)
	svc, store := newService(api)

	hint, err := svc.Login(context.Background(), "  Ann@Example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", hint.UserID)
	assert.Equal(t, domainauth.RoleBuyer, hint.Role)

	session, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, access, session.AccessToken)
	assert.Equal(t, "r1", session.RefreshToken)
	api.AssertExpectations(t)
}

func TestLoginValidatesInput(t *testing.T) {
	svc, _ := newService(new(mockAPI))
	_, err := svc.Login(context.Background(), " ", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.VerifyOTP(context.Background(), "a@b.c", " ")
	require.ErrorIs(t, err, ErrOTPRequired)
}

func TestLoginFailureKeepsStoreEmpty(t *testing.T) {
	api := new(mockAPI)
	api.On("SignIn", mock.Anything, mock.Anything).Return(domainauth.Tokens{}, errors.New("bad password"))
	svc, store := newService(api)

	_, err := svc.Login(context.Background(), "a@b.c", "pw")
	require.Error(t, err)
	_, err = store.Load(context.Background())
	require.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestVerifyOTPSignsIn(t *testing.T) {
	api := new(mockAPI)
	api.On("VerifySignupOTP", mock.Anything, "a@b.c", "123456").
		Return(domainauth.Tokens{AccessToken: signed(t, "u2", time.Time{})}, nil)
	svc, _ := newService(api)

	hint, err := svc.VerifyOTP(context.Background(), "A@B.C", " 123456 ")
	require.NoError(t, err)
	assert.Equal(t, "u2", hint.UserID)
}

func TestAccessTokenWithoutSession(t *testing.T) {
	svc, _ := newService(new(mockAPI))
	_, err := svc.AccessToken(context.Background())
	require.ErrorIs(t, err, domainauth.ErrNotAuthenticated)
	_, err = svc.Identity(context.Background())
	require.ErrorIs(t, err, domainauth.ErrNotAuthenticated)
}

func TestAccessTokenValidIsReturnedAsIs(t *testing.T) {
	api := new(mockAPI)
	svc, store := newService(api)
	access := signed(t, "u1", now.Add(time.Minute))
	require.NoError(t, store.Save(context.Background(), domainauth.Session{Tokens: domainauth.Tokens{AccessToken: access, RefreshToken: "r"}}))

	got, err := svc.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, access, got)
	api.AssertNotCalled(t, "RefreshAccessToken", mock.Anything, mock.Anything)
}

func TestAccessTokenRefreshesExpired(t *testing.T) {
	api := new(mockAPI)
	fresh := signed(t, "u1", now.Add(time.Hour))
	api.On("RefreshAccessToken", mock.Anything, "r").Return(fresh, nil).Once()
	svc, store := newService(api)
	require.NoError(t, store.Save(context.Background(), domainauth.Session{Tokens: domainauth.Tokens{
		AccessToken:  signed(t, "u1", now.Add(-time.Minute)),
		RefreshToken: "r",
	}}))

	got, err := svc.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	session, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, session.AccessToken)
	assert.Equal(t, "r", session.RefreshToken)

	got, err = svc.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
	api.AssertExpectations(t)
}

func TestAccessTokenExpiredWithoutRefresh(t *testing.T) {
	svc, store := newService(new(mockAPI))
	require.NoError(t, store.Save(context.Background(), domainauth.Session{Tokens: domainauth.Tokens{
		AccessToken: signed(t, "u1", now.Add(-time.Minute)),
	}}))

	_, err := svc.AccessToken(context.Background())
	require.ErrorIs(t, err, domainauth.ErrNotAuthenticated)
}

func TestAccessTokenRefreshFailure(t *testing.T) {
	api := new(mockAPI)
	api.On("RefreshAccessToken", mock.Anything, "r").Return("", errors.New("revoked"))
	svc, store := newService(api)
	require.NoError(t, store.Save(context.Background(), domainauth.Session{Tokens: domainauth.Tokens{
		AccessToken:  signed(t, "u1", now.Add(-time.Minute)),
		RefreshToken: "r",
	}}))

	_, err := svc.AccessToken(context.Background())
	require.ErrorIs(t, err, domainauth.ErrNotAuthenticated)
	assert.Contains(t, err.Error(), "revoked")
}

func TestLogoutClearsSession(t *testing.T) {
	svc, store := newService(new(mockAPI))
	require.NoError(t, store.Save(context.Background(), domainauth.Session{Tokens: domainauth.Tokens{AccessToken: "a"}}))

	require.NoError(t, svc.Logout(context.Background()))
	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}
