package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	domainauth "recyclemart/internal/domain/auth"
	"recyclemart/internal/domain/marketplace"
)

var (
	ErrInvalidCredentials = errors.New("auth: email and password are required")
	ErrOTPRequired        = errors.New("auth: email and code are required")
)

// API is the subset of the marketplace REST API the service signs in with.
type API interface {
	SignIn(ctx context.Context, creds marketplace.Credentials) (domainauth.Tokens, error)
	VerifySignupOTP(ctx context.Context, email, otp string) (domainauth.Tokens, error)
	ResendSignupOTP(ctx context.Context, email string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
}

// Service owns the local session: it signs in, persists tokens and hands out
// a usable access token to the chat connection.
type Service struct {
	Store  domainauth.SessionStore
	API    API
	Logger *slog.Logger
	// Now is used for expiry checks.
	Now func() time.Time

	refreshMu sync.Mutex
}

func (s *Service) Login(ctx context.Context, email, password string) (domainauth.IdentityHint, error) {
	if err := s.ensureDependencies(); err != nil {
		return domainauth.IdentityHint{}, err
	}
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domainauth.IdentityHint{}, ErrInvalidCredentials
	}
	tokens, err := s.API.SignIn(ctx, marketplace.Credentials{Email: email, Password: password})
	if err != nil {
		return domainauth.IdentityHint{}, err
	}
	return s.persist(ctx, tokens, "user signed in")
}

// VerifyOTP completes sign-up with the emailed code and signs the user in.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) (domainauth.IdentityHint, error) {
	if err := s.ensureDependencies(); err != nil {
		return domainauth.IdentityHint{}, err
	}
	email = normalizeEmail(email)
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" {
		return domainauth.IdentityHint{}, ErrOTPRequired
	}
	tokens, err := s.API.VerifySignupOTP(ctx, email, otp)
	if err != nil {
		return domainauth.IdentityHint{}, err
	}
	return s.persist(ctx, tokens, "signup verified")
}

func (s *Service) ResendOTP(ctx context.Context, email string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	email = normalizeEmail(email)
	if email == "" {
		return ErrOTPRequired
	}
	return s.API.ResendSignupOTP(ctx, email)
}

func (s *Service) Logout(ctx context.Context) error {
	if s.Store == nil {
		return errors.New("auth: session store required")
	}
	if err := s.Store.Clear(ctx); err != nil {
		return err
	}
	s.logger().Info("session cleared")
	return nil
}

// AccessToken returns the stored access token, refreshing it first when its
// exp claim has passed and a refresh token is available. It returns
// domainauth.ErrNotAuthenticated when nobody is signed in.
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	if s.Store == nil {
		return "", errors.New("auth: session store required")
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	session, err := s.Store.Load(ctx)
	if errors.Is(err, domainauth.ErrSessionNotFound) {
		return "", domainauth.ErrNotAuthenticated
	}
	if err != nil {
		return "", err
	}
	hint, err := domainauth.DecodeIdentityHint(session.AccessToken)
	if err != nil || !hint.Expired(s.now()) {
		// Undecodable tokens are passed through; the server decides.
		return session.AccessToken, nil
	}
	if session.RefreshToken == "" || s.API == nil {
		return "", fmt.Errorf("%w: access token expired", domainauth.ErrNotAuthenticated)
	}
	fresh, err := s.API.RefreshAccessToken(ctx, session.RefreshToken)
	if err != nil {
		s.logger().Warn("token refresh failed", "error", err)
		return "", fmt.Errorf("%w: refresh failed: %v", domainauth.ErrNotAuthenticated, err)
	}
	updated, err := domainauth.NewSession(domainauth.Tokens{AccessToken: fresh, RefreshToken: session.RefreshToken}, s.now())
	if err != nil {
		return "", err
	}
	if err := s.Store.Save(ctx, updated); err != nil {
		return "", err
	}
	s.logger().Info("access token refreshed", "user_id", hint.UserID)
	return fresh, nil
}

// Identity decodes the stored access token without refreshing it.
func (s *Service) Identity(ctx context.Context) (domainauth.IdentityHint, error) {
	if s.Store == nil {
		return domainauth.IdentityHint{}, errors.New("auth: session store required")
	}
	session, err := s.Store.Load(ctx)
	if errors.Is(err, domainauth.ErrSessionNotFound) {
		return domainauth.IdentityHint{}, domainauth.ErrNotAuthenticated
	}
	if err != nil {
		return domainauth.IdentityHint{}, err
	}
	return domainauth.DecodeIdentityHint(session.AccessToken)
}

func (s *Service) persist(ctx context.Context, tokens domainauth.Tokens, event string) (domainauth.IdentityHint, error) {
	session, err := domainauth.NewSession(tokens, s.now())
	if err != nil {
		return domainauth.IdentityHint{}, err
	}
	hint, err := domainauth.DecodeIdentityHint(tokens.AccessToken)
	if err != nil {
		return domainauth.IdentityHint{}, err
	}
	if err := s.Store.Save(ctx, session); err != nil {
		return domainauth.IdentityHint{}, err
	}
	s.logger().Info(event, "user_id", hint.UserID, "role", hint.Role)
	return hint, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Store == nil:
		return errors.New("auth: session store required")
	case s.API == nil:
		return errors.New("auth: api client required")
	default:
		return nil
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
