package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenRequired  = errors.New("auth: token is required")
	ErrTokenMalformed = errors.New("auth: token is malformed")
	ErrSubjectMissing = errors.New("auth: token carries no user id")
)

// Role of a marketplace account.
type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleVendor Role = "VENDOR"
)

// Tokens is the pair issued by the marketplace API on sign in.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Empty reports whether no access token is present.
func (t Tokens) Empty() bool {
	return strings.TrimSpace(t.AccessToken) == ""
}

// IdentityHint is read from the access token payload without checking the
// signature. It may only drive presentation, such as deciding which messages
// are the user's own. Authorization decisions stay with the server.
type IdentityHint struct {
	UserID    string
	Name      string
	Email     string
	Phone     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim has passed at the given time.
// Tokens without exp never expire.
func (h IdentityHint) Expired(at time.Time) bool {
	if h.ExpiresAt.IsZero() {
		return false
	}
	if at.IsZero() {
		at = time.Now()
	}
	return !h.ExpiresAt.After(at)
}

type hintClaims struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// DecodeIdentityHint extracts the user id and profile claims from a JWT.
func DecodeIdentityHint(token string) (IdentityHint, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return IdentityHint{}, ErrTokenRequired
	}
	var claims hintClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return IdentityHint{}, ErrTokenMalformed
	}
	id := strings.TrimSpace(claims.ID)
	if id == "" {
		id = strings.TrimSpace(claims.Subject)
	}
	if id == "" {
		return IdentityHint{}, ErrSubjectMissing
	}
	hint := IdentityHint{
		UserID: id,
		Name:   claims.Name,
		Email:  claims.Email,
		Phone:  claims.Phone,
		Role:   Role(strings.ToUpper(claims.Role)),
	}
	if claims.IssuedAt != nil {
		hint.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		hint.ExpiresAt = claims.ExpiresAt.Time
	}
	return hint, nil
}
