package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const roleAdmin = "admin"

// ErrNoCredential is returned when a session has no bearer token.
var ErrNoCredential = errors.New("not signed in")

type User struct {
	Id        int
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

// Credentials exposes the bearer credential read-only.
type Credentials interface {
	BearerToken() (string, bool)
}

type claims struct {
	UserId    int    `json:"user_id"`
	Id        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	IsStaff   bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

// Session is the auth context handed to the API client and the booking
// coordinator. The token is decoded for display only; the API verifies it.
type Session struct {
	token     string
	user      User
	expiresAt time.Time
	now       func() time.Time
}

// Anonymous returns a session without a credential.
func Anonymous() *Session {
	return &Session{now: time.Now}
}

// New decodes token into a session.
func New(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoCredential
	}

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}

	id := c.UserId
	if id == 0 {
		id = c.Id
	}
	role := c.Role
	if role == "" && c.IsStaff {
		role = roleAdmin
	}
	s := &Session{
		token: token,
		user: User{
			Id:        id,
			Username:  c.Username,
			Email:     c.Email,
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Role:      role,
		},
		now: time.Now,
	}
	if c.ExpiresAt != nil {
		s.expiresAt = c.ExpiresAt.Time
	}
	return s, nil
}

// WithClock overrides the time source used for expiry checks.
func (s *Session) WithClock(now func() time.Time) *Session {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Session) BearerToken() (string, bool) {
	if s == nil || s.token == "" {
		return "", false
	}
	return s.token, true
}

// Authenticated reports whether the session holds an unexpired token.
func (s *Session) Authenticated() bool {
	if s == nil || s.token == "" {
		return false
	}
	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}

func (s *Session) User() User {
	if s == nil {
		return User{}
	}
	return s.user
}

func (s *Session) IsAdmin() bool {
	return strings.EqualFold(s.User().Role, roleAdmin)
}

func (s *Session) ExpiresAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.expiresAt
}
