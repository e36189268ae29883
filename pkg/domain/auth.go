package domain

import (
	"context"
	"time"
)

// Role is the viewer's access level.
type Role string

// Roles, lowest privilege first.
const (
	RoleGuest  Role = "guest"
	RoleReader Role = "reader"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a cached flag value to a Role, defaulting to guest.
func ParseRole(v string) Role {
	switch Role(v) {
	case RoleReader, RoleAdmin:
		return Role(v)
	default:
		return RoleGuest
	}
}

// CanWrite reports whether the role may mutate agency data.
func (r Role) CanWrite() bool { return r == RoleAdmin }

// Session is an authenticated backend session.
type Session struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AuthProvider is the backend authentication contract. Subscribe delivers the
// new session (nil after sign-out) on every change and returns an
// unsubscribe function.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context) error
	UpdatePassword(ctx context.Context, newPassword string) error
	CurrentSession(ctx context.Context) (*Session, error)
	Subscribe(fn func(*Session)) (unsubscribe func())
}
