// v0
// internal/auth/auth.go

// Package auth is the identity collaborator: sign-up, sign-in, sign-out,
// current user and profile lookup. MemoryProvider is a development
// implementation backed by process memory.
package auth

import (
	"context"
	"errors"
	"time"
)

// Role values stored on a profile.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user already exists")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrNotFound           = errors.New("profile not found")
	ErrInvalidInput       = errors.New("email and password are required")
)

// User is the authenticated identity.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the per-user record carrying the role.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the profile may run control actions.
func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

// Session is returned by SignIn.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Provider is the identity collaborator used by the HTTP layer.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (User, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (User, error)
	UserProfile(ctx context.Context, userID string) (Profile, error)
}
