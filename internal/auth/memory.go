// v0
// internal/auth/memory.go
package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	profile Profile
	hash    []byte
}

// MemoryProvider keeps accounts and revoked tokens in memory.
type MemoryProvider struct {
	jwt  *JWTManager
	log  *slog.Logger
	cost int

	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[string]*account
	revoked map[string]time.Time
}

// NewMemoryProvider builds an empty provider.
func NewMemoryProvider(jwt *JWTManager, log *slog.Logger) *MemoryProvider {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &MemoryProvider{
		jwt:     jwt,
		log:     log,
		cost:    bcrypt.DefaultCost,
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
		revoked: make(map[string]time.Time),
	}
}

// SeedAdmin creates an admin account. It is a no-op when email is empty.
func (p *MemoryProvider) SeedAdmin(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	_, err := p.create(email, password, RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	p.log.Info("admin_seeded", slog.String("email", normalise(email)))
	return nil
}

// SignUp registers a user with the "user" role.
func (p *MemoryProvider) SignUp(_ context.Context, email, password string) (User, error) {
	acc, err := p.create(email, password, RoleUser)
	if err != nil {
		return User{}, err
	}
	p.log.Info("user_signed_up", slog.String("user_id", acc.profile.ID))
	return userOf(acc.profile), nil
}

func (p *MemoryProvider) create(email, password, role string) (*account, error) {
	email = normalise(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byEmail[email]; ok {
		return nil, ErrUserExists
	}
	acc := &account{
		profile: Profile{ID: uuid.NewString(), Email: email, Role: role, CreatedAt: time.Now().UTC()},
		hash:    hash,
	}
	p.byEmail[email] = acc
	p.byID[acc.profile.ID] = acc
	return acc, nil
}

// SignIn checks the password and issues a session token.
func (p *MemoryProvider) SignIn(_ context.Context, email, password string) (Session, error) {
	p.mu.RLock()
	acc, ok := p.byEmail[normalise(email)]
	p.mu.RUnlock()
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, exp, err := p.jwt.GenerateAccessToken(acc.profile)
	if err != nil {
		return Session{}, err
	}
	p.log.Info("user_signed_in", slog.String("user_id", acc.profile.ID))
	return Session{Token: token, ExpiresAt: exp, User: userOf(acc.profile)}, nil
}

// SignOut revokes token until it would have expired anyway.
func (p *MemoryProvider) SignOut(_ context.Context, token string) error {
	claims, err := p.jwt.ValidateToken(token)
	if err != nil {
		return ErrUnauthenticated
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for id, exp := range p.revoked {
		if exp.Before(now) {
			delete(p.revoked, id)
		}
	}
	p.revoked[claims.ID] = claims.ExpiresAt.Time
	p.log.Info("user_signed_out", slog.String("user_id", claims.Subject))
	return nil
}

// CurrentUser resolves a token to its user.
func (p *MemoryProvider) CurrentUser(_ context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrUnauthenticated
	}
	claims, err := p.jwt.ValidateToken(token)
	if err != nil {
		return User{}, ErrUnauthenticated
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, gone := p.revoked[claims.ID]; gone {
		return User{}, ErrUnauthenticated
	}
	acc, ok := p.byID[claims.Subject]
	if !ok {
		return User{}, ErrUnauthenticated
	}
	return userOf(acc.profile), nil
}

// UserProfile returns the profile of userID.
func (p *MemoryProvider) UserProfile(_ context.Context, userID string) (Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	acc, ok := p.byID[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return acc.profile, nil
}

func userOf(p Profile) User {
	return User{ID: p.ID, Email: p.Email, CreatedAt: p.CreatedAt}
}

func normalise(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
