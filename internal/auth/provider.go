// Package auth implements domain.AuthProvider with email/password accounts,
// bcrypt password hashes and HS256 JWT sessions. Accounts and the active
// session token live in a domain.LocalCache so sessions survive restarts.
package auth

import (
	"budgetcore/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var _ domain.AuthProvider = (*Provider)(nil)

// Cache keys owned by the provider.
const (
	KeyUsers   = "auth.users"
	KeySession = "auth.session"
)

const (
	defaultTTL        = 24 * time.Hour
	minPasswordLength = 6
)

// Validation failures.
var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidEmail       = errors.New("auth: invalid email")
	ErrWeakPassword       = fmt.Errorf("auth: password must be at least %d characters", minPasswordLength)
	ErrNoSession          = errors.New("auth: not signed in")
)

type account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Option configures a Provider.
type Option func(*Provider)

// WithTTL sets the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithBcryptCost sets the bcrypt work factor.
func WithBcryptCost(cost int) Option {
	return func(p *Provider) { p.cost = cost }
}

// Provider is a self-hosted authentication backend.
type Provider struct {
	cache  domain.LocalCache
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	cost   int

	mu      sync.Mutex
	subs    map[int]func(*domain.Session)
	nextSub int
}

// New constructs a provider storing its state in cache and signing tokens
// with secret.
func New(cache domain.LocalCache, secret []byte, opts ...Option) (*Provider, error) {
	if cache == nil {
		return nil, fmt.Errorf("auth: cache required")
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("auth: signing secret required")
	}
	p := &Provider{
		cache:  cache,
		secret: secret,
		ttl:    defaultTTL,
		now:    func() time.Time { return time.Now().UTC() },
		cost:   bcrypt.DefaultCost,
		subs:   make(map[int]func(*domain.Session)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// SignUp registers a new account and signs it in.
func (p *Provider) SignUp(_ context.Context, email, password string) (domain.Session, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return domain.Session{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return domain.Session{}, ErrWeakPassword
	}
	p.mu.Lock()
	users, err := p.loadUsers()
	if err != nil {
		p.mu.Unlock()
		return domain.Session{}, err
	}
	if _, exists := users[email]; exists {
		p.mu.Unlock()
		return domain.Session{}, ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		p.mu.Unlock()
		return domain.Session{}, fmt.Errorf("hash password: %w", err)
	}
	acct := account{ID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	users[email] = acct
	if err := p.saveUsers(users); err != nil {
		p.mu.Unlock()
		return domain.Session{}, err
	}
	sess, err := p.issue(acct)
	p.mu.Unlock()
	if err != nil {
		return domain.Session{}, err
	}
	p.notify(&sess)
	return sess, nil
}

// SignIn verifies the credentials and starts a session.
func (p *Provider) SignIn(_ context.Context, email, password string) (domain.Session, error) {
	email = normalizeEmail(email)
	p.mu.Lock()
	users, err := p.loadUsers()
	if err != nil {
		p.mu.Unlock()
		return domain.Session{}, err
	}
	acct, ok := users[email]
	if !ok || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		p.mu.Unlock()
		return domain.Session{}, ErrInvalidCredentials
	}
	sess, err := p.issue(acct)
	p.mu.Unlock()
	if err != nil {
		return domain.Session{}, err
	}
	p.notify(&sess)
	return sess, nil
}

// SignOut ends the current session.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	err := p.cache.Remove(KeySession)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	p.notify(nil)
	return nil
}

// UpdatePassword changes the signed-in account's password.
func (p *Provider) UpdatePassword(_ context.Context, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, err := p.current()
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrNoSession
	}
	users, err := p.loadUsers()
	if err != nil {
		return err
	}
	acct, ok := users[sess.Email]
	if !ok {
		return ErrNoSession
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	acct.PasswordHash = string(hash)
	users[sess.Email] = acct
	return p.saveUsers(users)
}

// CurrentSession returns the active session, or nil when signed out or the
// stored token has expired.
func (p *Provider) CurrentSession(_ context.Context) (*domain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current()
}

// Subscribe registers fn for session changes.
func (p *Provider) Subscribe(fn func(*domain.Session)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *Provider) notify(sess *domain.Session) {
	p.mu.Lock()
	fns := make([]func(*domain.Session), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		var cp *domain.Session
		if sess != nil {
			s := *sess
			cp = &s
		}
		fn(cp)
	}
}

func (p *Provider) issue(acct account) (domain.Session, error) {
	now := p.now()
	expires := now.Add(p.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: acct.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign token: %w", err)
	}
	if err := p.cache.Set(KeySession, signed); err != nil {
		return domain.Session{}, fmt.Errorf("store session: %w", err)
	}
	return domain.Session{UserID: acct.ID, Email: acct.Email, AccessToken: signed, ExpiresAt: expires.Truncate(time.Second)}, nil
}

func (p *Provider) current() (*domain.Session, error) {
	raw, ok, err := p.cache.Get(KeySession)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now))
	if err != nil || !token.Valid {
		// Expired or tampered tokens end the session.
		_ = p.cache.Remove(KeySession)
		return nil, nil
	}
	sess := &domain.Session{UserID: c.Subject, Email: c.Email, AccessToken: raw}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return sess, nil
}

func (p *Provider) loadUsers() (map[string]account, error) {
	raw, ok, err := p.cache.Get(KeyUsers)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	users := make(map[string]account)
	if !ok || raw == "" {
		return users, nil
	}
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	return users, nil
}

func (p *Provider) saveUsers(users map[string]account) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	if err := p.cache.Set(KeyUsers, string(data)); err != nil {
		return fmt.Errorf("store accounts: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
