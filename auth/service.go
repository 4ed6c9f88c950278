package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/liamcoop/fieldinsights/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("account is inactive")
	ErrUnauthenticated    = errors.New("invalid authentication credentials")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidInput       = errors.New("invalid input")
)

// DefaultSessionTTL is how long an issued token stays valid
const DefaultSessionTTL = 30 * time.Minute

const minPasswordLength = 6

// Token is an issued bearer token
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"-"`
}

// SignupRequest carries a registration
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Service implements account registration and session handling on a Store
type Service struct {
	store  store.Store
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithSessionTTL overrides DefaultSessionTTL
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithBcryptCost sets the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		ttl:    DefaultSessionTTL,
		cost:   bcrypt.DefaultCost,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the session lifetime
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func validateSignup(req *SignupRequest) (Role, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if n := utf8.RuneCountInString(req.Name); n < 2 || n > 100 {
		return "", fmt.Errorf("%w: name must be between 2 and 100 characters", ErrInvalidInput)
	}
	if !validEmail(req.Email) {
		return "", fmt.Errorf("%w: email address is not valid", ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return ParseRole(req.Role)
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Count(email, "@") == 1 && strings.Contains(email[at+1:], ".")
}

// Signup registers an account. Farmers also get an empty profile.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*store.User, error) {
	role, err := validateSignup(&req)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &store.User{
		Name:         req.Name,
		Email:        req.Email,
		Role:         string(role),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if role == RoleFarmer {
		water := 0.0
		profile := &store.Farmer{
			UserID:     user.ID,
			Crops:      "[]",
			SoilData:   map[string]float64{},
			WaterLevel: &water,
		}
		if err := s.store.CreateFarmer(ctx, profile); err != nil {
			return nil, fmt.Errorf("create farmer profile: %w", err)
		}
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login checks credentials and issues a session token
func (s *Service) Login(ctx context.Context, email, password string) (*Token, *store.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrInactive
	}

	tok, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return tok, user, nil
}

func (s *Service) issue(ctx context.Context, userID string) (*Token, error) {
	now := s.now()
	sess := &store.Session{
		Token:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Token{
		AccessToken: sess.Token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.ttl / time.Second),
		ExpiresAt:   sess.ExpiresAt,
	}, nil
}

// Authenticate resolves a bearer token to its active user
func (s *Service) Authenticate(ctx context.Context, token string) (*store.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	sess, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess.Expired(s.now()) {
		_ = s.store.DeleteSession(ctx, token)
		return nil, ErrUnauthenticated
	}

	user, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInactive
	}
	return user, nil
}

// Refresh replaces a live token with a new one
func (s *Service) Refresh(ctx context.Context, token string) (*Token, error) {
	user, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	next, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteSession(ctx, token); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("revoke session: %w", err)
	}
	return next, nil
}

// Logout revokes the token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.store.DeleteSession(ctx, token); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// PurgeExpired deletes sessions that have expired
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if n > 0 {
		s.logger.Debug("purged expired sessions", "count", n)
	}
	return n, nil
}
