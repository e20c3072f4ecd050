// Package auth handles account registration, login and bearer session
// validation for the sync server.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password Register accepts
const MinPasswordLength = 6

// tokenBytes is the entropy of a session token before encoding
const tokenBytes = 32

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password too short")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionNotFound    = errors.New("session not found")
)

// Repository stores accounts and sessions. Lookups that find nothing
// return ErrUserNotFound or ErrSessionNotFound.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	CreateSession(ctx context.Context, session *Session) error
	GetSessionByToken(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredSessions(ctx context.Context) error
}

// Credentials is an email and password pair, as posted to register and
// login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is a fresh session and the bearer token that opens it
type LoginResponse struct {
	User    *User
	Session *Session
	Token   string
}

// Service issues and checks sessions for learner accounts
type Service struct {
	repo          Repository
	sessionMaxAge time.Duration
	bcryptCost    int
	now           func() time.Time
}

// NewService returns a service whose sessions live for sessionMaxAge
func NewService(repo Repository, sessionMaxAge time.Duration) *Service {
	return &Service{
		repo:          repo,
		sessionMaxAge: sessionMaxAge,
		bcryptCost:    bcrypt.DefaultCost,
		now:           time.Now,
	}
}

// NormalizeEmail lowercases and trims an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && domain != "" &&
		!strings.Contains(domain, "@") && !strings.ContainsAny(email, " \t")
}

// Register creates an account for an unused, well-formed address
func (s *Service) Register(ctx context.Context, c Credentials) (*User, error) {
	email := NormalizeEmail(c.Email)
	switch {
	case !validEmail(email):
		return nil, ErrInvalidEmail
	case len(c.Password) < MinPasswordLength:
		return nil, ErrWeakPassword
	}

	switch _, err := s.repo.GetUserByEmail(ctx, email); {
	case err == nil:
		return nil, ErrEmailExists
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &User{ID: uuid.New(), Email: email, PasswordHash: string(hash), CreatedAt: now, UpdatedAt: now}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login checks the password and opens a new session. Unknown addresses
// and wrong passwords both report ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, c Credentials) (*LoginResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(c.Email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{User: user, Session: session, Token: session.Token}, nil
}

func (s *Service) openSession(ctx context.Context, userID uuid.UUID) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	session := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(s.sessionMaxAge),
		CreatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// session resolves a token; expired sessions are deleted on sight
func (s *Service) session(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	session, err := s.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if s.now().After(session.ExpiresAt) {
		if err := s.repo.DeleteSession(ctx, session.ID); err != nil {
			slog.Warn("delete expired session", "session_id", session.ID, "error", err)
		}
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Logout ends the session behind token
func (s *Service) Logout(ctx context.Context, token string) error {
	session, err := s.session(ctx, token)
	if errors.Is(err, ErrSessionExpired) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.repo.DeleteSession(ctx, session.ID)
}

// ValidateSession returns the account and live session behind token
func (s *Service) ValidateSession(ctx context.Context, token string) (*User, *Session, error) {
	session, err := s.session(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("session owner: %w", err)
	}
	return user, session, nil
}

// LogoutAll ends every session of a user
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteUserSessions(ctx, userID)
}

// CleanupExpiredSessions removes all expired sessions
func (s *Service) CleanupExpiredSessions(ctx context.Context) error {
	return s.repo.DeleteExpiredSessions(ctx)
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
