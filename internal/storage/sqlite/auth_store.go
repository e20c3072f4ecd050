package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/palabras/internal/auth"
	"github.com/google/uuid"
)

// AuthStore implements auth.Repository backed by SQLite.
type AuthStore struct {
	db *DB
}

// NewAuthStore creates a new SQLite-backed auth repository.
func NewAuthStore(db *DB) *AuthStore {
	return &AuthStore{db: db}
}

// CreateUser inserts a new user.
func (s *AuthStore) CreateUser(ctx context.Context, user *auth.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		user.ID.String(), user.Email, user.PasswordHash, user.CreatedAt.UTC(), user.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email.
func (s *AuthStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at, updated_at FROM users WHERE email = ?", email))
}

// GetUserByID retrieves a user by ID.
func (s *AuthStore) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at, updated_at FROM users WHERE id = ?", id.String()))
}

func (s *AuthStore) scanUser(row *sql.Row) (*auth.User, error) {
	var u auth.User
	var id string
	err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if u.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", id, err)
	}
	return &u, nil
}

// CreateSession inserts a new session.
func (s *AuthStore) CreateSession(ctx context.Context, session *auth.Session) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO auth_sessions (id, user_id, token, expires_at, created_at) VALUES (?, ?, ?, ?, ?)",
		session.ID.String(), session.UserID.String(), session.Token, session.ExpiresAt.UTC(), session.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSessionByToken retrieves a session by token.
func (s *AuthStore) GetSessionByToken(ctx context.Context, token string) (*auth.Session, error) {
	var sess auth.Session
	var id, userID string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, token, expires_at, created_at FROM auth_sessions WHERE token = ?", token,
	).Scan(&id, &userID, &sess.Token, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if sess.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	if sess.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("parse session user id: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session.
func (s *AuthStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE id = ?", id.String())
	return err
}

// DeleteUserSessions removes all sessions for a user.
func (s *AuthStore) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE user_id = ?", userID.String())
	return err
}

// DeleteExpiredSessions removes all expired sessions.
func (s *AuthStore) DeleteExpiredSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE expires_at < ?", time.Now().UTC())
	return err
}
