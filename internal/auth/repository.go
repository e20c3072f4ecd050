package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Column lists follow the field order of User and Session so rows can be
// collected positionally.
const (
	userColumns    = "id, email, password_hash, created_at, updated_at"
	sessionColumns = "id, user_id, token, expires_at, created_at"
)

// PostgresRepository stores accounts and bearer sessions in PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *User) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO users ("+userColumns+") VALUES ($1, $2, $3, $4, $5)",
		user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.oneUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.oneUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *PostgresRepository) oneUser(ctx context.Context, query string, arg any) (*User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	user, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[User])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, session *Session) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO sessions ("+sessionColumns+") VALUES ($1, $2, $3, $4, $5)",
		session.ID, session.UserID, session.Token, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSessionByToken(ctx context.Context, token string) (*Session, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE token = $1", token)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	session, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[Session])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "delete session", "DELETE FROM sessions WHERE id = $1", id)
}

func (r *PostgresRepository) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	return r.exec(ctx, "delete user sessions", "DELETE FROM sessions WHERE user_id = $1", userID)
}

// DeleteExpiredSessions prunes sessions past their expiry
func (r *PostgresRepository) DeleteExpiredSessions(ctx context.Context) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE expires_at < NOW()")
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	slog.Debug("expired sessions deleted", "count", tag.RowsAffected())
	return nil
}

func (r *PostgresRepository) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
