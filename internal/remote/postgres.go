package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/felixgeelhaar/palabras/internal/storage/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements BlobStore and ActivityLog using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var (
	_ BlobStore   = (*PostgresRepository)(nil)
	_ ActivityLog = (*PostgresRepository)(nil)
)

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// LoadBlob retrieves a user's stored blob
func (r *PostgresRepository) LoadBlob(ctx context.Context, userID uuid.UUID, kind Kind) (json.RawMessage, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM user_blobs WHERE user_id = $1 AND kind = $2`,
		userID, string(kind),
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s blob: %w", kind, err)
	}
	return json.RawMessage(data), nil
}

// SaveBlob upserts a user's blob
func (r *PostgresRepository) SaveBlob(ctx context.Context, userID uuid.UUID, kind Kind, data json.RawMessage) error {
	query := `
		INSERT INTO user_blobs (user_id, kind, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, kind) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	if _, err := r.pool.Exec(ctx, query, userID, string(kind), string(data)); err != nil {
		return fmt.Errorf("save %s blob: %w", kind, err)
	}
	return nil
}

// AppendActivity records an outcome, ignoring ids already stored
func (r *PostgresRepository) AppendActivity(ctx context.Context, a *Activity) error {
	query := `
		INSERT INTO activity (id, learner_id, kind, unit_id, score, passed, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID, a.LearnerID, a.Kind, a.UnitID, a.Score, a.Passed, string(a.Payload), a.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// RecentActivity returns a learner's newest outcomes first
func (r *PostgresRepository) RecentActivity(ctx context.Context, learnerID string, limit int) ([]Activity, error) {
	query := `
		SELECT id, learner_id, kind, unit_id, score, passed, payload, occurred_at
		FROM activity WHERE learner_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, learnerID, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var payload []byte
		if err := rows.Scan(&a.ID, &a.LearnerID, &a.Kind, &a.UnitID, &a.Score, &a.Passed, &payload, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Payload = json.RawMessage(payload)
		out = append(out, a)
	}
	return out, rows.Err()
}

// MigratePostgres applies the embedded PostgreSQL schema files in order.
// Every file is written to be re-runnable.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	entries, err := fs.ReadDir(migrations.PostgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("read postgres migrations: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		data, err := fs.ReadFile(migrations.PostgresFS, "postgres/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		slog.Info("applied postgres migration", "name", name)
	}
	return nil
}
