// Package pgstore persists journal snapshots in Postgres.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dshills/drafter/internal/engine/journal"
)

const schema = `
CREATE TABLE IF NOT EXISTS journal_snapshots (
	id         BIGSERIAL PRIMARY KEY,
	session    UUID NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS journal_snapshots_session_idx
	ON journal_snapshots (session, id);
`

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolConfig returns conservative pool settings.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
	}
}

// Connect opens a connection pool and pings the database.
func Connect(ctx context.Context, dsn string, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the snapshot table if it does not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate journal schema: %w", err)
	}
	return nil
}

// Store is a journal.Store holding the snapshots of one session.
type Store struct {
	pool    *pgxpool.Pool
	session uuid.UUID
	logger  *slog.Logger
}

// New creates a store for session over pool.
func New(pool *pgxpool.Pool, session uuid.UUID, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{pool: pool, session: session, logger: logger}
}

// Session returns the session id.
func (s *Store) Session() uuid.UUID {
	return s.session
}

// Append implements journal.Store.
func (s *Store) Append(ctx context.Context, snap journal.Snapshot) (int64, error) {
	snap.ID = 0
	payload, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO journal_snapshots (session, payload) VALUES ($1::uuid, $2) RETURNING id`,
		s.session.String(), payload,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return id, nil
}

// List implements journal.Store.
func (s *Store) List(ctx context.Context) ([]journal.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, payload FROM journal_snapshots WHERE session = $1::uuid ORDER BY id`,
		s.session.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []journal.Snapshot
	for rows.Next() {
		var (
			id      int64
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		var snap journal.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", id, err)
		}
		snap.ID = id
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Delete implements journal.Store.
func (s *Store) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM journal_snapshots WHERE session = $1::uuid AND id = ANY($2)`,
		s.session.String(), ids,
	)
	if err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}

// Clear implements journal.Store.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM journal_snapshots WHERE session = $1::uuid`,
		s.session.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	return nil
}

// Prune deletes the snapshots of every session whose newest snapshot is
// older than maxAge, and of the discarded sessions. It returns the number
// of rows removed.
func Prune(ctx context.Context, pool *pgxpool.Pool, maxAge time.Duration, discarded []uuid.UUID) (int64, error) {
	ids := make([]string, len(discarded))
	for i, d := range discarded {
		ids[i] = d.String()
	}

	var removed int64
	err := WithTx(ctx, pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM journal_snapshots
			WHERE session IN (
				SELECT session FROM journal_snapshots
				GROUP BY session
				HAVING max(created_at) < now() - make_interval(secs => $1)
			)`, maxAge.Seconds())
		if err != nil {
			return err
		}
		removed += tag.RowsAffected()

		if len(ids) == 0 {
			return nil
		}
		tag, err = tx.Exec(ctx,
			`DELETE FROM journal_snapshots WHERE session = ANY($1::uuid[])`, ids)
		if err != nil {
			return err
		}
		removed += tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return removed, nil
}

// WithTx executes fn within a transaction. The transaction is rolled back
// when fn returns an error or panics.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ journal.Store = (*Store)(nil)
