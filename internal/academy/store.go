package academy

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

// Memory keeps academies in process.
type Memory struct {
	mu   sync.RWMutex
	rows map[string]Academy
}

func NewMemory() *Memory {
	return &Memory{rows: make(map[string]Academy)}
}

func (m *Memory) Insert(_ context.Context, a Academy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.Key]; ok {
		return ErrExists
	}
	m.rows[a.Key] = a
	return nil
}

func (m *Memory) ByKey(_ context.Context, key string) (Academy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.rows[key]
	if !ok {
		return Academy{}, ErrNotFound
	}
	return a, nil
}

const uniqueViolation = "23505"

const schema = `
	CREATE TABLE IF NOT EXISTS academies (
		academy_key   TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// Postgres stores academies in the academies table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the academies table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *Postgres) Insert(ctx context.Context, a Academy) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO academies (academy_key, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		a.Key, a.Name, a.Email, a.PasswordHash, a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrExists
	}
	return err
}

func (p *Postgres) ByKey(ctx context.Context, key string) (Academy, error) {
	var a Academy
	err := p.db.QueryRowContext(ctx,
		`SELECT academy_key, name, email, password_hash, created_at FROM academies WHERE academy_key = $1`, key).
		Scan(&a.Key, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Academy{}, ErrNotFound
	}
	if err != nil {
		return Academy{}, err
	}
	return a, nil
}
