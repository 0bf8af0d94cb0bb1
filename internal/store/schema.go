package store

import (
	"context"
	"fmt"
	"log/slog"

	"classcaptain/internal/domain"
)

var ddl = map[domain.Collection]string{
	domain.Students: `
		CREATE TABLE IF NOT EXISTS students (
			id              UUID PRIMARY KEY,
			academy_id      TEXT NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			name            TEXT NOT NULL,
			student_id      TEXT NOT NULL,
			email           TEXT NOT NULL DEFAULT '',
			roll_number     TEXT NOT NULL DEFAULT '',
			id_number       TEXT NOT NULL DEFAULT '',
			father_name     TEXT NOT NULL,
			date_of_birth   DATE NOT NULL,
			mobile_number_1 TEXT NOT NULL,
			mobile_number_2 TEXT NOT NULL DEFAULT '',
			gender          TEXT NOT NULL,
			address         TEXT NOT NULL DEFAULT '',
			admission_date  DATE NOT NULL,
			transport_use   TEXT NOT NULL,
			field_1         TEXT NOT NULL DEFAULT '',
			field_2         TEXT NOT NULL DEFAULT '',
			batch           TEXT NOT NULL DEFAULT 'General',
			UNIQUE (academy_id, student_id)
		)`,
	domain.Teachers: `
		CREATE TABLE IF NOT EXISTS teachers (
			id            UUID PRIMARY KEY,
			academy_id    TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			teacher_id    TEXT NOT NULL,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL DEFAULT '',
			subject       TEXT NOT NULL,
			date_of_birth DATE NOT NULL,
			mobile_number TEXT NOT NULL,
			address       TEXT NOT NULL DEFAULT '',
			joining_date  DATE NOT NULL,
			UNIQUE (academy_id, teacher_id)
		)`,
	domain.Batches: `
		CREATE TABLE IF NOT EXISTS batches (
			id           UUID PRIMARY KEY,
			academy_id   TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			name         TEXT NOT NULL,
			subject      TEXT NOT NULL,
			teacher_id   TEXT NOT NULL DEFAULT '',
			schedule     TEXT NOT NULL,
			start_date   DATE NOT NULL,
			end_date     DATE CHECK (end_date IS NULL OR end_date > start_date),
			max_students INTEGER CHECK (max_students IS NULL OR max_students > 0),
			fees         DOUBLE PRECISION CHECK (fees IS NULL OR fees >= 0),
			description  TEXT NOT NULL DEFAULT ''
		)`,
}

// Provision creates the given tables if they do not exist. Tables left out
// stay missing, which is how a partially set up backend looks to the sync layer.
func (d *DB) Provision(ctx context.Context, log *slog.Logger, collections []domain.Collection) error {
	for _, c := range collections {
		stmt, ok := ddl[c]
		if !ok {
			return fmt.Errorf("provision: unknown collection %q", c)
		}
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("provision %s: %w", c, err)
		}
		log.Info("table provisioned", "table", string(c))
	}
	return nil
}
