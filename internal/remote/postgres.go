package remote

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"classcaptain/internal/domain"
)

// Codec maps one record type onto its table's data columns. The id, academy_id
// and created_at columns are handled by Table.
type Codec[T domain.Record] struct {
	Columns []string
	New     func() T
	// Values returns column values in Columns order.
	Values func(T) []any
	// Targets returns scan destinations in Columns order.
	Targets func(T) []any
}

// Table persists records of type T in Postgres.
type Table[T domain.Record] struct {
	db    *sql.DB
	name  domain.Collection
	codec Codec[T]

	insertSQL string
	listSQL   string
	deleteSQL string
}

func NewTable[T domain.Record](db *sql.DB, name domain.Collection, codec Codec[T]) *Table[T] {
	selectCols := "id, academy_id, created_at, " + strings.Join(codec.Columns, ", ")
	placeholders := make([]string, 0, len(codec.Columns)+2)
	for i := 1; i <= len(codec.Columns)+2; i++ {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
	}
	return &Table[T]{
		db:    db,
		name:  name,
		codec: codec,
		insertSQL: fmt.Sprintf(`INSERT INTO %s (id, academy_id, %s) VALUES (%s) RETURNING %s`,
			name, strings.Join(codec.Columns, ", "), strings.Join(placeholders, ", "), selectCols),
		listSQL:   fmt.Sprintf(`SELECT %s FROM %s WHERE academy_id = $1 ORDER BY created_at, id`, selectCols, name),
		deleteSQL: fmt.Sprintf(`DELETE FROM %s WHERE academy_id = $1 AND id = $2`, name),
	}
}

// Insert writes rec under a fresh server id and returns the stored row.
func (t *Table[T]) Insert(ctx context.Context, rec T) (T, error) {
	meta := rec.Base()
	args := append([]any{uuid.NewString(), meta.AcademyID}, t.codec.Values(rec)...)
	row := t.db.QueryRowContext(ctx, t.insertSQL, args...)
	out, err := t.scan(row)
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// ListByTenant returns the academy's rows in creation order.
func (t *Table[T]) ListByTenant(ctx context.Context, academyID string) ([]T, error) {
	rows, err := t.db.QueryContext(ctx, t.listSQL, academyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]T, 0)
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Delete removes the row if it exists. Deleting a missing row is not an error.
func (t *Table[T]) Delete(ctx context.Context, academyID, id string) error {
	_, err := t.db.ExecContext(ctx, t.deleteSQL, academyID, id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func (t *Table[T]) scan(s scanner) (T, error) {
	rec := t.codec.New()
	meta := rec.Base()
	dest := append([]any{&meta.ID, &meta.AcademyID, &meta.CreatedAt}, t.codec.Targets(rec)...)
	if err := s.Scan(dest...); err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

// NewStudents is the students table.
func NewStudents(db *sql.DB) *Table[*domain.Student] {
	return NewTable(db, domain.Students, Codec[*domain.Student]{
		Columns: []string{
			"name", "student_id", "email", "roll_number", "id_number", "father_name",
			"date_of_birth", "mobile_number_1", "mobile_number_2", "gender", "address",
			"admission_date", "transport_use", "field_1", "field_2", "batch",
		},
		New: func() *domain.Student { return &domain.Student{} },
		Values: func(s *domain.Student) []any {
			return []any{
				s.Name, s.StudentCode, s.Email, s.RollNumber, s.IDNumber, s.GuardianName,
				s.DateOfBirth, s.Mobile1, s.Mobile2, string(s.Gender), s.Address,
				s.AdmittedOn, string(s.Transport), s.Field1, s.Field2, s.BatchList,
			}
		},
		Targets: func(s *domain.Student) []any {
			return []any{
				&s.Name, &s.StudentCode, &s.Email, &s.RollNumber, &s.IDNumber, &s.GuardianName,
				&s.DateOfBirth, &s.Mobile1, &s.Mobile2, &s.Gender, &s.Address,
				&s.AdmittedOn, &s.Transport, &s.Field1, &s.Field2, &s.BatchList,
			}
		},
	})
}

// NewTeachers is the teachers table.
func NewTeachers(db *sql.DB) *Table[*domain.Teacher] {
	return NewTable(db, domain.Teachers, Codec[*domain.Teacher]{
		Columns: []string{
			"teacher_id", "name", "email", "subject", "date_of_birth",
			"mobile_number", "address", "joining_date",
		},
		New: func() *domain.Teacher { return &domain.Teacher{} },
		Values: func(t *domain.Teacher) []any {
			return []any{t.TeacherCode, t.Name, t.Email, t.Subject, t.DateOfBirth, t.Mobile, t.Address, t.JoinedOn}
		},
		Targets: func(t *domain.Teacher) []any {
			return []any{&t.TeacherCode, &t.Name, &t.Email, &t.Subject, &t.DateOfBirth, &t.Mobile, &t.Address, &t.JoinedOn}
		},
	})
}

// NewBatches is the batches table.
func NewBatches(db *sql.DB) *Table[*domain.Batch] {
	return NewTable(db, domain.Batches, Codec[*domain.Batch]{
		Columns: []string{
			"name", "subject", "teacher_id", "schedule", "start_date",
			"end_date", "max_students", "fees", "description",
		},
		New: func() *domain.Batch { return &domain.Batch{} },
		Values: func(b *domain.Batch) []any {
			return []any{b.Name, b.Subject, b.TeacherID, b.Schedule, b.StartDate, b.EndDate, b.MaxStudents, b.Fees, b.Description}
		},
		Targets: func(b *domain.Batch) []any {
			return []any{&b.Name, &b.Subject, &b.TeacherID, &b.Schedule, &b.StartDate, &b.EndDate, &b.MaxStudents, &b.Fees, &b.Description}
		},
	})
}
