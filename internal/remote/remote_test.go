package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcaptain/internal/domain"
	"classcaptain/internal/logger"
	"classcaptain/internal/metrics"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, OK},
		{"pg undefined table", &pgconn.PgError{Code: "42P01", Message: `relation "batches" does not exist`}, SchemaMissing},
		{"wrapped pg undefined table", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "42P01"}), SchemaMissing},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, Transient},
		{"sqlstate error", &missingTableError{table: "students"}, SchemaMissing},
		{"deadline", context.DeadlineExceeded, Transient},
		{"plain", errors.New("connection refused"), Transient},
		{"message mentions table but no code", errors.New(`relation "x" does not exist`), Transient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "ok", OK.String())
	assert.Equal(t, "schema_missing", SchemaMissing.String())
	assert.Equal(t, "transient", Transient.String())
}

func newBatchAdapter(mem *Memory[*domain.Batch], timeout time.Duration) *Adapter[*domain.Batch] {
	return NewAdapter[*domain.Batch](domain.Batches, mem, timeout, metrics.NewMock(), logger.Discard())
}

func batch(academy, name string) *domain.Batch {
	return &domain.Batch{
		Meta:      domain.Meta{AcademyID: academy},
		Name:      name,
		Subject:   "Physics",
		Schedule:  "Daily - 9:00 AM to 10:00 AM",
		StartDate: domain.NewDate(2024, time.January, 1),
	}
}

func TestAdapter_InsertAndList(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory[*domain.Batch](domain.Batches)
	a := newBatchAdapter(mem, time.Second)

	draft := batch("sunrise", "A")
	res := a.Insert(ctx, draft)
	require.Equal(t, OK, res.Status)
	require.NoError(t, res.Err)
	assert.NotEmpty(t, res.Data.ID)
	assert.False(t, res.Data.CreatedAt.IsZero())
	assert.Empty(t, draft.ID, "adapter must not mutate the draft")

	a.Insert(ctx, batch("other", "X"))
	a.Insert(ctx, batch("sunrise", "B"))

	list := a.ListByTenant(ctx, "sunrise")
	require.Equal(t, OK, list.Status)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "A", list.Data[0].Name)
	assert.Equal(t, "B", list.Data[1].Name)

	list.Data[0].Name = "changed"
	again := a.ListByTenant(ctx, "sunrise")
	assert.Equal(t, "A", again.Data[0].Name)
}

func TestAdapter_SchemaMissing(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory[*domain.Batch](domain.Batches)
	mem.SetMissing(true)
	a := newBatchAdapter(mem, time.Second)

	assert.Equal(t, SchemaMissing, a.Insert(ctx, batch("sunrise", "A")).Status)
	list := a.ListByTenant(ctx, "sunrise")
	assert.Equal(t, SchemaMissing, list.Status)
	assert.Nil(t, list.Data)
	assert.Equal(t, SchemaMissing, a.Delete(ctx, "sunrise", "x").Status)
	assert.Equal(t, 3, mem.Calls(""))
}

func TestAdapter_Transient(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory[*domain.Batch](domain.Batches)
	mem.FailWith("insert", errors.New("connection reset"))
	a := newBatchAdapter(mem, time.Second)

	res := a.Insert(ctx, batch("sunrise", "A"))
	assert.Equal(t, Transient, res.Status)
	assert.EqualError(t, res.Err, "connection reset")
	assert.Equal(t, OK, a.ListByTenant(ctx, "sunrise").Status)

	mem.FailWith("insert", nil)
	assert.Equal(t, OK, a.Insert(ctx, batch("sunrise", "A")).Status)
}

func TestAdapter_TimeoutIsTransient(t *testing.T) {
	mem := NewMemory[*domain.Batch](domain.Batches)
	mem.SetDelay(time.Second)
	a := newBatchAdapter(mem, 20*time.Millisecond)

	start := time.Now()
	res := a.ListByTenant(context.Background(), "sunrise")
	assert.Equal(t, Transient, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAdapter_Delete(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory[*domain.Batch](domain.Batches)
	a := newBatchAdapter(mem, 0)

	created := a.Insert(ctx, batch("sunrise", "A")).Data
	assert.Equal(t, OK, a.Delete(ctx, "other", created.ID).Status)
	assert.Len(t, a.ListByTenant(ctx, "sunrise").Data, 1, "delete is tenant scoped")

	assert.Equal(t, OK, a.Delete(ctx, "sunrise", created.ID).Status)
	assert.Empty(t, a.ListByTenant(ctx, "sunrise").Data)
	assert.Equal(t, OK, a.Delete(ctx, "sunrise", created.ID).Status, "deleting twice is fine")
}
