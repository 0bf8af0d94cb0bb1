package remote

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"classcaptain/internal/domain"
)

// missingTableError mimics the server's undefined-table error.
type missingTableError struct {
	table string
}

func (e *missingTableError) Error() string {
	return fmt.Sprintf("relation %q does not exist", e.table)
}

func (e *missingTableError) SQLState() string { return undefinedTable }

// Memory is an in-process Store. It can pretend its table is missing, inject
// failures, add latency and count calls, which makes it the backend for tests
// and for REMOTE_BACKEND=memory.
type Memory[T domain.Record] struct {
	table domain.Collection

	mu      sync.Mutex
	rows    []T
	missing bool
	fail    map[string]error
	delay   time.Duration
	calls   map[string]int
	now     func() time.Time
}

func NewMemory[T domain.Record](table domain.Collection) *Memory[T] {
	return &Memory[T]{
		table: table,
		fail:  make(map[string]error),
		calls: make(map[string]int),
		now:   time.Now,
	}
}

// SetMissing makes every call fail with an undefined-table error.
func (m *Memory[T]) SetMissing(missing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missing = missing
}

// FailWith makes op ("insert", "list", "delete") return err; an empty op
// applies to all of them. A nil err clears the failure.
func (m *Memory[T]) FailWith(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// SetDelay holds every call for d or until its context ends.
func (m *Memory[T]) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Seed stores rows as if they had been inserted earlier.
func (m *Memory[T]) Seed(recs ...T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.rows = append(m.rows, cloneRecord(r))
	}
}

// Calls returns how many times op was attempted; "" counts every op.
func (m *Memory[T]) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op == "" {
		total := 0
		for _, n := range m.calls {
			total += n
		}
		return total
	}
	return m.calls[op]
}

func (m *Memory[T]) Insert(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := m.begin(ctx, "insert"); err != nil {
		return zero, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	row := cloneRecord(rec)
	meta := row.Base()
	meta.ID = uuid.NewString()
	meta.CreatedAt = m.now().UTC()
	meta.Sync = ""
	m.rows = append(m.rows, row)
	return cloneRecord(row), nil
}

func (m *Memory[T]) ListByTenant(ctx context.Context, academyID string) ([]T, error) {
	if err := m.begin(ctx, "list"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]T, 0)
	for _, r := range m.rows {
		if r.Base().AcademyID == academyID {
			out = append(out, cloneRecord(r))
		}
	}
	return out, nil
}

func (m *Memory[T]) Delete(ctx context.Context, academyID, id string) error {
	if err := m.begin(ctx, "delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.rows {
		if meta := r.Base(); meta.ID == id && meta.AcademyID == academyID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory[T]) begin(ctx context.Context, op string) error {
	m.mu.Lock()
	m.calls[op]++
	delay := m.delay
	missing := m.missing
	err := m.fail[op]
	if err == nil {
		err = m.fail[""]
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if missing {
		return &missingTableError{table: string(m.table)}
	}
	return err
}

// cloneRecord shallow-copies the struct behind a record pointer.
func cloneRecord[T domain.Record](rec T) T {
	v := reflect.ValueOf(rec)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return rec
	}
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(v.Elem())
	return cp.Interface().(T)
}
