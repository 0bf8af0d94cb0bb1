// Package remote talks to the tenant's remote relational store and classifies
// every outcome into OK, SchemaMissing or Transient. It never touches local state.
package remote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"classcaptain/internal/domain"
	"classcaptain/internal/metrics"
)

// Status is the classified outcome of a remote call.
type Status int

const (
	OK Status = iota
	// SchemaMissing means the table for the collection is not provisioned yet.
	SchemaMissing
	// Transient covers network, server and timeout failures.
	Transient
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case SchemaMissing:
		return "schema_missing"
	default:
		return "transient"
	}
}

// Result carries Data when Status is OK and the underlying error otherwise.
type Result[T any] struct {
	Status Status
	Data   T
	Err    error
}

// undefinedTable is the Postgres SQLSTATE for "relation does not exist".
const undefinedTable = "42P01"

type sqlStater interface {
	SQLState() string
}

// Classify maps a store error to a Status. Only an undefined-table error is
// SchemaMissing; everything else, deadlines included, is Transient.
func Classify(err error) Status {
	if err == nil {
		return OK
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == undefinedTable {
			return SchemaMissing
		}
		return Transient
	}
	var st sqlStater
	if errors.As(err, &st) && st.SQLState() == undefinedTable {
		return SchemaMissing
	}
	return Transient
}

// Store is one remote table holding records of type T.
type Store[T domain.Record] interface {
	// Insert writes rec and returns the row as the server stored it.
	Insert(ctx context.Context, rec T) (T, error)
	ListByTenant(ctx context.Context, academyID string) ([]T, error)
	Delete(ctx context.Context, academyID, id string) error
}

// Adapter wraps a Store with a per-call timeout, classification, metrics and logging.
type Adapter[T domain.Record] struct {
	collection domain.Collection
	store      Store[T]
	timeout    time.Duration
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewAdapter[T domain.Record](collection domain.Collection, store Store[T], timeout time.Duration, m *metrics.Metrics, log *slog.Logger) *Adapter[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter[T]{
		collection: collection,
		store:      store,
		timeout:    timeout,
		metrics:    m,
		log:        log.With("collection", string(collection)),
	}
}

func (a *Adapter[T]) Collection() domain.Collection { return a.collection }

func (a *Adapter[T]) Insert(ctx context.Context, rec T) Result[T] {
	var out T
	status, err := a.call(ctx, "insert", func(ctx context.Context) error {
		var err error
		out, err = a.store.Insert(ctx, rec)
		return err
	})
	return Result[T]{Status: status, Data: out, Err: err}
}

func (a *Adapter[T]) ListByTenant(ctx context.Context, academyID string) Result[[]T] {
	var out []T
	status, err := a.call(ctx, "list", func(ctx context.Context) error {
		var err error
		out, err = a.store.ListByTenant(ctx, academyID)
		return err
	})
	if status != OK {
		out = nil
	}
	return Result[[]T]{Status: status, Data: out, Err: err}
}

func (a *Adapter[T]) Delete(ctx context.Context, academyID, id string) Result[struct{}] {
	status, err := a.call(ctx, "delete", func(ctx context.Context) error {
		return a.store.Delete(ctx, academyID, id)
	})
	return Result[struct{}]{Status: status, Err: err}
}

func (a *Adapter[T]) call(ctx context.Context, op string, fn func(context.Context) error) (Status, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	took := time.Since(start)

	status := Classify(err)
	a.metrics.RecordRemoteCall(string(a.collection), op, status.String(), took)
	a.log.Debug("remote call", "op", op, "status", status.String(), "took", took, "error", err)
	return status, err
}
