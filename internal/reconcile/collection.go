// Package reconcile decides, per write, whether a record is committed to the
// remote store or kept in the local fallback cache, and keeps the visible
// collections of a tenant session consistent with those decisions.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"classcaptain/internal/cache"
	"classcaptain/internal/domain"
	"classcaptain/internal/ident"
	"classcaptain/internal/metrics"
	"classcaptain/internal/remote"
	"classcaptain/internal/validate"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrSessionClosed = errors.New("session closed")
	ErrNotReady      = errors.New("collection not loaded")
)

type State int32

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

type Mode int32

const (
	// Remote collections attempt every write against the remote store first.
	Remote Mode = iota
	// Fallback collections never touch the network again in this session.
	Fallback
)

func (m Mode) String() string {
	if m == Fallback {
		return "fallback"
	}
	return "remote"
}

// Snapshot describes a collection for dashboards and session responses.
type Snapshot struct {
	Collection domain.Collection `json:"collection"`
	State      string            `json:"state"`
	Mode       string            `json:"mode"`
	Count      int               `json:"count"`
}

// Collection is the reconciliation engine for one entity type of one tenant session.
type Collection[T domain.Record] struct {
	name       domain.Collection
	prefix     string
	academyID  string
	sessionID  string
	adapter    *remote.Adapter[T]
	configured bool
	refetch    bool

	local     *cache.Collection[T]
	gen       ident.Generator
	validator *validate.Validator
	reporter  Reporter
	metrics   *metrics.Metrics
	log       *slog.Logger
	alive     func() bool
	now       func() time.Time

	reportTimeout time.Duration

	// mu serializes Load, Create and Delete and guards deleted.
	mu      sync.Mutex
	deleted map[string]struct{}
	state   atomic.Int32
	mode    atomic.Int32
}

// NewCollection builds an engine. A nil adapter behaves like an unconfigured backend.
func NewCollection[T domain.Record](name domain.Collection, prefix string, adapter *remote.Adapter[T], cfg Config, academyID, sessionID string, alive func() bool) *Collection[T] {
	log := cfg.logger()
	if alive == nil {
		alive = func() bool { return true }
	}
	v := cfg.Validator
	if v == nil {
		v = domain.NewValidator()
	}
	return &Collection[T]{
		name:       name,
		prefix:     prefix,
		academyID:  academyID,
		sessionID:  sessionID,
		adapter:    adapter,
		configured: cfg.BackendConfigured && adapter != nil,
		refetch:    cfg.RefetchAfterWrite[name],
		local:      cache.New[T](),
		gen:        cfg.Generator,
		validator:  v,
		reporter:   cfg.Reporter,
		metrics:    cfg.Metrics,
		log:        log.With("collection", string(name), "academy_id", academyID, "session_id", sessionID),
		alive:      alive,
		now:        time.Now,

		reportTimeout: cfg.reportTimeout(),
		deleted:       make(map[string]struct{}),
	}
}

func (c *Collection[T]) Name() domain.Collection { return c.name }
func (c *Collection[T]) State() State            { return State(c.state.Load()) }
func (c *Collection[T]) Mode() Mode              { return Mode(c.mode.Load()) }

// List returns the visible records in insertion order.
func (c *Collection[T]) List() []T { return c.local.All() }

// Get returns one visible record.
func (c *Collection[T]) Get(id string) (T, error) {
	rec, ok := c.local.Get(id)
	if !ok {
		return rec, ErrNotFound
	}
	return rec, nil
}

func (c *Collection[T]) Snapshot() Snapshot {
	return Snapshot{
		Collection: c.name,
		State:      c.State().String(),
		Mode:       c.Mode().String(),
		Count:      c.local.Len(),
	}
}

// Load populates the collection from the remote store. Any classified failure
// leaves the collection Ready and empty; only a closed session is an error.
func (c *Collection[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive() {
		return ErrSessionClosed
	}
	c.state.Store(int32(Loading))

	if !c.configured {
		c.local.Replace(nil)
		c.ready(Fallback, "backend not configured")
		return nil
	}

	res := c.adapter.ListByTenant(ctx, c.academyID)
	if !c.alive() {
		return ErrSessionClosed
	}
	switch res.Status {
	case remote.OK:
		for _, rec := range res.Data {
			rec.Base().Sync = domain.SyncConfirmed
		}
		c.local.Replace(res.Data)
		c.ready(Remote, "loaded")
	case remote.SchemaMissing:
		c.local.Replace(nil)
		c.ready(Fallback, "table missing")
	default:
		c.log.Warn("initial fetch failed, starting empty", "error", res.Err)
		c.local.Replace(nil)
		c.ready(Remote, "fetch failed")
	}
	return nil
}

func (c *Collection[T]) ready(mode Mode, reason string) {
	c.mode.Store(int32(mode))
	c.state.Store(int32(Ready))
	c.log.Info("collection ready", "mode", mode.String(), "reason", reason, "count", c.local.Len())
}

// Create validates draft and resolves it to a confirmed remote record or a
// local one. Apart from validation, the only errors are ErrNotReady and
// ErrSessionClosed.
func (c *Collection[T]) Create(ctx context.Context, draft T) (T, error) {
	c.mu.Lock()
	rec, ev, err := c.create(ctx, draft)
	c.mu.Unlock()
	if ev != nil {
		c.report(ctx, *ev)
	}
	return rec, err
}

func (c *Collection[T]) create(ctx context.Context, draft T) (T, *UnsyncedEvent, error) {
	var zero T
	coded, hasCode := any(draft).(domain.Coded)
	if hasCode {
		if _, code := coded.Code(); strings.TrimSpace(code) == "" {
			coded.SetCode(c.gen.Unique(c.prefix, c.codeTaken))
		}
	}
	draft.Prepare(c.academyID)
	if err := c.validator.Struct(draft); err != nil {
		return zero, nil, err
	}

	if !c.alive() {
		return zero, nil, ErrSessionClosed
	}
	if c.State() != Ready {
		return zero, nil, ErrNotReady
	}
	if hasCode {
		if field, code := coded.Code(); c.codeTaken(code) {
			return zero, nil, validate.NewValidationError(nil, validate.FieldError{
				Field: field,
				Error: field + " is already in use",
			})
		}
	}

	meta := draft.Base()
	meta.ID = ""
	meta.Sync = domain.SyncPending

	if c.Mode() == Fallback {
		rec, err := c.storeLocal(draft, domain.SyncLocal, "fallback")
		return rec, nil, err
	}

	res := c.adapter.Insert(ctx, draft)
	if !c.alive() {
		return zero, nil, ErrSessionClosed
	}
	switch res.Status {
	case remote.OK:
		rec := res.Data
		rec.Base().Sync = domain.SyncConfirmed
		if err := c.local.Append(rec); err != nil {
			return zero, nil, fmt.Errorf("merge %s: %w", rec.Base().ID, err)
		}
		if c.refetch {
			c.refresh(ctx)
		}
		return rec, nil, nil
	case remote.SchemaMissing:
		c.downgrade("insert")
		rec, err := c.storeLocal(draft, domain.SyncLocal, "schema_missing")
		return rec, nil, err
	default:
		rec, err := c.storeLocal(draft, domain.SyncUnsynced, "transient")
		if err != nil {
			return zero, nil, err
		}
		c.log.Warn("remote insert failed, kept locally", "id", rec.Base().ID, "error", res.Err)
		return rec, c.event("create", rec.Base().ID, res.Err), nil
	}
}

// codeTaken reports whether a visible record already uses code, ignoring case.
func (c *Collection[T]) codeTaken(code string) bool {
	for _, rec := range c.local.All() {
		if other, ok := any(rec).(domain.Coded); ok {
			if _, existing := other.Code(); strings.EqualFold(existing, code) {
				return true
			}
		}
	}
	return false
}

func (c *Collection[T]) storeLocal(rec T, state domain.SyncState, reason string) (T, error) {
	meta := rec.Base()
	meta.ID = c.gen.Unique(c.prefix, c.taken)
	meta.CreatedAt = c.now().UTC()
	meta.Sync = state
	if err := c.local.Append(rec); err != nil {
		var zero T
		return zero, fmt.Errorf("store local %s: %w", meta.ID, err)
	}
	c.metrics.RecordLocalWrite(string(c.name), reason)
	return rec, nil
}

// taken reports ids that are visible or were deleted earlier in the session.
func (c *Collection[T]) taken(id string) bool {
	if _, gone := c.deleted[id]; gone {
		return true
	}
	return c.local.Has(id)
}

// refresh re-lists the collection after a confirmed write and merges in place:
// visible records keep their position, confirmed records the remote no longer
// has are dropped and unseen remote rows are appended. Ids deleted in this
// session never come back. A failed re-list keeps the current state.
func (c *Collection[T]) refresh(ctx context.Context) {
	res := c.adapter.ListByTenant(ctx, c.academyID)
	if res.Status != remote.OK || !c.alive() {
		c.log.Debug("refetch after write skipped", "status", res.Status.String(), "error", res.Err)
		return
	}
	rows := make(map[string]T, len(res.Data))
	for _, rec := range res.Data {
		rec.Base().Sync = domain.SyncConfirmed
		rows[rec.Base().ID] = rec
	}

	current := c.local.All()
	merged := make([]T, 0, max(len(current), len(res.Data)))
	seen := make(map[string]bool, len(current))
	for _, rec := range current {
		id := rec.Base().ID
		seen[id] = true
		if rec.Base().LocalOnly() {
			merged = append(merged, rec)
			continue
		}
		if row, ok := rows[id]; ok {
			merged = append(merged, row)
		}
	}
	for _, row := range res.Data {
		id := row.Base().ID
		if _, gone := c.deleted[id]; gone || seen[id] {
			continue
		}
		merged = append(merged, row)
	}
	c.local.Replace(merged)
}

// Delete removes the record from the visible collection. In remote mode the
// remote row is deleted first; a failed remote delete is logged and the local
// removal still happens.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	ev, err := c.delete(ctx, id)
	c.mu.Unlock()
	if ev != nil {
		c.report(ctx, *ev)
	}
	return err
}

func (c *Collection[T]) delete(ctx context.Context, id string) (*UnsyncedEvent, error) {
	if !c.alive() {
		return nil, ErrSessionClosed
	}
	if c.State() != Ready {
		return nil, ErrNotReady
	}
	rec, ok := c.local.Get(id)
	if !ok {
		return nil, ErrNotFound
	}

	var ev *UnsyncedEvent
	if c.Mode() == Remote && !rec.Base().LocalOnly() {
		res := c.adapter.Delete(ctx, c.academyID, id)
		if !c.alive() {
			return nil, ErrSessionClosed
		}
		switch res.Status {
		case remote.OK:
		case remote.SchemaMissing:
			c.downgrade("delete")
			c.log.Warn("remote delete hit missing table, removed locally", "id", id)
		default:
			c.log.Warn("remote delete failed, removed locally", "id", id, "error", res.Err)
			ev = c.event("delete", id, res.Err)
		}
	}
	c.local.RemoveByID(id)
	c.deleted[id] = struct{}{}
	return ev, nil
}

// downgrade moves the collection to fallback mode for the rest of the session.
func (c *Collection[T]) downgrade(op string) {
	if !c.mode.CompareAndSwap(int32(Remote), int32(Fallback)) {
		return
	}
	c.metrics.RecordDowngrade(string(c.name))
	c.log.Info("collection switched to fallback", "op", op)
}

func (c *Collection[T]) event(op, id string, cause error) *UnsyncedEvent {
	ev := &UnsyncedEvent{
		SessionID:  c.sessionID,
		AcademyID:  c.academyID,
		Collection: c.name,
		RecordID:   id,
		Op:         op,
		At:         c.now().UTC(),
	}
	if cause != nil {
		ev.Reason = cause.Error()
	}
	return ev
}

// report publishes outside the collection lock, bounded by reportTimeout, so a
// slow or full queue never stalls later writes.
func (c *Collection[T]) report(ctx context.Context, ev UnsyncedEvent) {
	if c.reporter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.reportTimeout)
	defer cancel()
	if err := c.reporter.ReportUnsynced(ctx, ev); err != nil {
		c.log.Error("unsynced report failed", "id", ev.RecordID, "op", ev.Op, "error", err)
	}
}
