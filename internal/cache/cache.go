// Package cache is the local, session-scoped copy of one entity collection.
package cache

import (
	"errors"
	"sync"

	"classcaptain/internal/domain"
)

var ErrDuplicateID = errors.New("cache: duplicate id")

// Collection is an ordered set of records keyed by ID. Order is insertion
// order and is never re-sorted.
type Collection[T domain.Record] struct {
	mu    sync.RWMutex
	items []T
	ids   map[string]struct{}
}

func New[T domain.Record]() *Collection[T] {
	return &Collection[T]{ids: make(map[string]struct{})}
}

// Append adds rec at the end. Records without an ID or with an ID already
// present are rejected.
func (c *Collection[T]) Append(rec T) error {
	id := rec.Base().ID
	if id == "" {
		return errors.New("cache: record has no id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ids[id]; ok {
		return ErrDuplicateID
	}
	c.items = append(c.items, rec)
	c.ids[id] = struct{}{}
	return nil
}

// RemoveByID deletes the record and reports whether it was present.
func (c *Collection[T]) RemoveByID(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if _, ok := c.ids[id]; !ok {
		return zero, false
	}
	for i, rec := range c.items {
		if rec.Base().ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			delete(c.ids, id)
			return rec, true
		}
	}
	return zero, false
}

// Get returns the record with the given ID.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rec := range c.items {
		if rec.Base().ID == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[id]
	return ok
}

// All returns a copy of the records in order.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Replace swaps the contents for recs, dropping later duplicates.
func (c *Collection[T]) Replace(recs []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]T, 0, len(recs))
	c.ids = make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		id := rec.Base().ID
		if _, dup := c.ids[id]; dup || id == "" {
			continue
		}
		c.items = append(c.items, rec)
		c.ids[id] = struct{}{}
	}
}
