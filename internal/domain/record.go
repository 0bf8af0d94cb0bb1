// Package domain holds the tenant-scoped records managed by the sync layer.
package domain

import "time"

// Collection names an entity-type collection. The value doubles as the remote
// table name and as a metrics label.
type Collection string

const (
	Students Collection = "students"
	Teachers Collection = "teachers"
	Batches  Collection = "batches"
)

// Collections lists every synced collection in fetch order.
var Collections = []Collection{Students, Teachers, Batches}

func (c Collection) Valid() bool {
	switch c {
	case Students, Teachers, Batches:
		return true
	}
	return false
}

// SyncState tells where a record's current representation lives.
type SyncState string

const (
	// SyncPending is a validated draft not yet resolved by the engine.
	SyncPending SyncState = "pending"
	// SyncConfirmed records came back from the remote store.
	SyncConfirmed SyncState = "confirmed"
	// SyncLocal records were created while the collection was in fallback mode.
	SyncLocal SyncState = "local"
	// SyncUnsynced records were kept locally after a transient remote failure.
	SyncUnsynced SyncState = "unsynced"
)

// Meta is the identity and bookkeeping shared by every record.
type Meta struct {
	ID        string    `json:"id"`
	AcademyID string    `json:"academy_id"`
	CreatedAt time.Time `json:"created_at"`
	Sync      SyncState `json:"sync_state"`
}

// LocalOnly reports whether the record never reached the remote store.
func (m *Meta) LocalOnly() bool {
	return m.Sync == SyncLocal || m.Sync == SyncUnsynced
}

// Record is implemented by *Student, *Teacher and *Batch.
type Record interface {
	Base() *Meta
	Collection() Collection
	// Prepare fills derived and defaulted fields for the given academy before validation.
	Prepare(academyID string)
}

// Coded records carry a human-facing code that is unique within a tenant.
// Code returns the JSON field name and the value.
type Coded interface {
	Code() (field, value string)
	SetCode(code string)
}
