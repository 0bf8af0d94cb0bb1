package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"classcaptain/internal/domain"
	"classcaptain/internal/ident"
	"classcaptain/internal/metrics"
	"classcaptain/internal/remote"
	"classcaptain/internal/validate"
)

// Backend is the process-wide set of remote adapters. Any of them may be nil.
type Backend struct {
	Students *remote.Adapter[*domain.Student]
	Teachers *remote.Adapter[*domain.Teacher]
	Batches  *remote.Adapter[*domain.Batch]
}

// Config is shared by every session of the process.
type Config struct {
	Backend Backend
	// BackendConfigured is fixed at startup. When false no session ever calls
	// the remote store.
	BackendConfigured bool
	// RefetchAfterWrite lists collections that re-list after a confirmed insert.
	RefetchAfterWrite map[domain.Collection]bool

	Validator *validate.Validator
	Generator ident.Generator
	Reporter  Reporter

	// ReportTimeout bounds each unsynced report. Zero means 2s.
	ReportTimeout time.Duration
	Metrics       *metrics.Metrics
	Log           *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Log == nil {
		return slog.Default()
	}
	return c.Log
}

func (c Config) reportTimeout() time.Duration {
	if c.ReportTimeout <= 0 {
		return 2 * time.Second
	}
	return c.ReportTimeout
}

// Session holds the three collections of one tenant between login and logout.
type Session struct {
	ID        string
	AcademyID string
	OpenedAt  time.Time

	Students *Collection[*domain.Student]
	Teachers *Collection[*domain.Teacher]
	Batches  *Collection[*domain.Batch]

	closed atomic.Bool
}

// Dashboard is the result of FetchAll.
type Dashboard struct {
	Students []*domain.Student `json:"students"`
	Teachers []*domain.Teacher `json:"teachers"`
	Batches  []*domain.Batch   `json:"batches"`
}

func NewSession(cfg Config, academyID string) *Session {
	if cfg.Validator == nil {
		cfg.Validator = domain.NewValidator()
	}
	s := &Session{
		ID:        uuid.NewString(),
		AcademyID: academyID,
		OpenedAt:  time.Now().UTC(),
	}
	s.Students = NewCollection(domain.Students, ident.StudentPrefix, cfg.Backend.Students, cfg, academyID, s.ID, s.Alive)
	s.Teachers = NewCollection(domain.Teachers, ident.TeacherPrefix, cfg.Backend.Teachers, cfg, academyID, s.ID, s.Alive)
	s.Batches = NewCollection(domain.Batches, ident.BatchPrefix, cfg.Backend.Batches, cfg, academyID, s.ID, s.Alive)
	return s
}

// Alive reports whether the session is still open.
func (s *Session) Alive() bool { return !s.closed.Load() }

// Close ends the session. Remote calls still in flight complete but their
// results are discarded.
func (s *Session) Close() { s.closed.Store(true) }

// FetchAll loads the three collections concurrently. A failure in one never
// affects the others; every collection comes back, possibly empty.
func (s *Session) FetchAll(ctx context.Context) Dashboard {
	var g errgroup.Group
	g.Go(func() error { return s.Students.Load(ctx) })
	g.Go(func() error { return s.Teachers.Load(ctx) })
	g.Go(func() error { return s.Batches.Load(ctx) })
	_ = g.Wait()
	return s.Dashboard()
}

// Dashboard returns the current visible collections.
func (s *Session) Dashboard() Dashboard {
	return Dashboard{
		Students: s.Students.List(),
		Teachers: s.Teachers.List(),
		Batches:  s.Batches.List(),
	}
}

// Snapshots describes each collection in fetch order.
func (s *Session) Snapshots() []Snapshot {
	return []Snapshot{s.Students.Snapshot(), s.Teachers.Snapshot(), s.Batches.Snapshot()}
}

// Roster returns the students attending the batch with the given id.
func (s *Session) Roster(batchID string) (*domain.Batch, []*domain.Student, error) {
	b, err := s.Batches.Get(batchID)
	if err != nil {
		return nil, nil, err
	}
	return b, domain.Roster(s.Students.List(), b.Name), nil
}

// StudentByCode finds a visible student by student_id, ignoring case.
func (s *Session) StudentByCode(code string) (*domain.Student, bool) {
	return byCode(s.Students.List(), code)
}

// TeacherByCode finds a visible teacher by teacher_id, ignoring case.
func (s *Session) TeacherByCode(code string) (*domain.Teacher, bool) {
	return byCode(s.Teachers.List(), code)
}

func byCode[T domain.Record](list []T, code string) (T, bool) {
	code = strings.TrimSpace(code)
	for _, rec := range list {
		if coded, ok := any(rec).(domain.Coded); ok {
			if _, v := coded.Code(); v != "" && strings.EqualFold(v, code) {
				return rec, true
			}
		}
	}
	var zero T
	return zero, false
}
