package attendance

import (
	"context"
	"fmt"
	"time"
)

// Record is a single attendance session. TimeOut is nil while the session
// is open. Name is copied from the student directory at check-in time and
// is not re-synced if the directory entry changes later.
type Record struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	Name      string     `json:"name"`
	TimeIn    time.Time  `json:"time_in"`
	TimeOut   *time.Time `json:"time_out"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Store persists attendance records. Insert must reject a second open
// session for the same student and calendar day with ErrConflict, even
// under concurrent writers (Postgres does this with a partial unique
// index, see db/schema.sql).
type Store interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	OpenSession(ctx context.Context, studentID string, dayStart, dayEnd time.Time) (*Record, error)
	SetTimeOut(ctx context.Context, id string, t time.Time) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Record, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]Record, error)
}

// Directory resolves student identifiers to display names. ok is false
// when the identifier is unknown.
type Directory interface {
	Lookup(ctx context.Context, studentID string) (name string, ok bool, err error)
}

// Granularities accepted by FilterByDate.
const (
	FilterDaily   = "daily"
	FilterMonthly = "monthly"
	FilterYearly  = "yearly"
)

// Service implements the per-student-per-day session state machine:
// NoSession -> (check-in) -> Open -> (check-out) -> Closed. At most one
// open session may exist per student per calendar day; the day boundary
// is taken in the configured location.
type Service struct {
	store Store
	dir   Directory
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a service over a record store and a student directory.
func NewService(store Store, dir Directory, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, dir: dir, loc: loc, now: time.Now}
}

// Location returns the timezone governing the day boundary.
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.In(s.loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// CheckIn opens a session for the student. The student must exist in the
// directory, and no open session may exist for today. A concurrent
// duplicate insert is still rejected by the store's uniqueness guarantee.
func (s *Service) CheckIn(ctx context.Context, studentID string) (Record, error) {
	if studentID == "" {
		return Record{}, fmt.Errorf("%w: student_id is required", ErrInvalidArgument)
	}

	name, ok, err := s.dir.Lookup(ctx, studentID)
	if err != nil {
		return Record{}, fmt.Errorf("directory lookup: %w", err)
	}
	if !ok {
		return Record{}, fmt.Errorf("%w: unknown student %q", ErrNotFound, studentID)
	}

	now := s.now().In(s.loc)
	dayStart, dayEnd := s.dayBounds(now)
	open, err := s.store.OpenSession(ctx, studentID, dayStart, dayEnd)
	if err != nil {
		return Record{}, err
	}
	if open != nil {
		return Record{}, fmt.Errorf("%w: student %q already checked in, not yet checked out", ErrConflict, studentID)
	}

	return s.store.Insert(ctx, Record{
		StudentID: studentID,
		Name:      name,
		TimeIn:    now,
	})
}

// CheckOut closes today's open session for the student. When more than one
// open session exists (possible only if the store-level guard is missing),
// the one with the latest time_in is closed.
func (s *Service) CheckOut(ctx context.Context, studentID string) (Record, error) {
	if studentID == "" {
		return Record{}, fmt.Errorf("%w: student_id is required", ErrInvalidArgument)
	}

	now := s.now().In(s.loc)
	dayStart, dayEnd := s.dayBounds(now)
	open, err := s.store.OpenSession(ctx, studentID, dayStart, dayEnd)
	if err != nil {
		return Record{}, err
	}
	if open == nil {
		return Record{}, fmt.Errorf("%w: no active check-in today for student %q", ErrNotFound, studentID)
	}

	return s.store.SetTimeOut(ctx, open.ID, now)
}

// List returns every stored record in store order.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.store.List(ctx)
}

// FilterByDate returns records whose time_in falls in the day, month or
// year of the reference date, per the requested granularity.
func (s *Service) FilterByDate(ctx context.Context, granularity, date string) ([]Record, error) {
	ref, err := s.parseReference(date)
	if err != nil {
		return nil, err
	}

	var from, to time.Time
	switch granularity {
	case FilterDaily:
		from = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, s.loc)
		to = from.AddDate(0, 0, 1)
	case FilterMonthly:
		from = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, s.loc)
		to = from.AddDate(0, 1, 0)
	case FilterYearly:
		from = time.Date(ref.Year(), 1, 1, 0, 0, 0, 0, s.loc)
		to = from.AddDate(1, 0, 0)
	default:
		return nil, fmt.Errorf("%w: filter type %q (want daily, monthly or yearly)", ErrInvalidArgument, granularity)
	}

	return s.store.ListBetween(ctx, from, to)
}

func (s *Service) parseReference(date string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.ParseInLocation(layout, date, s.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: malformed date %q", ErrInvalidArgument, date)
}

// AdminUpdate overwrites time_in and/or time_out on a record directly,
// bypassing the session state machine. It is the manual correction tool
// for data-entry mistakes, not a normal transition.
func (s *Service) AdminUpdate(ctx context.Context, id string, timeIn, timeOut *time.Time) (Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}

	effectiveIn := rec.TimeIn
	if timeIn != nil {
		effectiveIn = timeIn.In(s.loc)
	}
	if timeOut != nil && timeOut.Before(effectiveIn) {
		return Record{}, fmt.Errorf("%w: time_out %s is before time_in %s",
			ErrInvalidArgument, timeOut.In(s.loc).Format(time.RFC3339), effectiveIn.Format(time.RFC3339))
	}

	if timeIn != nil {
		rec.TimeIn = effectiveIn
	}
	if timeOut != nil {
		t := timeOut.In(s.loc)
		rec.TimeOut = &t
	}
	return s.store.Update(ctx, rec)
}

// Delete removes a record by id. Deleting an absent id is ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
