package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is a minimal in-memory Store for dev and tests. It
// enforces the same one-open-session-per-student-day uniqueness the
// Postgres partial index provides.
type MemStore struct {
	mu   sync.Mutex
	loc  *time.Location
	recs map[string]Record
}

// NewMemStore creates an empty store using loc for the day boundary.
func NewMemStore(loc *time.Location) *MemStore {
	if loc == nil {
		loc = time.Local
	}
	return &MemStore{loc: loc, recs: make(map[string]Record)}
}

var _ Store = (*MemStore)(nil)

func (m *MemStore) dayKey(t time.Time) string {
	return t.In(m.loc).Format("2006-01-02")
}

func (m *MemStore) Insert(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.TimeOut == nil {
		day := m.dayKey(rec.TimeIn)
		for _, existing := range m.recs {
			if existing.StudentID == rec.StudentID && existing.TimeOut == nil && m.dayKey(existing.TimeIn) == day {
				return Record{}, fmt.Errorf("%w: student %q already checked in, not yet checked out", ErrConflict, rec.StudentID)
			}
		}
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().In(m.loc)
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.recs[rec.ID] = rec
	return rec, nil
}

func (m *MemStore) OpenSession(_ context.Context, studentID string, dayStart, dayEnd time.Time) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *Record
	for _, rec := range m.recs {
		if rec.StudentID != studentID || rec.TimeOut != nil {
			continue
		}
		if rec.TimeIn.Before(dayStart) || !rec.TimeIn.Before(dayEnd) {
			continue
		}
		if latest == nil || rec.TimeIn.After(latest.TimeIn) {
			r := rec
			latest = &r
		}
	}
	return latest, nil
}

func (m *MemStore) SetTimeOut(_ context.Context, id string, t time.Time) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recs[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: attendance record %q", ErrNotFound, id)
	}
	rec.TimeOut = &t
	rec.UpdatedAt = time.Now().In(m.loc)
	m.recs[id] = rec
	return rec, nil
}

func (m *MemStore) Get(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recs[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: attendance record %q", ErrNotFound, id)
	}
	return rec, nil
}

func (m *MemStore) Update(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.recs[rec.ID]
	if !ok {
		return Record{}, fmt.Errorf("%w: attendance record %q", ErrNotFound, rec.ID)
	}
	stored.TimeIn = rec.TimeIn
	stored.TimeOut = rec.TimeOut
	stored.UpdatedAt = time.Now().In(m.loc)
	m.recs[rec.ID] = stored
	return stored, nil
}

func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.recs[id]; !ok {
		return fmt.Errorf("%w: attendance record %q", ErrNotFound, id)
	}
	delete(m.recs, id)
	return nil
}

func (m *MemStore) List(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make([]Record, 0, len(m.recs))
	for _, rec := range m.recs {
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].TimeIn.After(res[j].TimeIn) })
	return res, nil
}

func (m *MemStore) ListBetween(_ context.Context, from, to time.Time) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []Record
	for _, rec := range m.recs {
		if !rec.TimeIn.Before(from) && rec.TimeIn.Before(to) {
			res = append(res, rec)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].TimeIn.After(res[j].TimeIn) })
	return res, nil
}
