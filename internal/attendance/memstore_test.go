package attendance

import (
	"context"
	"errors"
	"testing"
	"time"
)

// The store itself must refuse a second open session per student-day,
// mirroring the Postgres partial unique index. This is the guard that
// closes the race between two concurrent check-ins.
func TestMemStoreRejectsSecondOpenSession(t *testing.T) {
	st := NewMemStore(time.UTC)
	ctx := context.Background()

	in := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	if _, err := st.Insert(ctx, Record{StudentID: "20210001", Name: "Jane Doe", TimeIn: in}); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	_, err := st.Insert(ctx, Record{StudentID: "20210001", Name: "Jane Doe", TimeIn: in.Add(time.Minute)})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second open insert: got %v, want ErrConflict", err)
	}

	// A different day or a closed record is fine.
	nextDay := in.AddDate(0, 0, 1)
	if _, err := st.Insert(ctx, Record{StudentID: "20210001", Name: "Jane Doe", TimeIn: nextDay}); err != nil {
		t.Errorf("next-day insert: %v", err)
	}
	out := in.Add(2 * time.Hour)
	if _, err := st.Insert(ctx, Record{StudentID: "20210001", Name: "Jane Doe", TimeIn: in, TimeOut: &out}); err != nil {
		t.Errorf("closed insert: %v", err)
	}
}

func TestMemStoreDayBoundaryUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	st := NewMemStore(loc)
	ctx := context.Background()

	// 23:00 and 01:00 local time fall on different calendar days, so both
	// may be open at once.
	first := time.Date(2025, 4, 1, 23, 0, 0, 0, loc)
	second := time.Date(2025, 4, 2, 1, 0, 0, 0, loc)
	if _, err := st.Insert(ctx, Record{StudentID: "20210001", TimeIn: first}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := st.Insert(ctx, Record{StudentID: "20210001", TimeIn: second}); err != nil {
		t.Fatalf("second insert across midnight: %v", err)
	}
}
