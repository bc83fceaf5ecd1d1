package attendance

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeDirectory map[string]string

func (d fakeDirectory) Lookup(_ context.Context, studentID string) (string, bool, error) {
	name, ok := d[studentID]
	return name, ok, nil
}

func newTestService(dir fakeDirectory) (*Service, *MemStore, *time.Time) {
	loc := time.UTC
	st := NewMemStore(loc)
	svc := NewService(st, dir, loc)
	clock := time.Date(2025, 4, 2, 9, 0, 0, 0, loc)
	svc.now = func() time.Time { return clock }
	return svc, st, &clock
}

func TestCheckInUnknownStudent(t *testing.T) {
	svc, st, _ := newTestService(fakeDirectory{})

	_, err := svc.CheckIn(context.Background(), "99999999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("CheckIn unknown student: got %v, want ErrNotFound", err)
	}

	recs, _ := st.List(context.Background())
	if len(recs) != 0 {
		t.Fatalf("store has %d records, want 0", len(recs))
	}
}

func TestCheckInCopiesDirectoryName(t *testing.T) {
	svc, st, _ := newTestService(fakeDirectory{"20210001": "Jane Doe"})

	rec, err := svc.CheckIn(context.Background(), "20210001")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if rec.Name != "Jane Doe" {
		t.Errorf("Name = %q, want %q", rec.Name, "Jane Doe")
	}
	if rec.TimeOut != nil {
		t.Errorf("TimeOut = %v, want nil", rec.TimeOut)
	}
	if rec.ID == "" {
		t.Error("ID not assigned")
	}

	recs, _ := st.List(context.Background())
	if len(recs) != 1 || recs[0].ID != rec.ID {
		t.Fatalf("store contents = %+v, want exactly the checked-in record", recs)
	}
}

func TestCheckInThenCheckOut(t *testing.T) {
	svc, _, clock := newTestService(fakeDirectory{"20210001": "Jane Doe"})

	in, err := svc.CheckIn(context.Background(), "20210001")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	*clock = clock.Add(6 * time.Hour)
	out, err := svc.CheckOut(context.Background(), "20210001")
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if out.ID != in.ID {
		t.Errorf("CheckOut closed %q, want %q", out.ID, in.ID)
	}
	if out.TimeOut == nil {
		t.Fatal("TimeOut still nil after check-out")
	}
	if out.TimeOut.Before(out.TimeIn) {
		t.Errorf("TimeOut %v before TimeIn %v", out.TimeOut, out.TimeIn)
	}
}

func TestDoubleCheckInIsConflict(t *testing.T) {
	svc, st, _ := newTestService(fakeDirectory{"20210001": "Jane Doe"})

	if _, err := svc.CheckIn(context.Background(), "20210001"); err != nil {
		t.Fatalf("first CheckIn: %v", err)
	}
	_, err := svc.CheckIn(context.Background(), "20210001")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second CheckIn: got %v, want ErrConflict", err)
	}

	recs, _ := st.List(context.Background())
	if len(recs) != 1 {
		t.Fatalf("store has %d records after duplicate check-in, want 1", len(recs))
	}
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	svc, st, _ := newTestService(fakeDirectory{"20210001": "Jane Doe"})

	_, err := svc.CheckOut(context.Background(), "20210001")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("CheckOut without check-in: got %v, want ErrNotFound", err)
	}

	recs, _ := st.List(context.Background())
	if len(recs) != 0 {
		t.Fatalf("store has %d records, want 0", len(recs))
	}
}

func TestRecheckInAfterCheckOut(t *testing.T) {
	svc, st, clock := newTestService(fakeDirectory{"20210001": "Jane Doe"})

	ctx := context.Background()
	if _, err := svc.CheckIn(ctx, "20210001"); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	*clock = clock.Add(time.Hour)
	if _, err := svc.CheckOut(ctx, "20210001"); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}

	// A closed session does not block a later one the same day.
	*clock = clock.Add(time.Hour)
	if _, err := svc.CheckIn(ctx, "20210001"); err != nil {
		t.Fatalf("second CheckIn after check-out: %v", err)
	}

	recs, _ := st.List(ctx)
	if len(recs) != 2 {
		t.Fatalf("store has %d records, want 2", len(recs))
	}
}

func TestCheckOutClosesLatestOpen(t *testing.T) {
	svc, st, clock := newTestService(fakeDirectory{"20210001": "Jane Doe"})
	ctx := context.Background()

	early, err := svc.CheckIn(ctx, "20210001")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	// Force a second open session the same day by reopening a closed one,
	// simulating a store without the uniqueness guard.
	lateIn := clock.Add(2 * time.Hour)
	lateOut := lateIn.Add(time.Minute)
	late, err := st.Insert(ctx, Record{StudentID: "20210001", Name: "Jane Doe", TimeIn: lateIn, TimeOut: &lateOut})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	late.TimeOut = nil
	if _, err := st.Update(ctx, late); err != nil {
		t.Fatalf("Update: %v", err)
	}

	*clock = clock.Add(3 * time.Hour)
	out, err := svc.CheckOut(ctx, "20210001")
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if out.ID != late.ID {
		t.Errorf("CheckOut closed %q, want the latest open session %q", out.ID, late.ID)
	}
	if out.ID == early.ID {
		t.Error("CheckOut closed the earliest open session")
	}
}

func TestCheckOutNextDayFindsNothing(t *testing.T) {
	svc, _, clock := newTestService(fakeDirectory{"20210001": "Jane Doe"})
	ctx := context.Background()

	if _, err := svc.CheckIn(ctx, "20210001"); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	// The open-session query is bounded to the current calendar day.
	*clock = time.Date(2025, 4, 3, 0, 30, 0, 0, time.UTC)
	_, err := svc.CheckOut(ctx, "20210001")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("CheckOut next day: got %v, want ErrNotFound", err)
	}
}

func seedFilterRecords(t *testing.T, st *MemStore) {
	t.Helper()
	ctx := context.Background()
	times := []time.Time{
		time.Date(2025, 4, 1, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 4, 2, 0, 0, 1, 0, time.UTC),
		time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 10, 0, 0, 0, time.UTC),
	}
	for i, in := range times {
		out := in.Add(time.Hour)
		_, err := st.Insert(ctx, Record{
			StudentID: "2021000" + string(rune('1'+i)),
			Name:      "Student",
			TimeIn:    in,
			TimeOut:   &out,
		})
		if err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}
}

func TestFilterByDate(t *testing.T) {
	svc, st, _ := newTestService(fakeDirectory{})
	seedFilterRecords(t, st)
	ctx := context.Background()

	tests := []struct {
		name        string
		granularity string
		date        string
		want        int
	}{
		{"daily boundary", FilterDaily, "2025-04-02", 1},
		{"daily previous day", FilterDaily, "2025-04-01", 1},
		{"monthly", FilterMonthly, "2025-04-15", 3},
		{"monthly short form", FilterMonthly, "2025-04", 3},
		{"yearly", FilterYearly, "2025-06-30", 4},
		{"yearly short form", FilterYearly, "2025", 4},
		{"yearly previous", FilterYearly, "2024-01-01", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := svc.FilterByDate(ctx, tt.granularity, tt.date)
			if err != nil {
				t.Fatalf("FilterByDate(%s, %s): %v", tt.granularity, tt.date, err)
			}
			if len(recs) != tt.want {
				t.Errorf("got %d records, want %d", len(recs), tt.want)
			}
		})
	}
}

func TestFilterByDateInvalid(t *testing.T) {
	svc, _, _ := newTestService(fakeDirectory{})
	ctx := context.Background()

	if _, err := svc.FilterByDate(ctx, "weekly", "2025-04-02"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown granularity: got %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.FilterByDate(ctx, FilterDaily, "02-04-2025"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("malformed date: got %v, want ErrInvalidArgument", err)
	}
}

func TestAdminUpdate(t *testing.T) {
	svc, st, _ := newTestService(fakeDirectory{"20210001": "Jane Doe"})
	ctx := context.Background()

	rec, err := svc.CheckIn(ctx, "20210001")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	t.Run("missing id", func(t *testing.T) {
		_, err := svc.AdminUpdate(ctx, "no-such-id", nil, nil)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("time_out before time_in", func(t *testing.T) {
		// time_in is 2025-04-02 09:00; an 08:00 time_out must be rejected.
		bad := time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)
		_, err := svc.AdminUpdate(ctx, rec.ID, nil, &bad)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("got %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("time_out before provided time_in", func(t *testing.T) {
		in := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
		out := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
		_, err := svc.AdminUpdate(ctx, rec.ID, &in, &out)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("got %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("sets both fields", func(t *testing.T) {
		in := time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)
		out := time.Date(2025, 4, 2, 17, 0, 0, 0, time.UTC)
		updated, err := svc.AdminUpdate(ctx, rec.ID, &in, &out)
		if err != nil {
			t.Fatalf("AdminUpdate: %v", err)
		}
		if !updated.TimeIn.Equal(in) {
			t.Errorf("TimeIn = %v, want %v", updated.TimeIn, in)
		}
		if updated.TimeOut == nil || !updated.TimeOut.Equal(out) {
			t.Errorf("TimeOut = %v, want %v", updated.TimeOut, out)
		}
	})

	t.Run("unspecified fields unchanged", func(t *testing.T) {
		before, _ := st.Get(ctx, rec.ID)
		out := before.TimeIn.Add(9 * time.Hour)
		updated, err := svc.AdminUpdate(ctx, rec.ID, nil, &out)
		if err != nil {
			t.Fatalf("AdminUpdate: %v", err)
		}
		if !updated.TimeIn.Equal(before.TimeIn) {
			t.Errorf("TimeIn changed from %v to %v", before.TimeIn, updated.TimeIn)
		}
	})
}

func TestDelete(t *testing.T) {
	svc, st, _ := newTestService(fakeDirectory{"20210001": "Jane Doe"})
	ctx := context.Background()

	if err := svc.Delete(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing id: got %v, want ErrNotFound", err)
	}

	rec, err := svc.CheckIn(ctx, "20210001")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if err := svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	recs, _ := st.List(ctx)
	if len(recs) != 0 {
		t.Fatalf("store has %d records after delete, want 0", len(recs))
	}
}
