package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// openSessionIndex is the partial unique index guarding one open session
// per student per day. Its name is matched when classifying insert errors.
const openSessionIndex = "attendance_open_session_idx"

const recordColumns = "id, student_id, name, time_in, time_out, created_at, updated_at"

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// Insert writes a new record. A violation of the open-session index is
// returned as ErrConflict so a concurrent duplicate check-in fails cleanly.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, name, time_in, time_out)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, rec.ID, rec.StudentID, rec.Name, rec.TimeIn, rec.TimeOut)
	if err := row.Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == openSessionIndex {
			return Record{}, fmt.Errorf("%w: student %q already checked in, not yet checked out", ErrConflict, rec.StudentID)
		}
		return Record{}, err
	}
	return rec, nil
}

// OpenSession returns the latest open record for the student with time_in
// inside [dayStart, dayEnd), or nil when there is none.
func (r *Repository) OpenSession(ctx context.Context, studentID string, dayStart, dayEnd time.Time) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance
		WHERE student_id = $1 AND time_in >= $2 AND time_in < $3 AND time_out IS NULL
		ORDER BY time_in DESC
		LIMIT 1
	`, studentID, dayStart, dayEnd)
	var rec Record
	if err := scanRecord(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// SetTimeOut closes a session.
func (r *Repository) SetTimeOut(ctx context.Context, id string, t time.Time) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance
		SET time_out = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+recordColumns+`
	`, id, t)
	var rec Record
	if err := scanRecord(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: attendance record %q", ErrNotFound, id)
		}
		return Record{}, err
	}
	return rec, nil
}

// Get returns a single record by id.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance WHERE id = $1
	`, id)
	var rec Record
	if err := scanRecord(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: attendance record %q", ErrNotFound, id)
		}
		return Record{}, err
	}
	return rec, nil
}

// Update overwrites time_in and time_out. Used by the admin correction
// path only.
func (r *Repository) Update(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance
		SET time_in = $2, time_out = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+recordColumns+`
	`, rec.ID, rec.TimeIn, rec.TimeOut)
	var out Record
	if err := scanRecord(row, &out); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: attendance record %q", ErrNotFound, rec.ID)
		}
		return Record{}, err
	}
	return out, nil
}

// Delete removes a record by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: attendance record %q", ErrNotFound, id)
	}
	return nil
}

// List returns all records, most recent first.
func (r *Repository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM attendance ORDER BY time_in DESC
	`)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// ListBetween returns records with time_in inside [from, to).
func (r *Repository) ListBetween(ctx context.Context, from, to time.Time) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance
		WHERE time_in >= $1 AND time_in < $2
		ORDER BY time_in DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, rec *Record) error {
	return row.Scan(&rec.ID, &rec.StudentID, &rec.Name, &rec.TimeIn, &rec.TimeOut, &rec.CreatedAt, &rec.UpdatedAt)
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := scanRecord(rows, &rec); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
