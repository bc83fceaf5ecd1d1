// Package directory reads the student directory: the externally managed
// table mapping student identifiers to names and enrollment metadata.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Student is a directory entry.
type Student struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	Name       string    `json:"name"`
	Gender     string    `json:"gender"`
	Department string    `json:"department"`
	Year       int       `json:"year"`
	CreatedAt  time.Time `json:"created_at"`
}

const studentColumns = "id, student_id, name, gender, department, year, created_at"

// Store queries the students table.
type Store struct {
	db *sql.DB
}

// NewStore creates a directory over the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Lookup resolves a student identifier to a display name. ok is false
// when the identifier is unknown.
func (s *Store) Lookup(ctx context.Context, studentID string) (name string, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT name FROM students WHERE student_id = $1`, studentID)
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return name, true, nil
}

// Get returns a full directory entry, or nil when absent.
func (s *Store) Get(ctx context.Context, studentID string) (*Student, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+studentColumns+` FROM students WHERE student_id = $1
	`, studentID)
	var st Student
	if err := row.Scan(&st.ID, &st.StudentID, &st.Name, &st.Gender, &st.Department, &st.Year, &st.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// List returns all directory entries ordered by student identifier.
func (s *Store) List(ctx context.Context) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+studentColumns+` FROM students ORDER BY student_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.StudentID, &st.Name, &st.Gender, &st.Department, &st.Year, &st.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}
