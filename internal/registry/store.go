package registry

import (
	"context"
	"database/sql"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// CustodianByUserID returns the active custodian bound to a login, or nil.
func (s *Store) CustodianByUserID(ctx context.Context, userID string) (*Custodian, error) {
	const q = `
	SELECT custodian_id, user_id, code, name, role, active
	FROM custodians
	WHERE user_id = ? AND active = 1
	LIMIT 1`
	var c Custodian
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&c.ID, &c.UserID, &c.Code, &c.Name, &c.Role, &c.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) TeacherByCode(ctx context.Context, code string) (*Teacher, error) {
	const q = `SELECT code, name, active FROM teachers WHERE code = ? AND active = 1`
	var t Teacher
	err := s.db.QueryRowContext(ctx, q, code).Scan(&t.Code, &t.Name, &t.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTeachers(ctx context.Context) ([]Teacher, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, active FROM teachers WHERE active = 1 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Teacher{}
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.Code, &t.Name, &t.Active); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) StudentByRut(ctx context.Context, rut string) (*Student, error) {
	const q = `SELECT rut, name, degree_program, active FROM students WHERE rut = ?`
	var st Student
	err := s.db.QueryRowContext(ctx, q, rut).Scan(&st.Rut, &st.Name, &st.DegreeProgram, &st.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject_id, code, name FROM subjects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Subject{}
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Code, &sub.Name); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
