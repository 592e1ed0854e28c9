package reservations

import (
	"context"
	"database/sql"
	"strings"

	pdb "panol-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{})
}

// lockedTool is the slice of the tools row a reservation needs, held under
// FOR UPDATE for the rest of the transaction.
type lockedTool struct {
	Code      string
	Name      string
	Available int
}

// LockTool resolves a code-or-barcode token and locks the row.
func (s *Store) LockTool(ctx context.Context, tx pdb.DBTX, token string) (*lockedTool, error) {
	const byCode = `SELECT code, name, available_stock FROM tools WHERE code = ? FOR UPDATE`
	var t lockedTool
	err := tx.QueryRowContext(ctx, byCode, token).Scan(&t.Code, &t.Name, &t.Available)
	if err == nil {
		return &t, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	const byBarcode = `SELECT code, name, available_stock FROM tools WHERE barcode = ? FOR UPDATE`
	err = tx.QueryRowContext(ctx, byBarcode, token).Scan(&t.Code, &t.Name, &t.Available)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("tool not found: " + token)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) TeacherActive(ctx context.Context, code string) (bool, error) {
	const q = `SELECT COUNT(*) FROM teachers WHERE code = ? AND active = 1`
	var n int
	if err := s.db.QueryRowContext(ctx, q, code).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsureSubject returns the id for a subject name, creating the row when it
// is new. Same get-or-create the old system used for free-text subjects.
func (s *Store) EnsureSubject(ctx context.Context, tx pdb.DBTX, name string) (int64, error) {
	const sel = `SELECT subject_id FROM subjects WHERE name = ?`
	var id int64
	err := tx.QueryRowContext(ctx, sel, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO subjects (code, name) VALUES (NULL, ?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) SubjectExists(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT COUNT(*) FROM subjects WHERE subject_id = ?`
	var n int
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) InsertHeader(ctx context.Context, tx pdb.DBTX, m *Reservation) error {
	const q = `
	INSERT INTO reservations
	(code, class_date, start_time, end_time, status, custodian_id, teacher_code, subject_id, notes, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(6), NOW(6))`
	res, err := tx.ExecContext(ctx, q,
		m.Code, m.ClassDate.Format("2006-01-02"), m.StartTime, m.EndTime, m.Status,
		m.CustodianID, m.TeacherCode, m.SubjectID, m.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (s *Store) InsertLine(ctx context.Context, tx pdb.DBTX, l *ReservationLine) error {
	const q = `
	INSERT INTO reservation_lines (reservation_id, tool_code, quantity_requested)
	VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.ReservationID, l.ToolCode, l.QuantityRequested)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	l.LineID = id
	return nil
}

const headerColumns = `reservation_id, code, class_date, start_time, end_time, status, custodian_id, teacher_code, subject_id, notes, created_at, updated_at`

func scanHeader(scan func(dest ...any) error) (*Reservation, error) {
	var m Reservation
	err := scan(&m.ID, &m.Code, &m.ClassDate, &m.StartTime, &m.EndTime, &m.Status,
		&m.CustodianID, &m.TeacherCode, &m.SubjectID, &m.Notes, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetByCode(ctx context.Context, code string) (*Reservation, error) {
	const q = `SELECT ` + headerColumns + ` FROM reservations WHERE code = ?`
	m, err := scanHeader(s.db.QueryRowContext(ctx, q, code).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("reservation not found")
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetByCodeTx locks the header so a cancel cannot race the loan that is
// consuming the reservation.
func (s *Store) GetByCodeTx(ctx context.Context, tx pdb.DBTX, code string) (*Reservation, error) {
	const q = `SELECT ` + headerColumns + ` FROM reservations WHERE code = ? FOR UPDATE`
	m, err := scanHeader(tx.QueryRowContext(ctx, q, code).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("reservation not found")
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// LineView carries what the pick-list UI needs per line.
type LineView struct {
	ToolCode          string
	ToolName          string
	QuantityRequested int
	AvailableStock    int
}

func (s *Store) LinesByReservation(ctx context.Context, id int64) ([]LineView, error) {
	const q = `
	SELECT rl.tool_code, t.name, rl.quantity_requested, t.available_stock
	FROM reservation_lines rl
	JOIN tools t ON t.code = rl.tool_code
	WHERE rl.reservation_id = ?
	ORDER BY rl.line_id`
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LineView{}
	for rows.Next() {
		var v LineView
		if err := rows.Scan(&v.ToolCode, &v.ToolName, &v.QuantityRequested, &v.AvailableStock); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// MarkCancelled flips pending to cancelled. Zero rows affected means the
// reservation was not pending anymore.
func (s *Store) MarkCancelled(ctx context.Context, tx pdb.DBTX, id int64) (bool, error) {
	const q = `UPDATE reservations SET status = 'cancelled', updated_at = NOW(6) WHERE reservation_id = ? AND status = 'pending'`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

func (s *Store) List(ctx context.Context, f Filter, p Page) ([]Reservation, int64, error) {
	where := "WHERE 1=1"
	args := []any{}
	if f.ClassDate != nil {
		where += " AND r.class_date = ?"
		args = append(args, *f.ClassDate)
	}
	if f.Status != nil {
		where += " AND r.status = ?"
		args = append(args, *f.Status)
	}
	if f.Text != nil {
		where += " AND (r.code LIKE ? OR EXISTS (SELECT 1 FROM teachers te WHERE te.code = r.teacher_code AND te.name LIKE ?))"
		args = append(args, "%"+*f.Text+"%", "%"+*f.Text+"%")
	}

	order := "DESC"
	if strings.ToLower(p.Order) == "asc" {
		order = "ASC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := `
	SELECT r.reservation_id, r.code, r.class_date, r.start_time, r.end_time, r.status,
	       r.custodian_id, r.teacher_code, r.subject_id, r.notes, r.created_at, r.updated_at
	FROM reservations r ` + where +
		` ORDER BY r.class_date ` + order + `, r.reservation_id ` + order + ` LIMIT ? OFFSET ?`
	queryArgs := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, q, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Reservation{}
	for rows.Next() {
		m, err := scanHeader(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations r `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
