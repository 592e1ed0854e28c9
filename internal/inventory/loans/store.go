package loans

import (
	"context"
	"database/sql"
	"strings"
	"time"

	pdb "panol-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// lockedTool carries the slice of the tools row a loan needs, held under
// FOR UPDATE for the rest of the transaction.
type lockedTool struct {
	Code      string
	Name      string
	Category  string
	Total     int
	Available int
}

// LockTool resolves a code-or-barcode token and locks the row.
func (s *Store) LockTool(ctx context.Context, tx pdb.DBTX, token string) (*lockedTool, error) {
	const byCode = `SELECT code, name, category, total_stock, available_stock FROM tools WHERE code = ? FOR UPDATE`
	var t lockedTool
	err := tx.QueryRowContext(ctx, byCode, token).Scan(&t.Code, &t.Name, &t.Category, &t.Total, &t.Available)
	if err == nil {
		return &t, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	const byBarcode = `SELECT code, name, category, total_stock, available_stock FROM tools WHERE barcode = ? FOR UPDATE`
	err = tx.QueryRowContext(ctx, byBarcode, token).Scan(&t.Code, &t.Name, &t.Category, &t.Total, &t.Available)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("tool not found: " + token)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TakeStock is the guarded decrement that closes the read-then-write race:
// zero rows affected means another transaction got there first.
func (s *Store) TakeStock(ctx context.Context, tx pdb.DBTX, toolCode string, qty int) (bool, error) {
	const q = `UPDATE tools SET available_stock = available_stock - ? WHERE code = ? AND available_stock >= ?`
	res, err := tx.ExecContext(ctx, q, qty, toolCode, qty)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

// ConsumeTotal mirrors a consumable loan on total_stock.
func (s *Store) ConsumeTotal(ctx context.Context, tx pdb.DBTX, toolCode string, qty int) error {
	const q = `UPDATE tools SET total_stock = GREATEST(0, total_stock - ?) WHERE code = ?`
	_, err := tx.ExecContext(ctx, q, qty, toolCode)
	return err
}

// RestoreStock gives delta units back to available_stock (and total_stock for
// consumables). delta may be negative when a return is corrected downward.
func (s *Store) RestoreStock(ctx context.Context, tx pdb.DBTX, toolCode string, delta int, alsoTotal bool) error {
	const avail = `UPDATE tools SET available_stock = GREATEST(0, available_stock + ?) WHERE code = ?`
	if _, err := tx.ExecContext(ctx, avail, delta, toolCode); err != nil {
		return err
	}
	if !alsoTotal {
		return nil
	}
	const total = `UPDATE tools SET total_stock = GREATEST(0, total_stock + ?) WHERE code = ?`
	_, err := tx.ExecContext(ctx, total, delta, toolCode)
	return err
}

func (s *Store) TeacherActive(ctx context.Context, code string) (bool, error) {
	const q = `SELECT COUNT(1) FROM teachers WHERE code = ? AND active = 1`
	var n int
	if err := s.db.QueryRowContext(ctx, q, code).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpsertStudent keeps the walk-up flow friction-free: an unknown rut gets a
// row on the spot, a known one gets its name refreshed.
func (s *Store) UpsertStudent(ctx context.Context, tx pdb.DBTX, rut, name string) error {
	const q = `
	INSERT INTO students (rut, name) VALUES (?, ?)
	ON DUPLICATE KEY UPDATE name = VALUES(name)`
	_, err := tx.ExecContext(ctx, q, rut, name)
	return err
}

func (s *Store) SubjectExists(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT COUNT(1) FROM subjects WHERE subject_id = ?`
	var n int
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

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
	const ins = `INSERT INTO subjects (name) VALUES (?)`
	res, err := tx.ExecContext(ctx, ins, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// reservationOrigin is the header slice loan creation needs, locked so the
// pending check and the consumed flip see the same row.
type reservationOrigin struct {
	ID          int64
	Status      string
	ClassDate   time.Time
	StartTime   string
	EndTime     sql.NullString
	TeacherCode sql.NullString
	SubjectID   sql.NullInt64
}

func (s *Store) LockReservation(ctx context.Context, tx pdb.DBTX, code string) (*reservationOrigin, error) {
	const q = `
	SELECT reservation_id, status, class_date, start_time, end_time, teacher_code, subject_id
	FROM reservations WHERE code = ? FOR UPDATE`
	var r reservationOrigin
	err := tx.QueryRowContext(ctx, q, code).Scan(
		&r.ID, &r.Status, &r.ClassDate, &r.StartTime, &r.EndTime, &r.TeacherCode, &r.SubjectID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("reservation not found: " + code)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) MarkReservationConsumed(ctx context.Context, tx pdb.DBTX, id int64) (bool, error) {
	const q = `UPDATE reservations SET status = 'consumed', updated_at = NOW() WHERE reservation_id = ? AND status = 'pending'`
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

func (s *Store) InsertHeader(ctx context.Context, tx pdb.DBTX, m *Loan) error {
	const q = `
	INSERT INTO loans
		(code, loan_date, start_time, end_time, status, custodian_id,
		 teacher_code, student_rut, subject_id, reservation_id, notes, return_journal)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		m.Code, m.LoanDate.Format("2006-01-02"), m.StartTime, m.EndTime, m.Status, m.CustodianID,
		m.TeacherCode, m.StudentRut, m.SubjectID, m.ReservationID, m.Notes, m.ReturnJournal)
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

func (s *Store) InsertLine(ctx context.Context, tx pdb.DBTX, l *LoanLine) error {
	const q = `
	INSERT INTO loan_lines (loan_id, tool_code, quantity_requested, quantity_delivered, quantity_returned)
	VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.LoanID, l.ToolCode, l.QuantityRequested, l.QuantityDelivered, l.QuantityReturned)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

const headerColumns = `loan_id, code, loan_date, start_time, end_time, status, custodian_id,
	teacher_code, student_rut, subject_id, reservation_id, notes, return_journal, created_at, updated_at`

func scanHeader(scan func(dest ...any) error) (*Loan, error) {
	var m Loan
	if err := scan(
		&m.ID, &m.Code, &m.LoanDate, &m.StartTime, &m.EndTime, &m.Status, &m.CustodianID,
		&m.TeacherCode, &m.StudentRut, &m.SubjectID, &m.ReservationID, &m.Notes, &m.ReturnJournal,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetByCode(ctx context.Context, code string) (*Loan, error) {
	q := `SELECT ` + headerColumns + ` FROM loans WHERE code = ?`
	m, err := scanHeader(s.db.QueryRowContext(ctx, q, code).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("loan not found")
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetByCodeTx re-reads the header inside a transaction so returns and
// cancellations work against a locked row.
func (s *Store) GetByCodeTx(ctx context.Context, tx pdb.DBTX, code string) (*Loan, error) {
	q := `SELECT ` + headerColumns + ` FROM loans WHERE code = ? FOR UPDATE`
	m, err := scanHeader(tx.QueryRowContext(ctx, q, code).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("loan not found")
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

type LineView struct {
	LineID            int64
	ToolCode          string
	ToolName          string
	Category          string
	QuantityRequested int
	QuantityDelivered int
	QuantityReturned  int
}

const lineColumns = `
	SELECT ll.loan_line_id, ll.tool_code, t.name, t.category,
	       ll.quantity_requested, ll.quantity_delivered, ll.quantity_returned
	FROM loan_lines ll
	JOIN tools t ON t.code = ll.tool_code
	WHERE ll.loan_id = ?
	ORDER BY ll.loan_line_id`

func (s *Store) LinesByLoan(ctx context.Context, id int64) ([]LineView, error) {
	return s.queryLines(ctx, s.db, id, lineColumns)
}

// LinesByLoanTx locks the line rows alongside the header for return and
// cancel processing.
func (s *Store) LinesByLoanTx(ctx context.Context, tx pdb.DBTX, id int64) ([]LineView, error) {
	return s.queryLines(ctx, tx, id, lineColumns+` FOR UPDATE`)
}

func (s *Store) queryLines(ctx context.Context, q pdb.DBTX, id int64, stmt string) ([]LineView, error) {
	rows, err := q.QueryContext(ctx, stmt, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineView
	for rows.Next() {
		var v LineView
		if err := rows.Scan(&v.LineID, &v.ToolCode, &v.ToolName, &v.Category,
			&v.QuantityRequested, &v.QuantityDelivered, &v.QuantityReturned); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) UpdateLineReturned(ctx context.Context, tx pdb.DBTX, lineID int64, returned int) error {
	const q = `UPDATE loan_lines SET quantity_returned = ? WHERE loan_line_id = ?`
	_, err := tx.ExecContext(ctx, q, returned, lineID)
	return err
}

func (s *Store) UpdateHeaderOnReturn(ctx context.Context, tx pdb.DBTX, id int64, status string, journal sql.NullString) error {
	const q = `UPDATE loans SET status = ?, return_journal = ?, updated_at = NOW() WHERE loan_id = ?`
	_, err := tx.ExecContext(ctx, q, status, journal, id)
	return err
}

func (s *Store) UpdateHeaderStatus(ctx context.Context, tx pdb.DBTX, id int64, status string) error {
	const q = `UPDATE loans SET status = ?, updated_at = NOW() WHERE loan_id = ?`
	_, err := tx.ExecContext(ctx, q, status, id)
	return err
}

func (s *Store) List(ctx context.Context, f Filter, p Page) ([]Loan, int64, error) {
	var conds []string
	var args []any
	if f.LoanDate != nil {
		conds = append(conds, "l.loan_date = ?")
		args = append(args, *f.LoanDate)
	}
	if f.Status != nil {
		conds = append(conds, "l.status = ?")
		args = append(args, *f.Status)
	}
	if f.Text != nil {
		conds = append(conds, "(l.code LIKE ? OR l.teacher_code LIKE ? OR l.student_rut LIKE ?)")
		pat := "%" + *f.Text + "%"
		args = append(args, pat, pat, pat)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM loans l`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "DESC"
	if strings.EqualFold(p.Order, "asc") {
		order = "ASC"
	}
	q := `
	SELECT l.loan_id, l.code, l.loan_date, l.start_time, l.end_time, l.status, l.custodian_id,
	       l.teacher_code, l.student_rut, l.subject_id, l.reservation_id, l.notes, l.return_journal,
	       l.created_at, l.updated_at
	FROM loans l` + where +
		` ORDER BY l.loan_date ` + order + `, l.loan_id ` + order + ` LIMIT ? OFFSET ?`
	args = append(args, p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		m, err := scanHeader(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

// ReservationCodeByID backfills the origin code on loan responses.
func (s *Store) ReservationCodeByID(ctx context.Context, id int64) (string, error) {
	const q = `SELECT code FROM reservations WHERE reservation_id = ?`
	var code string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&code)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return code, err
}
