package writeoffs

import (
	"context"
	"database/sql"
	"strings"

	pdb "panol-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

type lockedTool struct {
	Code      string
	Name      string
	Category  string
	Total     int
	Available int
}

// LockTool resolves a code-or-barcode token and locks the row. Unknown
// tokens come back as (nil, nil): write-offs skip them instead of aborting.
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
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RemoveStock takes n units out of both counters, floored at zero. The
// caller already clamped n to min(total, available) under the row lock.
func (s *Store) RemoveStock(ctx context.Context, tx pdb.DBTX, toolCode string, n int) error {
	const q = `
	UPDATE tools
	SET total_stock = GREATEST(0, total_stock - ?),
	    available_stock = GREATEST(0, available_stock - ?)
	WHERE code = ?`
	_, err := tx.ExecContext(ctx, q, n, n, toolCode)
	return err
}

func (s *Store) InsertHeader(ctx context.Context, tx pdb.DBTX, m *WriteOff) error {
	const q = `
	INSERT INTO write_offs
		(write_off_ulid, recorded_date, recorded_time, custodian_id,
		 teacher_code, subject_id, class_date, class_start, general_reason, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		m.ULID, m.RecordedDate.Format("2006-01-02"), m.RecordedTime, m.CustodianID,
		m.TeacherCode, m.SubjectID, m.ClassDate, m.ClassStart, m.Reason, m.Notes)
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

func (s *Store) InsertLine(ctx context.Context, tx pdb.DBTX, l *WriteOffLine) error {
	const q = `
	INSERT INTO write_off_lines (write_off_id, tool_code, quantity_written_off, reason)
	VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.WriteOffID, l.ToolCode, l.Quantity, l.Reason)
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

const headerColumns = `write_off_id, write_off_ulid, recorded_date, recorded_time, custodian_id,
	teacher_code, subject_id, class_date, class_start, general_reason, notes`

func scanHeader(scan func(dest ...any) error) (*WriteOff, error) {
	var m WriteOff
	if err := scan(
		&m.ID, &m.ULID, &m.RecordedDate, &m.RecordedTime, &m.CustodianID,
		&m.TeacherCode, &m.SubjectID, &m.ClassDate, &m.ClassStart, &m.Reason, &m.Notes,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetByULID(ctx context.Context, u string) (*WriteOff, error) {
	q := `SELECT ` + headerColumns + ` FROM write_offs WHERE write_off_ulid = ?`
	m, err := scanHeader(s.db.QueryRowContext(ctx, q, u).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("write-off not found")
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

type LineView struct {
	ToolCode string
	ToolName string
	Quantity int
	Reason   string
}

func (s *Store) LinesByWriteOff(ctx context.Context, id int64) ([]LineView, error) {
	const q = `
	SELECT wl.tool_code, t.name, wl.quantity_written_off, wl.reason
	FROM write_off_lines wl
	JOIN tools t ON t.code = wl.tool_code
	WHERE wl.write_off_id = ?
	ORDER BY wl.write_off_line_id`
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineView
	for rows.Next() {
		var v LineView
		if err := rows.Scan(&v.ToolCode, &v.ToolName, &v.Quantity, &v.Reason); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context, f Filter, p Page) ([]WriteOff, int64, error) {
	var conds []string
	var args []any
	if f.RecordedDate != nil {
		conds = append(conds, "w.recorded_date = ?")
		args = append(args, *f.RecordedDate)
	}
	if f.Text != nil {
		conds = append(conds, "(w.write_off_ulid LIKE ? OR w.general_reason LIKE ?)")
		pat := "%" + *f.Text + "%"
		args = append(args, pat, pat)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM write_offs w`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "DESC"
	if strings.EqualFold(p.Order, "asc") {
		order = "ASC"
	}
	q := `
	SELECT w.write_off_id, w.write_off_ulid, w.recorded_date, w.recorded_time, w.custodian_id,
	       w.teacher_code, w.subject_id, w.class_date, w.class_start, w.general_reason, w.notes
	FROM write_offs w` + where +
		` ORDER BY w.recorded_date ` + order + `, w.write_off_id ` + order + ` LIMIT ? OFFSET ?`
	args = append(args, p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []WriteOff
	for rows.Next() {
		m, err := scanHeader(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}
