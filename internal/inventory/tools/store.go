package tools

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	pdb "panol-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const toolColumns = `code, barcode, name, category, total_stock, available_stock`

func scanTool(row *sql.Row) (*Tool, error) {
	var t Tool
	if err := row.Scan(&t.Code, &t.Barcode, &t.Name, &t.Category, &t.TotalStock, &t.AvailableStock); err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByCodeOrBarcode looks the token up as a code first, then as a barcode
// alias. Scanners send either.
func (s *Store) FindByCodeOrBarcode(ctx context.Context, q pdb.DBTX, token string) (*Tool, error) {
	t, err := scanTool(q.QueryRowContext(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE code = ?`, token))
	if err == nil {
		return t, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	t, err = scanTool(q.QueryRowContext(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE barcode = ?`, token))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("tool not found")
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// NextCode picks the next free numeric code. Codes start at 10000; legacy
// non-numeric codes are ignored by the CAST.
func (s *Store) NextCode(ctx context.Context) (string, error) {
	const q = `SELECT COALESCE(MAX(CAST(code AS UNSIGNED)), 0) FROM tools WHERE code REGEXP '^[0-9]+$'`
	var max int64
	if err := s.db.QueryRowContext(ctx, q).Scan(&max); err != nil {
		return "", err
	}
	next := int64(10000)
	if max >= 10000 {
		next = max + 1
	}
	return strconv.FormatInt(next, 10), nil
}

func (s *Store) Insert(ctx context.Context, t *Tool) error {
	const q = `
	INSERT INTO tools (code, barcode, name, category, total_stock, available_stock)
	VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, t.Code, t.Barcode, t.Name, t.Category, t.TotalStock, t.AvailableStock)
	return err
}

// ApplyDelta floors both counters at zero. No upper clamp here, callers
// pre-validate.
func (s *Store) ApplyDelta(ctx context.Context, q pdb.DBTX, code string, totalDelta, availableDelta int) error {
	const stmt = `
	UPDATE tools
	SET total_stock = GREATEST(0, total_stock + ?),
	    available_stock = GREATEST(0, available_stock + ?)
	WHERE code = ?`
	res, err := q.ExecContext(ctx, stmt, totalDelta, availableDelta, code)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return ErrNotFound("tool not found")
	}
	return nil
}

func (s *Store) List(ctx context.Context, q SearchQuery, p Page) ([]Tool, int64, error) {
	where := "WHERE 1=1"
	args := []any{}
	if q.Text != nil && *q.Text != "" {
		where += " AND (name LIKE ? OR code = ?)"
		args = append(args, "%"+*q.Text+"%", *q.Text)
	}
	if q.Category != nil && *q.Category != "" {
		where += " AND category = ?"
		args = append(args, *q.Category)
	}

	order := "ASC"
	if strings.ToLower(p.Order) == "desc" {
		order = "DESC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	selectSQL := `SELECT ` + toolColumns + ` FROM tools ` + where + ` ORDER BY code ` + order + ` LIMIT ? OFFSET ?`
	queryArgs := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, selectSQL, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Tool{}
	for rows.Next() {
		var t Tool
		if err := rows.Scan(&t.Code, &t.Barcode, &t.Name, &t.Category, &t.TotalStock, &t.AvailableStock); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tools `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
