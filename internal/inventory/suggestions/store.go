package suggestions

import (
	"context"
	"database/sql"

	pdb "panol-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// usageRow is one (subject, tool) demand aggregate over reservation and loan
// history.
type usageRow struct {
	SubjectID sql.NullInt64
	ToolCode  string
	ToolName  string
	Quantity  int
}

// UsageHistory aggregates how often each tool was asked for per subject,
// over both planned demand (reservation lines) and actual demand (loan
// lines). Cancelled records are excluded; they never represented real use.
func (s *Store) UsageHistory(ctx context.Context, q pdb.DBTX) ([]usageRow, error) {
	const stmt = `
	SELECT u.subject_id, u.tool_code, t.name, SUM(u.qty) AS qty
	FROM (
		SELECT r.subject_id, rl.tool_code, rl.quantity_requested AS qty
		FROM reservation_lines rl
		JOIN reservations r ON r.reservation_id = rl.reservation_id
		WHERE r.status <> 'cancelled'
		UNION ALL
		SELECT l.subject_id, ll.tool_code, ll.quantity_delivered AS qty
		FROM loan_lines ll
		JOIN loans l ON l.loan_id = ll.loan_id
		WHERE l.status <> 'cancelled'
	) u
	JOIN tools t ON t.code = u.tool_code
	GROUP BY u.subject_id, u.tool_code, t.name`
	rows, err := q.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usageRow
	for rows.Next() {
		var r usageRow
		if err := rows.Scan(&r.SubjectID, &r.ToolCode, &r.ToolName, &r.Quantity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SubjectNames maps subject ids to names for the family-weight lookup.
func (s *Store) SubjectNames(ctx context.Context, q pdb.DBTX) (map[int64]string, error) {
	const stmt = `SELECT subject_id, name FROM subjects`
	rows, err := q.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}
