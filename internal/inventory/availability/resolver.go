// Package availability computes effective available stock for a tool,
// discounting pending reservations. It never mutates anything; callers run
// its queries inside their own transaction so the numbers stay consistent
// with the row locks they hold.
package availability

import (
	"context"
	"time"

	pdb "panol-backend/internal/platform/db"
)

// NearTermWindow protects classes about to start from walk-up loans.
const NearTermWindow = 15 * time.Minute

type Resolver struct{}

func NewResolver() *Resolver { return &Resolver{} }

// ReservedAtSlot sums pending reservation demand for the same tool, same
// date and exactly the same start time, excluding the reservation being
// built. Exact-time-bucket matching, not interval overlap.
func (r *Resolver) ReservedAtSlot(ctx context.Context, q pdb.DBTX, toolCode string, date, startTime string, excludeReservationID int64) (int, error) {
	const stmt = `
	SELECT COALESCE(SUM(rl.quantity_requested), 0)
	FROM reservation_lines rl
	JOIN reservations r ON r.reservation_id = rl.reservation_id
	WHERE rl.tool_code = ?
	  AND r.status = 'pending'
	  AND r.class_date = ?
	  AND r.start_time = ?
	  AND r.reservation_id <> ?`
	var sum int
	if err := q.QueryRowContext(ctx, stmt, toolCode, date, startTime, excludeReservationID).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// ReservedNearTerm sums pending reservation demand for the tool whose slot
// starts today within [now, now+15m]. Used by direct loans only; loans built
// from a reservation already had their demand accounted for.
func (r *Resolver) ReservedNearTerm(ctx context.Context, q pdb.DBTX, toolCode string, now time.Time) (int, error) {
	const stmt = `
	SELECT COALESCE(SUM(rl.quantity_requested), 0)
	FROM reservation_lines rl
	JOIN reservations r ON r.reservation_id = rl.reservation_id
	WHERE rl.tool_code = ?
	  AND r.status = 'pending'
	  AND r.class_date = ?
	  AND r.start_time BETWEEN ? AND ?`
	date := now.Format("2006-01-02")
	from := now.Format("15:04:05")
	to := "23:59:59"
	// near midnight the window would roll into tomorrow; clamp it so the
	// BETWEEN stays ordered and tonight's late slots are still counted
	if end := now.Add(NearTermWindow); end.Day() == now.Day() {
		to = end.Format("15:04:05")
	}
	var sum int
	if err := q.QueryRowContext(ctx, stmt, toolCode, date, from, to).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// EffectiveForSlot is availableStock minus competing demand in the same slot.
func (r *Resolver) EffectiveForSlot(ctx context.Context, q pdb.DBTX, toolCode string, available int, date, startTime string, excludeReservationID int64) (int, error) {
	reserved, err := r.ReservedAtSlot(ctx, q, toolCode, date, startTime, excludeReservationID)
	if err != nil {
		return 0, err
	}
	return available - reserved, nil
}

// EffectiveNearTerm is availableStock minus demand reserved for the next
// quarter hour.
func (r *Resolver) EffectiveNearTerm(ctx context.Context, q pdb.DBTX, toolCode string, available int, now time.Time) (int, error) {
	reserved, err := r.ReservedNearTerm(ctx, q, toolCode, now)
	if err != nil {
		return 0, err
	}
	return available - reserved, nil
}
