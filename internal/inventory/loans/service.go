package loans

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"panol-backend/internal/inventory/availability"
	"panol-backend/internal/inventory/tools"
	"panol-backend/internal/registry"
)

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewCode(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewCode(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return "P-" + ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

type Service struct {
	db         *sql.DB
	store      *Store
	resolver   *availability.Resolver
	custodians registry.CustodianResolver
	clock      Clock
	id         IDGen
}

func NewService(db *sql.DB, custodians registry.CustodianResolver) *Service {
	return &Service{
		db:         db,
		store:      NewStore(db),
		resolver:   availability.NewResolver(),
		custodians: custodians,
		clock:      realClock{},
		id:         ulidGen{},
	}
}

// Create hands tools over the counter, either directly or by consuming a
// pending reservation. Every stock mutation and the header/lines land in one
// transaction; any validation failure rolls the whole thing back.
func (s *Service) Create(ctx context.Context, userID string, req CreateLoanRequest) (*LoanResponse, error) {
	custodian, err := s.custodians.CustodianForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if custodian == nil {
		return nil, ErrInvalid("user is not registered as an active custodian")
	}

	teacherCode := trimPtr(req.TeacherCode)
	studentRut := trimPtr(req.StudentRut)
	if teacherCode != "" && studentRut != "" {
		return nil, ErrInvalid("teacher_code and student_rut are mutually exclusive")
	}
	if studentRut != "" && req.ReservationCode != nil {
		// reservations are teacher-class holds, walk-up students never have one
		return nil, ErrInvalid("a student loan cannot reference a reservation")
	}
	// a bare reservation_code is enough: the reservation lends its teacher
	if teacherCode == "" && studentRut == "" && req.ReservationCode == nil {
		return nil, ErrInvalid("one of teacher_code, student_rut or reservation_code is required")
	}

	lines := validLines(req.Lines)
	if len(lines) == 0 {
		return nil, ErrInvalid("at least one line with quantity > 0 is required")
	}

	now := s.clock.Now()
	m := &Loan{
		Code:        s.id.NewCode(now),
		LoanDate:    now,
		StartTime:   now.Format("15:04:05"),
		Status:      StatusPending,
		CustodianID: custodian.ID,
	}
	if req.LoanDate != nil {
		d, perr := time.Parse("2006-01-02", *req.LoanDate)
		if perr != nil {
			return nil, ErrInvalid("invalid loan_date, expected YYYY-MM-DD")
		}
		m.LoanDate = d
	}
	if req.StartTime != nil {
		t, perr := parseClock(*req.StartTime)
		if perr != nil {
			return nil, ErrInvalid("invalid start_time, expected HH:MM")
		}
		m.StartTime = t
	}
	if req.EndTime != nil {
		t, perr := parseClock(*req.EndTime)
		if perr != nil {
			return nil, ErrInvalid("invalid end_time, expected HH:MM")
		}
		m.EndTime = sql.NullString{String: t, Valid: true}
	}
	if req.Notes != nil && *req.Notes != "" {
		m.Notes = sql.NullString{String: *req.Notes, Valid: true}
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// origin reservation: must still be pending, and lends its context
	var origin *reservationOrigin
	if req.ReservationCode != nil {
		origin, err = s.store.LockReservation(ctx, tx, *req.ReservationCode)
		if err != nil {
			return nil, err
		}
		if origin.Status != "pending" {
			err = ErrConflict("reservation already used or cancelled")
			return nil, err
		}
		m.ReservationID = sql.NullInt64{Int64: origin.ID, Valid: true}
		if teacherCode == "" && origin.TeacherCode.Valid {
			teacherCode = origin.TeacherCode.String
		}
		if req.LoanDate == nil {
			m.LoanDate = origin.ClassDate
		}
		if req.StartTime == nil {
			m.StartTime = origin.StartTime
		}
		if req.EndTime == nil && origin.EndTime.Valid {
			m.EndTime = origin.EndTime
		}
	}
	if teacherCode == "" && studentRut == "" {
		err = ErrInvalid("reservation carries no teacher, teacher_code is required")
		return nil, err
	}

	switch {
	case teacherCode != "":
		ok, terr := s.store.TeacherActive(ctx, teacherCode)
		if terr != nil {
			err = terr
			return nil, err
		}
		if !ok {
			err = ErrInvalid("teacher not found or inactive")
			return nil, err
		}
		m.TeacherCode = sql.NullString{String: teacherCode, Valid: true}
	default:
		name := trimPtr(req.StudentName)
		if name == "" {
			err = ErrInvalid("student_name is required for a student loan")
			return nil, err
		}
		if err = s.store.UpsertStudent(ctx, tx, studentRut, name); err != nil {
			return nil, err
		}
		m.StudentRut = sql.NullString{String: studentRut, Valid: true}
	}

	// subject: explicit id, explicit name, or inherited from the reservation;
	// required for teacher loans, optional for students
	switch {
	case req.SubjectID != nil:
		exists, serr := s.store.SubjectExists(ctx, *req.SubjectID)
		if serr != nil {
			err = serr
			return nil, err
		}
		if !exists {
			err = ErrInvalid("subject not found")
			return nil, err
		}
		m.SubjectID = sql.NullInt64{Int64: *req.SubjectID, Valid: true}
	case req.SubjectName != nil && strings.TrimSpace(*req.SubjectName) != "":
		id, serr := s.store.EnsureSubject(ctx, tx, strings.TrimSpace(*req.SubjectName))
		if serr != nil {
			err = serr
			return nil, err
		}
		m.SubjectID = sql.NullInt64{Int64: id, Valid: true}
	case origin != nil && origin.SubjectID.Valid:
		m.SubjectID = origin.SubjectID
	case teacherCode != "":
		err = ErrInvalid("subject_id or subject_name is required for a teacher loan")
		return nil, err
	}

	if err = s.store.InsertHeader(ctx, tx, m); err != nil {
		return nil, err
	}

	allConsumable := true
	for _, ln := range lines {
		tool, lerr := s.store.LockTool(ctx, tx, ln.ToolCode)
		if lerr != nil {
			err = lerr
			return nil, err
		}
		cat := tools.Category(tool.Category)
		if studentRut != "" && !cat.LoanableToStudent() {
			err = ErrInvalid("tool " + tool.Name + " cannot be loaned to a student")
			return nil, err
		}

		// from a reservation the planning step already accounted for demand,
		// so only the raw counter applies; direct loans must also clear the
		// next quarter hour of pending class pick-ups
		effective := tool.Available
		if origin == nil {
			effective, err = s.resolver.EffectiveNearTerm(ctx, tx, tool.Code, tool.Available, now)
			if err != nil {
				return nil, err
			}
		}
		if ln.Quantity > effective {
			err = ErrInsufficientStock(tool.Name, effective, ln.Quantity)
			return nil, err
		}

		taken, terr := s.store.TakeStock(ctx, tx, tool.Code, ln.Quantity)
		if terr != nil {
			err = terr
			return nil, err
		}
		if !taken {
			err = ErrStockRace(tool.Name)
			return nil, err
		}
		if cat.ConsumesTotalOnLoan() {
			if err = s.store.ConsumeTotal(ctx, tx, tool.Code, ln.Quantity); err != nil {
				return nil, err
			}
		} else {
			allConsumable = false
		}

		if err = s.store.InsertLine(ctx, tx, &LoanLine{
			LoanID:            m.ID,
			ToolCode:          tool.Code,
			QuantityRequested: ln.Quantity,
			QuantityDelivered: ln.Quantity,
		}); err != nil {
			return nil, err
		}
	}

	// nothing comes back from a consumables-only loan
	if allConsumable {
		m.Status = StatusReturned
		if err = s.store.UpdateHeaderStatus(ctx, tx, m.ID, StatusReturned); err != nil {
			return nil, err
		}
	}

	if origin != nil {
		flipped, ferr := s.store.MarkReservationConsumed(ctx, tx, origin.ID)
		if ferr != nil {
			err = ferr
			return nil, err
		}
		if !flipped {
			err = ErrConflict("reservation already used or cancelled")
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	resp := s.buildResponse(ctx, m, nil)
	return &resp, nil
}

// RegisterReturn records how much of each line came back. Quantities are
// absolute, so posting the same numbers twice is a no-op on stock.
func (s *Service) RegisterReturn(ctx context.Context, code string, req RegisterReturnRequest) (*LoanResponse, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	m, err := s.store.GetByCodeTx(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if m.Status == StatusCancelled {
		err = ErrConflict("loan is cancelled and read-only")
		return nil, err
	}

	lineViews, err := s.store.LinesByLoanTx(ctx, tx, m.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*LineView, len(lineViews))
	for i := range lineViews {
		byID[lineViews[i].LineID] = &lineViews[i]
	}

	for _, r := range req.Lines {
		ln, ok := byID[r.LineID]
		if !ok {
			err = ErrInvalid("line does not belong to this loan")
			return nil, err
		}
		newReturned := clamp(r.QuantityReturned, 0, ln.QuantityDelivered)
		delta := newReturned - ln.QuantityReturned
		if delta == 0 {
			continue
		}
		alsoTotal := tools.Category(ln.Category).ConsumesTotalOnLoan()
		if err = s.store.RestoreStock(ctx, tx, ln.ToolCode, delta, alsoTotal); err != nil {
			return nil, err
		}
		if err = s.store.UpdateLineReturned(ctx, tx, ln.LineID, newReturned); err != nil {
			return nil, err
		}
		ln.QuantityReturned = newReturned
	}

	m.Status = statusFromLines(lineViews)
	if req.JournalNote != nil && *req.JournalNote != "" {
		m.ReturnJournal = sql.NullString{String: *req.JournalNote, Valid: true}
	}
	if err = s.store.UpdateHeaderOnReturn(ctx, tx, m.ID, m.Status, m.ReturnJournal); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	resp := s.buildResponse(ctx, m, lineViews)
	return &resp, nil
}

// Cancel voids a loan that is still open, restoring whatever is outstanding
// as if it had been fully returned.
func (s *Service) Cancel(ctx context.Context, code string) (*LoanResponse, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	m, err := s.store.GetByCodeTx(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusPending && m.Status != StatusPartiallyReturned {
		err = ErrConflict("only an open loan can be cancelled")
		return nil, err
	}

	lineViews, err := s.store.LinesByLoanTx(ctx, tx, m.ID)
	if err != nil {
		return nil, err
	}
	for i := range lineViews {
		ln := &lineViews[i]
		outstanding := ln.QuantityDelivered - ln.QuantityReturned
		if outstanding <= 0 {
			continue
		}
		alsoTotal := tools.Category(ln.Category).ConsumesTotalOnLoan()
		if err = s.store.RestoreStock(ctx, tx, ln.ToolCode, outstanding, alsoTotal); err != nil {
			return nil, err
		}
		if err = s.store.UpdateLineReturned(ctx, tx, ln.LineID, ln.QuantityDelivered); err != nil {
			return nil, err
		}
		ln.QuantityReturned = ln.QuantityDelivered
	}

	m.Status = StatusCancelled
	if err = s.store.UpdateHeaderStatus(ctx, tx, m.ID, StatusCancelled); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	resp := s.buildResponse(ctx, m, lineViews)
	return &resp, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*LoanResponse, error) {
	m, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	lines, err := s.store.LinesByLoan(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	resp := s.buildResponse(ctx, m, lines)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, f Filter, p Page) ([]LoanResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]LoanResponse, 0, len(items))
	for i := range items {
		out = append(out, s.buildResponse(ctx, &items[i], nil))
	}
	return out, total, nil
}

// ===== helpers =====

// statusFromLines derives the header from non-consumable lines only:
// consumables are gone the moment they leave the counter and never hold a
// loan open.
func statusFromLines(lines []LineView) string {
	sawDurable := false
	allBack := true
	for _, ln := range lines {
		if tools.Category(ln.Category).ConsumesTotalOnLoan() {
			continue
		}
		sawDurable = true
		if ln.QuantityReturned < ln.QuantityDelivered {
			allBack = false
		}
	}
	if !sawDurable || allBack {
		return StatusReturned
	}
	return StatusPartiallyReturned
}

func validLines(in []LineRequest) []LineRequest {
	out := make([]LineRequest, 0, len(in))
	for _, ln := range in {
		code := strings.TrimSpace(ln.ToolCode)
		if code == "" || ln.Quantity <= 0 {
			continue
		}
		out = append(out, LineRequest{ToolCode: code, Quantity: ln.Quantity})
	}
	return out
}

func parseClock(v string) (string, error) {
	if t, err := time.Parse("15:04", v); err == nil {
		return t.Format("15:04:05"), nil
	}
	t, err := time.Parse("15:04:05", v)
	if err != nil {
		return "", err
	}
	return t.Format("15:04:05"), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func trimPtr(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func (s *Service) buildResponse(ctx context.Context, m *Loan, lines []LineView) LoanResponse {
	resp := LoanResponse{
		Code:        m.Code,
		LoanDate:    m.LoanDate.Format("2006-01-02"),
		StartTime:   m.StartTime,
		Status:      m.Status,
		CustodianID: m.CustodianID,
		CreatedAt:   m.CreatedAt,
	}
	resp.BorrowerType = BorrowerTeacher
	if m.StudentRut.Valid {
		resp.BorrowerType = BorrowerStudent
		v := m.StudentRut.String
		resp.StudentRut = &v
	}
	if m.TeacherCode.Valid {
		v := m.TeacherCode.String
		resp.TeacherCode = &v
	}
	if m.EndTime.Valid {
		v := m.EndTime.String
		resp.EndTime = &v
	}
	if m.SubjectID.Valid {
		v := m.SubjectID.Int64
		resp.SubjectID = &v
	}
	if m.Notes.Valid {
		v := m.Notes.String
		resp.Notes = &v
	}
	if m.ReturnJournal.Valid {
		v := m.ReturnJournal.String
		resp.ReturnJournal = &v
	}
	if m.ReservationID.Valid {
		if code, err := s.store.ReservationCodeByID(ctx, m.ReservationID.Int64); err == nil && code != "" {
			resp.ReservationCode = &code
		}
	}
	for _, ln := range lines {
		resp.Lines = append(resp.Lines, LineResponse{
			LineID:            ln.LineID,
			ToolCode:          ln.ToolCode,
			ToolName:          ln.ToolName,
			Category:          ln.Category,
			QuantityRequested: ln.QuantityRequested,
			QuantityDelivered: ln.QuantityDelivered,
			QuantityReturned:  ln.QuantityReturned,
		})
	}
	return resp
}
