package reservations

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"panol-backend/internal/inventory/availability"
	"panol-backend/internal/registry"
)

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewCode(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewCode(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return "C-" + ulid.MustNew(ulid.Timestamp(t), entropy).String()
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

// Create registers an anticipated pick-list for a class. Reservations are
// logical holds: nothing is decremented, each line only has to fit into the
// slot's effective capacity (available minus other pending demand for the
// exact same date and start time).
func (s *Service) Create(ctx context.Context, userID string, req CreateReservationRequest) (*ReservationResponse, error) {
	custodian, err := s.custodians.CustodianForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if custodian == nil {
		return nil, ErrInvalid("user is not registered as an active custodian")
	}

	// reservations are for classes, teacher borrowers only
	teacherCode := strings.TrimSpace(req.TeacherCode)
	if teacherCode == "" {
		return nil, ErrInvalid("teacher_code is required")
	}
	ok, err := s.store.TeacherActive(ctx, teacherCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalid("teacher not found or inactive")
	}

	classDate, err := time.Parse("2006-01-02", req.ClassDate)
	if err != nil {
		return nil, ErrInvalid("invalid class_date, expected YYYY-MM-DD")
	}
	startTime, err := parseClock(req.StartTime)
	if err != nil {
		return nil, ErrInvalid("invalid start_time, expected HH:MM")
	}
	endTime, err := parseClock(req.EndTime)
	if err != nil {
		return nil, ErrInvalid("invalid end_time, expected HH:MM")
	}

	lines := validLines(req.Lines)
	if len(lines) == 0 {
		return nil, ErrInvalid("at least one line with quantity > 0 is required")
	}

	now := s.clock.Now()
	m := &Reservation{
		Code:        s.id.NewCode(now),
		ClassDate:   classDate,
		StartTime:   startTime,
		Status:      StatusPending,
		CustodianID: custodian.ID,
	}
	m.EndTime = sql.NullString{String: endTime, Valid: true}
	m.TeacherCode = sql.NullString{String: teacherCode, Valid: true}
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

	// subject: by id, or get-or-create by name
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
	default:
		err = ErrInvalid("subject_id or subject_name is required")
		return nil, err
	}

	if err = s.store.InsertHeader(ctx, tx, m); err != nil {
		return nil, err
	}

	dateStr := classDate.Format("2006-01-02")
	for _, ln := range lines {
		tool, lerr := s.store.LockTool(ctx, tx, ln.ToolCode)
		if lerr != nil {
			err = lerr
			return nil, err
		}
		effective, eerr := s.resolver.EffectiveForSlot(ctx, tx, tool.Code, tool.Available, dateStr, startTime, m.ID)
		if eerr != nil {
			err = eerr
			return nil, err
		}
		if ln.Quantity > effective {
			err = ErrInsufficientStock(tool.Name, effective, ln.Quantity)
			return nil, err
		}
		if err = s.store.InsertLine(ctx, tx, &ReservationLine{
			ReservationID:     m.ID,
			ToolCode:          tool.Code,
			QuantityRequested: ln.Quantity,
		}); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	resp := buildResponse(m, nil)
	return &resp, nil
}

// Cancel voids a pending reservation. Consumed (or already cancelled)
// reservations are left untouched without an error; there is no stock to
// give back because creation never took any. The header is locked for the
// duration so a loan cannot consume the reservation mid-cancel.
func (s *Service) Cancel(ctx context.Context, code string) (*ReservationResponse, error) {
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
	if m.Status == StatusPending {
		var changed bool
		changed, err = s.store.MarkCancelled(ctx, tx, m.ID)
		if err != nil {
			return nil, err
		}
		if changed {
			m.Status = StatusCancelled
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	resp := buildResponse(m, nil)
	return &resp, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*ReservationResponse, error) {
	m, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	lines, err := s.store.LinesByReservation(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	resp := buildResponse(m, lines)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, f Filter, p Page) ([]ReservationResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ReservationResponse, 0, len(items))
	for i := range items {
		out = append(out, buildResponse(&items[i], nil))
	}
	return out, total, nil
}

// ===== helpers =====

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

// parseClock normalizes HH:MM or HH:MM:SS into HH:MM:SS.
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

func buildResponse(m *Reservation, lines []LineView) ReservationResponse {
	resp := ReservationResponse{
		Code:        m.Code,
		ClassDate:   m.ClassDate.Format("2006-01-02"),
		StartTime:   m.StartTime,
		Status:      m.Status,
		CustodianID: m.CustodianID,
		CreatedAt:   m.CreatedAt,
	}
	if m.EndTime.Valid {
		v := m.EndTime.String
		resp.EndTime = &v
	}
	if m.TeacherCode.Valid {
		v := m.TeacherCode.String
		resp.TeacherCode = &v
	}
	if m.SubjectID.Valid {
		v := m.SubjectID.Int64
		resp.SubjectID = &v
	}
	if m.Notes.Valid {
		v := m.Notes.String
		resp.Notes = &v
	}
	for _, ln := range lines {
		resp.Lines = append(resp.Lines, LineResponse{
			ToolCode:          ln.ToolCode,
			ToolName:          ln.ToolName,
			QuantityRequested: ln.QuantityRequested,
			AvailableStock:    ln.AvailableStock,
		})
	}
	return resp
}
