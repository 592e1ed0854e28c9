package writeoffs

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"panol-backend/internal/inventory/tools"
	"panol-backend/internal/registry"
)

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

type Service struct {
	db         *sql.DB
	store      *Store
	custodians registry.CustodianResolver
	clock      Clock
	id         IDGen
}

func NewService(db *sql.DB, custodians registry.CustodianResolver) *Service {
	return &Service{
		db:         db,
		store:      NewStore(db),
		custodians: custodians,
		clock:      realClock{},
		id:         ulidGen{},
	}
}

// Create removes broken or lost stock. Lines that cannot be written off
// (unknown tool, key categories, nothing removable) are skipped rather than
// failing the batch; a batch where every line was skipped is discarded
// entirely so no empty header survives.
func (s *Service) Create(ctx context.Context, userID string, req CreateWriteOffRequest) (*WriteOffResponse, error) {
	custodian, err := s.custodians.CustodianForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if custodian == nil {
		return nil, ErrInvalid("user is not registered as an active custodian")
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrInvalid("a general reason is required")
	}
	lines := validLines(req.Lines)
	if len(lines) == 0 {
		return nil, ErrInvalid("at least one line with quantity > 0 is required")
	}

	now := s.clock.Now()
	m := &WriteOff{
		ULID:         s.id.NewULID(now),
		RecordedDate: now,
		RecordedTime: now.Format("15:04:05"),
		CustodianID:  custodian.ID,
		Reason:       reason,
	}
	if v := trimPtr(req.TeacherCode); v != "" {
		m.TeacherCode = sql.NullString{String: v, Valid: true}
	}
	if req.SubjectID != nil {
		m.SubjectID = sql.NullInt64{Int64: *req.SubjectID, Valid: true}
	}
	if v := trimPtr(req.ClassDate); v != "" {
		m.ClassDate = sql.NullString{String: v, Valid: true}
	}
	if v := trimPtr(req.ClassStart); v != "" {
		m.ClassStart = sql.NullString{String: v, Valid: true}
	}
	if notes := foldNotes(req); notes != "" {
		m.Notes = sql.NullString{String: notes, Valid: true}
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

	if err = s.store.InsertHeader(ctx, tx, m); err != nil {
		return nil, err
	}

	var kept []LineView
	skipped := 0
	for _, ln := range lines {
		tool, lerr := s.store.LockTool(ctx, tx, ln.ToolCode)
		if lerr != nil {
			err = lerr
			return nil, err
		}
		if tool == nil {
			skipped++
			continue
		}
		// restricted categories are never written off
		if !tools.Category(tool.Category).WriteOffEligible() {
			skipped++
			continue
		}
		maxRemovable := tool.Total
		if tool.Available < maxRemovable {
			maxRemovable = tool.Available
		}
		if maxRemovable <= 0 {
			skipped++
			continue
		}
		n := ln.Quantity
		if n > maxRemovable {
			n = maxRemovable
		}
		lineReason := reason
		if ln.Reason != nil && strings.TrimSpace(*ln.Reason) != "" {
			lineReason = strings.TrimSpace(*ln.Reason)
		}
		if err = s.store.InsertLine(ctx, tx, &WriteOffLine{
			WriteOffID: m.ID,
			ToolCode:   tool.Code,
			Quantity:   n,
			Reason:     lineReason,
		}); err != nil {
			return nil, err
		}
		if err = s.store.RemoveStock(ctx, tx, tool.Code, n); err != nil {
			return nil, err
		}
		kept = append(kept, LineView{ToolCode: tool.Code, ToolName: tool.Name, Quantity: n, Reason: lineReason})
	}

	// every line skipped: roll the header back, nothing happened
	if len(kept) == 0 {
		err = ErrInvalid("no line could be written off")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	resp := buildResponse(m, kept, skipped)
	return &resp, nil
}

func (s *Service) GetByULID(ctx context.Context, u string) (*WriteOffResponse, error) {
	m, err := s.store.GetByULID(ctx, u)
	if err != nil {
		return nil, err
	}
	lines, err := s.store.LinesByWriteOff(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	resp := buildResponse(m, lines, 0)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, f Filter, p Page) ([]WriteOffResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]WriteOffResponse, 0, len(items))
	for i := range items {
		resp := buildResponse(&items[i], nil, 0)
		out = append(out, resp)
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
		ln.ToolCode = code
		out = append(out, ln)
	}
	return out
}

// foldNotes merges the free-text notes with the context fields that have no
// column of their own.
func foldNotes(req CreateWriteOffRequest) string {
	var parts []string
	if v := trimPtr(req.Notes); v != "" {
		parts = append(parts, v)
	}
	if v := trimPtr(req.LoanCode); v != "" {
		parts = append(parts, "loan: "+v)
	}
	if v := trimPtr(req.ClassEnd); v != "" {
		parts = append(parts, "class end: "+v)
	}
	return strings.Join(parts, " | ")
}

func trimPtr(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func buildResponse(m *WriteOff, lines []LineView, skipped int) WriteOffResponse {
	resp := WriteOffResponse{
		ULID:         m.ULID,
		RecordedDate: m.RecordedDate.Format("2006-01-02"),
		RecordedTime: m.RecordedTime,
		CustodianID:  m.CustodianID,
		Reason:       m.Reason,
		SkippedLines: skipped,
	}
	if m.TeacherCode.Valid {
		v := m.TeacherCode.String
		resp.TeacherCode = &v
	}
	if m.SubjectID.Valid {
		v := m.SubjectID.Int64
		resp.SubjectID = &v
	}
	if m.ClassDate.Valid {
		v := m.ClassDate.String
		resp.ClassDate = &v
	}
	if m.ClassStart.Valid {
		v := m.ClassStart.String
		resp.ClassStart = &v
	}
	if m.Notes.Valid {
		v := m.Notes.String
		resp.Notes = &v
	}
	for _, ln := range lines {
		resp.Lines = append(resp.Lines, LineResponse{
			ToolCode: ln.ToolCode,
			ToolName: ln.ToolName,
			Quantity: ln.Quantity,
			Reason:   ln.Reason,
		})
	}
	return resp
}
