package loans

import "time"

// ===== Requests =====

type LineRequest struct {
	ToolCode string `json:"tool_code"`
	Quantity int    `json:"quantity"`
}

// CreateLoanRequest covers both the direct counter loan and the
// conversion of a pending reservation. Exactly one of teacher_code or
// student_rut identifies the borrower.
type CreateLoanRequest struct {
	ReservationCode *string       `json:"reservation_code,omitempty"`
	TeacherCode     *string       `json:"teacher_code,omitempty"`
	StudentRut      *string       `json:"student_rut,omitempty"`
	StudentName     *string       `json:"student_name,omitempty"`
	SubjectID       *int64        `json:"subject_id,omitempty"`
	SubjectName     *string       `json:"subject_name,omitempty"`
	LoanDate        *string       `json:"loan_date,omitempty"`  // "2006-01-02", defaults to today
	StartTime       *string       `json:"start_time,omitempty"` // "15:04", defaults to now
	EndTime         *string       `json:"end_time,omitempty"`
	Notes           *string       `json:"notes,omitempty"`
	Lines           []LineRequest `json:"lines" binding:"required"`
}

type ReturnLineRequest struct {
	LineID           int64 `json:"line_id"`
	QuantityReturned int   `json:"quantity_returned"`
}

type RegisterReturnRequest struct {
	Lines       []ReturnLineRequest `json:"lines" binding:"required"`
	JournalNote *string             `json:"journal_note,omitempty"`
}

// ===== Responses =====

type LineResponse struct {
	LineID            int64  `json:"line_id"`
	ToolCode          string `json:"tool_code"`
	ToolName          string `json:"tool_name"`
	Category          string `json:"category"`
	QuantityRequested int    `json:"quantity_requested"`
	QuantityDelivered int    `json:"quantity_delivered"`
	QuantityReturned  int    `json:"quantity_returned"`
}

type LoanResponse struct {
	Code            string         `json:"code"`
	LoanDate        string         `json:"loan_date"`
	StartTime       string         `json:"start_time"`
	EndTime         *string        `json:"end_time,omitempty"`
	Status          string         `json:"status"`
	CustodianID     int64          `json:"custodian_id"`
	BorrowerType    string         `json:"borrower_type"`
	TeacherCode     *string        `json:"teacher_code,omitempty"`
	StudentRut      *string        `json:"student_rut,omitempty"`
	SubjectID       *int64         `json:"subject_id,omitempty"`
	ReservationCode *string        `json:"reservation_code,omitempty"`
	Notes           *string        `json:"notes,omitempty"`
	ReturnJournal   *string        `json:"return_journal,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	Lines           []LineResponse `json:"lines,omitempty"`
}

// ===== Listing helpers =====

type Page struct {
	Limit  int
	Offset int
	Order  string
}

type Filter struct {
	LoanDate *string
	Status   *string
	Text     *string // matches code, teacher code or student rut
}
