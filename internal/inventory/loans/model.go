package loans

import (
	"database/sql"
	"time"
)

const (
	StatusPending           = "pending"
	StatusPartiallyReturned = "partially_returned"
	StatusReturned          = "returned"
	StatusCancelled         = "cancelled"
)

const (
	BorrowerTeacher = "teacher"
	BorrowerStudent = "student"
)

type Loan struct {
	ID            int64
	Code          string
	LoanDate      time.Time
	StartTime     string
	EndTime       sql.NullString
	Status        string
	CustodianID   int64
	TeacherCode   sql.NullString
	StudentRut    sql.NullString
	SubjectID     sql.NullInt64
	ReservationID sql.NullInt64
	Notes         sql.NullString
	ReturnJournal sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type LoanLine struct {
	ID                int64
	LoanID            int64
	ToolCode          string
	QuantityRequested int
	QuantityDelivered int
	QuantityReturned  int
}
