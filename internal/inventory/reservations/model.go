package reservations

import (
	"database/sql"
	"time"
)

const (
	StatusPending   = "pending"
	StatusConsumed  = "consumed"
	StatusCancelled = "cancelled"
)

// Reservation is one row of the reservations table: an anticipated pick-list
// for a class. It never holds stock physically; pending reservations only
// weigh into the availability queries.
type Reservation struct {
	ID          int64
	Code        string
	ClassDate   time.Time
	StartTime   string // "15:04:05"
	EndTime     sql.NullString
	Status      string
	CustodianID int64
	TeacherCode sql.NullString
	SubjectID   sql.NullInt64
	Notes       sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ReservationLine struct {
	LineID            int64
	ReservationID     int64
	ToolCode          string
	QuantityRequested int
}
