package writeoffs

import (
	"database/sql"
	"time"
)

type WriteOff struct {
	ID           int64
	ULID         string
	RecordedDate time.Time
	RecordedTime string
	CustodianID  int64
	TeacherCode  sql.NullString
	SubjectID    sql.NullInt64
	ClassDate    sql.NullString
	ClassStart   sql.NullString
	Reason       string
	Notes        sql.NullString
}

type WriteOffLine struct {
	ID         int64
	WriteOffID int64
	ToolCode   string
	Quantity   int
	Reason     string
}
