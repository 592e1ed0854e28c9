package writeoffs

// ===== Requests =====

type LineRequest struct {
	ToolCode string  `json:"tool_code"`
	Quantity int     `json:"quantity"`
	Reason   *string `json:"reason,omitempty"` // falls back to the general reason
}

// CreateWriteOffRequest removes damaged or lost stock. The class context
// fields are optional bookkeeping; loan_code and class_end are folded into
// the notes text rather than stored as columns.
type CreateWriteOffRequest struct {
	Reason      string        `json:"reason" binding:"required"`
	TeacherCode *string       `json:"teacher_code,omitempty"`
	SubjectID   *int64        `json:"subject_id,omitempty"`
	ClassDate   *string       `json:"class_date,omitempty"`  // "2006-01-02"
	ClassStart  *string       `json:"class_start,omitempty"` // "15:04"
	ClassEnd    *string       `json:"class_end,omitempty"`
	LoanCode    *string       `json:"loan_code,omitempty"`
	Notes       *string       `json:"notes,omitempty"`
	Lines       []LineRequest `json:"lines" binding:"required"`
}

// ===== Responses =====

type LineResponse struct {
	ToolCode string `json:"tool_code"`
	ToolName string `json:"tool_name"`
	Quantity int    `json:"quantity_written_off"`
	Reason   string `json:"reason"`
}

type WriteOffResponse struct {
	ULID         string         `json:"ulid"`
	RecordedDate string         `json:"recorded_date"`
	RecordedTime string         `json:"recorded_time"`
	CustodianID  int64          `json:"custodian_id"`
	TeacherCode  *string        `json:"teacher_code,omitempty"`
	SubjectID    *int64         `json:"subject_id,omitempty"`
	ClassDate    *string        `json:"class_date,omitempty"`
	ClassStart   *string        `json:"class_start,omitempty"`
	Reason       string         `json:"reason"`
	Notes        *string        `json:"notes,omitempty"`
	SkippedLines int            `json:"skipped_lines"`
	Lines        []LineResponse `json:"lines,omitempty"`
}

// ===== Listing helpers =====

type Page struct {
	Limit  int
	Offset int
	Order  string
}

type Filter struct {
	RecordedDate *string
	Text         *string // matches ulid or reason
}
