package reservations

import "time"

// ===== Requests =====

type LineRequest struct {
	ToolCode string `json:"tool_code"`
	Quantity int    `json:"quantity"`
}

type CreateReservationRequest struct {
	TeacherCode string        `json:"teacher_code" binding:"required"`
	SubjectID   *int64        `json:"subject_id,omitempty"`
	SubjectName *string       `json:"subject_name,omitempty"`
	ClassDate   string        `json:"class_date" binding:"required"` // "2006-01-02"
	StartTime   string        `json:"start_time" binding:"required"` // "15:04"
	EndTime     string        `json:"end_time" binding:"required"`
	Notes       *string       `json:"notes,omitempty"`
	Lines       []LineRequest `json:"lines" binding:"required"`
}

// ===== Responses =====

type LineResponse struct {
	ToolCode          string `json:"tool_code"`
	ToolName          string `json:"tool_name"`
	QuantityRequested int    `json:"quantity_requested"`
	AvailableStock    int    `json:"available_stock"`
}

type ReservationResponse struct {
	Code        string         `json:"code"`
	ClassDate   string         `json:"class_date"`
	StartTime   string         `json:"start_time"`
	EndTime     *string        `json:"end_time,omitempty"`
	Status      string         `json:"status"`
	CustodianID int64          `json:"custodian_id"`
	TeacherCode *string        `json:"teacher_code,omitempty"`
	SubjectID   *int64         `json:"subject_id,omitempty"`
	Notes       *string        `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Lines       []LineResponse `json:"lines,omitempty"`
}

// ===== Listing helpers =====

type Page struct {
	Limit  int
	Offset int
	Order  string
}

type Filter struct {
	ClassDate *string
	Status    *string
	Text      *string // matches code or teacher name
}
