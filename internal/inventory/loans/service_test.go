package loans

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"panol-backend/internal/registry"
)

type stubCustodians struct{ c *registry.Custodian }

func (s stubCustodians) CustodianForUser(ctx context.Context, userID string) (*registry.Custodian, error) {
	return s.c, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedID struct{ code string }

func (f fixedID) NewCode(time.Time) string { return f.code }

func newMock(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	svc := NewService(db, stubCustodians{c: &registry.Custodian{ID: 1}})
	svc.clock = fixedClock{t: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)}
	svc.id = fixedID{code: "P-TEST"}
	return svc, mock
}

func strptr(s string) *string { return &s }

func teacherRequest(lines ...LineRequest) CreateLoanRequest {
	subjectID := int64(3)
	return CreateLoanRequest{
		TeacherCode: strptr("T-11"),
		SubjectID:   &subjectID,
		Lines:       lines,
	}
}

func toolRows(code, name, category string, total, available int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"code", "name", "category", "total_stock", "available_stock"}).
		AddRow(code, name, category, total, available)
}

func emptyToolRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"code", "name", "category", "total_stock", "available_stock"})
}

func expectTeacherAndSubject(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM teachers").WithArgs("T-11").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("FROM subjects").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
}

func TestCreateDurableLoanDecrementsOnlyAvailable(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	expectTeacherAndSubject(mock)
	mock.ExpectExec("INSERT INTO loans").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM tools WHERE code = ").WithArgs("10001").
		WillReturnRows(toolRows("10001", "Drill", "durable", 10, 10))
	mock.ExpectQuery("FROM reservation_lines").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0))
	mock.ExpectExec("UPDATE tools SET available_stock = available_stock -").
		WithArgs(4, "10001", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO loan_lines").
		WithArgs(int64(5), "10001", 4, 4, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	// no UPDATE on total_stock for a durable tool

	got, err := svc.Create(context.Background(), "u1", teacherRequest(LineRequest{ToolCode: "10001", Quantity: 4}))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateAllConsumableLoanAutoCloses(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	expectTeacherAndSubject(mock)
	mock.ExpectExec("INSERT INTO loans").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM tools WHERE code = ").WithArgs("10002").
		WillReturnRows(toolRows("10002", "Sandpaper", "consumable", 5, 5))
	mock.ExpectQuery("FROM reservation_lines").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0))
	mock.ExpectExec("UPDATE tools SET available_stock = available_stock -").
		WithArgs(5, "10002", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tools SET total_stock = GREATEST").
		WithArgs(5, "10002").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO loan_lines").
		WithArgs(int64(5), "10002", 5, 5, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE loans SET status = ").
		WithArgs(StatusReturned, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := svc.Create(context.Background(), "u1", teacherRequest(LineRequest{ToolCode: "10002", Quantity: 5}))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.Status != StatusReturned {
		t.Errorf("status = %q, want returned (nothing to give back)", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateLostStockRaceIsRetryableConflict(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	expectTeacherAndSubject(mock)
	mock.ExpectExec("INSERT INTO loans").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM tools WHERE code = ").WithArgs("10001").
		WillReturnRows(toolRows("10001", "Drill", "durable", 10, 4))
	mock.ExpectQuery("FROM reservation_lines").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0))
	// another transaction got there between the check and the decrement
	mock.ExpectExec("UPDATE tools SET available_stock = available_stock -").
		WithArgs(4, "10001", 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), "u1", teacherRequest(LineRequest{ToolCode: "10001", Quantity: 4}))
	api, ok := err.(*APIError)
	if !ok || api.Code != CodeStockRace {
		t.Fatalf("Create() error = %v, want STOCK_RACE", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateDirectLoanRespectsNearTermWindow(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	expectTeacherAndSubject(mock)
	mock.ExpectExec("INSERT INTO loans").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM tools WHERE code = ").WithArgs("10001").
		WillReturnRows(toolRows("10001", "Drill", "durable", 10, 5))
	// a class starting within 15 minutes holds 3 of the 5
	mock.ExpectQuery("FROM reservation_lines").
		WithArgs("10001", "2026-09-01", "10:00:00", "10:15:00").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(3))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), "u1", teacherRequest(LineRequest{ToolCode: "10001", Quantity: 4}))
	api, ok := err.(*APIError)
	if !ok || api.Code != CodeInsufficientStock {
		t.Fatalf("Create() error = %v, want INSUFFICIENT_STOCK", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateUnknownToolAbortsWholeLoan(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	expectTeacherAndSubject(mock)
	mock.ExpectExec("INSERT INTO loans").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM tools WHERE code = ").WithArgs("nope").WillReturnRows(emptyToolRows())
	mock.ExpectQuery("FROM tools WHERE barcode = ").WithArgs("nope").WillReturnRows(emptyToolRows())
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), "u1", teacherRequest(LineRequest{ToolCode: "nope", Quantity: 1}))
	api, ok := err.(*APIError)
	if !ok || api.Code != CodeNotFound {
		t.Fatalf("Create() error = %v, want NOT_FOUND", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateKeyToolRefusedForStudent(t *testing.T) {
	svc, mock := newMock(t)

	req := CreateLoanRequest{
		StudentRut:  strptr("12.345.678-9"),
		StudentName: strptr("A. Student"),
		Lines:       []LineRequest{{ToolCode: "10009", Quantity: 1}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").
		WithArgs("12.345.678-9", "A. Student").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO loans").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM tools WHERE code = ").WithArgs("10009").
		WillReturnRows(toolRows("10009", "Workshop key", "key", 1, 1))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), "u1", req)
	api, ok := err.(*APIError)
	if !ok || api.Code != CodeInvalidArgument {
		t.Fatalf("Create() error = %v, want INVALID_ARGUMENT", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateStudentMayNotReferenceReservation(t *testing.T) {
	svc, _ := newMock(t)

	req := CreateLoanRequest{
		StudentRut:      strptr("12.345.678-9"),
		StudentName:     strptr("A. Student"),
		ReservationCode: strptr("C-X"),
		Lines:           []LineRequest{{ToolCode: "10001", Quantity: 1}},
	}
	_, err := svc.Create(context.Background(), "u1", req)
	if api, ok := err.(*APIError); !ok || api.Code != CodeInvalidArgument {
		t.Fatalf("Create() error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestCreateFromConsumedReservationIsTerminal(t *testing.T) {
	svc, mock := newMock(t)

	req := teacherRequest(LineRequest{ToolCode: "10001", Quantity: 1})
	req.ReservationCode = strptr("C-USED")

	mock.ExpectBegin()
	mock.ExpectQuery("FROM reservations WHERE code = ").WithArgs("C-USED").
		WillReturnRows(sqlmock.NewRows([]string{
			"reservation_id", "status", "class_date", "start_time", "end_time", "teacher_code", "subject_id",
		}).AddRow(9, "consumed", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), "09:00:00", nil, "T-11", int64(3)))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), "u1", req)
	api, ok := err.(*APIError)
	if !ok || api.Code != CodeConflict {
		t.Fatalf("Create() error = %v, want CONFLICT", err)
	}
}

func TestCreateFromReservationSkipsNearTermCheck(t *testing.T) {
	svc, mock := newMock(t)

	req := teacherRequest(LineRequest{ToolCode: "10001", Quantity: 3})
	req.ReservationCode = strptr("C-OK")

	mock.ExpectBegin()
	mock.ExpectQuery("FROM reservations WHERE code = ").WithArgs("C-OK").
		WillReturnRows(sqlmock.NewRows([]string{
			"reservation_id", "status", "class_date", "start_time", "end_time", "teacher_code", "subject_id",
		}).AddRow(9, "pending", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), "09:00:00", "10:30:00", "T-11", int64(3)))
	mock.ExpectQuery("FROM teachers").WithArgs("T-11").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("FROM subjects").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec("INSERT INTO loans").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM tools WHERE code = ").WithArgs("10001").
		WillReturnRows(toolRows("10001", "Drill", "durable", 10, 3))
	// no reservation_lines query: the hold was already accounted for at
	// planning time, only the raw counter applies
	mock.ExpectExec("UPDATE tools SET available_stock = available_stock -").
		WithArgs(3, "10001", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO loan_lines").
		WithArgs(int64(5), "10001", 3, 3, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE reservations SET status = 'consumed'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT code FROM reservations").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("C-OK"))

	got, err := svc.Create(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateReservationOnlyInheritsTeacher(t *testing.T) {
	svc, mock := newMock(t)

	// no teacher_code, no subject: everything comes from the reservation
	req := CreateLoanRequest{
		ReservationCode: strptr("C-OK"),
		Lines:           []LineRequest{{ToolCode: "10001", Quantity: 2}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("FROM reservations WHERE code = ").WithArgs("C-OK").
		WillReturnRows(sqlmock.NewRows([]string{
			"reservation_id", "status", "class_date", "start_time", "end_time", "teacher_code", "subject_id",
		}).AddRow(9, "pending", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), "09:00:00", "10:30:00", "T-11", int64(3)))
	mock.ExpectQuery("FROM teachers").WithArgs("T-11").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec("INSERT INTO loans").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM tools WHERE code = ").WithArgs("10001").
		WillReturnRows(toolRows("10001", "Drill", "durable", 10, 3))
	mock.ExpectExec("UPDATE tools SET available_stock = available_stock -").
		WithArgs(2, "10001", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO loan_lines").
		WithArgs(int64(5), "10001", 2, 2, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE reservations SET status = 'consumed'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT code FROM reservations").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("C-OK"))

	got, err := svc.Create(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.TeacherCode == nil || *got.TeacherCode != "T-11" {
		t.Errorf("teacher_code = %v, want T-11 from the reservation", got.TeacherCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateWithoutBorrowerOrReservationRefused(t *testing.T) {
	svc, _ := newMock(t)

	_, err := svc.Create(context.Background(), "u1", CreateLoanRequest{
		Lines: []LineRequest{{ToolCode: "10001", Quantity: 1}},
	})
	if api, ok := err.(*APIError); !ok || api.Code != CodeInvalidArgument {
		t.Fatalf("Create() error = %v, want INVALID_ARGUMENT", err)
	}
}

// ===== returns =====

func loanHeaderRows(id int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"loan_id", "code", "loan_date", "start_time", "end_time", "status", "custodian_id",
		"teacher_code", "student_rut", "subject_id", "reservation_id", "notes", "return_journal",
		"created_at", "updated_at",
	}).AddRow(id, "P-TEST", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), "10:00:00", nil, status,
		int64(1), "T-11", nil, int64(3), nil, nil, nil, time.Now(), time.Now())
}

func lineViewRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"loan_line_id", "tool_code", "name", "category",
		"quantity_requested", "quantity_delivered", "quantity_returned",
	})
}

func TestRegisterReturnRestoresStockAndClosesLoan(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM loans WHERE code = ").WithArgs("P-TEST").
		WillReturnRows(loanHeaderRows(5, StatusPending))
	mock.ExpectQuery("FROM loan_lines").WithArgs(int64(5)).
		WillReturnRows(lineViewRows().AddRow(21, "10001", "Drill", "durable", 4, 4, 0))
	mock.ExpectExec("UPDATE tools SET available_stock = GREATEST").
		WithArgs(4, "10001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE loan_lines SET quantity_returned").
		WithArgs(4, int64(21)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE loans SET status = ").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := svc.RegisterReturn(context.Background(), "P-TEST", RegisterReturnRequest{
		Lines: []ReturnLineRequest{{LineID: 21, QuantityReturned: 4}},
	})
	if err != nil {
		t.Fatalf("RegisterReturn() error = %v", err)
	}
	if got.Status != StatusReturned {
		t.Errorf("status = %q, want returned", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRegisterReturnIsIdempotent(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM loans WHERE code = ").WithArgs("P-TEST").
		WillReturnRows(loanHeaderRows(5, StatusReturned))
	mock.ExpectQuery("FROM loan_lines").WithArgs(int64(5)).
		WillReturnRows(lineViewRows().AddRow(21, "10001", "Drill", "durable", 4, 4, 4))
	// same numbers again: delta 0, no stock or line updates
	mock.ExpectExec("UPDATE loans SET status = ").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := svc.RegisterReturn(context.Background(), "P-TEST", RegisterReturnRequest{
		Lines: []ReturnLineRequest{{LineID: 21, QuantityReturned: 4}},
	})
	if err != nil {
		t.Fatalf("RegisterReturn() error = %v", err)
	}
	if got.Status != StatusReturned {
		t.Errorf("status = %q, want returned", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRegisterReturnClampsToDelivered(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM loans WHERE code = ").WithArgs("P-TEST").
		WillReturnRows(loanHeaderRows(5, StatusPending))
	mock.ExpectQuery("FROM loan_lines").WithArgs(int64(5)).
		WillReturnRows(lineViewRows().AddRow(21, "10001", "Drill", "durable", 4, 4, 1))
	// 99 requested, clamped to 4 delivered, delta = 3
	mock.ExpectExec("UPDATE tools SET available_stock = GREATEST").
		WithArgs(3, "10001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE loan_lines SET quantity_returned").
		WithArgs(4, int64(21)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE loans SET status = ").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if _, err := svc.RegisterReturn(context.Background(), "P-TEST", RegisterReturnRequest{
		Lines: []ReturnLineRequest{{LineID: 21, QuantityReturned: 99}},
	}); err != nil {
		t.Fatalf("RegisterReturn() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRegisterReturnRefusedOnCancelledLoan(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM loans WHERE code = ").WithArgs("P-TEST").
		WillReturnRows(loanHeaderRows(5, StatusCancelled))
	mock.ExpectRollback()

	_, err := svc.RegisterReturn(context.Background(), "P-TEST", RegisterReturnRequest{
		Lines: []ReturnLineRequest{{LineID: 21, QuantityReturned: 1}},
	})
	api, ok := err.(*APIError)
	if !ok || api.Code != CodeConflict {
		t.Fatalf("RegisterReturn() error = %v, want CONFLICT", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCancelRestoresOutstandingStock(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM loans WHERE code = ").WithArgs("P-TEST").
		WillReturnRows(loanHeaderRows(5, StatusPartiallyReturned))
	mock.ExpectQuery("FROM loan_lines").WithArgs(int64(5)).
		WillReturnRows(lineViewRows().AddRow(21, "10001", "Drill", "durable", 4, 4, 1))
	// 3 still out, comes back on cancel
	mock.ExpectExec("UPDATE tools SET available_stock = GREATEST").
		WithArgs(3, "10001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE loan_lines SET quantity_returned").
		WithArgs(4, int64(21)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE loans SET status = ").
		WithArgs(StatusCancelled, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := svc.Cancel(context.Background(), "P-TEST")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCancelReturnedLoanRefused(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM loans WHERE code = ").WithArgs("P-TEST").
		WillReturnRows(loanHeaderRows(5, StatusReturned))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), "P-TEST")
	if api, ok := err.(*APIError); !ok || api.Code != CodeConflict {
		t.Fatalf("Cancel() error = %v, want CONFLICT", err)
	}
}

// ===== status derivation =====

func TestStatusFromLinesIgnoresConsumables(t *testing.T) {
	tests := []struct {
		name  string
		lines []LineView
		want  string
	}{
		{
			name: "consumables only",
			lines: []LineView{
				{Category: "consumable", QuantityDelivered: 5, QuantityReturned: 0},
			},
			want: StatusReturned,
		},
		{
			name: "durable fully back, consumable never returned",
			lines: []LineView{
				{Category: "durable", QuantityDelivered: 4, QuantityReturned: 4},
				{Category: "consumable", QuantityDelivered: 2, QuantityReturned: 0},
			},
			want: StatusReturned,
		},
		{
			name: "durable partially back",
			lines: []LineView{
				{Category: "durable", QuantityDelivered: 4, QuantityReturned: 2},
			},
			want: StatusPartiallyReturned,
		},
		{
			name: "key tool outstanding",
			lines: []LineView{
				{Category: "key", QuantityDelivered: 1, QuantityReturned: 0},
			},
			want: StatusPartiallyReturned,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFromLines(tt.lines); got != tt.want {
				t.Errorf("statusFromLines() = %q, want %q", got, tt.want)
			}
		})
	}
}
