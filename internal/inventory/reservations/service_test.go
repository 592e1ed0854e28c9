package reservations

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

func newMock(t *testing.T, custodian *registry.Custodian) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	svc := NewService(db, stubCustodians{c: custodian})
	svc.clock = fixedClock{t: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)}
	svc.id = fixedID{code: "C-TEST"}
	return svc, mock
}

func validRequest() CreateReservationRequest {
	subjectID := int64(3)
	return CreateReservationRequest{
		TeacherCode: "T-11",
		SubjectID:   &subjectID,
		ClassDate:   "2026-09-10",
		StartTime:   "09:00",
		EndTime:     "10:30",
		Lines:       []LineRequest{{ToolCode: "10001", Quantity: 5}},
	}
}

func toolRows(code, name string, available int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"code", "name", "available_stock"}).AddRow(code, name, available)
}

func TestCreateRejectsWhenSlotDemandExceedsStock(t *testing.T) {
	svc, mock := newMock(t, &registry.Custodian{ID: 1})

	mock.ExpectQuery("FROM teachers").WithArgs("T-11").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM subjects").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec("INSERT INTO reservations").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery("FROM tools WHERE code = ").WithArgs("10001").
		WillReturnRows(toolRows("10001", "Drill", 6))
	// another pending reservation already claims 3 of the 6 in this slot
	mock.ExpectQuery("FROM reservation_lines").
		WithArgs("10001", "2026-09-10", "09:00:00", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(3))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), "u1", validRequest())
	api, ok := err.(*APIError)
	if !ok || api.Code != CodeInsufficientStock {
		t.Fatalf("Create() error = %v, want INSUFFICIENT_STOCK", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreatePersistsWithoutTouchingStock(t *testing.T) {
	svc, mock := newMock(t, &registry.Custodian{ID: 1})

	mock.ExpectQuery("FROM teachers").WithArgs("T-11").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM subjects").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec("INSERT INTO reservations").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery("FROM tools WHERE code = ").WithArgs("10001").
		WillReturnRows(toolRows("10001", "Drill", 6))
	mock.ExpectQuery("FROM reservation_lines").
		WithArgs("10001", "2026-09-10", "09:00:00", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(1))
	mock.ExpectExec("INSERT INTO reservation_lines").
		WithArgs(int64(7), "10001", 5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	// note: no UPDATE tools anywhere — a reservation is a logical hold

	got, err := svc.Create(context.Background(), "u1", validRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if got.Code != "C-TEST" {
		t.Errorf("code = %q, want C-TEST", got.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateRequiresCustodian(t *testing.T) {
	svc, _ := newMock(t, nil)
	_, err := svc.Create(context.Background(), "u1", validRequest())
	if api, ok := err.(*APIError); !ok || api.Code != CodeInvalidArgument {
		t.Fatalf("Create() error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestCreateRequiresAtLeastOneUsableLine(t *testing.T) {
	svc, mock := newMock(t, &registry.Custodian{ID: 1})

	mock.ExpectQuery("FROM teachers").WithArgs("T-11").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	req := validRequest()
	req.Lines = []LineRequest{{ToolCode: "  ", Quantity: 4}, {ToolCode: "10001", Quantity: 0}}

	_, err := svc.Create(context.Background(), "u1", req)
	if api, ok := err.(*APIError); !ok || api.Code != CodeInvalidArgument {
		t.Fatalf("Create() error = %v, want INVALID_ARGUMENT", err)
	}
}

func reservationRow(id int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"reservation_id", "code", "class_date", "start_time", "end_time", "status",
		"custodian_id", "teacher_code", "subject_id", "notes", "created_at", "updated_at",
	}).AddRow(id, "C-TEST", time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), "09:00:00", "10:30:00",
		status, int64(1), "T-11", int64(3), nil, time.Now(), time.Now())
}

func TestCancelPendingReservation(t *testing.T) {
	svc, mock := newMock(t, &registry.Custodian{ID: 1})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM reservations WHERE code = ").WithArgs("C-TEST").
		WillReturnRows(reservationRow(7, StatusPending))
	mock.ExpectExec("UPDATE reservations SET status = 'cancelled'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := svc.Cancel(context.Background(), "C-TEST")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
}

func TestCancelConsumedReservationIsSilentlyRefused(t *testing.T) {
	svc, mock := newMock(t, &registry.Custodian{ID: 1})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM reservations WHERE code = ").WithArgs("C-TEST").
		WillReturnRows(reservationRow(7, StatusConsumed))
	// no UPDATE expected: a consumed reservation is immutable
	mock.ExpectCommit()

	got, err := svc.Cancel(context.Background(), "C-TEST")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got.Status != StatusConsumed {
		t.Errorf("status = %q, want consumed", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
