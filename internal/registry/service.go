package registry

import (
	"context"
	"database/sql"
)

// CustodianResolver is what the inventory managers consume: map a logged-in
// user to the custodian identity every create operation must carry.
type CustodianResolver interface {
	CustodianForUser(ctx context.Context, userID string) (*Custodian, error)
}

type Service struct {
	store *Store
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db)}
}

func (s *Service) CustodianForUser(ctx context.Context, userID string) (*Custodian, error) {
	if userID == "" {
		return nil, nil
	}
	return s.store.CustodianByUserID(ctx, userID)
}

func (s *Service) ListTeachers(ctx context.Context) ([]Teacher, error) {
	return s.store.ListTeachers(ctx)
}

func (s *Service) GetTeacher(ctx context.Context, code string) (*Teacher, error) {
	return s.store.TeacherByCode(ctx, code)
}

func (s *Service) GetStudent(ctx context.Context, rut string) (*Student, error) {
	return s.store.StudentByRut(ctx, rut)
}

func (s *Service) ListSubjects(ctx context.Context) ([]Subject, error) {
	return s.store.ListSubjects(ctx)
}
