package registry

import "database/sql"

// Custodian is the inventory steward operating the crib; every create
// operation in the inventory packages requires one.
type Custodian struct {
	ID     int64
	UserID string
	Code   string
	Name   string
	Role   string // custodian | head
	Active bool
}

type Teacher struct {
	Code   string
	Name   string
	Active bool
}

type Student struct {
	Rut           string
	Name          string
	DegreeProgram sql.NullString
	Active        bool
}

type Subject struct {
	ID   int64
	Code sql.NullString
	Name string
}
