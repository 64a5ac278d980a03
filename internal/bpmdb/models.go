package bpmdb

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("not found")

// Kinds used in NotFoundError.
const (
	KindUser            = "user"
	KindGroup           = "group"
	KindTask            = "task"
	KindBusinessProcess = "business process"
	KindEntityType      = "entity type"
)

// NotFoundError reports a missing row looked up by primary key.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) succeed.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// User is a row of auth_user.
type User struct {
	ID          int64
	Username    string
	Email       string
	FirstName   string
	LastName    string
	Password    string
	IsSuperuser bool
	IsStaff     bool
	IsActive    bool
	DateJoined  time.Time
}

// UserParams describes a user to get or create. Password is only applied when
// the user is created.
type UserParams struct {
	Username    string
	Email       string
	FirstName   string
	LastName    string
	Password    string
	IsSuperuser bool
}

// Group is a row of auth_group.
type Group struct {
	ID   int64
	Name string
}

// BusinessProcess is a row of processes_businessprocess.
type BusinessProcess struct {
	ID          int64
	Name        string
	Description string
}

// Task is a row of processes_task.
type Task struct {
	ID                int64
	BusinessProcessID int64
	Name              string
	Order             int
	Description       string
	// ResponsibleID is nil when no responsible user is assigned.
	ResponsibleID *int64
}

// EntityType is a document type of the BPM app.
type EntityType struct {
	ID     int64
	Name   string
	Fields string
}

// ConditionTree is the JSON start condition of a task.
type ConditionTree struct {
	AssignmentTask string `json:"assignment_task" yaml:"assignment_task"`
	Operator       string `json:"operator" yaml:"operator"`
	Value          string `json:"value" yaml:"value"`
}

// StartCondition is a row of processes_taskstartcondition.
type StartCondition struct {
	ID     int64
	TaskID int64
	Tree   ConditionTree
}
