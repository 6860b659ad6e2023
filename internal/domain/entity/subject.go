package entity

import (
	"time"

	"github.com/elevix/approval-flow/internal/domain/workflow"
)

// SubjectRecord is the underlying business row an approval journey tracks:
// a routed document, a leave request, or a task. Status and CurrentLevel on
// the subject are authoritative; the workflow record's copies can lag.
type SubjectRecord struct {
	ID           int64            `json:"id"`
	Kind         workflow.Kind    `json:"kind"`
	Title        string           `json:"title"`
	Status       workflow.Status  `json:"status"`
	CurrentLevel int              `json:"current_level"`
	Version      int64            `json:"version"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Document *DocumentFields `json:"document,omitempty"`
	Leave    *LeaveFields    `json:"leave,omitempty"`
	Task     *TaskFields     `json:"task,omitempty"`
}

// DocumentFields carries the routed-document payload (invoice, PO, employee info)
type DocumentFields struct {
	DocType      workflow.DocType `json:"doc_type"`
	DocNumber    string           `json:"doc_number,omitempty"`
	Counterparty string           `json:"counterparty,omitempty"`
	Department   string           `json:"department,omitempty"`
	Amount       float64          `json:"amount,omitempty"`
	DocDate      *time.Time       `json:"doc_date,omitempty"`
}

// LeaveFields carries the leave-request payload. ManagerID is the fixed
// responsible party for the single-manager policy.
type LeaveFields struct {
	EmployeeName string     `json:"employee_name"`
	LeaveType    string     `json:"leave_type"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      time.Time  `json:"end_date"`
	Days         float64    `json:"days"`
	Reason       string     `json:"reason,omitempty"`
	ManagerID    int64      `json:"manager_id"`
	HalfDayStart bool       `json:"half_day_start,omitempty"`
	HalfDayEnd   bool       `json:"half_day_end,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
}

// TaskFields carries the task payload. AssignedByID and AssignedToID are the
// two parties of the ping-pong policy.
type TaskFields struct {
	Description     string     `json:"description,omitempty"`
	AssignedByID    int64      `json:"assigned_by_id"`
	AssignedToID    int64      `json:"assigned_to_id"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	Priority        string     `json:"priority,omitempty"`
	CommentsHistory string     `json:"comments_history,omitempty"`
}
