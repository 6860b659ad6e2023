package entity

import (
	"time"

	"github.com/elevix/approval-flow/internal/domain/workflow"
)

// WorkflowRecord is the audit/event-tracking row for one submitted item's
// approval journey. The subject record is ground truth for status and level;
// the copies here are a cache refreshed on read.
type WorkflowRecord struct {
	ID           int64             `json:"id"`
	Reference    string            `json:"reference"`
	Kind         workflow.Kind     `json:"kind"`
	DocType      workflow.DocType  `json:"doc_type,omitempty"`
	SubjectID    int64             `json:"subject_id"`
	Status       workflow.Status   `json:"status"`
	CurrentLevel int               `json:"current_level"`
	SubmitterID  int64             `json:"submitter_id"`
	Version      int64             `json:"version"`
	Levels       [MaxLevels]LevelAudit `json:"levels"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// MaxLevels is the widest approval chain any kind supports
const MaxLevels = 3

// LevelAudit holds the per-level decision fields. A zero value means the
// workflow has not passed through that level.
type LevelAudit struct {
	ApproverID int64             `json:"approver_id,omitempty"`
	Action     workflow.Decision `json:"action,omitempty"`
	Comment    string            `json:"comment,omitempty"`
	ActionDate *time.Time        `json:"action_date,omitempty"`
}

// IsSet returns true if a decision was recorded at this level
func (a LevelAudit) IsSet() bool {
	return a.Action != ""
}

// AuditAt returns the audit entry for a 1-based level
func (w *WorkflowRecord) AuditAt(level int) LevelAudit {
	if level < 1 || level > MaxLevels {
		return LevelAudit{}
	}
	return w.Levels[level-1]
}

// SetAuditAt records a decision at a 1-based level
func (w *WorkflowRecord) SetAuditAt(level int, audit LevelAudit) {
	if level < 1 || level > MaxLevels {
		return
	}
	w.Levels[level-1] = audit
}
