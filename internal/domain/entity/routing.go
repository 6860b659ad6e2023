package entity

import (
	"time"

	"github.com/elevix/approval-flow/internal/domain/workflow"
)

// RoutingEntry is one row of the approval routing table. Lookup key is
// (doc type, level); an inactive or missing entry means the workflow
// cannot advance past that level.
type RoutingEntry struct {
	ID         int64            `json:"id"`
	DocType    workflow.DocType `json:"doc_type"`
	Level      int              `json:"level"`
	ApproverID int64            `json:"approver_id"`
	IsActive   bool             `json:"is_active"`
	CreatedAt  time.Time        `json:"created_at"`
}
