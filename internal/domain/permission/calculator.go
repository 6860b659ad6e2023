// Package permission computes the capability set a viewer has over a workflow.
// The same calculator runs before rendering action controls and again,
// authoritatively, before executing a transition, so the visible and the
// enforced permissions can never drift apart.
package permission

import (
	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/workflow"
)

// Capability is one action a viewer may take on a workflow
type Capability string

const (
	CapAdvance        Capability = "ADVANCE"
	CapReject         Capability = "REJECT"
	CapCancel         Capability = "CANCEL"
	CapEditAllFields  Capability = "EDIT_ALL_FIELDS"
	CapEditStatusOnly Capability = "EDIT_STATUS_ONLY"
	CapViewOnly       Capability = "VIEW_ONLY"
)

// CapabilitySet is the set of actions available to a viewer
type CapabilitySet map[Capability]bool

// Has returns true if the capability is in the set
func (s CapabilitySet) Has(c Capability) bool {
	return s[c]
}

// List returns the capabilities in a stable order for rendering
func (s CapabilitySet) List() []Capability {
	ordered := []Capability{CapAdvance, CapReject, CapCancel, CapEditAllFields, CapEditStatusOnly, CapViewOnly}
	out := make([]Capability, 0, len(s))
	for _, c := range ordered {
		if s[c] {
			out = append(out, c)
		}
	}
	return out
}

// Compute derives the capability set for a viewer. It is pure: no I/O, no
// clock, no ambient identity. The responsible party must be resolved by the
// caller (routing table, manager field, or assignment fields).
//
// When the submitter and the responsible party are the same identity the
// union of both rule sets applies; self-approval is not specially blocked.
func Compute(viewerID int64, rec *entity.WorkflowRecord, subj *entity.SubjectRecord, responsibleID int64, policy workflow.Policy) CapabilitySet {
	caps := CapabilitySet{}
	if rec == nil {
		caps[CapViewOnly] = true
		return caps
	}

	status := rec.Status
	if subj != nil {
		// Subject record is ground truth.
		status = subj.Status
	}

	if viewerID == rec.SubmitterID {
		if status == workflow.StatusPending || status == workflow.StatusOpen {
			caps[CapCancel] = true
		}
		if pre, ok := policy.PreRoutingStatus(); ok && status == pre {
			caps[CapEditAllFields] = true
		}
	}

	switch policy.Variant {
	case workflow.VariantRoutedLevels, workflow.VariantSingleManager:
		if viewerID == responsibleID && responsibleID != 0 && status == workflow.StatusPending {
			caps[CapAdvance] = true
			caps[CapReject] = true
		}

	case workflow.VariantAssignorAssignee:
		if subj != nil && subj.Task != nil && !status.IsTerminal() {
			task := subj.Task
			if viewerID == task.AssignedToID {
				if status == workflow.StatusOpen || status == workflow.StatusInProgress {
					caps[CapAdvance] = true
					caps[CapEditStatusOnly] = true
				}
			}
			if viewerID == task.AssignedByID {
				if status == workflow.StatusOpen {
					caps[CapEditAllFields] = true
				}
				if status == workflow.StatusInProgress || status == workflow.StatusCompleted {
					caps[CapEditStatusOnly] = true
					caps[CapReject] = true
				}
				if status == workflow.StatusCompleted {
					caps[CapAdvance] = true
				}
			}
		}
	}

	if len(caps) == 0 {
		caps[CapViewOnly] = true
	}
	return caps
}
