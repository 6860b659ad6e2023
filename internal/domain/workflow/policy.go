package workflow

import "fmt"

// Variant tags how a policy resolves the responsible party and moves the workflow forward
type Variant string

const (
	// VariantRoutedLevels routes through an ascending chain of approvers from a routing table
	VariantRoutedLevels Variant = "ROUTED_LEVELS"

	// VariantSingleManager routes to the fixed manager stored on the subject record
	VariantSingleManager Variant = "SINGLE_MANAGER"

	// VariantAssignorAssignee is a two-party ping-pong between assignee and assignor
	VariantAssignorAssignee Variant = "ASSIGNOR_ASSIGNEE"
)

// Policy parameterizes the transition engine for one workflow kind.
// One engine, three policies, no per-kind re-implementation of the state machine.
type Policy struct {
	Kind      Kind
	Variant   Variant
	MaxLevels int
}

var policies = map[Kind]Policy{
	KindDocumentApproval: {Kind: KindDocumentApproval, Variant: VariantRoutedLevels, MaxLevels: 3},
	KindLeaveRequest:     {Kind: KindLeaveRequest, Variant: VariantSingleManager, MaxLevels: 1},
	KindTask:             {Kind: KindTask, Variant: VariantAssignorAssignee, MaxLevels: 1},
}

// PolicyFor returns the policy for the given kind
func PolicyFor(kind Kind) (Policy, error) {
	p, ok := policies[kind]
	if !ok {
		return Policy{}, fmt.Errorf("%w: unknown workflow kind %q", ErrNotFound, kind)
	}
	return p, nil
}

// InitialStatus returns the status a freshly submitted workflow starts in
func (p Policy) InitialStatus() Status {
	if p.Variant == VariantAssignorAssignee {
		return StatusOpen
	}
	return StatusPending
}

// PreRoutingStatus returns the status during which the submitter may still edit
// all fields, and false when the kind has no pre-routing window.
func (p Policy) PreRoutingStatus() (Status, bool) {
	if p.Variant == VariantAssignorAssignee {
		return StatusOpen, true
	}
	return "", false
}

// ClampLevel clamps a level into [1, MaxLevels]
func (p Policy) ClampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > p.MaxLevels {
		return p.MaxLevels
	}
	return level
}

// NextOnAdvance computes the status and level after a successful advance
// from the given state. It never moves the level past MaxLevels.
func (p Policy) NextOnAdvance(status Status, level int) (Status, int, error) {
	if status.IsTerminal() {
		return "", 0, fmt.Errorf("%w: status %s", ErrAlreadyTerminal, status)
	}
	level = p.ClampLevel(level)

	switch p.Variant {
	case VariantRoutedLevels:
		if status != StatusPending {
			return "", 0, fmt.Errorf("%w: advance from %s", ErrInvalidTransition, status)
		}
		if level < p.MaxLevels {
			return StatusPending, level + 1, nil
		}
		return StatusApproved, p.MaxLevels, nil

	case VariantSingleManager:
		if status != StatusPending {
			return "", 0, fmt.Errorf("%w: advance from %s", ErrInvalidTransition, status)
		}
		return StatusApproved, level, nil

	case VariantAssignorAssignee:
		switch status {
		case StatusOpen:
			return StatusInProgress, level, nil
		case StatusInProgress:
			return StatusCompleted, level, nil
		case StatusCompleted:
			return StatusApproved, level, nil
		}
		return "", 0, fmt.Errorf("%w: advance from %s", ErrInvalidTransition, status)
	}
	return "", 0, fmt.Errorf("%w: unknown policy variant %q", ErrInvalidTransition, p.Variant)
}

// AuditsDecision reports whether a transition into nextStatus records the
// per-level audit fields. Routed and manager chains audit every decision; the
// ping-pong variant's intermediate status edits only append to the task's
// comment history, and just the final sign-off is audited.
func (p Policy) AuditsDecision(nextStatus Status) bool {
	if p.Variant == VariantAssignorAssignee {
		return nextStatus.IsTerminal()
	}
	return true
}

// ResponsibleRole identifies which party on the subject record owes the next action
type ResponsibleRole string

const (
	// RoleRoutedApprover means the routing table decides who acts at the current level
	RoleRoutedApprover ResponsibleRole = "ROUTED_APPROVER"

	// RoleManager means the manager reference on the subject record acts
	RoleManager ResponsibleRole = "MANAGER"

	// RoleAssignee means the task's assignee acts
	RoleAssignee ResponsibleRole = "ASSIGNEE"

	// RoleAssignor means the task's assignor acts (sign-off stage)
	RoleAssignor ResponsibleRole = "ASSIGNOR"
)

// ResponsibleRoleFor returns which party owes the next action in the given status.
// For the ping-pong variant, the assignee drives Open and In Progress and the
// assignor signs off a Completed task.
func (p Policy) ResponsibleRoleFor(status Status) (ResponsibleRole, error) {
	if status.IsTerminal() {
		return "", fmt.Errorf("%w: status %s", ErrAlreadyTerminal, status)
	}
	switch p.Variant {
	case VariantRoutedLevels:
		return RoleRoutedApprover, nil
	case VariantSingleManager:
		return RoleManager, nil
	case VariantAssignorAssignee:
		if status == StatusCompleted {
			return RoleAssignor, nil
		}
		return RoleAssignee, nil
	}
	return "", fmt.Errorf("%w: unknown policy variant %q", ErrInvalidTransition, p.Variant)
}

// Machine builds the status transition table for this policy
func (p Policy) Machine(initial Status) *Machine {
	b := NewBuilder()

	switch p.Variant {
	case VariantRoutedLevels, VariantSingleManager:
		// Advance from a non-final level re-enters Pending; the level counter
		// lives on the records, not in the machine.
		b.Configure(StatusPending).
			Permit(TriggerAdvance, StatusPending).
			Permit(TriggerAdvance, StatusApproved).
			Permit(TriggerReject, StatusRejected).
			Permit(TriggerCancel, StatusCancelled)

	case VariantAssignorAssignee:
		b.Configure(StatusOpen).
			Permit(TriggerAdvance, StatusInProgress).
			Permit(TriggerReject, StatusRejected).
			Permit(TriggerCancel, StatusCancelled)
		b.Configure(StatusInProgress).
			Permit(TriggerAdvance, StatusCompleted).
			Permit(TriggerReject, StatusRejected)
		b.Configure(StatusCompleted).
			Permit(TriggerAdvance, StatusApproved).
			Permit(TriggerReject, StatusRejected)
	}

	return b.Build(initial)
}
