package workflow

// Status represents a workflow status in the approval lifecycle.
// The set is the union over all kinds; each policy permits its own subset.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusApproved   Status = "Approved"
	StatusRejected   Status = "Rejected"
	StatusCancelled  Status = "Cancelled"
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusApproved:   true,
	StatusRejected:   true,
	StatusCancelled:  true,
	StatusOpen:       true,
	StatusInProgress: true,
	StatusCompleted:  true,
}

var terminalStatuses = map[Status]bool{
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCancelled: true,
}

// IsTerminal returns true if the status is terminal (no further transitions allowed)
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status is a valid workflow status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Decision is the per-level audit value recorded when an approver acts
type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
)

// String returns the string representation of the decision
func (d Decision) String() string {
	return string(d)
}
