package workflow

// Trigger represents a viewer action that can cause a status transition
type Trigger string

const (
	TriggerAdvance Trigger = "ADVANCE"
	TriggerReject  Trigger = "REJECT"
	TriggerCancel  Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
