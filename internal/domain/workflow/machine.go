package workflow

import (
	"fmt"
	"sort"
)

// Machine tracks the current status and validates transitions against a
// per-policy transition table. The level counter is carried by the records;
// the machine only answers whether a (status, trigger, target) edge exists.
type Machine struct {
	current        Status
	configurations map[Status]map[Trigger][]Status
}

// Builder builds a configured machine
type Builder struct {
	configurations map[Status]map[Trigger][]Status
}

// StatusConfiguration configures transitions out of a specific status
type StatusConfiguration struct {
	builder *Builder
	from    Status
}

// NewBuilder creates a new machine builder
func NewBuilder() *Builder {
	return &Builder{configurations: make(map[Status]map[Trigger][]Status)}
}

// Configure returns the configuration for the given status
func (b *Builder) Configure(status Status) StatusConfiguration {
	if !status.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", status))
	}
	if _, ok := b.configurations[status]; !ok {
		b.configurations[status] = make(map[Trigger][]Status)
	}
	return StatusConfiguration{builder: b, from: status}
}

// Permit allows the trigger to transition to the target status
func (c StatusConfiguration) Permit(trigger Trigger, to Status) StatusConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}
	c.builder.configurations[c.from][trigger] = append(c.builder.configurations[c.from][trigger], to)
	return c
}

// Build creates a machine instance positioned at the given status
func (b *Builder) Build(initial Status) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial status: %s", initial))
	}
	configs := make(map[Status]map[Trigger][]Status, len(b.configurations))
	for status, triggers := range b.configurations {
		tc := make(map[Trigger][]Status, len(triggers))
		for trigger, targets := range triggers {
			tc[trigger] = append([]Status{}, targets...)
		}
		configs[status] = tc
	}
	return &Machine{current: initial, configurations: configs}
}

// State returns the current status
func (m *Machine) State() Status {
	return m.current
}

// CanFire returns true if the trigger may move the machine to the target status
func (m *Machine) CanFire(trigger Trigger, to Status) bool {
	triggers, ok := m.configurations[m.current]
	if !ok {
		return false
	}
	for _, target := range triggers[trigger] {
		if target == to {
			return true
		}
	}
	return false
}

// Fire executes the trigger toward the target status, or fails with ErrInvalidTransition
func (m *Machine) Fire(trigger Trigger, to Status) error {
	if !m.CanFire(trigger, to) {
		return fmt.Errorf("%w: %s from %s to %s", ErrInvalidTransition, trigger, m.current, to)
	}
	m.current = to
	return nil
}

// PermittedTriggers returns all triggers with at least one outgoing edge
// from the current status, in stable order
func (m *Machine) PermittedTriggers() []Trigger {
	triggers, ok := m.configurations[m.current]
	if !ok {
		return []Trigger{}
	}
	out := make([]Trigger, 0, len(triggers))
	for trigger := range triggers {
		out = append(out, trigger)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
