// Package telemetry streams runtime observability events — task-state
// transitions, fuel exhaustion, preemption, traps — to connected observers
// over a websocket, for the debugger/dashboard class of tooling this engine
// doesn't itself ship. Nothing in this package feeds back into execution:
// it is a one-way, best-effort sink, never a control path.
package telemetry

import "time"

// EventKind tags which fields of an Event are meaningful — the same
// canonical-bits-over-tagged-union shape used throughout this tree
// (internal/valuestore.ComponentValue, internal/decoder.Payload,
// internal/interpreter.Instruction) rather than a Go interface per event
// type, since every consumer of Event just wants to JSON-encode it whole.
type EventKind uint8

const (
	EventTaskTransition EventKind = iota
	EventFuelExhaustion
	EventPreemption
	EventTrap
)

func (k EventKind) String() string {
	switch k {
	case EventTaskTransition:
		return "task_transition"
	case EventFuelExhaustion:
		return "fuel_exhaustion"
	case EventPreemption:
		return "preemption"
	case EventTrap:
		return "trap"
	default:
		return "unknown"
	}
}

// Event is one observability record. Time is stamped by Hub.Publish at
// fan-out time, not by the builder functions below — callers build an
// Event's content and leave Time zero.
type Event struct {
	Kind      EventKind `json:"kind"`
	Time      time.Time `json:"time"`
	TaskID    uint64    `json:"task_id"`
	Component uint32    `json:"component"`

	// EventTaskTransition
	FromState string `json:"from_state,omitempty"`
	ToState   string `json:"to_state,omitempty"`

	// EventFuelExhaustion
	FuelConsumed int64 `json:"fuel_consumed,omitempty"`
	FuelBudget   int64 `json:"fuel_budget,omitempty"`

	// EventPreemption
	Reason string `json:"reason,omitempty"`

	// EventTrap
	TrapKind string `json:"trap_kind,omitempty"`
}

// TaskTransition builds an EventTaskTransition event.
func TaskTransition(taskID uint64, component uint32, from, to string) Event {
	return Event{Kind: EventTaskTransition, TaskID: taskID, Component: component, FromState: from, ToState: to}
}

// FuelExhaustion builds an EventFuelExhaustion event.
func FuelExhaustion(taskID uint64, component uint32, consumed, budget int64) Event {
	return Event{Kind: EventFuelExhaustion, TaskID: taskID, Component: component, FuelConsumed: consumed, FuelBudget: budget}
}

// Preemption builds an EventPreemption event.
func Preemption(taskID uint64, component uint32, reason string) Event {
	return Event{Kind: EventPreemption, TaskID: taskID, Component: component, Reason: reason}
}

// Trap builds an EventTrap event.
func Trap(taskID uint64, component uint32, kind string) Event {
	return Event{Kind: EventTrap, TaskID: taskID, Component: component, TrapKind: kind}
}
