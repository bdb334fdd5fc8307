// Package timing provides the virtual clock and the event queue that drive a
// simulation.
package timing

import (
	"github.com/sarchlab/wardsim/sim/hooking"
	"github.com/sarchlab/wardsim/sim/id"
)

// VTime is a point or a span in virtual time. One unit is one day in the ward
// model, but nothing in this package depends on the unit.
type VTime = float64

// An Event is something going to happen in the future.
type Event interface {
	// Return the time that the event should happen
	Time() VTime

	// Returns the handler that can should handle the event
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. Secondary event are
	// handled after all same-time primary events are handled.
	IsSecondary() bool
}

// HookPosBeforeEvent is a hook position that triggers before handling an event.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}

// EventBase provides the basic fields and getters for other events
type EventBase struct {
	ID        string
	time      VTime
	handler   Handler
	secondary bool
}

// NewEventBase creates a new primary EventBase.
func NewEventBase(t VTime, handler Handler) *EventBase {
	e := new(EventBase)
	e.ID = id.Generate()
	e.time = t
	e.handler = handler

	return e
}

// NewSecondaryEventBase creates an EventBase that is handled only after every
// primary event of the same time.
func NewSecondaryEventBase(t VTime, handler Handler) *EventBase {
	e := NewEventBase(t, handler)
	e.secondary = true

	return e
}

// Time return the time that the event is going to happen
func (e EventBase) Time() VTime {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// A Handler defines a domain for the events.
//
// One event is always constraint to one Handler, which means the event can
// only be scheduled by one handler and can only directly modify that handler.
type Handler interface {
	Handle(e Event) error
}
