// Package process runs suspendable computations on a timing engine.
//
// A Process is an explicit state machine. The Runtime resumes it when the
// condition it suspended on resolves: a delay elapsing (Sleep) or another
// component waking it (Wake). Only the engine's run loop calls Resume, so at
// most one process runs at any moment and its code between two suspension
// points takes no virtual time.
package process

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/wardsim/sim/timing"
)

// ErrNegativeDelay is returned when a process asks to sleep for less than
// zero time.
var ErrNegativeDelay = errors.New("negative delay")

// A Process is a computation that the Runtime resumes at its suspension
// points. Implementations keep whatever state they need between resumptions.
type Process interface {
	Resume(rt *Runtime) error
}

// Func adapts a plain function to the Process interface.
type Func func(rt *Runtime) error

// Resume calls f.
func (f Func) Resume(rt *Runtime) error {
	return f(rt)
}

// Runtime schedules process resumptions on an engine.
type Runtime struct {
	engine timing.EventScheduler
}

// NewRuntime creates a Runtime that schedules on the given engine.
func NewRuntime(engine timing.EventScheduler) *Runtime {
	return &Runtime{engine: engine}
}

// Name returns the name of the runtime.
func (rt *Runtime) Name() string {
	return "ProcessRuntime"
}

// Now returns the current virtual time.
func (rt *Runtime) Now() timing.VTime {
	return rt.engine.Now()
}

// Start schedules the first resumption of p at the current time.
func (rt *Runtime) Start(p Process) {
	rt.Wake(p)
}

// Wake resumes p at the current time, after the events already scheduled for
// now.
func (rt *Runtime) Wake(p Process) {
	rt.engine.Schedule(newResumeEvent(rt.Now(), rt, p, false))
}

// Sleep suspends p for the given delay. An infinite delay suspends p for
// good: nothing is scheduled and p is never resumed.
func (rt *Runtime) Sleep(p Process, delay timing.VTime) error {
	return rt.sleep(p, delay, false)
}

// SleepSecondary suspends p for the given delay and resumes it only after
// every primary event of the wake-up time has been handled.
func (rt *Runtime) SleepSecondary(p Process, delay timing.VTime) error {
	return rt.sleep(p, delay, true)
}

func (rt *Runtime) sleep(p Process, delay timing.VTime, secondary bool) error {
	if !(delay >= 0) {
		return fmt.Errorf("sleeping for %g: %w", delay, ErrNegativeDelay)
	}

	if math.IsInf(delay, 1) {
		return nil
	}

	rt.engine.Schedule(newResumeEvent(rt.Now()+delay, rt, p, secondary))

	return nil
}

// Handle resumes the process carried by a resume event.
func (rt *Runtime) Handle(e timing.Event) error {
	evt, ok := e.(*ResumeEvent)
	if !ok {
		return fmt.Errorf("process runtime cannot handle %T", e)
	}

	return evt.Process.Resume(rt)
}

// ResumeEvent wakes a process up.
type ResumeEvent struct {
	*timing.EventBase

	Process Process
}

func newResumeEvent(
	t timing.VTime,
	rt *Runtime,
	p Process,
	secondary bool,
) *ResumeEvent {
	base := timing.NewEventBase(t, rt)
	if secondary {
		base = timing.NewSecondaryEventBase(t, rt)
	}

	return &ResumeEvent{EventBase: base, Process: p}
}
