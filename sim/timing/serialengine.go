package timing

import (
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/sarchlab/wardsim/sim/hooking"
	"github.com/sirupsen/logrus"
)

// A SerialEngine is an Engine that always run events one after another.
type SerialEngine struct {
	hooking.HookableBase

	timeLock       sync.RWMutex
	time           VTime
	queue          EventQueue
	secondaryQueue EventQueue

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewSerialEngine creates a SerialEngine
func NewSerialEngine() *SerialEngine {
	e := new(SerialEngine)

	e.queue = NewEventQueue()
	e.secondaryQueue = NewEventQueue()

	return e
}

// Name returns the name of the engine.
func (e *SerialEngine) Name() string {
	return "SerialEngine"
}

// Schedule register an event to be happen in the future
func (e *SerialEngine) Schedule(evt Event) {
	now := e.readNow()
	if evt.Time() < now {
		logrus.Panicf(
			"scheduling %s at %.10f, earlier than now %.10f",
			reflect.TypeOf(evt), evt.Time(), now,
		)
	}

	if evt.IsSecondary() {
		e.secondaryQueue.Push(evt)

		return
	}

	e.queue.Push(evt)
}

func (e *SerialEngine) readNow() VTime {
	e.timeLock.RLock()
	t := e.time
	e.timeLock.RUnlock()

	return t
}

func (e *SerialEngine) writeNow(t VTime) {
	e.timeLock.Lock()
	e.time = t
	e.timeLock.Unlock()
}

// Advance handles exactly one event.
func (e *SerialEngine) Advance() (bool, error) {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	return e.advance(math.Inf(1))
}

// Run processes all the events scheduled in the SerialEngine
func (e *SerialEngine) Run() error {
	return e.RunUntil(math.Inf(1))
}

// RunUntil processes events whose time is not after the horizon.
func (e *SerialEngine) RunUntil(horizon VTime) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		handled, err := e.advance(horizon)
		if err != nil {
			return err
		}

		if !handled {
			return nil
		}
	}
}

func (e *SerialEngine) advance(horizon VTime) (bool, error) {
	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	evt := e.nextEvent(horizon)
	if evt == nil {
		return false, nil
	}

	now := e.readNow()
	if evt.Time() < now {
		logrus.Panicf(
			"cannot run event in the past, evt %s @ %.10f, now %.10f",
			reflect.TypeOf(evt), evt.Time(), now,
		)
	}

	e.writeNow(evt.Time())

	hookCtx := hooking.HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(hookCtx)

	err := evt.Handler().Handle(evt)
	if err != nil {
		return true, fmt.Errorf("handling %s at %.4f: %w",
			reflect.TypeOf(evt), evt.Time(), err)
	}

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)

	return true, nil
}

// nextEvent pops the event to handle next, or returns nil if there is none
// at or before the horizon.
func (e *SerialEngine) nextEvent(horizon VTime) Event {
	primary := e.queue.Peek()
	secondary := e.secondaryQueue.Peek()

	var q EventQueue

	switch {
	case primary == nil && secondary == nil:
		return nil
	case secondary == nil:
		q = e.queue
	case primary == nil:
		q = e.secondaryQueue
	case primary.Time() <= secondary.Time():
		q = e.queue
	default:
		q = e.secondaryQueue
	}

	if q.Peek().Time() > horizon {
		return nil
	}

	return q.Pop()
}

// Pending returns the number of events not yet handled.
func (e *SerialEngine) Pending() int {
	return e.queue.Len() + e.secondaryQueue.Len()
}

// Pause prevents the SerialEngine to trigger more events.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the SerialEngine to trigger more events.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// IsPaused tells if the engine is currently paused.
func (e *SerialEngine) IsPaused() bool {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	return e.isPaused
}

// Now returns the current time at which the engine is at.
// Specifically, the run time of the current event.
func (e *SerialEngine) Now() VTime {
	return e.readNow()
}
