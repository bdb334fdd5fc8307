package timing

import "github.com/sarchlab/wardsim/sim/hooking"

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Now() VTime
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	TimeTeller

	Schedule(e Event)
}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Advance handles the earliest pending event. It reports false if there
	// was nothing to handle.
	Advance() (bool, error)

	// Run will process all the events until the simulation finishes
	Run() error

	// RunUntil processes events up to and including the horizon. Later
	// events stay in the queue.
	RunUntil(horizon VTime) error

	// Pause will pause the simulation until continue is called.
	Pause()

	// Continue will continue the paused simulation
	Continue()

	// IsPaused tells if Pause has been called without a matching Continue.
	IsPaused() bool
}
