package monitoring

import (
	"math"
	"sync"
	"time"

	"github.com/sarchlab/wardsim/hospital"
	"github.com/sarchlab/wardsim/sim/hooking"
	"github.com/sarchlab/wardsim/sim/timing"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string
	Name       string
	StartTime  time.Time
	Total      uint64
	Finished   uint64
	InProgress uint64
}

// ProgressBarStatus is a consistent copy of a progress bar.
type ProgressBarStatus struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// Status returns a copy of the bar.
func (b *ProgressBar) Status() ProgressBarStatus {
	b.Lock()
	defer b.Unlock()

	return ProgressBarStatus{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
	}
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// SetFinished overwrites the finished amount.
func (b *ProgressBar) SetFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished = amount
}

// SetTotal overwrites the total amount.
func (b *ProgressBar) SetTotal(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Total = amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// TimeProgress is an engine hook that moves a bar with virtual time. The bar
// counts whole time units up to the horizon.
type TimeProgress struct {
	bar *ProgressBar
}

// NewTimeProgress creates a bar on the monitor that fills up as virtual time
// approaches the horizon.
func NewTimeProgress(m *Monitor, horizon timing.VTime) *TimeProgress {
	p := &TimeProgress{bar: m.CreateProgressBar("Virtual Time", 0)}
	p.SetHorizon(horizon)

	return p
}

// SetHorizon moves the end of the bar. An infinite horizon leaves the bar
// without a total.
func (p *TimeProgress) SetHorizon(horizon timing.VTime) {
	total := uint64(0)
	if !math.IsInf(horizon, 1) {
		total = uint64(math.Ceil(horizon))
	}

	p.bar.SetTotal(total)
}

// Bar returns the bar being moved.
func (p *TimeProgress) Bar() *ProgressBar {
	return p.bar
}

// Func updates the bar after each event.
func (p *TimeProgress) Func(ctx hooking.HookCtx) {
	if ctx.Pos != timing.HookPosAfterEvent {
		return
	}

	evt := ctx.Item.(timing.Event)
	p.bar.SetFinished(uint64(math.Floor(evt.Time())))
}

// PatientProgress is a ward hook that counts patients in the ward as in
// progress and departed patients as finished.
type PatientProgress struct {
	bar *ProgressBar
}

// NewPatientProgress creates a bar on the monitor for one ward.
func NewPatientProgress(m *Monitor, ward *hospital.Hospital) *PatientProgress {
	return &PatientProgress{
		bar: m.CreateProgressBar(ward.Name()+" Patients", 0),
	}
}

// Bar returns the bar being moved.
func (p *PatientProgress) Bar() *ProgressBar {
	return p.bar
}

// Func updates the bar on arrivals and departures.
func (p *PatientProgress) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case hospital.HookPosPatientQueued:
		p.bar.IncrementInProgress(1)
	case hospital.HookPosPatientDeparted:
		p.bar.MoveInProgressToFinished(1)
	}
}
