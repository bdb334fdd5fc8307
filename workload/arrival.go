package workload

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/wardsim/hospital"
	"github.com/sarchlab/wardsim/sim/process"
	"github.com/sarchlab/wardsim/sim/timing"
)

// An Admitter takes patients in.
type Admitter interface {
	Admit(p hospital.Patient) error
}

// ArrivalProcess admits generated patients until the next arrival would come
// after the horizon.
type ArrivalProcess struct {
	ward    Admitter
	gen     *Generator
	horizon timing.VTime
	started bool
	count   int
}

// NewArrivalProcess creates an arrival process. Start it on the runtime the
// ward runs on.
func NewArrivalProcess(
	ward Admitter,
	gen *Generator,
	horizon timing.VTime,
) *ArrivalProcess {
	return &ArrivalProcess{
		ward:    ward,
		gen:     gen,
		horizon: horizon,
	}
}

// NumArrived returns how many patients have been admitted.
func (a *ArrivalProcess) NumArrived() int {
	return a.count
}

// Resume admits the patient due now and waits for the next one.
func (a *ArrivalProcess) Resume(rt *process.Runtime) error {
	if a.started {
		p := a.gen.NextPatient()
		if err := a.ward.Admit(p); err != nil {
			return err
		}

		a.count++
		logrus.WithFields(logrus.Fields{
			"time":     rt.Now(),
			"patient":  p.ID,
			"priority": p.Priority,
			"los":      p.LengthOfStay,
		}).Debug("arrival")
	}

	a.started = true

	next := a.gen.NextInterval()
	if rt.Now()+next > a.horizon {
		return nil
	}

	return rt.Sleep(a, next)
}

// Replay admits a fixed list of arrivals.
type Replay struct {
	ward     Admitter
	arrivals []Arrival
	next     int
}

// NewReplay creates a replay. Arrivals are sorted by time; arrivals at the
// same time keep their order.
func NewReplay(ward Admitter, arrivals []Arrival) (*Replay, error) {
	sorted := append([]Arrival(nil), arrivals...)
	for _, a := range sorted {
		if a.Time < 0 {
			return nil, fmt.Errorf("arrival of %q at %g: %w",
				a.Patient.ID, a.Time, ErrInvalidWorkload)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})

	return &Replay{ward: ward, arrivals: sorted}, nil
}

// Remaining returns how many arrivals have not happened yet.
func (r *Replay) Remaining() int {
	return len(r.arrivals) - r.next
}

// Resume admits every arrival due now and waits for the next one.
func (r *Replay) Resume(rt *process.Runtime) error {
	for r.next < len(r.arrivals) && r.arrivals[r.next].Time <= rt.Now() {
		if err := r.ward.Admit(r.arrivals[r.next].Patient); err != nil {
			return err
		}

		r.next++
	}

	if r.next == len(r.arrivals) {
		return nil
	}

	return rt.Sleep(r, r.arrivals[r.next].Time-rt.Now())
}
