// Package simulation wires the engine, the process runtime, the recorder and
// the monitor into one object that scenarios are built on.
package simulation

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/wardsim/datarecording"
	"github.com/sarchlab/wardsim/hospital"
	"github.com/sarchlab/wardsim/monitoring"
	"github.com/sarchlab/wardsim/sim/process"
	"github.com/sarchlab/wardsim/sim/resource"
	"github.com/sarchlab/wardsim/sim/timing"
)

// A Simulation provides the services required to define a simulation.
type Simulation struct {
	id string

	engine  *timing.SerialEngine
	runtime *process.Runtime

	dataRecorder datarecording.DataRecorder
	wardRecorder *datarecording.WardRecorder
	monitor      *monitoring.Monitor
	monitorURL   string
	timeProgress *monitoring.TimeProgress

	wards       []*hospital.Hospital
	wardIndex   map[string]int
	waitTracers []*resource.WaitTimeTracer
}

// ID returns the unique ID of the simulation run.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the engine used in the simulation.
func (s *Simulation) Engine() *timing.SerialEngine {
	return s.engine
}

// Runtime returns the runtime processes run on.
func (s *Simulation) Runtime() *process.Runtime {
	return s.runtime
}

// DataRecorder returns the data recorder, or nil if recording is off.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring page.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// RegisterWard attaches the recorder and the monitor to a ward.
func (s *Simulation) RegisterWard(h *hospital.Hospital) {
	if _, found := s.wardIndex[h.Name()]; found {
		logrus.Panicf("ward %s already registered", h.Name())
	}

	s.wards = append(s.wards, h)
	s.wardIndex[h.Name()] = len(s.wards) - 1

	tracer := resource.NewWaitTimeTracer(s.engine)
	h.Beds().AcceptHook(tracer)
	s.waitTracers = append(s.waitTracers, tracer)

	if s.wardRecorder != nil {
		s.wardRecorder.RecordWard(h)
		h.AcceptHook(s.wardRecorder)
	}

	if s.monitor != nil {
		s.monitor.RegisterWard(h)
		h.AcceptHook(monitoring.NewPatientProgress(s.monitor, h))
	}
}

// Ward returns the registered ward with the given name, or nil.
func (s *Simulation) Ward(name string) *hospital.Hospital {
	i, found := s.wardIndex[name]
	if !found {
		return nil
	}

	return s.wards[i]
}

// BedWaitTracer returns the tracer that follows every bed grant of the named
// ward, warm-up included. It returns nil for an unknown ward.
func (s *Simulation) BedWaitTracer(name string) *resource.WaitTimeTracer {
	i, found := s.wardIndex[name]
	if !found {
		return nil
	}

	return s.waitTracers[i]
}

// Wards returns the registered wards in registration order.
func (s *Simulation) Wards() []*hospital.Hospital {
	return append([]*hospital.Hospital(nil), s.wards...)
}

// RunUntil runs the engine up to and including the horizon.
func (s *Simulation) RunUntil(horizon timing.VTime) error {
	if s.timeProgress != nil {
		s.timeProgress.SetHorizon(horizon)
	}

	start := time.Now()

	err := s.engine.RunUntil(horizon)

	logrus.WithFields(logrus.Fields{
		"now":     s.engine.Now(),
		"elapsed": time.Since(start).String(),
		"pending": s.engine.Pending(),
	}).Info("simulation stopped")

	for i, h := range s.wards {
		tracer := s.waitTracers[i]
		for _, p := range tracer.Priorities() {
			logrus.WithFields(logrus.Fields{
				"ward":     h.Name(),
				"priority": p,
				"grants":   tracer.GrantCount(p),
				"avg_wait": tracer.AverageWait(p),
			}).Debug("bed wait")
		}
	}

	return err
}

// Terminate flushes the recorder and stops the monitor.
func (s *Simulation) Terminate() error {
	var errs []error

	if s.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		s.monitor.CompleteProgressBar(s.timeProgress.Bar())
		errs = append(errs, s.monitor.StopServer(ctx))
	}

	errs = append(errs, s.closeRecorder())

	return errors.Join(errs...)
}

func (s *Simulation) closeRecorder() error {
	if s.dataRecorder == nil {
		return nil
	}

	return s.dataRecorder.Close()
}
