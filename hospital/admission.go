package hospital

import (
	"fmt"

	"github.com/sarchlab/wardsim/sim/process"
)

// admission walks one patient through the ward. The patient record is owned
// by this process and dropped when it departs.
type admission struct {
	ward    *Hospital
	patient *Patient
	state   AdmissionState
}

func (a *admission) Resume(rt *process.Runtime) error {
	switch a.state {
	case EnteringQueue:
		a.patient.timeEnterQueue = rt.Now()
		a.state = WaitingForBed
		a.ward.patientQueued(a.patient)

		if !a.ward.beds.Request(a.patient.Priority, a) {
			return nil
		}

		return a.Resume(rt)

	case WaitingForBed:
		a.patient.timeLeaveQueue = rt.Now()
		a.state = OccupyingBed
		a.ward.bedAllocated(a.patient)

		return rt.Sleep(a, a.patient.LengthOfStay)

	case OccupyingBed:
		a.state = Departed
		a.ward.beds.Release()
		a.ward.patientDeparted(a.patient)
		a.patient = nil

		return nil

	default:
		return fmt.Errorf("admission resumed in state %s", a.state)
	}
}
