package hospital

import "github.com/sarchlab/wardsim/sim/timing"

// A Patient needs one bed for LengthOfStay once admitted. Smaller Priority
// values are more urgent.
type Patient struct {
	ID           string
	Priority     int
	LengthOfStay timing.VTime

	timeEnterQueue timing.VTime
	timeLeaveQueue timing.VTime
}

// TimeEnterQueue returns when the patient started waiting for a bed.
func (p Patient) TimeEnterQueue() timing.VTime {
	return p.timeEnterQueue
}

// TimeLeaveQueue returns when the patient got a bed.
func (p Patient) TimeLeaveQueue() timing.VTime {
	return p.timeLeaveQueue
}

// AdmissionState is the stage of a patient's stay.
type AdmissionState int

// The admission states, in the only order they are visited.
const (
	EnteringQueue AdmissionState = iota
	WaitingForBed
	OccupyingBed
	Departed
)

func (s AdmissionState) String() string {
	switch s {
	case EnteringQueue:
		return "EnteringQueue"
	case WaitingForBed:
		return "WaitingForBed"
	case OccupyingBed:
		return "OccupyingBed"
	case Departed:
		return "Departed"
	default:
		return "Unknown"
	}
}

// QueueTimeSample is how long one patient waited for a bed.
type QueueTimeSample struct {
	PatientID  string
	Priority   int
	EnterQueue timing.VTime
	LeaveQueue timing.VTime
	QueueTime  timing.VTime

	// Counted is false when the bed was allocated before the warm-up ended;
	// such samples are reported to hooks but not kept by the ward.
	Counted bool
}

// Snapshot is an audit of the ward at one point in virtual time.
type Snapshot struct {
	Time    timing.VTime
	InBed   int
	Waiting []int
}

// WaitingWithPriority returns the number of waiting patients of one priority.
func (s Snapshot) WaitingWithPriority(priority int) int {
	if priority < 1 || priority > len(s.Waiting) {
		return 0
	}

	return s.Waiting[priority-1]
}

// TotalWaiting returns the number of waiting patients of all priorities.
func (s Snapshot) TotalWaiting() int {
	n := 0
	for _, w := range s.Waiting {
		n += w
	}

	return n
}
