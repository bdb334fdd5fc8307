package hospital

import "github.com/sarchlab/wardsim/sim/process"

type auditState int

const (
	awaitingWarmUp auditState = iota
	sampling
)

// audit samples the ward once per audit interval after the warm-up. Its
// resumptions are secondary so that a snapshot sees every arrival and
// departure of the same instant.
type audit struct {
	ward  *Hospital
	state auditState
}

func (a *audit) Resume(rt *process.Runtime) error {
	if a.state == awaitingWarmUp {
		a.state = sampling
		return rt.SleepSecondary(a, a.ward.warmUp)
	}

	a.ward.takeSnapshot()

	return rt.SleepSecondary(a, a.ward.auditInterval)
}
