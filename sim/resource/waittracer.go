package resource

import (
	"sort"
	"sync"

	"github.com/sarchlab/wardsim/sim/hooking"
	"github.com/sarchlab/wardsim/sim/timing"
)

// WaitTimeTracer is a pool hook that accumulates, per priority, how long
// requests waited before being granted. Unlike the ward's samples it has no
// warm-up cut.
type WaitTimeTracer struct {
	timeTeller timing.TimeTeller

	lock      sync.Mutex
	totalWait map[int]float64
	count     map[int]uint64
}

// NewWaitTimeTracer creates a WaitTimeTracer.
func NewWaitTimeTracer(timeTeller timing.TimeTeller) *WaitTimeTracer {
	return &WaitTimeTracer{
		timeTeller: timeTeller,
		totalWait:  make(map[int]float64),
		count:      make(map[int]uint64),
	}
}

// Func records grants.
func (t *WaitTimeTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosGrant {
		return
	}

	ticket := ctx.Item.(Ticket)
	wait := t.timeTeller.Now() - ticket.RequestedAt

	t.lock.Lock()
	t.totalWait[ticket.Priority] += wait
	t.count[ticket.Priority]++
	t.lock.Unlock()
}

// AverageWait returns the mean wait of granted requests of one priority.
func (t *WaitTimeTracer) AverageWait(priority int) float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.count[priority] == 0 {
		return 0
	}

	return t.totalWait[priority] / float64(t.count[priority])
}

// GrantCount returns the number of granted requests of one priority.
func (t *WaitTimeTracer) GrantCount(priority int) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count[priority]
}

// Priorities lists the priorities seen so far, ascending.
func (t *WaitTimeTracer) Priorities() []int {
	t.lock.Lock()
	defer t.lock.Unlock()

	ps := make([]int, 0, len(t.count))
	for p := range t.count {
		ps = append(ps, p)
	}
	sort.Ints(ps)

	return ps
}
