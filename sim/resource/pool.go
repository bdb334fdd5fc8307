// Package resource provides a capacity-bounded pool of identical units that
// are granted to waiting processes in priority order.
package resource

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/sarchlab/wardsim/sim/hooking"
	"github.com/sarchlab/wardsim/sim/naming"
	"github.com/sarchlab/wardsim/sim/process"
	"github.com/sarchlab/wardsim/sim/timing"
	"github.com/sirupsen/logrus"
)

// ErrInvalidCapacity is returned when a pool is built with a capacity that is
// not positive.
var ErrInvalidCapacity = errors.New("invalid capacity")

// HookPosRequest marks a process asking for a unit.
var HookPosRequest = &hooking.HookPos{Name: "Pool Request"}

// HookPosGrant marks a unit being handed to a process.
var HookPosGrant = &hooking.HookPos{Name: "Pool Grant"}

// HookPosRelease marks a unit coming back to the pool.
var HookPosRelease = &hooking.HookPos{Name: "Pool Release"}

// Waker resumes suspended processes. *process.Runtime implements it.
type Waker interface {
	timing.TimeTeller

	Wake(p process.Process)
}

// A Ticket is one request for a unit. Its ordering key, the priority and the
// sequence number, is fixed when the request is made.
type Ticket struct {
	Priority    int
	Seq         uint64
	RequestedAt timing.VTime
	Holder      process.Process
}

// PoolBuilder builds PriorityPools.
type PoolBuilder struct {
	waker    Waker
	capacity int
}

// WithRuntime sets what wakes waiting processes once they are granted.
func (b PoolBuilder) WithRuntime(w Waker) PoolBuilder {
	b.waker = w
	return b
}

// WithCapacity sets the number of units in the pool.
func (b PoolBuilder) WithCapacity(capacity int) PoolBuilder {
	b.capacity = capacity
	return b
}

// Build creates a PriorityPool.
func (b PoolBuilder) Build(name string) (*PriorityPool, error) {
	if b.capacity <= 0 {
		return nil, fmt.Errorf("pool %s capacity %d: %w",
			name, b.capacity, ErrInvalidCapacity)
	}

	if b.waker == nil {
		return nil, fmt.Errorf("pool %s has no runtime", name)
	}

	p := &PriorityPool{
		NamedBase: naming.MakeNamedBase(name),
		waker:     b.waker,
		capacity:  b.capacity,
	}
	heap.Init(&p.waiting)

	return p, nil
}

// PriorityPool grants its units to the highest-priority waiter first. Lower
// priority values are served first; equal priorities are served in request
// order. Granted units are never revoked.
type PriorityPool struct {
	hooking.HookableBase
	naming.NamedBase

	waker    Waker
	capacity int
	inUse    int
	waiting  ticketHeap
	nextSeq  uint64
}

// Capacity returns the number of units in the pool.
func (p *PriorityPool) Capacity() int {
	return p.capacity
}

// InUse returns the number of units currently held.
func (p *PriorityPool) InUse() int {
	return p.inUse
}

// NumWaiting returns the number of processes waiting for a unit.
func (p *PriorityPool) NumWaiting() int {
	return len(p.waiting)
}

// NumWaitingWithPriority returns the number of waiters of one priority.
func (p *PriorityPool) NumWaitingWithPriority(priority int) int {
	n := 0

	for _, t := range p.waiting {
		if t.Priority == priority {
			n++
		}
	}

	return n
}

// Request asks for a unit on behalf of holder. If a unit is free it is granted
// at once and Request returns true; holder is not resumed. Otherwise holder is
// queued and will be woken when a unit is granted to it.
func (p *PriorityPool) Request(priority int, holder process.Process) bool {
	t := &Ticket{
		Priority:    priority,
		Seq:         p.nextSeq,
		RequestedAt: p.waker.Now(),
		Holder:      holder,
	}
	p.nextSeq++

	p.invoke(HookPosRequest, t)

	if p.inUse < p.capacity {
		p.inUse++
		p.invoke(HookPosGrant, t)

		return true
	}

	heap.Push(&p.waiting, t)

	return false
}

// Release returns a unit. The best waiter, if any, takes it immediately and is
// woken at the current time.
func (p *PriorityPool) Release() {
	if p.inUse == 0 {
		logrus.Panicf("pool %s: releasing a unit that is not held", p.Name())
	}

	p.inUse--
	p.invoke(HookPosRelease, nil)

	if len(p.waiting) == 0 {
		return
	}

	t := heap.Pop(&p.waiting).(*Ticket)
	p.inUse++
	p.invoke(HookPosGrant, t)
	p.waker.Wake(t.Holder)
}

func (p *PriorityPool) invoke(pos *hooking.HookPos, t *Ticket) {
	if p.NumHooks() == 0 {
		return
	}

	ctx := hooking.HookCtx{
		Domain: p,
		Pos:    pos,
	}
	if t != nil {
		ctx.Item = *t
	}

	p.InvokeHook(ctx)
}

type ticketHeap []*Ticket

func (h ticketHeap) Len() int {
	return len(h)
}

func (h ticketHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}

	return h[i].Seq < h[j].Seq
}

func (h ticketHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *ticketHeap) Push(x interface{}) {
	*h = append(*h, x.(*Ticket))
}

func (h *ticketHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]

	return item
}
