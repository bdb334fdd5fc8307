// Package hospital models a ward whose beds are allocated to patients by
// priority. It runs one admission process per patient and an optional audit
// process that samples occupancy after a warm-up period.
package hospital

import (
	"fmt"
	"math"

	"github.com/sarchlab/wardsim/sim/hooking"
	"github.com/sarchlab/wardsim/sim/id"
	"github.com/sarchlab/wardsim/sim/naming"
	"github.com/sarchlab/wardsim/sim/process"
	"github.com/sarchlab/wardsim/sim/resource"
	"github.com/sarchlab/wardsim/sim/timing"
	"github.com/sirupsen/logrus"
)

// Ward hook positions.
var (
	HookPosPatientQueued   = &hooking.HookPos{Name: "PatientQueued"}
	HookPosBedAllocated    = &hooking.HookPos{Name: "BedAllocated"}
	HookPosPatientDeparted = &hooking.HookPos{Name: "PatientDeparted"}
	HookPosAudit           = &hooking.HookPos{Name: "Audit"}
)

// DefaultNumPriorities is the number of priority classes of a ward unless
// configured otherwise.
const DefaultNumPriorities = 3

// DefaultAuditInterval is the time between two audit snapshots.
const DefaultAuditInterval timing.VTime = 1

// Builder builds Hospitals.
type Builder struct {
	rt            *process.Runtime
	capacity      int
	warmUp        timing.VTime
	auditInterval timing.VTime
	numPriorities int
}

// MakeBuilder returns a Builder with the default audit interval and number of
// priorities.
func MakeBuilder() Builder {
	return Builder{
		auditInterval: DefaultAuditInterval,
		numPriorities: DefaultNumPriorities,
	}
}

// WithRuntime sets the runtime the ward's processes run on.
func (b Builder) WithRuntime(rt *process.Runtime) Builder {
	b.rt = rt
	return b
}

// WithCapacity sets the number of beds.
func (b Builder) WithCapacity(capacity int) Builder {
	b.capacity = capacity
	return b
}

// WithWarmUp sets the period excluded from statistics.
func (b Builder) WithWarmUp(warmUp timing.VTime) Builder {
	b.warmUp = warmUp
	return b
}

// WithAuditInterval sets the time between two audit snapshots.
func (b Builder) WithAuditInterval(interval timing.VTime) Builder {
	b.auditInterval = interval
	return b
}

// WithNumPriorities sets how many priority classes exist. Priorities run from
// 1 to n.
func (b Builder) WithNumPriorities(n int) Builder {
	b.numPriorities = n
	return b
}

// Build creates the Hospital. All parameters are checked here so that a bad
// scenario fails before the simulation starts.
func (b Builder) Build(name string) (*Hospital, error) {
	if err := naming.Validate(name); err != nil {
		return nil, err
	}

	if b.rt == nil {
		return nil, fmt.Errorf("ward %s has no runtime", name)
	}

	if b.warmUp < 0 || math.IsNaN(b.warmUp) {
		return nil, fmt.Errorf("ward %s warm-up %g: %w",
			name, b.warmUp, ErrNegativeDuration)
	}

	if !(b.auditInterval > 0) {
		return nil, fmt.Errorf("ward %s audit interval %g: %w",
			name, b.auditInterval, ErrInvalidInterval)
	}

	if b.numPriorities < 1 {
		return nil, fmt.Errorf("ward %s with %d priority classes: %w",
			name, b.numPriorities, ErrInvalidPriority)
	}

	beds, err := resource.PoolBuilder{}.
		WithRuntime(b.rt).
		WithCapacity(b.capacity).
		Build(naming.BuildName(name, "Beds"))
	if err != nil {
		return nil, err
	}

	h := &Hospital{
		NamedBase:     naming.MakeNamedBase(name),
		rt:            b.rt,
		beds:          beds,
		warmUp:        b.warmUp,
		auditInterval: b.auditInterval,
		waiting:       make([]int, b.numPriorities),
		queueTimes:    make([][]timing.VTime, b.numPriorities),
	}

	return h, nil
}

// New creates a ward with the default audit interval and priorities.
func New(
	rt *process.Runtime,
	capacity int,
	warmUp timing.VTime,
) (*Hospital, error) {
	return MakeBuilder().
		WithRuntime(rt).
		WithCapacity(capacity).
		WithWarmUp(warmUp).
		Build("Ward")
}

// Hospital owns the beds, the per-priority waiting counts, the queue-time
// samples and the audit snapshots. Only its own processes mutate them.
type Hospital struct {
	hooking.HookableBase
	naming.NamedBase

	rt            *process.Runtime
	beds          *resource.PriorityPool
	warmUp        timing.VTime
	auditInterval timing.VTime

	waiting      []int
	queueTimes   [][]timing.VTime
	snapshots    []Snapshot
	auditStarted bool

	admitted uint64
	departed uint64
}

// Admit starts the admission process of a patient at the current time.
func (h *Hospital) Admit(p Patient) error {
	if p.Priority < 1 || p.Priority > len(h.waiting) {
		return fmt.Errorf("patient %s priority %d not in 1..%d: %w",
			p.ID, p.Priority, len(h.waiting), ErrInvalidPriority)
	}

	if p.LengthOfStay < 0 || math.IsNaN(p.LengthOfStay) {
		return fmt.Errorf("patient %s length of stay %g: %w",
			p.ID, p.LengthOfStay, ErrNegativeDuration)
	}

	if p.ID == "" {
		p.ID = id.Generate()
	}

	h.admitted++
	h.rt.Start(&admission{ward: h, patient: &p})

	return nil
}

// StartAudit starts the audit process. The first snapshot is taken once the
// warm-up has passed, then one every audit interval, forever.
func (h *Hospital) StartAudit() error {
	if h.auditStarted {
		return ErrAuditStarted
	}

	h.auditStarted = true
	h.rt.Start(&audit{ward: h})

	return nil
}

// Beds returns the bed pool, for attaching hooks.
func (h *Hospital) Beds() *resource.PriorityPool {
	return h.beds
}

// Capacity returns the number of beds.
func (h *Hospital) Capacity() int {
	return h.beds.Capacity()
}

// WarmUp returns the warm-up period.
func (h *Hospital) WarmUp() timing.VTime {
	return h.warmUp
}

// AuditInterval returns the time between two snapshots.
func (h *Hospital) AuditInterval() timing.VTime {
	return h.auditInterval
}

// NumPriorities returns the number of priority classes.
func (h *Hospital) NumPriorities() int {
	return len(h.waiting)
}

// Now returns the current virtual time.
func (h *Hospital) Now() timing.VTime {
	return h.rt.Now()
}

// InBed returns the number of patients holding a bed.
func (h *Hospital) InBed() int {
	return h.beds.InUse()
}

// WaitingCount returns the number of waiting patients of one priority.
func (h *Hospital) WaitingCount(priority int) int {
	if priority < 1 || priority > len(h.waiting) {
		return 0
	}

	return h.waiting[priority-1]
}

// WaitingCounts returns the waiting counts indexed by priority-1.
func (h *Hospital) WaitingCounts() []int {
	return append([]int(nil), h.waiting...)
}

// QueueTimes returns the queue-time samples of one priority.
func (h *Hospital) QueueTimes(priority int) []timing.VTime {
	if priority < 1 || priority > len(h.queueTimes) {
		return nil
	}

	return append([]timing.VTime(nil), h.queueTimes[priority-1]...)
}

// Snapshots returns the audit snapshots taken so far, oldest first.
func (h *Hospital) Snapshots() []Snapshot {
	out := make([]Snapshot, len(h.snapshots))
	for i, s := range h.snapshots {
		out[i] = s
		out[i].Waiting = append([]int(nil), s.Waiting...)
	}

	return out
}

// NumAdmitted returns the number of patients admitted so far.
func (h *Hospital) NumAdmitted() uint64 {
	return h.admitted
}

// NumDeparted returns the number of patients who have left their bed.
func (h *Hospital) NumDeparted() uint64 {
	return h.departed
}

func (h *Hospital) patientQueued(p *Patient) {
	h.waiting[p.Priority-1]++

	h.invoke(HookPosPatientQueued, *p, nil)
}

func (h *Hospital) bedAllocated(p *Patient) {
	h.waiting[p.Priority-1]--

	sample := QueueTimeSample{
		PatientID:  p.ID,
		Priority:   p.Priority,
		EnterQueue: p.timeEnterQueue,
		LeaveQueue: p.timeLeaveQueue,
		QueueTime:  p.timeLeaveQueue - p.timeEnterQueue,
		Counted:    p.timeLeaveQueue >= h.warmUp,
	}

	if sample.QueueTime < 0 {
		logrus.Panicf("patient %s left the queue before entering it", p.ID)
	}

	if sample.Counted {
		h.queueTimes[p.Priority-1] = append(
			h.queueTimes[p.Priority-1], sample.QueueTime)
	}

	h.invoke(HookPosBedAllocated, sample, *p)
}

func (h *Hospital) patientDeparted(p *Patient) {
	h.departed++

	h.invoke(HookPosPatientDeparted, *p, nil)
}

func (h *Hospital) takeSnapshot() {
	s := Snapshot{
		Time:    h.rt.Now(),
		InBed:   h.beds.InUse(),
		Waiting: append([]int(nil), h.waiting...),
	}
	h.snapshots = append(h.snapshots, s)

	h.invoke(HookPosAudit, s, nil)
}

func (h *Hospital) invoke(pos *hooking.HookPos, item, detail interface{}) {
	if h.NumHooks() == 0 {
		return
	}

	h.InvokeHook(hooking.HookCtx{
		Domain: h,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
