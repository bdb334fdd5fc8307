package datarecording

import (
	"github.com/sarchlab/wardsim/hospital"
	"github.com/sarchlab/wardsim/sim/hooking"
)

// Tables written by the WardRecorder.
const (
	WardTable      = "ward"
	AuditTable     = "audit"
	QueueTimeTable = "queue_time"
	DepartureTable = "departure"
)

// WardEntry describes one ward.
type WardEntry struct {
	Name          string
	Capacity      int
	WarmUp        float64
	AuditInterval float64
	NumPriorities int
}

// AuditEntry is one priority class of one audit snapshot.
type AuditEntry struct {
	Ward     string
	Time     float64
	InBed    int
	Priority int
	Waiting  int
}

// QueueTimeEntry is the wait of one patient for a bed.
type QueueTimeEntry struct {
	Ward       string
	PatientID  string
	Priority   int
	EnterQueue float64
	LeaveQueue float64
	QueueTime  float64
	Counted    bool
}

// DepartureEntry records a patient leaving the ward.
type DepartureEntry struct {
	Ward      string
	PatientID string
	Priority  int
	Time      float64
}

// WardRecorder is a hook that stores the audits, queue times and departures
// of the wards it is attached to.
type WardRecorder struct {
	recorder DataRecorder
}

// NewWardRecorder creates the ward tables in the recorder.
func NewWardRecorder(recorder DataRecorder) *WardRecorder {
	recorder.CreateTable(WardTable, WardEntry{})
	recorder.CreateTable(AuditTable, AuditEntry{})
	recorder.CreateTable(QueueTimeTable, QueueTimeEntry{})
	recorder.CreateTable(DepartureTable, DepartureEntry{})

	return &WardRecorder{recorder: recorder}
}

// RecordWard stores the parameters of a ward.
func (r *WardRecorder) RecordWard(h *hospital.Hospital) {
	r.recorder.InsertData(WardTable, WardEntry{
		Name:          h.Name(),
		Capacity:      h.Capacity(),
		WarmUp:        h.WarmUp(),
		AuditInterval: h.AuditInterval(),
		NumPriorities: h.NumPriorities(),
	})
}

// Func records the hooked ward event.
func (r *WardRecorder) Func(ctx hooking.HookCtx) {
	ward, ok := ctx.Domain.(*hospital.Hospital)
	if !ok {
		return
	}

	switch ctx.Pos {
	case hospital.HookPosAudit:
		s := ctx.Item.(hospital.Snapshot)
		for i, n := range s.Waiting {
			r.recorder.InsertData(AuditTable, AuditEntry{
				Ward:     ward.Name(),
				Time:     s.Time,
				InBed:    s.InBed,
				Priority: i + 1,
				Waiting:  n,
			})
		}

	case hospital.HookPosBedAllocated:
		s := ctx.Item.(hospital.QueueTimeSample)
		r.recorder.InsertData(QueueTimeTable, QueueTimeEntry{
			Ward:       ward.Name(),
			PatientID:  s.PatientID,
			Priority:   s.Priority,
			EnterQueue: s.EnterQueue,
			LeaveQueue: s.LeaveQueue,
			QueueTime:  s.QueueTime,
			Counted:    s.Counted,
		})

	case hospital.HookPosPatientDeparted:
		p := ctx.Item.(hospital.Patient)
		r.recorder.InsertData(DepartureTable, DepartureEntry{
			Ward:      ward.Name(),
			PatientID: p.ID,
			Priority:  p.Priority,
			Time:      ward.Now(),
		})
	}
}
