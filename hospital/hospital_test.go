package hospital

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/wardsim/sim/hooking"
	"github.com/sarchlab/wardsim/sim/naming"
	"github.com/sarchlab/wardsim/sim/process"
	"github.com/sarchlab/wardsim/sim/timing"
)

// arrival admits a patient into the ward at a fixed time.
type arrival struct {
	ward    *Hospital
	at      timing.VTime
	patient Patient
	slept   bool
}

func (a *arrival) Resume(rt *process.Runtime) error {
	if !a.slept {
		a.slept = true
		return rt.Sleep(a, a.at-rt.Now())
	}

	return a.ward.Admit(a.patient)
}

var _ = Describe("Hospital", func() {
	var (
		engine *timing.SerialEngine
		rt     *process.Runtime
	)

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		rt = process.NewRuntime(engine)
	})

	arrive := func(h *Hospital, at timing.VTime, p Patient) {
		rt.Start(&arrival{ward: h, at: at, patient: p})
	}

	Context("when building", func() {
		It("should reject a ward without beds", func() {
			_, err := New(rt, 0, 0)
			Expect(err).To(MatchError(ErrInvalidCapacity))
		})

		It("should reject a negative warm-up", func() {
			_, err := New(rt, 1, -1)
			Expect(err).To(MatchError(ErrNegativeDuration))
		})

		It("should reject a non-positive audit interval", func() {
			_, err := MakeBuilder().
				WithRuntime(rt).
				WithCapacity(1).
				WithAuditInterval(0).
				Build("Ward")
			Expect(err).To(MatchError(ErrInvalidInterval))
		})

		It("should reject zero priority classes", func() {
			_, err := MakeBuilder().
				WithRuntime(rt).
				WithCapacity(1).
				WithNumPriorities(0).
				Build("Ward")
			Expect(err).To(MatchError(ErrInvalidPriority))
		})

		It("should reject a badly formed name", func() {
			_, err := MakeBuilder().
				WithRuntime(rt).
				WithCapacity(1).
				Build("north ward")
			Expect(err).To(MatchError(naming.ErrInvalidName))
		})

		It("should use the defaults", func() {
			h, err := New(rt, 4, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Capacity()).To(Equal(4))
			Expect(h.WarmUp()).To(Equal(timing.VTime(2)))
			Expect(h.NumPriorities()).To(Equal(DefaultNumPriorities))
			Expect(h.AuditInterval()).To(Equal(DefaultAuditInterval))
			Expect(h.Beds().Name()).To(Equal("Ward.Beds"))
		})
	})

	Context("when admitting", func() {
		var h *Hospital

		BeforeEach(func() {
			var err error
			h, err = New(rt, 1, 0)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject an unknown priority", func() {
			Expect(h.Admit(Patient{Priority: 0, LengthOfStay: 1})).
				To(MatchError(ErrInvalidPriority))
			Expect(h.Admit(Patient{Priority: 4, LengthOfStay: 1})).
				To(MatchError(ErrInvalidPriority))
			Expect(h.NumAdmitted()).To(Equal(uint64(0)))
		})

		It("should reject a negative length of stay", func() {
			Expect(h.Admit(Patient{Priority: 1, LengthOfStay: -1})).
				To(MatchError(ErrNegativeDuration))
			Expect(h.Admit(Patient{Priority: 1, LengthOfStay: math.NaN()})).
				To(MatchError(ErrNegativeDuration))
		})

		It("should let an urgent patient overtake a waiting one", func() {
			arrive(h, 0, Patient{ID: "A", Priority: 2, LengthOfStay: 10})
			arrive(h, 1, Patient{ID: "B", Priority: 1, LengthOfStay: 5})

			departures := map[string]timing.VTime{}
			h.AcceptHook(hooking.NewHookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosPatientDeparted {
					departures[ctx.Item.(Patient).ID] = engine.Now()
				}
			}))

			Expect(engine.Run()).To(Succeed())

			Expect(h.QueueTimes(2)).To(Equal([]timing.VTime{0}))
			Expect(h.QueueTimes(1)).To(Equal([]timing.VTime{9}))
			Expect(departures).To(Equal(map[string]timing.VTime{
				"A": 10,
				"B": 15,
			}))
			Expect(h.InBed()).To(Equal(0))
			Expect(h.NumDeparted()).To(Equal(uint64(2)))
		})

		It("should serve by priority then by arrival", func() {
			arrive(h, 0, Patient{ID: "A", Priority: 3, LengthOfStay: 10})
			arrive(h, 1, Patient{ID: "B", Priority: 2, LengthOfStay: 2})
			arrive(h, 2, Patient{ID: "C", Priority: 1, LengthOfStay: 3})
			arrive(h, 3, Patient{ID: "D", Priority: 2, LengthOfStay: 1})

			var order []string
			h.AcceptHook(hooking.NewHookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosBedAllocated {
					order = append(order, ctx.Item.(QueueTimeSample).PatientID)
				}
			}))

			Expect(engine.Run()).To(Succeed())

			Expect(order).To(Equal([]string{"A", "C", "B", "D"}))
			Expect(h.QueueTimes(1)).To(Equal([]timing.VTime{8}))
			Expect(h.QueueTimes(2)).To(Equal([]timing.VTime{12, 12}))
			Expect(engine.Now()).To(Equal(timing.VTime(16)))
		})

		It("should report waiting patients", func() {
			arrive(h, 0, Patient{ID: "A", Priority: 1, LengthOfStay: 10})
			arrive(h, 1, Patient{ID: "B", Priority: 2, LengthOfStay: 1})
			arrive(h, 1, Patient{ID: "C", Priority: 2, LengthOfStay: 1})
			arrive(h, 2, Patient{ID: "D", Priority: 3, LengthOfStay: 1})

			Expect(engine.RunUntil(5)).To(Succeed())

			Expect(h.InBed()).To(Equal(1))
			Expect(h.WaitingCount(1)).To(Equal(0))
			Expect(h.WaitingCount(2)).To(Equal(2))
			Expect(h.WaitingCount(3)).To(Equal(1))
			Expect(h.WaitingCount(7)).To(Equal(0))
			Expect(h.WaitingCounts()).To(Equal([]int{0, 2, 1}))
		})

		It("should give an ID to anonymous patients", func() {
			var queued Patient
			h.AcceptHook(hooking.NewHookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosPatientQueued {
					queued = ctx.Item.(Patient)
				}
			}))

			Expect(h.Admit(Patient{Priority: 1, LengthOfStay: 1})).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(queued.ID).NotTo(BeEmpty())
		})
	})

	It("should fill simultaneous arrivals in arrival order", func() {
		h, err := New(rt, 2, 0)
		Expect(err).NotTo(HaveOccurred())

		Expect(h.Admit(Patient{ID: "A", Priority: 1, LengthOfStay: 4})).To(Succeed())
		Expect(h.Admit(Patient{ID: "B", Priority: 2, LengthOfStay: 4})).To(Succeed())
		Expect(h.Admit(Patient{ID: "C", Priority: 1, LengthOfStay: 4})).To(Succeed())
		Expect(h.Admit(Patient{ID: "D", Priority: 1, LengthOfStay: 4})).To(Succeed())

		var order []string
		h.AcceptHook(hooking.NewHookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosBedAllocated {
				order = append(order, ctx.Item.(QueueTimeSample).PatientID)
			}
		}))

		Expect(engine.Run()).To(Succeed())

		Expect(order).To(Equal([]string{"A", "B", "C", "D"}))
		Expect(h.QueueTimes(1)).To(Equal([]timing.VTime{0, 4, 4}))
		Expect(h.QueueTimes(2)).To(Equal([]timing.VTime{0}))
	})

	It("should give two simultaneous patients the two free beds", func() {
		h, err := New(rt, 2, 0)
		Expect(err).NotTo(HaveOccurred())

		Expect(h.Admit(Patient{ID: "A", Priority: 1, LengthOfStay: 5})).To(Succeed())
		Expect(h.Admit(Patient{ID: "B", Priority: 3, LengthOfStay: 5})).To(Succeed())

		Expect(engine.RunUntil(0)).To(Succeed())

		Expect(h.InBed()).To(Equal(2))
		Expect(h.Beds().InUse()).To(Equal(2))
		Expect(h.WaitingCounts()).To(Equal([]int{0, 0, 0}))
		Expect(h.QueueTimes(1)).To(Equal([]timing.VTime{0}))
		Expect(h.QueueTimes(3)).To(Equal([]timing.VTime{0}))
	})

	It("should keep a bed held by an infinite stay", func() {
		h, err := New(rt, 1, 0)
		Expect(err).NotTo(HaveOccurred())

		Expect(h.Admit(Patient{
			ID: "A", Priority: 2, LengthOfStay: math.Inf(1),
		})).To(Succeed())
		Expect(h.Admit(Patient{ID: "B", Priority: 1, LengthOfStay: 1})).To(Succeed())

		Expect(engine.Run()).To(Succeed())

		Expect(engine.Now()).To(Equal(timing.VTime(0)))
		Expect(h.InBed()).To(Equal(1))
		Expect(h.WaitingCount(1)).To(Equal(1))
		Expect(h.NumDeparted()).To(BeZero())
		Expect(h.QueueTimes(1)).To(BeEmpty())
		Expect(h.QueueTimes(2)).To(Equal([]timing.VTime{0}))
	})

	It("should drop queue times of beds allocated during warm-up", func() {
		h, err := New(rt, 1, 5)
		Expect(err).NotTo(HaveOccurred())

		arrive(h, 0, Patient{ID: "A", Priority: 1, LengthOfStay: 10})
		arrive(h, 1, Patient{ID: "B", Priority: 1, LengthOfStay: 1})

		var samples []QueueTimeSample
		h.AcceptHook(hooking.NewHookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosBedAllocated {
				samples = append(samples, ctx.Item.(QueueTimeSample))
			}
		}))

		Expect(engine.Run()).To(Succeed())

		Expect(h.QueueTimes(1)).To(Equal([]timing.VTime{9}))
		Expect(samples).To(HaveLen(2))
		Expect(samples[0].Counted).To(BeFalse())
		Expect(samples[1].Counted).To(BeTrue())
	})

	It("should count a patient admitted at the end of warm-up", func() {
		h, err := New(rt, 1, 5)
		Expect(err).NotTo(HaveOccurred())

		arrive(h, 5, Patient{ID: "A", Priority: 2, LengthOfStay: 1})

		Expect(engine.Run()).To(Succeed())

		Expect(h.QueueTimes(2)).To(Equal([]timing.VTime{0}))
	})

	Context("when auditing", func() {
		It("should take snapshots after warm-up", func() {
			h, err := New(rt, 1, 5)
			Expect(err).NotTo(HaveOccurred())

			Expect(h.StartAudit()).To(Succeed())
			Expect(engine.RunUntil(8)).To(Succeed())

			var times []timing.VTime
			for _, s := range h.Snapshots() {
				times = append(times, s.Time)
				Expect(s.InBed).To(Equal(0))
				Expect(s.TotalWaiting()).To(Equal(0))
			}
			Expect(times).To(Equal([]timing.VTime{5, 6, 7, 8}))
		})

		It("should refuse to start twice", func() {
			h, err := New(rt, 1, 0)
			Expect(err).NotTo(HaveOccurred())

			Expect(h.StartAudit()).To(Succeed())
			Expect(h.StartAudit()).To(MatchError(ErrAuditStarted))
		})

		It("should see every event of the same instant", func() {
			h, err := MakeBuilder().
				WithRuntime(rt).
				WithCapacity(1).
				WithAuditInterval(2).
				Build("Ward")
			Expect(err).NotTo(HaveOccurred())

			Expect(h.StartAudit()).To(Succeed())
			arrive(h, 2, Patient{ID: "A", Priority: 1, LengthOfStay: 2})
			arrive(h, 2, Patient{ID: "B", Priority: 3, LengthOfStay: 2})

			Expect(engine.RunUntil(4)).To(Succeed())

			snapshots := h.Snapshots()
			Expect(snapshots).To(HaveLen(3))
			Expect(snapshots[1].Time).To(Equal(timing.VTime(2)))
			Expect(snapshots[1].InBed).To(Equal(1))
			Expect(snapshots[1].Waiting).To(Equal([]int{0, 0, 1}))
			Expect(snapshots[2].InBed).To(Equal(1))
			Expect(snapshots[2].Waiting).To(Equal([]int{0, 0, 0}))
		})

		It("should conserve patients at every snapshot", func() {
			h, err := New(rt, 2, 0)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 12; i++ {
				arrive(h, timing.VTime(i)/2, Patient{
					Priority:     i%3 + 1,
					LengthOfStay: timing.VTime(i%4) + 0.5,
				})
			}

			h.AcceptHook(hooking.NewHookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos != HookPosAudit {
					return
				}

				s := ctx.Item.(Snapshot)
				inSystem := int(h.NumAdmitted() - h.NumDeparted())
				Expect(s.InBed + s.TotalWaiting()).To(Equal(inSystem))
				Expect(s.InBed).To(BeNumerically("<=", h.Capacity()))
			}))

			Expect(h.StartAudit()).To(Succeed())
			Expect(engine.RunUntil(30)).To(Succeed())

			Expect(h.Snapshots()).To(HaveLen(31))
			Expect(h.NumDeparted()).To(Equal(uint64(12)))
		})

		It("should hand out copies of the snapshots", func() {
			h, err := New(rt, 1, 0)
			Expect(err).NotTo(HaveOccurred())

			Expect(h.StartAudit()).To(Succeed())
			Expect(engine.RunUntil(0)).To(Succeed())

			s := h.Snapshots()
			s[0].Waiting[0] = 99

			Expect(h.Snapshots()[0].Waiting[0]).To(Equal(0))
		})
	})

	It("should be deterministic", func() {
		runOnce := func() []timing.VTime {
			e := timing.NewSerialEngine()
			r := process.NewRuntime(e)
			h, err := New(r, 2, 0)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 20; i++ {
				r.Start(&arrival{
					ward: h,
					at:   timing.VTime(i % 5),
					patient: Patient{
						Priority:     i%3 + 1,
						LengthOfStay: timing.VTime(i%7) + 1,
					},
				})
			}

			Expect(e.Run()).To(Succeed())

			var all []timing.VTime
			for p := 1; p <= 3; p++ {
				all = append(all, h.QueueTimes(p)...)
			}

			return all
		}

		Expect(runOnce()).To(Equal(runOnce()))
	})
})
