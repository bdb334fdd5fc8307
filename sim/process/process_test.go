package process

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/wardsim/sim/timing"
)

// sleeper sleeps for each delay in turn and records when it woke up.
type sleeper struct {
	name   string
	delays []timing.VTime
	log    *[]string
	wakes  []timing.VTime
}

func (s *sleeper) Resume(rt *Runtime) error {
	s.wakes = append(s.wakes, rt.Now())
	*s.log = append(*s.log, s.name)

	if len(s.delays) == 0 {
		return nil
	}

	d := s.delays[0]
	s.delays = s.delays[1:]

	return rt.Sleep(s, d)
}

var _ = Describe("Runtime", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *timing.SerialEngine
		rt       *Runtime
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = timing.NewSerialEngine()
		rt = NewRuntime(engine)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should resume a started process at the current time", func() {
		p := NewMockProcess(mockCtrl)
		p.EXPECT().Resume(rt).DoAndReturn(func(r *Runtime) error {
			Expect(r.Now()).To(Equal(timing.VTime(0)))
			return nil
		})

		rt.Start(p)

		Expect(engine.Run()).To(Succeed())
	})

	It("should resume after the sleep delay, keeping local state", func() {
		var log []string
		s := &sleeper{name: "s", delays: []timing.VTime{2, 0, 3.5}, log: &log}

		rt.Start(s)
		Expect(engine.Run()).To(Succeed())

		Expect(s.wakes).To(Equal([]timing.VTime{0, 2, 2, 5.5}))
	})

	It("should interleave processes deterministically", func() {
		var log []string
		a := &sleeper{name: "a", delays: []timing.VTime{1, 1}, log: &log}
		b := &sleeper{name: "b", delays: []timing.VTime{1, 1}, log: &log}

		rt.Start(a)
		rt.Start(b)
		Expect(engine.Run()).To(Succeed())

		Expect(log).To(Equal([]string{"a", "b", "a", "b", "a", "b"}))
	})

	It("should reject a negative delay", func() {
		p := NewMockProcess(mockCtrl)

		err := rt.Sleep(p, -1)

		Expect(errors.Is(err, ErrNegativeDelay)).To(BeTrue())
		Expect(engine.Pending()).To(Equal(0))
	})

	It("should reject a NaN delay", func() {
		p := NewMockProcess(mockCtrl)

		err := rt.Sleep(p, math.NaN())

		Expect(errors.Is(err, ErrNegativeDelay)).To(BeTrue())
		Expect(engine.Pending()).To(Equal(0))
	})

	It("should never resume a process sleeping forever", func() {
		var log []string
		s := &sleeper{
			name:   "s",
			delays: []timing.VTime{1, math.Inf(1)},
			log:    &log,
		}

		rt.Start(s)
		Expect(engine.Run()).To(Succeed())

		Expect(s.wakes).To(Equal([]timing.VTime{0, 1}))
		Expect(engine.Now()).To(Equal(timing.VTime(1)))
		Expect(engine.Pending()).To(Equal(0))
	})

	It("should resume secondary sleepers after same-time primaries", func() {
		var log []string
		late := Func(func(r *Runtime) error {
			log = append(log, "late")
			return nil
		})
		early := Func(func(r *Runtime) error {
			log = append(log, "early")
			return nil
		})

		Expect(rt.SleepSecondary(late, 1)).To(Succeed())
		Expect(rt.Sleep(early, 1)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(log).To(Equal([]string{"early", "late"}))
	})

	It("should wake a process after the events already due now", func() {
		var log []string
		waker := Func(func(r *Runtime) error {
			r.Wake(Func(func(*Runtime) error {
				log = append(log, "woken")
				return nil
			}))
			log = append(log, "waker")
			return nil
		})
		other := Func(func(*Runtime) error {
			log = append(log, "other")
			return nil
		})

		rt.Start(waker)
		rt.Start(other)
		Expect(engine.Run()).To(Succeed())

		Expect(log).To(Equal([]string{"waker", "other", "woken"}))
	})

	It("should surface a process error through the engine", func() {
		p := NewMockProcess(mockCtrl)
		p.EXPECT().Resume(rt).Return(errors.New("stuck"))

		rt.Start(p)

		Expect(engine.Run()).To(MatchError(ContainSubstring("stuck")))
	})
})
