package simulation

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/wardsim/datarecording"
	"github.com/sarchlab/wardsim/hospital"
	"github.com/sarchlab/wardsim/monitoring"
	"github.com/sarchlab/wardsim/sim/process"
)

var _ = Describe("Builder", func() {
	It("should refuse a monitor port without monitoring", func() {
		Expect(func() {
			_, _ = MakeBuilder().WithoutMonitoring().WithMonitorPort(8080).Build()
		}).To(Panic())
	})

	It("should refuse an output file without recording", func() {
		Expect(func() {
			_, _ = MakeBuilder().
				WithoutMonitoring().
				WithoutRecording().
				WithOutputFileName("x").
				Build()
		}).To(Panic())
	})
})

var _ = Describe("Simulation", func() {
	var (
		output     string
		simulation *Simulation
		ward       *hospital.Hospital
	)

	BeforeEach(func() {
		output = filepath.Join(GinkgoT().TempDir(), "run")

		var err error
		simulation, err = MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(output).
			Build()
		Expect(err).NotTo(HaveOccurred())

		ward, err = hospital.MakeBuilder().
			WithRuntime(simulation.Runtime()).
			WithCapacity(1).
			Build("Ward")
		Expect(err).NotTo(HaveOccurred())

		simulation.RegisterWard(ward)
	})

	AfterEach(func() {
		Expect(simulation.Terminate()).To(Succeed())
	})

	It("should look up wards", func() {
		Expect(simulation.Ward("Ward")).To(BeIdenticalTo(ward))
		Expect(simulation.Ward("ICU")).To(BeNil())
		Expect(simulation.Wards()).To(ConsistOf(ward))
		Expect(simulation.ID()).NotTo(BeEmpty())
		Expect(simulation.Monitor()).To(BeNil())
	})

	It("should not register a ward twice", func() {
		Expect(func() { simulation.RegisterWard(ward) }).To(Panic())
	})

	It("should record the ward", func() {
		Expect(ward.Admit(hospital.Patient{
			ID: "A", Priority: 2, LengthOfStay: 10,
		})).To(Succeed())
		Expect(ward.Admit(hospital.Patient{
			ID: "B", Priority: 1, LengthOfStay: 5,
		})).To(Succeed())
		Expect(ward.StartAudit()).To(Succeed())

		Expect(simulation.RunUntil(20)).To(Succeed())
		Expect(simulation.Engine().Now()).To(Equal(20.0))

		tracer := simulation.BedWaitTracer("Ward")
		Expect(tracer.Priorities()).To(Equal([]int{1, 2}))
		Expect(tracer.AverageWait(1)).To(Equal(10.0))
		Expect(tracer.AverageWait(2)).To(Equal(0.0))
		Expect(simulation.BedWaitTracer("ICU")).To(BeNil())

		Expect(simulation.Terminate()).To(Succeed())

		reader, err := datarecording.NewReader(output + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable(datarecording.QueueTimeTable,
			datarecording.QueueTimeEntry{})

		_, n, err := reader.Query(context.Background(),
			datarecording.QueueTimeTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
	})
})

var _ = Describe("Simulation without recording", func() {
	It("should not write a database", func() {
		dir := GinkgoT().TempDir()
		wd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		defer func() { Expect(os.Chdir(wd)).To(Succeed()) }()

		s, err := MakeBuilder().WithoutMonitoring().WithoutRecording().Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.DataRecorder()).To(BeNil())

		Expect(s.RunUntil(1)).To(Succeed())
		Expect(s.Terminate()).To(Succeed())

		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})
})

var _ = Describe("Simulation with monitoring", func() {
	It("should serve the monitor", func() {
		s, err := MakeBuilder().WithoutRecording().Build()
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(s.Terminate()).To(Succeed()) }()

		Expect(s.MonitorURL()).To(HavePrefix("http://localhost:"))

		rsp, err := http.Get(s.MonitorURL() + "/api/now")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})

	It("should keep one time bar across runs", func() {
		s, err := MakeBuilder().WithoutRecording().Build()
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(s.Terminate()).To(Succeed()) }()

		slept := false
		var sleeper process.Func
		sleeper = func(rt *process.Runtime) error {
			if slept {
				return nil
			}

			slept = true

			return rt.Sleep(sleeper, 8)
		}
		s.Runtime().Start(sleeper)

		Expect(s.RunUntil(5)).To(Succeed())
		Expect(s.RunUntil(10)).To(Succeed())

		rsp, err := http.Get(s.MonitorURL() + "/api/progress")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		var bars []monitoring.ProgressBarStatus
		Expect(json.NewDecoder(rsp.Body).Decode(&bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Total).To(Equal(uint64(10)))
		Expect(bars[0].Finished).To(Equal(uint64(8)))
	})
})
