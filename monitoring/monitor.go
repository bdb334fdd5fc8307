// Package monitoring turns a running simulation into a web server that
// reports the state of the wards and lets the user pause the engine.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"
	"gonum.org/v1/gonum/stat"

	"github.com/sarchlab/wardsim/hospital"
	"github.com/sarchlab/wardsim/monitoring/web"
	"github.com/sarchlab/wardsim/sim/id"
	"github.com/sarchlab/wardsim/sim/timing"
)

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine     timing.Engine
	portNumber int

	wardsLock sync.RWMutex
	wards     map[string]*hospital.Hospital

	inspectLock sync.Mutex

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server   *http.Server
	listener net.Listener
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		wards: make(map[string]*hospital.Hospital),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		logrus.Warnf("port number %d is not allowed for the monitoring "+
			"server, using a random port instead", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e timing.Engine) {
	m.engine = e
}

// RegisterWard registers a ward to be monitored.
func (m *Monitor) RegisterWard(h *hospital.Hospital) {
	m.wardsLock.Lock()
	defer m.wardsLock.Unlock()

	m.wards[h.Name()] = h
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        id.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler serving the monitoring API and pages.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/wards", m.listWards)
	r.HandleFunc("/api/ward/{name}", m.wardStatus)
	r.HandleFunc("/api/ward/{name}/detail", m.wardDetail)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// monitoring page.
func (m *Monitor) StartServer() (string, error) {
	if m.engine == nil {
		return "", errors.New("monitor has no engine")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", m.portNumber))
	if err != nil {
		return "", err
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("monitoring server stopped")
		}
	}()

	return url, nil
}

// OpenBrowser opens the monitoring page in the default browser.
func (m *Monitor) OpenBrowser(url string) {
	if err := browser.OpenURL(url); err != nil {
		logrus.WithError(err).Warn("cannot open browser")
	}
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

// inspect runs f while no event can be triggered.
func (m *Monitor) inspect(f func()) {
	m.inspectLock.Lock()
	defer m.inspectLock.Unlock()

	if !m.engine.IsPaused() {
		m.engine.Pause()
		defer m.engine.Continue()
	}

	f()
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, struct {
		Now    float64 `json:"now"`
		Paused bool    `json:"paused"`
	}{m.engine.Now(), m.engine.IsPaused()})
}

func (m *Monitor) listWards(w http.ResponseWriter, _ *http.Request) {
	m.wardsLock.RLock()
	names := make([]string, 0, len(m.wards))
	for name := range m.wards {
		names = append(names, name)
	}
	m.wardsLock.RUnlock()

	sort.Strings(names)

	writeJSON(w, names)
}

// WardStatus is the state of a ward at one point in virtual time.
type WardStatus struct {
	Name          string    `json:"name"`
	Now           float64   `json:"now"`
	Capacity      int       `json:"capacity"`
	InBed         int       `json:"in_bed"`
	Waiting       []int     `json:"waiting"`
	Admitted      uint64    `json:"admitted"`
	Departed      uint64    `json:"departed"`
	NumSnapshots  int       `json:"num_snapshots"`
	MeanQueueTime []float64 `json:"mean_queue_time"`
}

func statusOf(h *hospital.Hospital) WardStatus {
	s := WardStatus{
		Name:         h.Name(),
		Now:          h.Now(),
		Capacity:     h.Capacity(),
		InBed:        h.InBed(),
		Waiting:      h.WaitingCounts(),
		Admitted:     h.NumAdmitted(),
		Departed:     h.NumDeparted(),
		NumSnapshots: len(h.Snapshots()),
	}

	for p := 1; p <= h.NumPriorities(); p++ {
		times := h.QueueTimes(p)

		mean := 0.0
		if len(times) > 0 {
			mean = stat.Mean(times, nil)
		}

		s.MeanQueueTime = append(s.MeanQueueTime, mean)
	}

	return s
}

func (m *Monitor) wardStatus(w http.ResponseWriter, r *http.Request) {
	ward := m.findWardOr404(w, mux.Vars(r)["name"])
	if ward == nil {
		return
	}

	var status WardStatus
	m.inspect(func() { status = statusOf(ward) })

	writeJSON(w, status)
}

func (m *Monitor) wardDetail(w http.ResponseWriter, r *http.Request) {
	ward := m.findWardOr404(w, mux.Vars(r)["name"])
	if ward == nil {
		return
	}

	buf := bytes.NewBuffer(nil)

	var err error
	m.inspect(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(ward)
		serializer.SetMaxDepth(1)
		err = serializer.Serialize(buf)
	})

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (m *Monitor) findWardOr404(
	w http.ResponseWriter,
	name string,
) *hospital.Hospital {
	m.wardsLock.RLock()
	ward, ok := m.wards[name]
	m.wardsLock.RUnlock()

	if !ok {
		http.Error(w, "Ward not found", http.StatusNotFound)
		return nil
	}

	return ward
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]ProgressBarStatus, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Status())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		logrus.WithError(err).Error("cannot write response")
	}
}
