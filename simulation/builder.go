package simulation

import (
	"math"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/wardsim/datarecording"
	"github.com/sarchlab/wardsim/monitoring"
	"github.com/sarchlab/wardsim/sim/id"
	"github.com/sarchlab/wardsim/sim/process"
	"github.com/sarchlab/wardsim/sim/timing"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
	recordingOn    bool
	outputFileName string
	eventLogging   bool
	randomIDs      bool
}

// MakeBuilder creates a new builder. Monitoring and recording are on by
// default.
func MakeBuilder() Builder {
	return Builder{
		monitorOn:   true,
		recordingOn: true,
	}
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowser opens the monitoring page once the server is up.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithoutRecording sets the simulation to not write a database.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithEventLogging logs every event at debug level.
func (b Builder) WithEventLogging() Builder {
	b.eventLogging = true
	return b
}

// WithRandomIDs uses globally unique IDs instead of sequential ones.
func (b Builder) WithRandomIDs() Builder {
	b.randomIDs = true
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		logrus.Panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.monitorOn && b.openBrowser {
		logrus.Panic("browser cannot be opened when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		logrus.Panic("output file cannot be set when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	if b.randomIDs {
		id.UseRandom()
	}

	s := &Simulation{
		id:        xid.New().String(),
		wardIndex: make(map[string]int),
	}

	s.engine = timing.NewSerialEngine()
	s.runtime = process.NewRuntime(s.engine)

	if b.eventLogging {
		s.engine.AcceptHook(timing.NewEventLogger(logrus.StandardLogger()))
	}

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "wardsim_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
		s.wardRecorder = datarecording.NewWardRecorder(s.dataRecorder)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor().WithPortNumber(b.monitorPort)
		s.monitor.RegisterEngine(s.engine)

		s.timeProgress = monitoring.NewTimeProgress(s.monitor, math.Inf(1))
		s.engine.AcceptHook(s.timeProgress)

		url, err := s.monitor.StartServer()
		if err != nil {
			s.closeRecorder()
			return nil, err
		}

		s.monitorURL = url

		if b.openBrowser {
			s.monitor.OpenBrowser(url)
		}
	}

	return s, nil
}
