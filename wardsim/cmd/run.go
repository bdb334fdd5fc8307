package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/wardsim/config"
	"github.com/sarchlab/wardsim/hospital"
	"github.com/sarchlab/wardsim/report"
	"github.com/sarchlab/wardsim/simulation"
	"github.com/sarchlab/wardsim/workload"
)

type runOptions struct {
	configFile    string
	envFile       string
	beds          int
	warmUp        float64
	horizon       float64
	seed          uint64
	rate          float64
	auditInterval float64
	output        string
	noRecord      bool
	monitor       bool
	monitorPort   int
	openBrowser   bool
	eventLogging  bool
	randomIDs     bool
	logLevel      string
}

func newRunCmd() *cobra.Command {
	o := &runOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a ward simulation and print the queue-time report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.config(cmd)
			if err != nil {
				return err
			}

			return run(cmd, cfg, o.randomIDs)
		},
	}

	f := runCmd.Flags()
	f.StringVar(&o.configFile, "config", "", "YAML scenario file")
	f.StringVar(&o.envFile, "env-file", ".env", "File with WARDSIM_* overrides")
	f.IntVar(&o.beds, "beds", 0, "Number of beds")
	f.Float64Var(&o.warmUp, "warm-up", 0, "Time excluded from statistics")
	f.Float64Var(&o.horizon, "horizon", 0, "Time at which the simulation stops")
	f.Uint64Var(&o.seed, "seed", 0, "Seed of the arrival generator")
	f.Float64Var(&o.rate, "rate", 0, "Mean arrivals per unit of time")
	f.Float64Var(&o.auditInterval, "audit-interval", 0, "Time between audits")
	f.StringVar(&o.output, "output", "", "Name of the SQLite output, without extension")
	f.BoolVar(&o.noRecord, "no-record", false, "Do not write a database")
	f.BoolVar(&o.monitor, "monitor", false, "Serve the monitoring page")
	f.IntVar(&o.monitorPort, "monitor-port", 0, "Port of the monitoring server")
	f.BoolVar(&o.openBrowser, "open-browser", false, "Open the monitoring page")
	f.BoolVar(&o.eventLogging, "log-events", false, "Log every event at debug level")
	f.BoolVar(&o.randomIDs, "random-ids", false, "Use globally unique IDs")
	f.StringVar(&o.logLevel, "log-level", "", "Log verbosity (debug, info, warn, error)")

	return runCmd
}

// config merges defaults, the config file, environment overrides and flags,
// in increasing order of precedence.
func (o *runOptions) config(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if o.configFile != "" {
		var err error

		cfg, err = config.Load(o.configFile)
		if err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(o.envFile); err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed

	if changed("beds") {
		cfg.Ward.Beds = o.beds
	}
	if changed("warm-up") {
		cfg.Ward.WarmUp = o.warmUp
	}
	if changed("horizon") {
		cfg.Horizon = o.horizon
	}
	if changed("seed") {
		cfg.Seed = o.seed
	}
	if changed("rate") {
		cfg.Arrivals.Rate = o.rate
	}
	if changed("audit-interval") {
		cfg.Ward.AuditInterval = o.auditInterval
	}
	if changed("output") {
		cfg.Output.File = o.output
	}
	if o.noRecord {
		cfg.Output.Record = false
	}
	if o.eventLogging {
		cfg.Output.EventLogging = true
	}
	if o.monitor {
		cfg.Monitor.Enabled = true
	}
	if changed("monitor-port") {
		cfg.Monitor.Port = o.monitorPort
	}
	if o.openBrowser {
		cfg.Monitor.OpenBrowser = true
	}
	if changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	return cfg, cfg.Validate()
}

func buildSimulation(cfg config.Config, randomIDs bool) (*simulation.Simulation, error) {
	b := simulation.MakeBuilder()

	if cfg.Monitor.Enabled {
		b = b.WithMonitorPort(cfg.Monitor.Port)
		if cfg.Monitor.OpenBrowser {
			b = b.WithBrowser()
		}
	} else {
		b = b.WithoutMonitoring()
	}

	if cfg.Output.Record {
		b = b.WithOutputFileName(cfg.Output.File)
	} else {
		b = b.WithoutRecording()
	}

	if cfg.Output.EventLogging {
		b = b.WithEventLogging()
	}

	if randomIDs {
		b = b.WithRandomIDs()
	}

	return b.Build()
}

func run(cmd *cobra.Command, cfg config.Config, randomIDs bool) error {
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logrus.SetLevel(level)

	s, err := buildSimulation(cfg, randomIDs)
	if err != nil {
		return err
	}

	defer func() {
		if err := s.Terminate(); err != nil {
			logrus.WithError(err).Error("cannot terminate simulation")
		}
	}()

	ward, err := hospital.MakeBuilder().
		WithRuntime(s.Runtime()).
		WithCapacity(cfg.Ward.Beds).
		WithWarmUp(cfg.Ward.WarmUp).
		WithAuditInterval(cfg.Ward.AuditInterval).
		WithNumPriorities(cfg.Ward.NumPriorities).
		Build(cfg.Ward.Name)
	if err != nil {
		return err
	}

	s.RegisterWard(ward)

	if cfg.Ward.Audit {
		if err := ward.StartAudit(); err != nil {
			return err
		}
	}

	if err := startArrivals(s, ward, cfg); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"ward":    ward.Name(),
		"beds":    ward.Capacity(),
		"horizon": cfg.Horizon,
		"seed":    cfg.Seed,
	}).Info("simulation started")

	if err := s.RunUntil(cfg.Horizon); err != nil {
		return err
	}

	return report.Summarize(ward).Print(cmd.OutOrStdout())
}

func startArrivals(
	s *simulation.Simulation,
	ward *hospital.Hospital,
	cfg config.Config,
) error {
	if len(cfg.Scenario) > 0 {
		replay, err := workload.NewReplay(ward, cfg.ScenarioArrivals())
		if err != nil {
			return err
		}

		s.Runtime().Start(replay)

		return nil
	}

	gen, err := cfg.Generator()
	if err != nil {
		return err
	}

	s.Runtime().Start(workload.NewArrivalProcess(ward, gen, cfg.Horizon))

	return nil
}
