// Package config loads ward scenarios from YAML files and environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/wardsim/hospital"
	"github.com/sarchlab/wardsim/workload"
)

// ErrInvalidConfig is returned when a scenario cannot be simulated.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "WARDSIM_"

// Config is a complete scenario.
type Config struct {
	Ward     WardConfig      `yaml:"ward"`
	Horizon  float64         `yaml:"horizon"`
	Seed     uint64          `yaml:"seed"`
	Arrivals ArrivalConfig   `yaml:"arrivals"`
	Scenario []ScenarioEntry `yaml:"scenario,omitempty"`
	Output   OutputConfig    `yaml:"output"`
	Monitor  MonitorConfig   `yaml:"monitor"`
	LogLevel string          `yaml:"log_level"`
}

// WardConfig describes the ward.
type WardConfig struct {
	Name          string  `yaml:"name"`
	Beds          int     `yaml:"beds"`
	WarmUp        float64 `yaml:"warm_up"`
	AuditInterval float64 `yaml:"audit_interval"`
	NumPriorities int     `yaml:"num_priorities"`
	Audit         bool    `yaml:"audit"`
}

// ArrivalConfig describes randomly generated arrivals.
type ArrivalConfig struct {
	Rate            float64         `yaml:"rate"`
	PriorityWeights []float64       `yaml:"priority_weights"`
	Stays           []workload.Stay `yaml:"stays"`
}

// ScenarioEntry is one pre-listed arrival. A non-empty scenario replaces the
// generated arrivals.
type ScenarioEntry struct {
	Time         float64 `yaml:"time"`
	ID           string  `yaml:"id,omitempty"`
	Priority     int     `yaml:"priority"`
	LengthOfStay float64 `yaml:"los"`
}

// OutputConfig controls the database output.
type OutputConfig struct {
	Record       bool   `yaml:"record"`
	File         string `yaml:"file,omitempty"`
	EventLogging bool   `yaml:"event_logging"`
}

// MonitorConfig controls the monitoring server.
type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"open_browser"`
}

// Default returns a three-priority ward of ten beds fed at one patient per
// unit of time.
func Default() Config {
	return Config{
		Ward: WardConfig{
			Name:          "Ward",
			Beds:          10,
			WarmUp:        100,
			AuditInterval: float64(hospital.DefaultAuditInterval),
			NumPriorities: hospital.DefaultNumPriorities,
			Audit:         true,
		},
		Horizon: 1000,
		Seed:    1,
		Arrivals: ArrivalConfig{
			Rate:            1,
			PriorityWeights: []float64{1, 2, 3},
			Stays: []workload.Stay{
				{Mu: 2, Sigma: 0.5},
				{Mu: 1.8, Sigma: 0.5},
				{Mu: 1.5, Sigma: 0.5},
			},
		},
		Output:   OutputConfig{Record: true},
		LogLevel: "info",
	}
}

// Load reads a YAML scenario on top of the defaults. Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	err = decoder.Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return c, nil
}

// ApplyEnv overrides fields from WARDSIM_* variables. Variables are read
// from the given .env files first; the process environment wins over them.
// Missing files are skipped.
func (c *Config) ApplyEnv(envFiles ...string) error {
	env := map[string]string{}

	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}

		values, err := godotenv.Read(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}

		for k, v := range values {
			env[k] = v
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			return v, true
		}

		v, ok := env[EnvPrefix+key]

		return v, ok
	}

	o := overrider{lookup: lookup}
	o.setInt("BEDS", &c.Ward.Beds)
	o.setFloat("WARM_UP", &c.Ward.WarmUp)
	o.setFloat("AUDIT_INTERVAL", &c.Ward.AuditInterval)
	o.setFloat("HORIZON", &c.Horizon)
	o.setUint("SEED", &c.Seed)
	o.setFloat("RATE", &c.Arrivals.Rate)
	o.setString("OUTPUT", &c.Output.File)
	o.setString("LOG_LEVEL", &c.LogLevel)
	o.setInt("MONITOR_PORT", &c.Monitor.Port)

	return o.err
}

type overrider struct {
	lookup func(key string) (string, bool)
	err    error
}

func (o *overrider) parse(key string, parse func(string) error) {
	v, ok := o.lookup(key)
	if !ok || o.err != nil {
		return
	}

	if err := parse(v); err != nil {
		o.err = fmt.Errorf("%s%s=%q: %w", EnvPrefix, key, v, ErrInvalidConfig)
		return
	}

	logrus.WithField("variable", EnvPrefix+key).Debug("config overridden")
}

func (o *overrider) setInt(key string, dst *int) {
	o.parse(key, func(v string) error {
		n, err := strconv.Atoi(v)
		*dst = n
		return err
	})
}

func (o *overrider) setUint(key string, dst *uint64) {
	o.parse(key, func(v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		*dst = n
		return err
	})
}

func (o *overrider) setFloat(key string, dst *float64) {
	o.parse(key, func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		*dst = f
		return err
	})
}

func (o *overrider) setString(key string, dst *string) {
	o.parse(key, func(v string) error {
		*dst = v
		return nil
	})
}

// Validate rejects scenarios that cannot be simulated.
func (c *Config) Validate() error {
	w := c.Ward

	switch {
	case w.Beds < 1:
		return invalid("ward.beds must be at least 1, got %d", w.Beds)
	case w.WarmUp < 0 || math.IsNaN(w.WarmUp):
		return invalid("ward.warm_up must not be negative, got %g", w.WarmUp)
	case !(w.AuditInterval > 0):
		return invalid("ward.audit_interval must be positive, got %g",
			w.AuditInterval)
	case w.NumPriorities < 1:
		return invalid("ward.num_priorities must be at least 1, got %d",
			w.NumPriorities)
	case !(c.Horizon > 0) || math.IsInf(c.Horizon, 1):
		return invalid("horizon must be positive and finite, got %g",
			c.Horizon)
	case c.Monitor.Port != 0 && c.Monitor.Port < 1000:
		return invalid("monitor.port must be 0 or at least 1000, got %d",
			c.Monitor.Port)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level %q", c.LogLevel)
	}

	if len(c.Scenario) > 0 {
		return c.validateScenario()
	}

	return c.validateArrivals()
}

func (c *Config) validateScenario() error {
	for i, e := range c.Scenario {
		switch {
		case e.Time < 0 || math.IsNaN(e.Time):
			return invalid("scenario[%d].time must not be negative", i)
		case e.Priority < 1 || e.Priority > c.Ward.NumPriorities:
			return invalid("scenario[%d].priority must be in 1..%d, got %d",
				i, c.Ward.NumPriorities, e.Priority)
		case e.LengthOfStay < 0 || math.IsNaN(e.LengthOfStay):
			return invalid("scenario[%d].los must not be negative", i)
		}
	}

	return nil
}

func (c *Config) validateArrivals() error {
	a := c.Arrivals
	n := c.Ward.NumPriorities

	if len(a.PriorityWeights) != n {
		return invalid("arrivals.priority_weights needs %d values, got %d",
			n, len(a.PriorityWeights))
	}

	if len(a.Stays) != n {
		return invalid("arrivals.stays needs %d values, got %d",
			n, len(a.Stays))
	}

	if _, err := c.Generator(); err != nil {
		return invalid("arrivals: %s", err)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig)
}

// Generator builds the arrival generator of the scenario.
func (c *Config) Generator() (*workload.Generator, error) {
	return workload.GeneratorBuilder{}.
		WithSeed(c.Seed).
		WithRate(c.Arrivals.Rate).
		WithPriorityWeights(c.Arrivals.PriorityWeights...).
		WithStays(c.Arrivals.Stays...).
		Build()
}

// ScenarioArrivals returns the pre-listed arrivals, in file order.
func (c *Config) ScenarioArrivals() []workload.Arrival {
	arrivals := make([]workload.Arrival, 0, len(c.Scenario))
	for _, e := range c.Scenario {
		arrivals = append(arrivals, workload.Arrival{
			Time: e.Time,
			Patient: hospital.Patient{
				ID:           e.ID,
				Priority:     e.Priority,
				LengthOfStay: e.LengthOfStay,
			},
		})
	}

	return arrivals
}
