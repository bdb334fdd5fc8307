// Package workload produces the patients that arrive at a ward, either drawn
// from seeded distributions or replayed from a fixed list.
package workload

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sarchlab/wardsim/hospital"
	"github.com/sarchlab/wardsim/sim/timing"
)

// ErrInvalidWorkload is returned when a generator or replay is configured
// with impossible parameters.
var ErrInvalidWorkload = errors.New("invalid workload")

// Stay describes the log-normal length of stay of one priority class.
type Stay struct {
	Mu    float64 `yaml:"mu"`
	Sigma float64 `yaml:"sigma"`
}

// Arrival is one patient entering the ward at Time.
type Arrival struct {
	Time    timing.VTime
	Patient hospital.Patient
}

// GeneratorBuilder builds Generators.
type GeneratorBuilder struct {
	seed    uint64
	rate    float64
	weights []float64
	stays   []Stay
}

// WithSeed sets the seed of the random source.
func (b GeneratorBuilder) WithSeed(seed uint64) GeneratorBuilder {
	b.seed = seed
	return b
}

// WithRate sets the mean number of arrivals per unit of time.
func (b GeneratorBuilder) WithRate(rate float64) GeneratorBuilder {
	b.rate = rate
	return b
}

// WithPriorityWeights sets the relative frequency of each priority, starting
// at priority 1.
func (b GeneratorBuilder) WithPriorityWeights(weights ...float64) GeneratorBuilder {
	b.weights = append([]float64(nil), weights...)
	return b
}

// WithStays sets the length-of-stay distribution of each priority, starting
// at priority 1.
func (b GeneratorBuilder) WithStays(stays ...Stay) GeneratorBuilder {
	b.stays = append([]Stay(nil), stays...)
	return b
}

// Build creates the generator.
func (b GeneratorBuilder) Build() (*Generator, error) {
	if !(b.rate > 0) {
		return nil, fmt.Errorf("arrival rate %g: %w", b.rate, ErrInvalidWorkload)
	}

	if len(b.weights) == 0 {
		return nil, fmt.Errorf("no priority weights: %w", ErrInvalidWorkload)
	}

	if len(b.stays) != len(b.weights) {
		return nil, fmt.Errorf("%d stays for %d priorities: %w",
			len(b.stays), len(b.weights), ErrInvalidWorkload)
	}

	total := 0.0
	for i, w := range b.weights {
		if w < 0 {
			return nil, fmt.Errorf("priority %d weight %g: %w",
				i+1, w, ErrInvalidWorkload)
		}
		total += w
	}

	if total == 0 {
		return nil, fmt.Errorf("all priority weights are zero: %w",
			ErrInvalidWorkload)
	}

	src := rand.NewPCG(b.seed, b.seed^0x9e3779b97f4a7c15)

	g := &Generator{
		interArrival: distuv.Exponential{Rate: b.rate, Src: src},
		priority:     distuv.NewCategorical(b.weights, src),
	}

	for i, s := range b.stays {
		if s.Sigma < 0 {
			return nil, fmt.Errorf("priority %d stay sigma %g: %w",
				i+1, s.Sigma, ErrInvalidWorkload)
		}

		g.stays = append(g.stays,
			distuv.LogNormal{Mu: s.Mu, Sigma: s.Sigma, Src: src})
	}

	return g, nil
}

// A Generator draws patients. All draws share one source, so the sequence
// of arrivals depends only on the seed.
type Generator struct {
	interArrival distuv.Exponential
	priority     distuv.Categorical
	stays        []distuv.LogNormal
	count        uint64
}

// NumPriorities returns the number of priority classes drawn from.
func (g *Generator) NumPriorities() int {
	return len(g.stays)
}

// NextInterval draws the time until the next arrival.
func (g *Generator) NextInterval() timing.VTime {
	return g.interArrival.Rand()
}

// NextPatient draws a patient with a sequential ID.
func (g *Generator) NextPatient() hospital.Patient {
	g.count++
	priority := int(g.priority.Rand()) + 1

	return hospital.Patient{
		ID:           fmt.Sprintf("P%d", g.count),
		Priority:     priority,
		LengthOfStay: g.stays[priority-1].Rand(),
	}
}

// Generate draws every arrival up to and including the horizon.
func (g *Generator) Generate(horizon timing.VTime) []Arrival {
	var arrivals []Arrival

	now := timing.VTime(0)
	for {
		now += g.NextInterval()
		if now > horizon {
			return arrivals
		}

		arrivals = append(arrivals, Arrival{Time: now, Patient: g.NextPatient()})
	}
}
