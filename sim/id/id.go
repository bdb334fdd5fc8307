// Package id generates identifiers for events and patients.
//
// The default generator is sequential so that two runs of the same scenario
// produce the same identifiers. Random (xid) identifiers can be switched on
// before the first identifier is generated.
package id

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// Generator can generate IDs.
type Generator interface {
	Generate() string
}

var (
	generatorMutex sync.Mutex
	generator      Generator
)

// NewSequentialGenerator returns a generator counting up from 1.
func NewSequentialGenerator() Generator {
	return &sequentialGenerator{}
}

// NewRandomGenerator returns a generator of globally unique xid strings.
func NewRandomGenerator() Generator {
	return randomGenerator{}
}

// UseRandom switches the package generator to xid. It panics if an ID has
// already been generated, since mixing the two kinds breaks replay.
func UseRandom() {
	generatorMutex.Lock()
	defer generatorMutex.Unlock()

	if generator != nil {
		logrus.Panic("cannot change id generator type after using it")
	}

	generator = NewRandomGenerator()
}

// Generate returns a new ID from the package generator.
func Generate() string {
	generatorMutex.Lock()
	if generator == nil {
		generator = NewSequentialGenerator()
	}
	g := generator
	generatorMutex.Unlock()

	return g.Generate()
}

type sequentialGenerator struct {
	nextID uint64
}

func (g *sequentialGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	return strconv.FormatUint(idNumber, 10)
}

type randomGenerator struct{}

func (randomGenerator) Generate() string {
	return xid.New().String()
}
